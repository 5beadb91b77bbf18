package tiles

import (
	"fmt"

	"github.com/oriumgames/tiles/tag"
)

// Generations of a written book.
const (
	GenerationOriginal = iota
	GenerationCopy
	GenerationCopyOfCopy
	GenerationTattered
)

// WrittenBookMaxStackSize is the maximum number of written books in a stack.
const WrittenBookMaxStackSize = 16

const (
	tagGeneration = "generation"
	tagAuthor     = "author"
	tagTitle      = "title"
)

// WrittenBook gives typed access to the tags of a written book item.
type WrittenBook struct {
	nbt *tag.Compound
}

// NewWrittenBook returns a WrittenBook reading and writing nbt. A nil compound
// is replaced by an empty one.
func NewWrittenBook(nbt *tag.Compound) WrittenBook {
	if nbt == nil {
		nbt = tag.NewCompound()
	}
	return WrittenBook{nbt: nbt}
}

// NBT returns the compound backing the book.
func (b WrittenBook) NBT() *tag.Compound { return b.nbt }

// Generation returns the generation of the book, or -1 if it has none.
func (b WrittenBook) Generation() int {
	return int(b.nbt.Int(tagGeneration, -1))
}

// SetGeneration sets the generation of the book. It returns ErrOutOfRange and
// leaves the book unchanged if g is not one of the Generation constants.
func (b WrittenBook) SetGeneration(g int) error {
	if g < GenerationOriginal || g > GenerationTattered {
		return fmt.Errorf("%w: generation %d not in [%d, %d]", ErrOutOfRange, g, GenerationOriginal, GenerationTattered)
	}
	b.nbt.SetInt(tagGeneration, int32(g))
	return nil
}

// Author returns the author of the book, or an empty string.
func (b WrittenBook) Author() string {
	return b.nbt.String(tagAuthor, "")
}

func (b WrittenBook) SetAuthor(author string) {
	b.nbt.SetString(tagAuthor, author)
}

// Title returns the title of the book, or an empty string.
func (b WrittenBook) Title() string {
	return b.nbt.String(tagTitle, "")
}

func (b WrittenBook) SetTitle(title string) {
	b.nbt.SetString(tagTitle, title)
}
