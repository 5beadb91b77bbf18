package tiles

import (
	"errors"
	_ "github.com/df-mc/dragonfly/server/block" // links internal/nbtconv, the go:linkname target of dragonfly item.Crossbow
	"testing"

	"github.com/oriumgames/tiles/tag"
)

func TestWrittenBookGeneration(t *testing.T) {
	b := NewWrittenBook(nil)
	if g := b.Generation(); g != -1 {
		t.Fatalf("default generation = %d, want -1", g)
	}

	tests := []struct {
		g       int
		wantErr bool
	}{
		{GenerationOriginal, false},
		{GenerationCopy, false},
		{GenerationCopyOfCopy, false},
		{GenerationTattered, false},
		{-1, true},
		{4, true},
		{100, true},
	}
	for _, tt := range tests {
		before := b.Generation()
		err := b.SetGeneration(tt.g)
		if tt.wantErr {
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("SetGeneration(%d): err = %v, want ErrOutOfRange", tt.g, err)
			}
			if b.Generation() != before {
				t.Fatalf("SetGeneration(%d) changed the book", tt.g)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SetGeneration(%d): %v", tt.g, err)
		}
		if b.Generation() != tt.g {
			t.Fatalf("Generation() = %d, want %d", b.Generation(), tt.g)
		}
	}
}

func TestWrittenBookText(t *testing.T) {
	nbt := tag.NewCompound()
	b := NewWrittenBook(nbt)
	if b.Author() != "" || b.Title() != "" {
		t.Fatal("author and title should default to empty strings")
	}
	b.SetAuthor("Steve")
	b.SetTitle("Notes")
	if b.Author() != "Steve" || b.Title() != "Notes" {
		t.Fatalf("got %q by %q", b.Title(), b.Author())
	}
	if nbt.String("author", "") != "Steve" {
		t.Fatal("book did not write to the compound passed")
	}

	// A tag of another kind reads as the default.
	nbt.SetString("generation", "two")
	if b.Generation() != -1 {
		t.Fatalf("Generation() = %d for a string tag, want -1", b.Generation())
	}
}
