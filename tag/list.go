package tag

import (
	"fmt"
	"slices"
)

// List is an ordered sequence of tags of a single kind. An empty list
// created with KindEnd takes the kind of the first tag added to it.
type List struct {
	kind  Kind
	tags  []Tag
	owned bool
}

// NewList returns an empty list holding tags of the kind passed.
func NewList(kind Kind) *List {
	return &List{kind: kind}
}

// Kind implements Tag.
func (l *List) Kind() Kind { return KindList }

// ElemKind returns the kind of the elements of the list.
func (l *List) ElemKind() Kind {
	if l == nil {
		return KindEnd
	}
	return l.kind
}

// Len returns the number of elements.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.tags)
}

// At returns the element at index i, or nil if i is out of range.
func (l *List) At(i int) Tag {
	if l == nil || i < 0 || i >= len(l.tags) {
		return nil
	}
	return l.tags[i]
}

// Add appends t to the list. It returns ErrListKind if t is not of the
// element kind of the list.
func (l *List) Add(t Tag) error {
	if t == nil {
		return fmt.Errorf("%w: nil tag", ErrListKind)
	}
	if l.kind == KindEnd && len(l.tags) == 0 {
		l.kind = t.Kind()
	}
	if t.Kind() != l.kind {
		return fmt.Errorf("%w: cannot add %v to list of %v", ErrListKind, t.Kind(), l.kind)
	}
	l.tags = append(l.tags, adopt(t))
	return nil
}

// Tags returns the elements of the list.
func (l *List) Tags() []Tag {
	if l == nil {
		return nil
	}
	return slices.Clone(l.tags)
}

// Compounds returns the elements of a list of compounds. Lists of another
// kind yield nil.
func (l *List) Compounds() []*Compound {
	if l == nil || l.kind != KindCompound {
		return nil
	}
	out := make([]*Compound, 0, len(l.tags))
	for _, t := range l.tags {
		out = append(out, t.(*Compound))
	}
	return out
}

// Clone returns a deep copy of the list. The copy has no parent.
func (l *List) Clone() *List {
	if l == nil {
		return NewList(KindEnd)
	}
	cp := &List{kind: l.kind, tags: make([]Tag, len(l.tags))}
	for i, t := range l.tags {
		t = Clone(t)
		switch v := t.(type) {
		case *Compound:
			v.owned = true
		case *List:
			v.owned = true
		}
		cp.tags[i] = t
	}
	return cp
}
