// Package tag implements the self-describing document tree used to persist
// tile state. A document is a tree of named, typed tags rooted in a
// Compound. Reads are permissive: a missing tag, or a tag of another kind,
// yields the default passed by the caller instead of an error, so documents
// written by older versions keep loading.
//
// The binary form of a document is NBT, encoded with gophertunnel's nbt
// package. See Marshal and Unmarshal.
package tag

import (
	"bytes"
	"errors"
)

// Kind is the kind of a tag. The values match the NBT tag type IDs.
type Kind byte

const (
	KindEnd Kind = iota
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindByteArray
	KindString
	KindList
	KindCompound
)

// String returns the NBT name of the kind.
func (k Kind) String() string {
	switch k {
	case KindEnd:
		return "TAG_End"
	case KindByte:
		return "TAG_Byte"
	case KindShort:
		return "TAG_Short"
	case KindInt:
		return "TAG_Int"
	case KindLong:
		return "TAG_Long"
	case KindFloat:
		return "TAG_Float"
	case KindDouble:
		return "TAG_Double"
	case KindByteArray:
		return "TAG_Byte_Array"
	case KindString:
		return "TAG_String"
	case KindList:
		return "TAG_List"
	case KindCompound:
		return "TAG_Compound"
	default:
		return "TAG_Unknown"
	}
}

var (
	// ErrListKind is returned when a tag is added to a list holding tags of another kind.
	ErrListKind = errors.New("tag: list element kind mismatch")
	// ErrUnsupported is returned when a decoded value has no tag representation.
	ErrUnsupported = errors.New("tag: unsupported value")
)

// Tag is a single node of a document. The kind of a tag never changes.
type Tag interface {
	Kind() Kind
}

type (
	// Byte is a signed 8-bit integer tag.
	Byte int8
	// Short is a signed 16-bit integer tag.
	Short int16
	// Int is a signed 32-bit integer tag.
	Int int32
	// Long is a signed 64-bit integer tag.
	Long int64
	// Float is a 32-bit floating point tag.
	Float float32
	// Double is a 64-bit floating point tag.
	Double float64
	// String is a UTF-8 string tag.
	String string
	// ByteArray is a raw byte array tag.
	ByteArray []byte
)

func (Byte) Kind() Kind      { return KindByte }
func (Short) Kind() Kind     { return KindShort }
func (Int) Kind() Kind       { return KindInt }
func (Long) Kind() Kind      { return KindLong }
func (Float) Kind() Kind     { return KindFloat }
func (Double) Kind() Kind    { return KindDouble }
func (String) Kind() Kind    { return KindString }
func (ByteArray) Kind() Kind { return KindByteArray }

// Clone returns a deep copy of t. Scalar tags are returned as is.
func Clone(t Tag) Tag {
	switch t := t.(type) {
	case *Compound:
		return t.Clone()
	case *List:
		return t.Clone()
	case ByteArray:
		return ByteArray(bytes.Clone(t))
	default:
		return t
	}
}

// Equal reports whether a and b hold the same kind and value. Compounds are
// compared by content, regardless of the order of their names.
func Equal(a, b Tag) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case ByteArray:
		return bytes.Equal(a, b.(ByteArray))
	case *List:
		bl := b.(*List)
		if a.Len() != bl.Len() {
			return false
		}
		for i := range a.tags {
			if !Equal(a.tags[i], bl.tags[i]) {
				return false
			}
		}
		return true
	case *Compound:
		bc := b.(*Compound)
		if a.Len() != bc.Len() {
			return false
		}
		for name, t := range a.tags {
			other, ok := bc.tags[name]
			if !ok || !Equal(t, other) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// adopt prepares t for insertion into a parent. Containers already owned by
// another parent are deep copied so that the document stays a tree.
func adopt(t Tag) Tag {
	switch v := t.(type) {
	case *Compound:
		if v.owned {
			v = v.Clone()
		}
		v.owned = true
		return v
	case *List:
		if v.owned {
			v = v.Clone()
		}
		v.owned = true
		return v
	case ByteArray:
		return ByteArray(bytes.Clone(v))
	default:
		return t
	}
}

// release marks a container tag as no longer owned by a parent.
func release(t Tag) {
	switch v := t.(type) {
	case *Compound:
		v.owned = false
	case *List:
		v.owned = false
	}
}
