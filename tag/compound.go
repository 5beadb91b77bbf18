package tag

import (
	"bytes"
	"slices"
)

// Compound is an ordered mapping from names to tags. Names are unique within
// a compound and keep their insertion order. A compound exclusively owns its
// children.
//
// All read methods are safe to call on a nil *Compound and then return the
// default value.
type Compound struct {
	names []string
	tags  map[string]Tag
	owned bool
}

// NewCompound returns an empty compound.
func NewCompound() *Compound {
	return &Compound{tags: make(map[string]Tag)}
}

// Kind implements Tag.
func (c *Compound) Kind() Kind { return KindCompound }

// Len returns the number of tags in the compound.
func (c *Compound) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Names returns the names of the compound in insertion order.
func (c *Compound) Names() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.names)
}

// Tag returns the tag stored under name.
func (c *Compound) Tag(name string) (Tag, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.tags[name]
	return t, ok
}

// Has reports whether a tag is stored under name.
func (c *Compound) Has(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.tags[name]
	return ok
}

// Set stores t under name. If name already holds a tag of the same kind, the
// value is replaced in place. If it holds a tag of another kind, the old tag
// is removed and t is appended at the end. A compound or list that already
// belongs to another parent is copied first. Setting a nil tag removes name.
func (c *Compound) Set(name string, t Tag) {
	if t == nil {
		c.Remove(name)
		return
	}
	old, ok := c.tags[name]
	if ok && sameContainer(old, t) {
		return
	}
	t = adopt(t)
	if ok {
		release(old)
		if old.Kind() == t.Kind() {
			c.tags[name] = t
			return
		}
		c.names = slices.DeleteFunc(c.names, func(n string) bool { return n == name })
	}
	if c.tags == nil {
		c.tags = make(map[string]Tag)
	}
	c.names = append(c.names, name)
	c.tags[name] = t
}

// Remove removes the tags stored under the names passed. Names that are not
// present are ignored.
func (c *Compound) Remove(names ...string) {
	if c == nil {
		return
	}
	for _, name := range names {
		old, ok := c.tags[name]
		if !ok {
			continue
		}
		release(old)
		delete(c.tags, name)
		c.names = slices.DeleteFunc(c.names, func(n string) bool { return n == name })
	}
}

// Clone returns a deep copy of the compound. The copy has no parent.
func (c *Compound) Clone() *Compound {
	cp := NewCompound()
	if c == nil {
		return cp
	}
	cp.names = slices.Clone(c.names)
	for name, t := range c.tags {
		t = Clone(t)
		switch v := t.(type) {
		case *Compound:
			v.owned = true
		case *List:
			v.owned = true
		}
		cp.tags[name] = t
	}
	return cp
}

// Compound returns the child compound stored under name.
func (c *Compound) Compound(name string) (*Compound, bool) {
	v, ok := c.lookup(name).(*Compound)
	return v, ok
}

// List returns the child list stored under name.
func (c *Compound) List(name string) (*List, bool) {
	v, ok := c.lookup(name).(*List)
	return v, ok
}

func (c *Compound) lookup(name string) Tag {
	if c == nil {
		return nil
	}
	return c.tags[name]
}

// Byte returns the Byte stored under name, or def.
func (c *Compound) Byte(name string, def int8) int8 {
	if v, ok := c.lookup(name).(Byte); ok {
		return int8(v)
	}
	return def
}

// Short returns the Short stored under name, or def.
func (c *Compound) Short(name string, def int16) int16 {
	if v, ok := c.lookup(name).(Short); ok {
		return int16(v)
	}
	return def
}

// Int returns the Int stored under name, or def.
func (c *Compound) Int(name string, def int32) int32 {
	if v, ok := c.lookup(name).(Int); ok {
		return int32(v)
	}
	return def
}

// Long returns the Long stored under name, or def.
func (c *Compound) Long(name string, def int64) int64 {
	if v, ok := c.lookup(name).(Long); ok {
		return int64(v)
	}
	return def
}

// Float returns the Float stored under name, or def.
func (c *Compound) Float(name string, def float32) float32 {
	if v, ok := c.lookup(name).(Float); ok {
		return float32(v)
	}
	return def
}

// Double returns the Double stored under name, or def.
func (c *Compound) Double(name string, def float64) float64 {
	if v, ok := c.lookup(name).(Double); ok {
		return float64(v)
	}
	return def
}

// String returns the String stored under name, or def.
func (c *Compound) String(name string, def string) string {
	if v, ok := c.lookup(name).(String); ok {
		return string(v)
	}
	return def
}

// ByteArray returns a copy of the ByteArray stored under name, or def.
func (c *Compound) ByteArray(name string, def []byte) []byte {
	if v, ok := c.lookup(name).(ByteArray); ok {
		return bytes.Clone(v)
	}
	return def
}

func (c *Compound) SetByte(name string, v int8)        { c.Set(name, Byte(v)) }
func (c *Compound) SetShort(name string, v int16)      { c.Set(name, Short(v)) }
func (c *Compound) SetInt(name string, v int32)        { c.Set(name, Int(v)) }
func (c *Compound) SetLong(name string, v int64)       { c.Set(name, Long(v)) }
func (c *Compound) SetFloat(name string, v float32)    { c.Set(name, Float(v)) }
func (c *Compound) SetDouble(name string, v float64)   { c.Set(name, Double(v)) }
func (c *Compound) SetString(name string, v string)    { c.Set(name, String(v)) }
func (c *Compound) SetByteArray(name string, v []byte) { c.Set(name, ByteArray(v)) }

// sameContainer reports whether a and b are the same compound or list.
func sameContainer(a, b Tag) bool {
	switch a := a.(type) {
	case *Compound:
		bc, ok := b.(*Compound)
		return ok && a == bc
	case *List:
		bl, ok := b.(*List)
		return ok && a == bl
	}
	return false
}
