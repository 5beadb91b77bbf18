package tag

import (
	"bytes"
	"fmt"
	"reflect"
	"slices"

	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// Marshal encodes c as a single NBT compound using the encoding passed.
func Marshal(c *Compound, enc nbt.Encoding) ([]byte, error) {
	b, err := nbt.MarshalEncoding(ToMap(c), enc)
	if err != nil {
		return nil, fmt.Errorf("tag: marshal: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a single NBT compound from data.
func Unmarshal(data []byte, enc nbt.Encoding) (*Compound, error) {
	var m map[string]any
	if err := nbt.UnmarshalEncoding(data, &m, enc); err != nil {
		return nil, fmt.Errorf("tag: unmarshal: %w", err)
	}
	return FromMap(m)
}

// MarshalAll encodes the compounds passed back to back, the way block entities
// of a chunk are stored.
func MarshalAll(cs []*Compound, enc nbt.Encoding) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	e := nbt.NewEncoderWithEncoding(buf, enc)
	for i, c := range cs {
		if err := e.Encode(ToMap(c)); err != nil {
			return nil, fmt.Errorf("tag: marshal compound %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalAll decodes compounds stored back to back until data is exhausted.
func UnmarshalAll(data []byte, enc nbt.Encoding) ([]*Compound, error) {
	buf := bytes.NewBuffer(data)
	d := nbt.NewDecoderWithEncoding(buf, enc)

	var out []*Compound
	for buf.Len() > 0 {
		var m map[string]any
		if err := d.Decode(&m); err != nil {
			return out, fmt.Errorf("tag: unmarshal compound %d: %w", len(out), err)
		}
		c, err := FromMap(m)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ToMap converts c into the map form understood by the nbt package.
func ToMap(c *Compound) map[string]any {
	m := make(map[string]any, c.Len())
	if c == nil {
		return m
	}
	for _, name := range c.names {
		m[name] = toNative(c.tags[name])
	}
	return m
}

// FromMap builds a compound from the map form produced by the nbt package.
// Names are inserted in sorted order so that the result is deterministic.
func FromMap(m map[string]any) (*Compound, error) {
	c := NewCompound()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		t, err := fromNative(m[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		c.Set(name, t)
	}
	return c, nil
}

var byteType = reflect.TypeOf(byte(0))

func toNative(t Tag) any {
	switch t := t.(type) {
	case Byte:
		return uint8(t)
	case Short:
		return int16(t)
	case Int:
		return int32(t)
	case Long:
		return int64(t)
	case Float:
		return float32(t)
	case Double:
		return float64(t)
	case String:
		return string(t)
	case ByteArray:
		// The nbt package encodes byte arrays from fixed size arrays only.
		arr := reflect.New(reflect.ArrayOf(len(t), byteType)).Elem()
		for i, b := range t {
			arr.Index(i).SetUint(uint64(b))
		}
		return arr.Interface()
	case *Compound:
		return ToMap(t)
	case *List:
		if t.Len() == 0 {
			return emptyList(t.kind)
		}
		out := make([]any, len(t.tags))
		for i, elem := range t.tags {
			out[i] = toNative(elem)
		}
		return out
	}
	return nil
}

// emptyList returns a typed empty slice so that the element kind of an empty
// list survives encoding.
func emptyList(k Kind) any {
	switch k {
	case KindShort:
		return []int16{}
	case KindInt:
		return []int32{}
	case KindLong:
		return []int64{}
	case KindFloat:
		return []float32{}
	case KindDouble:
		return []float64{}
	case KindString:
		return []string{}
	case KindCompound:
		return []map[string]any{}
	default:
		return []any{}
	}
}

func fromNative(v any) (Tag, error) {
	switch v := v.(type) {
	case uint8:
		return Byte(int8(v)), nil
	case int8:
		return Byte(v), nil
	case bool:
		if v {
			return Byte(1), nil
		}
		return Byte(0), nil
	case int16:
		return Short(v), nil
	case int32:
		return Int(v), nil
	case int64:
		return Long(v), nil
	case float32:
		return Float(v), nil
	case float64:
		return Double(v), nil
	case string:
		return String(v), nil
	case []byte:
		return ByteArray(bytes.Clone(v)), nil
	case map[string]any:
		return FromMap(v)
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnsupported)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			for i := range b {
				b[i] = byte(rv.Index(i).Uint())
			}
			return ByteArray(b), nil
		}
		return listFrom(rv)
	case reflect.Slice:
		return listFrom(rv)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

func listFrom(rv reflect.Value) (*List, error) {
	l := NewList(KindEnd)
	for i := 0; i < rv.Len(); i++ {
		t, err := fromNative(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		if err := l.Add(t); err != nil {
			return nil, err
		}
	}
	return l, nil
}
