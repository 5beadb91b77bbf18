package tiles

import (
	"fmt"
	"sort"
	"sync"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/oriumgames/tiles/tag"
)

// Definition describes a tile kind.
type Definition struct {
	// New constructs a tile of the kind from its tag tree. The tile takes
	// ownership of the tree.
	New func(w World, nbt *tag.Compound) Tile
	// CreateNBT adds the kind specific tags of a tile placed using the item
	// passed. It may be nil.
	CreateNBT func(nbt *tag.Compound, it item.Stack)
}

// registry holds the registered tile kinds. Kinds are registered once, usually
// from init, and looked up for every tile loaded.
var registry sync.Map // map[string]Definition

func init() {
	Register(IDChest, Definition{
		New:       func(w World, nbt *tag.Compound) Tile { return NewChest(w, nbt) },
		CreateNBT: createContainerNBT,
	})
	Register(IDShulkerBox, Definition{
		New:       func(w World, nbt *tag.Compound) Tile { return NewShulkerBox(w, nbt) },
		CreateNBT: createContainerNBT,
	})
}

// Register registers a tile kind under id, replacing any kind registered
// under the same id before.
func Register(id string, def Definition) {
	if def.New == nil {
		panic(fmt.Sprintf("tiles: kind %q registered without constructor", id))
	}
	registry.Store(id, def)
}

// Registered returns the ids of all registered tile kinds, sorted.
func Registered() []string {
	var ids []string
	registry.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}

func lookup(id string) (Definition, bool) {
	v, ok := registry.Load(id)
	if !ok {
		return Definition{}, false
	}
	return v.(Definition), true
}

// Load constructs the tile described by nbt. The tile takes ownership of nbt.
func Load(w World, nbt *tag.Compound) (Tile, error) {
	id := nbt.String(tagID, "")
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformed)
	}
	def, ok := lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTile, id)
	}
	for _, name := range [...]string{tagX, tagY, tagZ} {
		if t, ok := nbt.Tag(name); !ok || t.Kind() != tag.KindInt {
			return nil, fmt.Errorf("%w: %s tile without %s coordinate", ErrMalformed, id, name)
		}
	}
	return def.New(w, nbt), nil
}

// NewNBT returns the tag tree of a tile of kind id placed at pos using the
// item it.
func NewNBT(id string, pos cube.Pos, it item.Stack) (*tag.Compound, error) {
	def, ok := lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTile, id)
	}
	nbt := baseNBT(id, pos)
	if def.CreateNBT != nil {
		def.CreateNBT(nbt, it)
	}
	return nbt, nil
}
