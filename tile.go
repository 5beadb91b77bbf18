package tiles

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/oriumgames/tiles/tag"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

var (
	// ErrOutOfRange is returned by accessors when a value is outside its valid range.
	ErrOutOfRange = errors.New("tiles: value out of range")
	// ErrUnknownTile is returned by Load when no kind is registered for the tile id.
	ErrUnknownTile = errors.New("tiles: unknown tile id")
	// ErrMalformed is returned by Load when the tile tree lacks its id or coordinates.
	ErrMalformed = errors.New("tiles: malformed tile data")
)

// Names of the tags shared by every tile.
const (
	tagID = "id"
	tagX  = "x"
	tagY  = "y"
	tagZ  = "z"
)

// Tile is a block entity: persisted state attached to a block position.
type Tile interface {
	// ID returns the registered id of the tile kind, such as "Chest".
	ID() string
	// Pos returns the block position of the tile.
	Pos() cube.Pos
	// NBT returns the tag tree owned by the tile. Call SaveNBT first to make
	// sure runtime state has been written to it.
	NBT() *tag.Compound
	// SaveNBT writes runtime state back into the tag tree.
	SaveNBT()
	// SpawnCompound returns the compound sent to observers of the tile.
	SpawnCompound() *tag.Compound
	// Close releases the runtime state of the tile. Close is idempotent.
	Close()
	// Closed reports whether Close has been called.
	Closed() bool
}

// World is the collaborator that owns the chunks tiles live in.
type World interface {
	// ChunkLoaded reports whether the chunk at pos is loaded.
	ChunkLoaded(pos world.ChunkPos) bool
	// Tile returns the tile at pos if its chunk is loaded and a tile exists there.
	Tile(pos cube.Pos) (Tile, bool)
	// TileChanged is called whenever the persisted state of t changed.
	TileChanged(t Tile)
	// Handler returns the handler notified of tile events.
	Handler() Handler
}

// ChunkPosOf returns the position of the chunk containing the block at pos.
func ChunkPosOf(pos cube.Pos) world.ChunkPos {
	return world.ChunkPos{int32(pos[0] >> 4), int32(pos[2] >> 4)}
}

// base holds the state every tile kind shares.
type base struct {
	id  string
	pos cube.Pos
	nbt *tag.Compound
	w   World

	closed atomic.Bool
}

func (b *base) init(id string, w World, nbt *tag.Compound) {
	b.id = id
	b.pos = cube.Pos{int(nbt.Int(tagX, 0)), int(nbt.Int(tagY, 0)), int(nbt.Int(tagZ, 0))}
	b.nbt = nbt
	b.w = w
}

func (b *base) ID() string { return b.id }

func (b *base) Pos() cube.Pos { return b.pos }

func (b *base) NBT() *tag.Compound { return b.nbt }

// World returns the world the tile belongs to.
func (b *base) World() World { return b.w }

func (b *base) Closed() bool { return b.closed.Load() }

func (b *base) String() string {
	return fmt.Sprintf("%s%v", b.id, b.pos)
}

// changed reports t as changed to the world.
func (b *base) changed(t Tile) {
	if b.w != nil {
		b.w.TileChanged(t)
	}
}

func (b *base) handler() Handler {
	if b.w == nil {
		return NopHandler{}
	}
	if h := b.w.Handler(); h != nil {
		return h
	}
	return NopHandler{}
}

// spawnCompound returns the compound identifying the tile to observers.
func (b *base) spawnCompound() *tag.Compound {
	c := tag.NewCompound()
	c.SetString(tagID, b.id)
	c.SetInt(tagX, int32(b.pos[0]))
	c.SetInt(tagY, int32(b.pos[1]))
	c.SetInt(tagZ, int32(b.pos[2]))
	return c
}

// baseNBT returns the tags every newly created tile starts with.
func baseNBT(id string, pos cube.Pos) *tag.Compound {
	c := tag.NewCompound()
	c.SetString(tagID, id)
	c.SetInt(tagX, int32(pos[0]))
	c.SetInt(tagY, int32(pos[1]))
	c.SetInt(tagZ, int32(pos[2]))
	return c
}

// EncodeSpawn encodes the spawn compound of t in the network encoding used by
// the block actor data sent to clients.
func EncodeSpawn(t Tile) ([]byte, error) {
	b, err := tag.Marshal(t.SpawnCompound(), nbt.NetworkLittleEndian)
	if err != nil {
		return nil, fmt.Errorf("tiles: encode spawn data of %v: %w", t.Pos(), err)
	}
	return b, nil
}
