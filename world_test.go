package tiles

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
)

// testWorld is a minimal World keeping tiles in memory.
type testWorld struct {
	unloaded map[world.ChunkPos]bool
	tiles    map[cube.Pos]Tile
	changed  map[cube.Pos]int
	h        Handler
}

func newTestWorld() *testWorld {
	return &testWorld{
		unloaded: make(map[world.ChunkPos]bool),
		tiles:    make(map[cube.Pos]Tile),
		changed:  make(map[cube.Pos]int),
	}
}

func (w *testWorld) ChunkLoaded(pos world.ChunkPos) bool { return !w.unloaded[pos] }

func (w *testWorld) Tile(pos cube.Pos) (Tile, bool) {
	if w.unloaded[ChunkPosOf(pos)] {
		return nil, false
	}
	t, ok := w.tiles[pos]
	return t, ok
}

func (w *testWorld) TileChanged(t Tile) { w.changed[t.Pos()]++ }

func (w *testWorld) Handler() Handler { return w.h }

// place creates a tile of kind id at pos and adds it to the world.
func (w *testWorld) place(t *testing.T, id string, pos cube.Pos) Tile {
	t.Helper()
	nbt, err := NewNBT(id, pos, item.Stack{})
	if err != nil {
		t.Fatalf("NewNBT(%s): %v", id, err)
	}
	tile, err := Load(w, nbt)
	if err != nil {
		t.Fatalf("Load(%s): %v", id, err)
	}
	w.tiles[pos] = tile
	return tile
}

func (w *testWorld) chest(t *testing.T, pos cube.Pos) *Chest {
	t.Helper()
	return w.place(t, IDChest, pos).(*Chest)
}

// remove closes the tile at pos and removes it from the world.
func (w *testWorld) remove(pos cube.Pos) {
	if t, ok := w.tiles[pos]; ok {
		t.Close()
		delete(w.tiles, pos)
	}
}

// testViewer records the notifications it receives.
type testViewer struct {
	changes map[int]item.Stack
	closed  int
}

func newTestViewer() *testViewer {
	return &testViewer{changes: make(map[int]item.Stack)}
}

func (v *testViewer) ViewSlotChange(slot int, s item.Stack) { v.changes[slot] = s }
func (v *testViewer) ViewClose()                            { v.closed++ }

// cancelPair cancels every pairing.
type cancelPair struct {
	NopHandler
}

func (cancelPair) HandlePair(ctx *Context, _, _ *Chest) { ctx.Cancel() }
