// Package level owns the chunks tiles live in. A Level loads the tiles of a
// chunk from its Provider when the chunk loads, tracks which chunks hold
// changed tiles, saves them back and closes their tiles when the chunk
// unloads. It implements tiles.World.
//
// A Level is not safe for concurrent use. It is driven either by a single
// goroutine that owns it, or by its own tick loop started with Start, in
// which case other goroutines run code on it through Exec and Schedule.
package level

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oriumgames/tiles"
	"github.com/oriumgames/tiles/tag"
)

var (
	// ErrChunkNotLoaded is returned when a tile is placed in a chunk that is not loaded.
	ErrChunkNotLoaded = errors.New("level: chunk not loaded")
	// ErrOccupied is returned when a tile is placed at a position already holding one.
	ErrOccupied = errors.New("level: position already holds a tile")
	// ErrNoTile is returned when no tile exists at a position.
	ErrNoTile = errors.New("level: no tile at position")
	// ErrClosed is returned by operations on a closed level.
	ErrClosed = errors.New("level: closed")
)

// Observer receives the tiles near its position. Observers typically wrap a
// player session.
type Observer interface {
	// Position returns the current position of the observer.
	Position() mgl64.Vec3
	// ViewTile is called with the spawn compound of a tile when the observer
	// is attached and whenever the tile changes.
	ViewTile(pos cube.Pos, data *tag.Compound)
	// ViewTileRemoval is called when a tile near the observer is removed.
	ViewTileRemoval(pos cube.Pos)
}

// Level holds the loaded chunks of a world and the tiles within them.
type Level struct {
	conf Config

	chunks    map[world.ChunkPos]*chunkData
	observers map[Observer]struct{}

	queue *taskQueue
	tick  atomic.Uint64

	running atomic.Bool
	closed  atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// chunkData holds the tiles of a loaded chunk.
type chunkData struct {
	tiles map[cube.Pos]tiles.Tile
	// changed is set when a tile of the chunk was placed, removed or reported
	// changed since the chunk was last saved.
	changed bool
}

// dirty reports whether the chunk must be saved.
func (c *chunkData) dirty() bool {
	if c.changed {
		return true
	}
	for _, t := range c.tiles {
		if ct, ok := t.(tiles.Container); ok && ct.RealInventory().Changed() {
			return true
		}
	}
	return false
}

// Compile time check to make sure Level implements tiles.World.
var _ tiles.World = (*Level)(nil)

// ChunkLoaded reports whether the chunk at pos is loaded.
func (l *Level) ChunkLoaded(pos world.ChunkPos) bool {
	_, ok := l.chunks[pos]
	return ok
}

// Tile returns the tile at pos if its chunk is loaded.
func (l *Level) Tile(pos cube.Pos) (tiles.Tile, bool) {
	c, ok := l.chunks[tiles.ChunkPosOf(pos)]
	if !ok {
		return nil, false
	}
	t, ok := c.tiles[pos]
	return t, ok
}

// Tiles returns the tiles of the chunk at pos, ordered by position.
func (l *Level) Tiles(pos world.ChunkPos) []tiles.Tile {
	c, ok := l.chunks[pos]
	if !ok {
		return nil
	}
	return sortedTiles(c)
}

// Chunks returns the positions of all loaded chunks.
func (l *Level) Chunks() []world.ChunkPos {
	return slices.Collect(maps.Keys(l.chunks))
}

// TileChanged marks the chunk of t as changed and sends the new spawn
// compound of t to the observers near it.
func (l *Level) TileChanged(t tiles.Tile) {
	c, ok := l.chunks[tiles.ChunkPosOf(t.Pos())]
	if !ok {
		return
	}
	c.changed = true
	if !t.Closed() {
		l.viewTile(t)
	}
}

// Handler returns the handler of the level.
func (l *Level) Handler() tiles.Handler {
	return l.conf.Handler
}

// LoadChunk loads the tiles of the chunk at pos from the provider. Loading a
// chunk that is already loaded does nothing. Tiles that cannot be loaded are
// logged and dropped.
func (l *Level) LoadChunk(pos world.ChunkPos) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if _, ok := l.chunks[pos]; ok {
		return nil
	}
	cs, err := l.conf.Provider.LoadTiles(pos)
	if err != nil {
		return fmt.Errorf("level: load chunk %v: %w", pos, err)
	}
	c := &chunkData{tiles: make(map[cube.Pos]tiles.Tile, len(cs))}
	l.chunks[pos] = c

	for _, nbt := range cs {
		t, err := tiles.Load(l, nbt)
		if err != nil {
			l.conf.Log.Warn("level: dropping tile", "chunk", pos, "err", err)
			c.changed = true
			continue
		}
		// Dropped tiles were never part of the level, so they are not closed
		// and the handler does not see them.
		if tiles.ChunkPosOf(t.Pos()) != pos {
			l.conf.Log.Warn("level: dropping tile outside its chunk", "chunk", pos, "pos", t.Pos())
			c.changed = true
			continue
		}
		if _, ok := c.tiles[t.Pos()]; ok {
			l.conf.Log.Warn("level: dropping duplicate tile", "chunk", pos, "pos", t.Pos())
			c.changed = true
			continue
		}
		c.tiles[t.Pos()] = t
	}

	// Resolve pairings with chests already loaded, repairing stale data.
	for _, t := range sortedTiles(c) {
		if ch, ok := t.(*tiles.Chest); ok && ch.Paired() {
			ch.CheckPairing()
		}
	}
	for _, t := range sortedTiles(c) {
		l.viewTile(t)
	}
	l.conf.Log.Debug("level: loaded chunk", "chunk", pos, "tiles", len(c.tiles))
	return nil
}

// UnloadChunk saves the chunk at pos if it changed and closes its tiles.
// Chests paired with a chest of the chunk fall back to their own inventory.
func (l *Level) UnloadChunk(pos world.ChunkPos) error {
	c, ok := l.chunks[pos]
	if !ok {
		return nil
	}
	var err error
	if c.dirty() {
		err = l.saveChunk(pos, c)
	}
	for _, t := range sortedTiles(c) {
		t.Close()
	}
	delete(l.chunks, pos)
	l.conf.Log.Debug("level: unloaded chunk", "chunk", pos)
	return err
}

// PlaceTile creates a tile of kind id at pos, as if placed using the item it.
func (l *Level) PlaceTile(id string, pos cube.Pos, it item.Stack) (tiles.Tile, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	c, ok := l.chunks[tiles.ChunkPosOf(pos)]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrChunkNotLoaded, tiles.ChunkPosOf(pos))
	}
	if _, ok := c.tiles[pos]; ok {
		return nil, fmt.Errorf("%w: %v", ErrOccupied, pos)
	}
	nbt, err := tiles.NewNBT(id, pos, it)
	if err != nil {
		return nil, err
	}
	t, err := tiles.Load(l, nbt)
	if err != nil {
		return nil, err
	}
	c.tiles[pos] = t
	c.changed = true
	l.viewTile(t)
	return t, nil
}

// RemoveTile removes the tile at pos. A paired chest is unpaired first so
// that its partner does not keep pointing at the removed chest.
func (l *Level) RemoveTile(pos cube.Pos) error {
	c, ok := l.chunks[tiles.ChunkPosOf(pos)]
	if !ok {
		return fmt.Errorf("%w: %v", ErrChunkNotLoaded, tiles.ChunkPosOf(pos))
	}
	t, ok := c.tiles[pos]
	if !ok {
		return fmt.Errorf("%w: %v", ErrNoTile, pos)
	}
	if ch, ok := t.(*tiles.Chest); ok {
		ch.Unpair()
	}
	t.Close()
	delete(c.tiles, pos)
	c.changed = true
	for o := range l.observers {
		if l.inView(o, pos) {
			o.ViewTileRemoval(pos)
		}
	}
	return nil
}

// Save saves every loaded chunk holding changed tiles.
func (l *Level) Save() error {
	var errs []error
	for pos, c := range l.chunks {
		if !c.dirty() {
			continue
		}
		if err := l.saveChunk(pos, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Level) saveChunk(pos world.ChunkPos, c *chunkData) error {
	ts := sortedTiles(c)
	cs := make([]*tag.Compound, 0, len(ts))
	for _, t := range ts {
		t.SaveNBT()
		cs = append(cs, t.NBT())
	}
	if err := l.conf.Provider.SaveTiles(pos, cs); err != nil {
		return fmt.Errorf("level: save chunk %v: %w", pos, err)
	}
	c.changed = false
	l.conf.Log.Debug("level: saved chunk", "chunk", pos, "tiles", len(cs))
	return nil
}

// Attach adds an observer and sends it the tiles within view distance.
func (l *Level) Attach(o Observer) {
	if _, ok := l.observers[o]; ok {
		return
	}
	l.observers[o] = struct{}{}
	for _, c := range l.chunks {
		for _, t := range sortedTiles(c) {
			if l.inView(o, t.Pos()) {
				o.ViewTile(t.Pos(), t.SpawnCompound())
			}
		}
	}
}

// Detach removes an observer.
func (l *Level) Detach(o Observer) {
	delete(l.observers, o)
}

func (l *Level) viewTile(t tiles.Tile) {
	if len(l.observers) == 0 {
		return
	}
	data := t.SpawnCompound()
	for o := range l.observers {
		if l.inView(o, t.Pos()) {
			o.ViewTile(t.Pos(), data.Clone())
		}
	}
}

func (l *Level) inView(o Observer, pos cube.Pos) bool {
	d := l.conf.ViewDistance
	return o.Position().Sub(pos.Vec3Centre()).LenSqr() <= d*d
}

// Close stops the tick loop, saves all changed chunks, closes every tile and
// closes the provider. Close must not be called from a task running on the
// level.
func (l *Level) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	l.stop()

	var errs []error
	for pos := range l.chunks {
		if err := l.UnloadChunk(pos); err != nil {
			errs = append(errs, err)
		}
	}
	if err := l.conf.Provider.Close(); err != nil {
		errs = append(errs, fmt.Errorf("level: close provider: %w", err))
	}
	return errors.Join(errs...)
}

func sortedTiles(c *chunkData) []tiles.Tile {
	ts := slices.Collect(maps.Values(c.tiles))
	slices.SortFunc(ts, func(a, b tiles.Tile) int {
		pa, pb := a.Pos(), b.Pos()
		return cmp.Or(cmp.Compare(pa[0], pb[0]), cmp.Compare(pa[1], pb[1]), cmp.Compare(pa[2], pb[2]))
	})
	return ts
}
