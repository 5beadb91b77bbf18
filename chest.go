package tiles

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/event"
	"github.com/oriumgames/tiles/tag"
)

// IDChest is the tile id of chests.
const IDChest = "Chest"

// Names of the tags holding the horizontal position of the partner of a chest.
const (
	TagPairX = "pairx"
	TagPairZ = "pairz"
)

var (
	// ErrInvalidPairing is returned by PairWith when two chests cannot be paired.
	ErrInvalidPairing = errors.New("tiles: invalid chest pairing")
	// ErrPairCancelled is returned by PairWith when a handler cancelled the pairing.
	ErrPairCancelled = errors.New("tiles: chest pairing cancelled")
)

// Chest is a container tile with 27 slots that may be paired with a
// neighbouring chest to form a double chest.
//
// The pairing is stored on both chests and resolved lazily. A paired chest is
// in one of two states: unresolved, while its partner is not loaded, and
// resolved, once both chests share a DoubleInventory.
type Chest struct {
	base
	containerBehaviour

	// double is the cached merged view, shared with the partner.
	double *DoubleInventory
}

// Compile time check to make sure Chest implements Container.
var _ Container = (*Chest)(nil)

// NewChest returns a chest for the tag tree passed, which the chest takes
// ownership of. The pairing is not resolved until Inventory is called.
func NewChest(w World, nbt *tag.Compound) *Chest {
	c := &Chest{}
	c.base.init(IDChest, w, nbt)
	c.containerBehaviour.init(nbt, "Chest")
	return c
}

// Inventory returns the DoubleInventory shared with the partner if the chest
// is paired and its partner is loaded, and the chest's own inventory otherwise.
// A closed chest always returns its own inventory.
func (c *Chest) Inventory() Inventory {
	if c.Closed() {
		return c.inv
	}
	if c.Paired() && !c.double.Valid() {
		c.checkPairing()
	}
	if c.double.Valid() {
		return c.double
	}
	return c.inv
}

// DoubleInventory returns the cached merged view without resolving the pairing.
func (c *Chest) DoubleInventory() (*DoubleInventory, bool) {
	if c.double.Valid() {
		return c.double, true
	}
	return nil, false
}

// Paired reports whether the chest holds pairing data. Partial pairing data
// reads as unpaired.
func (c *Chest) Paired() bool {
	_, ok := c.PairPos()
	return ok
}

// PairPos returns the position of the partner according to the pairing data.
// The partner is assumed to be on the same Y level.
func (c *Chest) PairPos() (cube.Pos, bool) {
	x, okX := c.nbt.Tag(TagPairX)
	z, okZ := c.nbt.Tag(TagPairZ)
	if !okX || !okZ {
		return cube.Pos{}, false
	}
	px, okX := x.(tag.Int)
	pz, okZ := z.(tag.Int)
	if !okX || !okZ {
		return cube.Pos{}, false
	}
	return cube.Pos{int(px), c.pos[1], int(pz)}, true
}

// Pair returns the partner of the chest if it is paired and the partner is
// loaded.
func (c *Chest) Pair() (*Chest, bool) {
	pos, ok := c.PairPos()
	if !ok || pos == c.pos || c.w == nil || !c.w.ChunkLoaded(ChunkPosOf(pos)) {
		return nil, false
	}
	t, ok := c.w.Tile(pos)
	if !ok || t.Closed() {
		return nil, false
	}
	partner, ok := t.(*Chest)
	return partner, ok
}

// PairWith pairs the chest with other. Both chests must be unpaired, open and
// on the same Y level. On success the pairing data is written to both chests
// and the merged view is resolved.
func (c *Chest) PairWith(other *Chest) error {
	switch {
	case other == nil:
		return fmt.Errorf("%w: nil chest", ErrInvalidPairing)
	case other == c || other.pos == c.pos:
		return fmt.Errorf("%w: chest at %v cannot pair with itself", ErrInvalidPairing, c.pos)
	case other.pos[1] != c.pos[1]:
		return fmt.Errorf("%w: chests at %v and %v are on different levels", ErrInvalidPairing, c.pos, other.pos)
	case c.Closed() || other.Closed():
		return fmt.Errorf("%w: chest closed", ErrInvalidPairing)
	case c.Paired():
		return fmt.Errorf("%w: chest at %v already paired", ErrInvalidPairing, c.pos)
	case other.Paired():
		return fmt.Errorf("%w: chest at %v already paired", ErrInvalidPairing, other.pos)
	}

	ctx := event.C(c)
	if c.handler().HandlePair(ctx, c, other); ctx.Cancelled() {
		return ErrPairCancelled
	}

	c.setPair(other.pos)
	other.setPair(c.pos)
	c.changed(c)
	other.changed(other)

	c.checkPairing()
	slog.Debug("tiles: chests paired", "chest", c.pos, "partner", other.pos)
	return nil
}

// Unpair breaks the pairing of the chest. It returns false if the chest was
// not paired. The pairing data of the partner is cleared too if the partner is
// loaded and still paired with this chest.
func (c *Chest) Unpair() bool {
	if !c.Paired() {
		return false
	}
	partner, _ := c.Pair()

	c.clearPair()
	c.changed(c)
	if partner != nil {
		if pos, ok := partner.PairPos(); ok && pos == c.pos {
			partner.clearPair()
			partner.changed(partner)
		}
	}

	c.dropDouble()
	c.checkPairing()
	if partner != nil {
		partner.checkPairing()
	}
	c.handler().HandleUnpair(c, partner)
	slog.Debug("tiles: chest unpaired", "chest", c.pos)
	return true
}

// CheckPairing reconciles the pairing data of the chest with the world. It is
// called lazily by Inventory and should be called explicitly after the chunk
// of the partner loaded or unloaded.
func (c *Chest) CheckPairing() {
	c.checkPairing()
}

func (c *Chest) checkPairing() {
	pos, ok := c.PairPos()
	if !ok || c.Closed() {
		c.dropDouble()
		return
	}
	if pos == c.pos {
		c.forgetPair("chest paired with itself")
		return
	}
	if c.w == nil || !c.w.ChunkLoaded(ChunkPosOf(pos)) {
		// The partner may come back once its chunk loads again.
		c.dropDouble()
		return
	}
	t, ok := c.w.Tile(pos)
	if !ok || t.Closed() {
		c.dropDouble()
		return
	}
	partner, ok := t.(*Chest)
	if !ok {
		c.forgetPair("partner is not a chest")
		return
	}
	if ppos, ok := partner.PairPos(); !ok {
		partner.setPair(c.pos)
		partner.changed(partner)
		partner.checkPairing()
	} else if ppos != c.pos {
		c.forgetPair("partner paired elsewhere")
		return
	}

	if c.double.Valid() {
		if c.double.has(partner) {
			return
		}
		c.dropDouble()
	}
	if d := partner.double; d.Valid() && d.has(c) {
		c.double = d
		return
	}
	if pairKey(partner.pos) > pairKey(c.pos) {
		c.double = newDoubleInventory(partner, c)
	} else {
		c.double = newDoubleInventory(c, partner)
	}
	partner.double = c.double
}

// forgetPair clears pairing data that can never resolve.
func (c *Chest) forgetPair(reason string) {
	pos, _ := c.PairPos()
	slog.Debug("tiles: clearing stale chest pairing", "chest", c.pos, "partner", pos, "reason", reason)
	c.dropDouble()
	c.clearPair()
	c.changed(c)
}

func (c *Chest) setPair(pos cube.Pos) {
	c.nbt.SetInt(TagPairX, int32(pos[0]))
	c.nbt.SetInt(TagPairZ, int32(pos[2]))
}

func (c *Chest) clearPair() {
	c.nbt.Remove(TagPairX, TagPairZ)
}

// dropDouble invalidates the cached merged view, which drops it from both
// chests.
func (c *Chest) dropDouble() {
	if c.double != nil {
		c.double.invalidate()
		c.double = nil
	}
}

// SaveNBT writes the items of the chest to its tag tree.
func (c *Chest) SaveNBT() {
	c.saveItems()
}

// AddAdditionalSpawnData adds the pairing data and custom name of the chest.
func (c *Chest) AddAdditionalSpawnData(sc *tag.Compound) {
	if pos, ok := c.PairPos(); ok {
		sc.SetInt(TagPairX, int32(pos[0]))
		sc.SetInt(TagPairZ, int32(pos[2]))
	}
	c.addName(sc)
}

// SpawnCompound returns the compound sent to observers of the chest.
func (c *Chest) SpawnCompound() *tag.Compound {
	sc := c.spawnCompound()
	c.AddAdditionalSpawnData(sc)
	return sc
}

// Close drops the merged view, detaches all viewers and notifies the handler.
// Pairing data is kept so that the pairing resolves again after a reload.
func (c *Chest) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.dropDouble()
	c.closeInventory()
	c.handler().HandleClose(c)
}

// pairKey orders the chests of a pair. The chest with the larger key owns the
// first half of the merged view.
func pairKey(pos cube.Pos) int {
	return pos[0] + (pos[2] << 15)
}
