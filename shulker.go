package tiles

import (
	"github.com/oriumgames/tiles/tag"
)

// IDShulkerBox is the tile id of shulker boxes.
const IDShulkerBox = "ShulkerBox"

// ShulkerBox is a container tile with 27 slots. Unlike chests, shulker boxes
// never pair, and their items are part of the data sent to observers.
type ShulkerBox struct {
	base
	containerBehaviour
}

// Compile time check to make sure ShulkerBox implements Container.
var _ Container = (*ShulkerBox)(nil)

// NewShulkerBox returns a shulker box for the tag tree passed, which the box
// takes ownership of.
func NewShulkerBox(w World, nbt *tag.Compound) *ShulkerBox {
	s := &ShulkerBox{}
	s.base.init(IDShulkerBox, w, nbt)
	s.containerBehaviour.init(nbt, "Shulker Box")
	return s
}

// Inventory returns the own inventory of the shulker box.
func (s *ShulkerBox) Inventory() Inventory {
	return s.inv
}

// SaveNBT writes the items of the shulker box to its tag tree.
func (s *ShulkerBox) SaveNBT() {
	s.saveItems()
}

// AddAdditionalSpawnData adds the items and custom name of the shulker box.
func (s *ShulkerBox) AddAdditionalSpawnData(sc *tag.Compound) {
	sc.Set(TagItems, itemsList(s.inv))
	s.addName(sc)
}

// SpawnCompound returns the compound sent to observers of the shulker box.
func (s *ShulkerBox) SpawnCompound() *tag.Compound {
	sc := s.spawnCompound()
	s.AddAdditionalSpawnData(sc)
	return sc
}

// Close detaches all viewers and notifies the handler.
func (s *ShulkerBox) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.closeInventory()
	s.handler().HandleClose(s)
}
