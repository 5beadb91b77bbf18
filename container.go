package tiles

import (
	"github.com/df-mc/dragonfly/server/item"
	"github.com/oriumgames/tiles/tag"
)

// ContainerSize is the number of slots of a single chest or shulker box.
const ContainerSize = 27

// Container is a tile holding items.
type Container interface {
	Tile
	// Size returns the number of slots of the container's own inventory.
	Size() int
	// Inventory returns the effective inventory of the container. For a
	// resolved double chest this is the shared DoubleInventory.
	Inventory() Inventory
	// RealInventory returns the container's own inventory, ignoring pairing.
	RealInventory() *SingleInventory
	// AddAdditionalSpawnData adds the kind specific tags sent to observers.
	AddAdditionalSpawnData(c *tag.Compound)
	// Name returns the custom name of the container, or its default name.
	Name() string
}

// containerBehaviour implements the parts of Container shared by chests and
// shulker boxes.
type containerBehaviour struct {
	inv         *SingleInventory
	data        *tag.Compound
	defaultName string
}

func (c *containerBehaviour) init(nbt *tag.Compound, defaultName string) {
	c.data = nbt
	c.defaultName = defaultName
	c.inv = newSingleInventory(ContainerSize)
	loadItems(c.inv, nbt)
}

// Size returns the number of slots of the own inventory.
func (c *containerBehaviour) Size() int {
	return ContainerSize
}

// RealInventory returns the own inventory of the container.
func (c *containerBehaviour) RealInventory() *SingleInventory {
	return c.inv
}

// Name returns the custom name of the container, or DefaultName if it has none.
func (c *containerBehaviour) Name() string {
	return c.data.String(TagCustomName, c.defaultName)
}

// SetName sets the custom name of the container. An empty name removes it.
func (c *containerBehaviour) SetName(name string) {
	if name == "" {
		c.data.Remove(TagCustomName)
		return
	}
	c.data.SetString(TagCustomName, name)
}

// HasName reports whether the container has a custom name.
func (c *containerBehaviour) HasName() bool {
	t, ok := c.data.Tag(TagCustomName)
	if !ok {
		return false
	}
	_, ok = t.(tag.String)
	return ok
}

// DefaultName returns the name shown when the container has no custom name.
func (c *containerBehaviour) DefaultName() string {
	return c.defaultName
}

// saveItems writes the own inventory to the Items list.
func (c *containerBehaviour) saveItems() {
	c.data.Set(TagItems, itemsList(c.inv))
	c.inv.resetChanged()
}

// addName copies the custom name into a spawn compound.
func (c *containerBehaviour) addName(sc *tag.Compound) {
	if c.HasName() {
		sc.SetString(TagCustomName, c.Name())
	}
}

// closeInventory detaches every viewer of the own inventory.
func (c *containerBehaviour) closeInventory() {
	c.inv.RemoveAllViewers()
}

// createContainerNBT adds the tags of a newly placed container: an empty Items
// list and the custom name of the item it was placed with.
func createContainerNBT(nbt *tag.Compound, it item.Stack) {
	nbt.Set(TagItems, tag.NewList(tag.KindCompound))
	if n := it.CustomName(); n != "" {
		nbt.SetString(TagCustomName, n)
	}
}
