package tiles

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/item/inventory"
	"github.com/google/uuid"
)

var (
	// ErrInvalidated is returned by every operation on a DoubleInventory that
	// was dropped because its chests unpaired, unloaded or closed.
	ErrInvalidated = errors.New("tiles: inventory view invalidated")
	// ErrSlotRange is returned when a slot outside the inventory is accessed.
	ErrSlotRange = errors.New("tiles: slot out of range")
)

// Viewer is notified of changes to an inventory it views.
type Viewer interface {
	// ViewSlotChange is called when the content of slot changed.
	ViewSlotChange(slot int, newItem item.Stack)
	// ViewClose is called when the viewed inventory goes away. The viewer has
	// already been removed when it is called.
	ViewClose()
}

// Inventory is a view of the slots of a container.
type Inventory interface {
	Size() int
	Item(slot int) (item.Stack, error)
	SetItem(slot int, s item.Stack) error
	// Slots returns the content of all slots, including empty ones.
	Slots() []item.Stack
	AddViewer(v Viewer) error
	RemoveViewer(v Viewer)
	RemoveAllViewers()
	Viewers() []Viewer
}

// viewers is a set of viewers of an inventory.
type viewers map[Viewer]struct{}

func (vs viewers) slotChange(slot int, s item.Stack) {
	for v := range vs {
		v.ViewSlotChange(slot, s)
	}
}

func (vs viewers) list() []Viewer {
	return slices.Collect(maps.Keys(vs))
}

// closeAll removes all viewers and notifies them.
func (vs viewers) closeAll() {
	for _, v := range vs.list() {
		delete(vs, v)
		v.ViewClose()
	}
}

// SingleInventory is the own inventory of a container, backed by a Dragonfly
// inventory.
type SingleInventory struct {
	inv     *inventory.Inventory
	viewers viewers
	changed slotMask

	// parent is the double view this inventory is part of, if any.
	parent *DoubleInventory
	offset int
}

// Compile time check to make sure SingleInventory implements Inventory.
var _ Inventory = (*SingleInventory)(nil)

// newSingleInventory returns an empty inventory with size slots. size must not
// exceed 64.
func newSingleInventory(size int) *SingleInventory {
	si := &SingleInventory{viewers: make(viewers)}
	si.inv = inventory.New(size, si.slotChanged)
	return si
}

func (si *SingleInventory) slotChanged(slot int, _, after item.Stack) {
	si.changed.set(slot)
	si.viewers.slotChange(slot, after)
	if si.parent != nil && si.parent.Valid() {
		si.parent.viewers.slotChange(si.offset+slot, after)
	}
}

// Size returns the number of slots.
func (si *SingleInventory) Size() int {
	return si.inv.Size()
}

// Item returns the stack in slot.
func (si *SingleInventory) Item(slot int) (item.Stack, error) {
	if slot < 0 || slot >= si.inv.Size() {
		return item.Stack{}, fmt.Errorf("%w: %d not in [0, %d)", ErrSlotRange, slot, si.inv.Size())
	}
	return si.inv.Item(slot)
}

// SetItem sets the stack in slot and notifies viewers.
func (si *SingleInventory) SetItem(slot int, s item.Stack) error {
	if slot < 0 || slot >= si.inv.Size() {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrSlotRange, slot, si.inv.Size())
	}
	return si.inv.SetItem(slot, s)
}

func (si *SingleInventory) Slots() []item.Stack {
	return si.inv.Slots()
}

// Clear empties all slots and returns the stacks that were removed.
func (si *SingleInventory) Clear() []item.Stack {
	var out []item.Stack
	for slot, s := range si.inv.Slots() {
		if s.Empty() {
			continue
		}
		out = append(out, s)
		_ = si.inv.SetItem(slot, item.Stack{})
	}
	return out
}

// AddViewer adds v to the viewers of the inventory.
func (si *SingleInventory) AddViewer(v Viewer) error {
	si.viewers[v] = struct{}{}
	return nil
}

func (si *SingleInventory) RemoveViewer(v Viewer) {
	delete(si.viewers, v)
}

// RemoveAllViewers removes all viewers, calling ViewClose on each of them.
func (si *SingleInventory) RemoveAllViewers() {
	si.viewers.closeAll()
}

func (si *SingleInventory) Viewers() []Viewer {
	return si.viewers.list()
}

// Changed reports whether any slot changed since the items were last saved.
func (si *SingleInventory) Changed() bool {
	return si.changed != 0
}

// ChangedSlots returns the slots changed since the items were last saved.
func (si *SingleInventory) ChangedSlots() []int {
	return si.changed.slots()
}

func (si *SingleInventory) resetChanged() {
	si.changed = 0
}

// DoubleInventory is the merged view of two paired chests. The first half of
// its slots belongs to the primary chest, the second half to the secondary.
// A DoubleInventory is shared by both chests and becomes invalid for good when
// the pair is broken, either chest unloads or either chest closes.
type DoubleInventory struct {
	id                 uuid.UUID
	primary, secondary *Chest
	viewers            viewers
	valid              bool
}

// Compile time check to make sure DoubleInventory implements Inventory.
var _ Inventory = (*DoubleInventory)(nil)

func newDoubleInventory(primary, secondary *Chest) *DoubleInventory {
	d := &DoubleInventory{
		id:        uuid.New(),
		primary:   primary,
		secondary: secondary,
		viewers:   make(viewers),
		valid:     true,
	}
	primary.inv.parent, primary.inv.offset = d, 0
	secondary.inv.parent, secondary.inv.offset = d, primary.inv.Size()
	slog.Debug("tiles: double inventory created", "id", d.id, "primary", primary.pos, "secondary", secondary.pos)
	return d
}

// ID returns the identity of the view.
func (d *DoubleInventory) ID() uuid.UUID { return d.id }

// Primary returns the chest owning the first half of the slots.
func (d *DoubleInventory) Primary() *Chest { return d.primary }

// Secondary returns the chest owning the second half of the slots.
func (d *DoubleInventory) Secondary() *Chest { return d.secondary }

// Valid reports whether the view can still be used.
func (d *DoubleInventory) Valid() bool { return d != nil && d.valid }

// has reports whether c is one of the chests of the view.
func (d *DoubleInventory) has(c *Chest) bool {
	return d.primary == c || d.secondary == c
}

// Size returns the number of slots of both chests combined.
func (d *DoubleInventory) Size() int {
	return d.primary.inv.Size() + d.secondary.inv.Size()
}

// route returns the own inventory holding slot and the slot within it.
func (d *DoubleInventory) route(slot int) (*SingleInventory, int, error) {
	if !d.valid {
		return nil, 0, ErrInvalidated
	}
	if slot < 0 || slot >= d.Size() {
		return nil, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrSlotRange, slot, d.Size())
	}
	if n := d.primary.inv.Size(); slot >= n {
		return d.secondary.inv, slot - n, nil
	}
	return d.primary.inv, slot, nil
}

// Item returns the stack in slot.
func (d *DoubleInventory) Item(slot int) (item.Stack, error) {
	inv, i, err := d.route(slot)
	if err != nil {
		return item.Stack{}, err
	}
	return inv.Item(i)
}

// SetItem sets the stack in slot, writing through to the chest owning it.
func (d *DoubleInventory) SetItem(slot int, s item.Stack) error {
	inv, i, err := d.route(slot)
	if err != nil {
		return err
	}
	return inv.SetItem(i, s)
}

// Slots returns the slots of the primary followed by those of the secondary
// chest. It returns nil once the view is invalid.
func (d *DoubleInventory) Slots() []item.Stack {
	if !d.valid {
		return nil
	}
	return append(d.primary.inv.Slots(), d.secondary.inv.Slots()...)
}

// AddViewer adds v to the viewers of the view.
func (d *DoubleInventory) AddViewer(v Viewer) error {
	if !d.valid {
		return ErrInvalidated
	}
	d.viewers[v] = struct{}{}
	return nil
}

func (d *DoubleInventory) RemoveViewer(v Viewer) {
	delete(d.viewers, v)
}

// RemoveAllViewers removes all viewers, calling ViewClose on each of them.
func (d *DoubleInventory) RemoveAllViewers() {
	d.viewers.closeAll()
}

func (d *DoubleInventory) Viewers() []Viewer {
	return d.viewers.list()
}

// invalidate makes the view unusable, detaches it from both chests and closes
// its viewers. Calling invalidate more than once has no effect.
func (d *DoubleInventory) invalidate() {
	if !d.valid {
		return
	}
	d.valid = false
	for _, c := range [...]*Chest{d.primary, d.secondary} {
		if c.inv.parent == d {
			c.inv.parent, c.inv.offset = nil, 0
		}
		if c.double == d {
			c.double = nil
		}
	}
	d.viewers.closeAll()
	slog.Debug("tiles: double inventory invalidated", "id", d.id)
}
