package tiles

import (
	"bytes"
	"encoding/gob"
	"log/slog"
	"maps"
	"slices"

	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/dragonfly/server/world/chunk"
	"github.com/oriumgames/tiles/tag"
)

// Names of the tags of a container and of the item compounds in its Items list.
const (
	TagItems      = "Items"
	TagCustomName = "CustomName"

	itemName    = "Name"
	itemDamage  = "Damage"
	itemCount   = "Count"
	itemSlot    = "Slot"
	itemBlock   = "Block"
	itemTag     = "tag"
	itemDisplay = "display"
	itemLore    = "Lore"
	itemEnch    = "ench"
	itemRepair  = "RepairCost"
	itemUnbreak = "Unbreakable"
	itemValues  = "dragonflyData"
)

// itemValue is a user value of a stack, stored gob encoded in the item tag.
type itemValue struct {
	K string
	V any
}

// EncodeItem returns the compound stored in an Items list for the stack s in
// slot. s must not be empty.
func EncodeItem(s item.Stack, slot int) *tag.Compound {
	c := tag.NewCompound()
	name, meta := s.Item().EncodeItem()
	c.SetString(itemName, name)
	c.SetShort(itemDamage, meta)
	if b, ok := s.Item().(world.Block); ok {
		if bc := encodeBlock(b); bc != nil {
			c.Set(itemBlock, bc)
		}
	}
	c.SetByte(itemCount, int8(s.Count()))
	c.SetByte(itemSlot, int8(slot))
	if t := encodeItemTag(s); t.Len() > 0 {
		c.Set(itemTag, t)
	}
	return c
}

func encodeBlock(b world.Block) *tag.Compound {
	name, states := b.EncodeBlock()
	sc, err := tag.FromMap(states)
	if err != nil {
		slog.Warn("tiles: skipping block states of item", "block", name, "err", err)
		return nil
	}
	c := tag.NewCompound()
	c.SetString("name", name)
	c.Set("states", sc)
	c.SetInt("version", chunk.CurrentBlockVersion)
	return c
}

// encodeItemTag returns the tag compound of s: the item's own data followed by
// the stack's damage, display, enchantments and user values.
func encodeItemTag(s item.Stack) *tag.Compound {
	t := tag.NewCompound()
	if n, ok := s.Item().(world.NBTer); ok {
		data, err := tag.FromMap(n.EncodeNBT())
		if err != nil {
			name, _ := s.Item().EncodeItem()
			slog.Warn("tiles: dropping item data", "item", name, "err", err)
		}
		for _, k := range data.Names() {
			v, _ := data.Tag(k)
			t.Set(k, v)
		}
	}
	if cost := s.AnvilCost(); cost > 0 {
		t.SetInt(itemRepair, int32(cost))
	}
	if _, ok := s.Item().(item.Durable); ok && t.Short(itemDamage, 0) == 0 {
		if d := s.MaxDurability() - s.Durability(); d > 0 {
			t.SetShort(itemDamage, int16(d))
		}
	}

	display := tag.NewCompound()
	if n := s.CustomName(); n != "" {
		display.SetString(itemName, n)
	}
	if lore := s.Lore(); len(lore) > 0 {
		l := tag.NewList(tag.KindString)
		for _, line := range lore {
			_ = l.Add(tag.String(line))
		}
		display.Set(itemLore, l)
	}
	if display.Len() > 0 {
		t.Set(itemDisplay, display)
	}

	if vs := s.Values(); len(vs) > 0 {
		values := make([]itemValue, 0, len(vs))
		for _, k := range slices.Sorted(maps.Keys(vs)) {
			values = append(values, itemValue{K: k, V: vs[k]})
		}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(values); err != nil {
			slog.Warn("tiles: dropping item values", "err", err)
		} else {
			t.SetByteArray(itemValues, buf.Bytes())
		}
	}

	if es := s.Enchantments(); len(es) > 0 {
		l := tag.NewList(tag.KindCompound)
		for _, e := range es {
			id, ok := item.EnchantmentID(e.Type())
			if !ok {
				continue
			}
			ec := tag.NewCompound()
			ec.SetShort("id", int16(id))
			ec.SetShort("lvl", int16(e.Level()))
			_ = l.Add(ec)
		}
		t.Set(itemEnch, l)
	}
	if s.Unbreakable() {
		t.SetByte(itemUnbreak, 1)
	}
	return t
}

// DecodeItem reads an item compound of an Items list. It returns false if the
// item is not registered or its count is not positive.
func DecodeItem(c *tag.Compound) (s item.Stack, slot int, ok bool) {
	it := decodeBlock(c)
	if v, ok := world.ItemByName(c.String(itemName, ""), c.Short(itemDamage, 0)); ok {
		it = v
	}
	if it == nil {
		return item.Stack{}, 0, false
	}
	count := int(uint8(c.Byte(itemCount, 0)))
	if count <= 0 {
		return item.Stack{}, 0, false
	}
	t, _ := c.Compound(itemTag)
	if n, ok := it.(world.NBTer); ok {
		if v, ok := n.DecodeNBT(tag.ToMap(t)).(world.Item); ok {
			it = v
		}
	}

	s = item.NewStack(it, count)
	s = s.WithAnvilCost(int(t.Int(itemRepair, 0)))
	if _, ok := it.(item.Durable); ok {
		s = s.Damage(int(t.Short(itemDamage, 0)))
	}
	display, _ := t.Compound(itemDisplay)
	if n := display.String(itemName, ""); n != "" {
		s = s.WithCustomName(n)
	}
	if l, ok := display.List(itemLore); ok {
		lore := make([]string, 0, l.Len())
		for _, v := range l.Tags() {
			if line, ok := v.(tag.String); ok {
				lore = append(lore, string(line))
			}
		}
		s = s.WithLore(lore...)
	}
	if b := t.ByteArray(itemValues, nil); len(b) > 0 {
		var values []itemValue
		if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&values); err != nil {
			slog.Warn("tiles: dropping item values", "err", err)
		}
		for _, v := range values {
			s = s.WithValue(v.K, v.V)
		}
	}
	l, _ := t.List(itemEnch)
	for _, ec := range l.Compounds() {
		lvl := int(ec.Short("lvl", 0))
		if et, ok := item.EnchantmentByID(int(ec.Short("id", 0))); ok && lvl > 0 {
			s = s.WithEnchantments(item.NewEnchantment(et, lvl))
		}
	}
	if t.Byte(itemUnbreak, 0) != 0 {
		s = s.AsUnbreakable()
	}
	return s, int(uint8(c.Byte(itemSlot, 0))), true
}

func decodeBlock(c *tag.Compound) world.Item {
	bc, ok := c.Compound(itemBlock)
	if !ok {
		return nil
	}
	states, _ := bc.Compound("states")
	b, ok := world.BlockByName(bc.String("name", ""), tag.ToMap(states))
	if !ok {
		return nil
	}
	it, _ := b.(world.Item)
	return it
}

// loadItems fills inv from the Items list of nbt. Items that cannot be decoded
// or that do not fit the inventory are skipped.
func loadItems(inv *SingleInventory, nbt *tag.Compound) {
	l, _ := nbt.List(TagItems)
	for _, c := range l.Compounds() {
		s, slot, ok := DecodeItem(c)
		if !ok {
			slog.Warn("tiles: skipping unknown item", "name", c.String(itemName, ""), "damage", c.Short(itemDamage, 0))
			continue
		}
		if err := inv.SetItem(slot, s); err != nil {
			slog.Warn("tiles: skipping item", "slot", slot, "err", err)
		}
	}
	inv.resetChanged()
}

// itemsList returns the Items list for the current content of inv.
func itemsList(inv *SingleInventory) *tag.List {
	l := tag.NewList(tag.KindCompound)
	for slot, s := range inv.Slots() {
		if s.Empty() {
			continue
		}
		_ = l.Add(EncodeItem(s, slot))
	}
	return l
}
