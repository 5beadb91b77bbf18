package tiles

import (
	"errors"
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/item/enchantment"
	"github.com/oriumgames/tiles/tag"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

func TestPairWith(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{0, 64, 0})
	b := w.chest(t, cube.Pos{1, 64, 0})

	if err := a.PairWith(b); err != nil {
		t.Fatalf("PairWith: %v", err)
	}
	for _, c := range []*Chest{a, b} {
		if !c.Paired() {
			t.Fatalf("chest at %v not paired", c.Pos())
		}
		if w.changed[c.Pos()] == 0 {
			t.Fatalf("chest at %v not reported changed", c.Pos())
		}
	}
	if pos, _ := a.PairPos(); pos != b.Pos() {
		t.Fatalf("a.PairPos() = %v, want %v", pos, b.Pos())
	}
	if pos, _ := b.PairPos(); pos != a.Pos() {
		t.Fatalf("b.PairPos() = %v, want %v", pos, a.Pos())
	}

	ia, ib := a.Inventory(), b.Inventory()
	d, ok := ia.(*DoubleInventory)
	if !ok {
		t.Fatalf("a.Inventory() = %T, want *DoubleInventory", ia)
	}
	if ib != ia {
		t.Fatal("paired chests do not share one view")
	}
	if d.Size() != 2*ContainerSize {
		t.Fatalf("double size = %d, want %d", d.Size(), 2*ContainerSize)
	}
	// b has the larger key x + z<<15 and therefore comes first.
	if d.Primary() != b || d.Secondary() != a {
		t.Fatalf("primary = %v, want %v", d.Primary().Pos(), b.Pos())
	}
}

func TestPairWithPrimaryByZ(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{5, 10, 3})
	b := w.chest(t, cube.Pos{5, 10, 2})
	if err := b.PairWith(a); err != nil {
		t.Fatal(err)
	}
	d, ok := b.DoubleInventory()
	if !ok {
		t.Fatal("no double inventory after pairing")
	}
	if d.Primary() != a {
		t.Fatalf("primary = %v, want %v", d.Primary().Pos(), a.Pos())
	}
}

func TestPairWithInvalid(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{0, 64, 0})
	b := w.chest(t, cube.Pos{1, 64, 0})
	c := w.chest(t, cube.Pos{2, 64, 0})
	high := w.chest(t, cube.Pos{0, 65, 0})
	closed := w.chest(t, cube.Pos{0, 64, 1})
	closed.Close()
	if err := b.PairWith(c); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		other *Chest
	}{
		{"nil", nil},
		{"self", a},
		{"other level", high},
		{"closed", closed},
		{"partner already paired", b},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := a.PairWith(tt.other); !errors.Is(err, ErrInvalidPairing) {
				t.Fatalf("err = %v, want ErrInvalidPairing", err)
			}
			if a.Paired() {
				t.Fatal("failed pairing mutated the chest")
			}
		})
	}

	if err := b.PairWith(a); !errors.Is(err, ErrInvalidPairing) {
		t.Fatalf("receiver already paired: err = %v, want ErrInvalidPairing", err)
	}
	if pos, _ := b.PairPos(); pos != c.Pos() {
		t.Fatal("failed pairing changed an existing pairing")
	}
}

func TestPairWithCancelled(t *testing.T) {
	w := newTestWorld()
	w.h = cancelPair{}
	a := w.chest(t, cube.Pos{0, 64, 0})
	b := w.chest(t, cube.Pos{1, 64, 0})
	if err := a.PairWith(b); !errors.Is(err, ErrPairCancelled) {
		t.Fatalf("err = %v, want ErrPairCancelled", err)
	}
	if a.Paired() || b.Paired() {
		t.Fatal("cancelled pairing mutated a chest")
	}
}

func TestUnpair(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{0, 64, 0})
	b := w.chest(t, cube.Pos{0, 64, 1})
	if a.Unpair() {
		t.Fatal("Unpair on an unpaired chest returned true")
	}
	if err := a.PairWith(b); err != nil {
		t.Fatal(err)
	}
	d := a.Inventory().(*DoubleInventory)
	v := newTestViewer()
	if err := d.AddViewer(v); err != nil {
		t.Fatal(err)
	}

	if !a.Unpair() {
		t.Fatal("Unpair returned false")
	}
	if a.Paired() || b.Paired() {
		t.Fatal("a chest kept its pairing data")
	}
	if d.Valid() {
		t.Fatal("view still valid after unpairing")
	}
	if v.closed != 1 {
		t.Fatalf("viewer closed %d times, want 1", v.closed)
	}
	if _, err := d.Item(0); !errors.Is(err, ErrInvalidated) {
		t.Fatalf("Item on invalidated view: err = %v", err)
	}
	if err := d.SetItem(0, item.NewStack(item.Apple{}, 1)); !errors.Is(err, ErrInvalidated) {
		t.Fatalf("SetItem on invalidated view: err = %v", err)
	}
	if err := d.AddViewer(v); !errors.Is(err, ErrInvalidated) {
		t.Fatalf("AddViewer on invalidated view: err = %v", err)
	}
	if a.Inventory() != Inventory(a.RealInventory()) || b.Inventory() != Inventory(b.RealInventory()) {
		t.Fatal("unpaired chests should use their own inventories")
	}
}

func TestPartnerUnloaded(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{15, 64, 0})
	b := w.chest(t, cube.Pos{16, 64, 0})
	if err := a.PairWith(b); err != nil {
		t.Fatal(err)
	}
	d := a.Inventory().(*DoubleInventory)

	w.unloaded[ChunkPosOf(b.Pos())] = true
	b.Close()
	if d.Valid() {
		t.Fatal("view still valid after partner closed")
	}
	if got := a.Inventory(); got != Inventory(a.RealInventory()) {
		t.Fatalf("Inventory() = %T, want own inventory", got)
	}
	if !a.Paired() {
		t.Fatal("pairing data dropped while partner is unloaded")
	}

	// Reload the partner from its saved tree.
	b.SaveNBT()
	delete(w.unloaded, ChunkPosOf(b.Pos()))
	reloaded, err := Load(w, b.NBT().Clone())
	if err != nil {
		t.Fatal(err)
	}
	w.tiles[b.Pos()] = reloaded
	d2, ok := a.Inventory().(*DoubleInventory)
	if !ok {
		t.Fatal("pairing did not resolve after partner reload")
	}
	if d2 == d {
		t.Fatal("invalidated view was reused")
	}
	if reloaded.(*Chest).Inventory() != Inventory(d2) {
		t.Fatal("reloaded partner does not share the view")
	}
}

func TestPartnerMissing(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{0, 64, 0})
	a.setPair(cube.Pos{1, 64, 0})
	if got := a.Inventory(); got != Inventory(a.RealInventory()) {
		t.Fatalf("Inventory() = %T, want own inventory", got)
	}
	if !a.Paired() {
		t.Fatal("pairing data cleared although no tile exists at the partner position")
	}
}

func TestStalePairingCleared(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, w *testWorld, a *Chest)
	}{
		{"partner is not a chest", func(t *testing.T, w *testWorld, a *Chest) {
			w.place(t, IDShulkerBox, cube.Pos{1, 64, 0})
			a.setPair(cube.Pos{1, 64, 0})
		}},
		{"partner paired elsewhere", func(t *testing.T, w *testWorld, a *Chest) {
			b := w.chest(t, cube.Pos{1, 64, 0})
			c := w.chest(t, cube.Pos{2, 64, 0})
			if err := b.PairWith(c); err != nil {
				t.Fatal(err)
			}
			a.setPair(b.Pos())
		}},
		{"paired with itself", func(t *testing.T, w *testWorld, a *Chest) {
			a.setPair(a.Pos())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld()
			a := w.chest(t, cube.Pos{0, 64, 0})
			tt.setup(t, w, a)
			if got := a.Inventory(); got != Inventory(a.RealInventory()) {
				t.Fatalf("Inventory() = %T, want own inventory", got)
			}
			if a.Paired() {
				t.Fatal("stale pairing data was not cleared")
			}
			if w.changed[a.Pos()] == 0 {
				t.Fatal("clearing stale data was not reported")
			}
		})
	}
}

func TestPartnerRelinked(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{0, 64, 0})
	b := w.chest(t, cube.Pos{1, 64, 0})
	a.setPair(b.Pos())

	if _, ok := a.Inventory().(*DoubleInventory); !ok {
		t.Fatal("pairing did not resolve")
	}
	if pos, ok := b.PairPos(); !ok || pos != a.Pos() {
		t.Fatalf("partner pair pos = %v, %v; want %v", pos, ok, a.Pos())
	}
	if w.changed[b.Pos()] == 0 {
		t.Fatal("relinked partner was not reported changed")
	}
	if b.Inventory() != a.Inventory() {
		t.Fatal("relinked chests do not share one view")
	}
}

func TestDoubleInventoryWriteThrough(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{0, 64, 0})
	b := w.chest(t, cube.Pos{1, 64, 0})
	if err := a.PairWith(b); err != nil {
		t.Fatal(err)
	}
	d := a.Inventory().(*DoubleInventory)
	v := newTestViewer()
	_ = d.AddViewer(v)

	apple := item.NewStack(item.Apple{}, 3)
	if err := d.SetItem(ContainerSize+2, apple); err != nil {
		t.Fatal(err)
	}
	// a is the secondary chest, so slot 27+2 is its slot 2.
	if got, _ := a.RealInventory().Item(2); !got.Equal(apple) {
		t.Fatalf("secondary slot 2 = %v, want %v", got, apple)
	}
	if got, ok := v.changes[ContainerSize+2]; !ok || !got.Equal(apple) {
		t.Fatal("double viewer not notified at the merged slot")
	}

	// Writes to the own inventory are visible through the view.
	if err := b.RealInventory().SetItem(5, apple); err != nil {
		t.Fatal(err)
	}
	if got, _ := d.Item(5); !got.Equal(apple) {
		t.Fatalf("double slot 5 = %v, want %v", got, apple)
	}
	if _, ok := v.changes[5]; !ok {
		t.Fatal("double viewer not notified of a primary change")
	}
	if _, err := d.Item(2 * ContainerSize); !errors.Is(err, ErrSlotRange) {
		t.Fatalf("out of range slot: err = %v", err)
	}
	if n := len(d.Slots()); n != 2*ContainerSize {
		t.Fatalf("len(Slots()) = %d", n)
	}
}

func TestChestClose(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{0, 64, 0})
	b := w.chest(t, cube.Pos{1, 64, 0})
	if err := a.PairWith(b); err != nil {
		t.Fatal(err)
	}
	d := a.Inventory().(*DoubleInventory)
	dv, ov := newTestViewer(), newTestViewer()
	_ = d.AddViewer(dv)
	_ = a.RealInventory().AddViewer(ov)

	w.remove(a.Pos())
	if !a.Closed() {
		t.Fatal("chest not closed")
	}
	if d.Valid() {
		t.Fatal("view still valid after close")
	}
	if dv.closed != 1 || ov.closed != 1 {
		t.Fatalf("viewers closed %d/%d times, want 1/1", dv.closed, ov.closed)
	}
	a.Close()
	if dv.closed != 1 {
		t.Fatal("second Close notified viewers again")
	}
	if _, ok := b.Inventory().(*DoubleInventory); ok {
		t.Fatal("partner resolved a pairing with a removed chest")
	}
}

func TestClosedChestStaysSingle(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{0, 64, 0})
	b := w.chest(t, cube.Pos{1, 64, 0})
	if err := a.PairWith(b); err != nil {
		t.Fatal(err)
	}
	a.Close()
	if !a.Paired() {
		t.Fatal("close cleared the pairing data")
	}

	if a.Inventory() != Inventory(a.RealInventory()) {
		t.Fatal("closed chest returned a merged view")
	}
	a.CheckPairing()
	if _, ok := a.DoubleInventory(); ok {
		t.Fatal("closed chest rebuilt a merged view")
	}
	if b.Inventory() != Inventory(b.RealInventory()) {
		t.Fatal("partner built a merged view over a closed chest")
	}
	if a.RealInventory().parent != nil || b.RealInventory().parent != nil {
		t.Fatal("own inventories still attached to a merged view")
	}
}

func TestPairAgainKeepsPrimary(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{0, 64, 0})
	b := w.chest(t, cube.Pos{1, 64, 0})
	if err := a.PairWith(b); err != nil {
		t.Fatal(err)
	}
	first, _ := a.DoubleInventory()
	primary := first.Primary()

	if !a.Unpair() {
		t.Fatal("Unpair reported the chest unpaired")
	}
	if first.Valid() {
		t.Fatal("view survived the unpair")
	}
	if err := b.PairWith(a); err != nil {
		t.Fatalf("PairWith after unpair: %v", err)
	}
	second, ok := b.DoubleInventory()
	if !ok {
		t.Fatal("no view after pairing again")
	}
	if second == first || second.ID() == first.ID() {
		t.Fatal("pairing again reused the invalidated view")
	}
	if second.Primary() != primary {
		t.Fatalf("primary = %v, want %v", second.Primary().Pos(), primary.Pos())
	}
	if _, err := first.Item(0); !errors.Is(err, ErrInvalidated) {
		t.Fatalf("old view Item: %v, want ErrInvalidated", err)
	}
}

func TestChestItemsPersist(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{0, 64, 0})
	a.SetName("Loot")
	apple := item.NewStack(item.Apple{}, 12).WithCustomName("Golden")
	if err := a.RealInventory().SetItem(26, apple); err != nil {
		t.Fatal(err)
	}
	if !a.RealInventory().Changed() {
		t.Fatal("slot change was not tracked")
	}
	a.SaveNBT()
	if a.RealInventory().Changed() {
		t.Fatal("changes not reset by SaveNBT")
	}

	loaded := NewChest(w, a.NBT().Clone())
	got, err := loaded.RealInventory().Item(26)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(apple) {
		t.Fatalf("loaded item = %v, want %v", got, apple)
	}
	if loaded.Name() != "Loot" || !loaded.HasName() {
		t.Fatalf("Name() = %q", loaded.Name())
	}
	loaded.SetName("")
	if loaded.HasName() || loaded.Name() != loaded.DefaultName() {
		t.Fatal("clearing the name did not restore the default")
	}
}

func TestChestItemDataPersists(t *testing.T) {
	book := item.NewStack(item.WrittenBook{
		Title:      "Logbook",
		Author:     "Quartermaster",
		Generation: item.CopyGeneration(),
		Pages:      []string{"Day one.", "Day two."},
	}, 1)
	sword := item.NewStack(item.Sword{Tier: item.ToolTierDiamond}, 1).
		Damage(100).
		WithEnchantments(item.NewEnchantment(enchantment.Sharpness, 3)).
		WithLore("Forged below", "the mountain").
		WithAnvilCost(4).
		WithValue("owner", "guild")
	pick := item.NewStack(item.Pickaxe{Tier: item.ToolTierIron}, 1).AsUnbreakable()

	tests := []struct {
		name string
		s    item.Stack
	}{
		{"written book", book},
		{"damaged enchanted sword", sword},
		{"unbreakable pickaxe", pick},
	}
	w := newTestWorld()
	a := w.chest(t, cube.Pos{0, 64, 0})
	for i, tt := range tests {
		if err := a.RealInventory().SetItem(i, tt.s); err != nil {
			t.Fatal(err)
		}
	}
	a.SaveNBT()
	b, err := tag.Marshal(a.NBT(), nbt.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	data, err := tag.Unmarshal(b, nbt.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	loaded := NewChest(w, data)

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loaded.RealInventory().Item(i)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.s) {
				t.Fatalf("loaded %v, want %v", got, tt.s)
			}
			if got.Durability() != tt.s.Durability() || got.Unbreakable() != tt.s.Unbreakable() {
				t.Fatalf("durability %d/%v, want %d/%v", got.Durability(), got.Unbreakable(), tt.s.Durability(), tt.s.Unbreakable())
			}
		})
	}
	got, _ := loaded.RealInventory().Item(0)
	if wb, ok := got.Item().(item.WrittenBook); !ok || wb.Author != "Quartermaster" || len(wb.Pages) != 2 {
		t.Fatalf("written book = %#v", got.Item())
	}
}

func TestChestSpawnCompound(t *testing.T) {
	w := newTestWorld()
	a := w.chest(t, cube.Pos{3, 70, -4})
	b := w.chest(t, cube.Pos{4, 70, -4})
	a.SetName("Box")
	if err := a.PairWith(b); err != nil {
		t.Fatal(err)
	}

	want := tag.NewCompound()
	want.SetString("id", IDChest)
	want.SetInt("x", 3)
	want.SetInt("y", 70)
	want.SetInt("z", -4)
	want.SetInt(TagPairX, 4)
	want.SetInt(TagPairZ, -4)
	want.SetString(TagCustomName, "Box")
	if got := a.SpawnCompound(); !tag.Equal(got, want) {
		t.Fatalf("spawn compound = %v, want %v", tag.ToMap(got), tag.ToMap(want))
	}
}
