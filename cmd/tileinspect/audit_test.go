package main

import (
	_ "github.com/df-mc/dragonfly/server/block" // links internal/nbtconv, the go:linkname target of dragonfly item.Crossbow
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/oriumgames/tiles"
	"github.com/oriumgames/tiles/config"
	"github.com/oriumgames/tiles/store"
	"github.com/oriumgames/tiles/tag"
)

func chestNBT(pos cube.Pos, partner *cube.Pos) *tag.Compound {
	c := tag.NewCompound()
	c.SetString("id", tiles.IDChest)
	c.SetInt("x", int32(pos[0]))
	c.SetInt("y", int32(pos[1]))
	c.SetInt("z", int32(pos[2]))
	if partner != nil {
		c.SetInt(tiles.TagPairX, int32(partner[0]))
		c.SetInt(tiles.TagPairZ, int32(partner[2]))
	}
	return c
}

func TestAudit(t *testing.T) {
	a, b := cube.Pos{0, 64, 0}, cube.Pos{1, 64, 0}
	c, d := cube.Pos{5, 64, 5}, cube.Pos{6, 64, 5}
	self := cube.Pos{9, 64, 9}
	shulker := tag.NewCompound()
	shulker.SetString("id", tiles.IDShulkerBox)

	ts := map[cube.Pos]*tag.Compound{
		a:           chestNBT(a, &b),
		b:           chestNBT(b, &a),
		c:           chestNBT(c, &d),
		d:           chestNBT(d, nil),
		self:        chestNBT(self, &self),
		{20, 64, 0}: chestNBT(cube.Pos{20, 64, 0}, &cube.Pos{21, 64, 0}),
		{30, 64, 0}: chestNBT(cube.Pos{30, 64, 0}, &cube.Pos{31, 64, 0}),
		{31, 64, 0}: shulker,
	}
	fs := audit(ts)
	want := []struct {
		pos     cube.Pos
		problem string
	}{
		{c, "partner is not paired"},
		{self, "paired with itself"},
		{cube.Pos{20, 64, 0}, "no tile at partner position"},
		{cube.Pos{30, 64, 0}, "partner is a ShulkerBox"},
	}
	if len(fs) != len(want) {
		t.Fatalf("audit found %v, want %d findings", fs, len(want))
	}
	for i, w := range want {
		if fs[i].pos != w.pos || fs[i].problem != w.problem {
			t.Errorf("finding %d = %v, want %v: %s", i, fs[i], w.pos, w.problem)
		}
	}
}

func TestRepair(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	a, b := cube.Pos{15, 64, 0}, cube.Pos{16, 64, 0}
	lonely := cube.Pos{0, 64, 5}

	db, err := store.Config{}.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	// a points at b but b has forgotten a; lonely points at nothing.
	if err := db.SaveTiles(tiles.ChunkPosOf(a), []*tag.Compound{chestNBT(lonely, &cube.Pos{0, 64, 6}), chestNBT(a, &b)}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveTiles(tiles.ChunkPosOf(b), []*tag.Compound{chestNBT(b, nil)}); err != nil {
		t.Fatal(err)
	}

	conf := config.Default()
	conf.World.Path = dir
	log := slog.New(slog.DiscardHandler)
	if err := repair(conf, log, db); err != nil {
		t.Fatalf("repair: %v", err)
	}

	db, err = store.Config{ReadOnly: true}.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ts, err := readTiles(db)
	if err != nil {
		t.Fatal(err)
	}
	fs := audit(ts)
	// The missing partner of lonely is a transient condition and keeps its tags.
	if len(fs) != 1 || fs[0].pos != lonely {
		t.Fatalf("findings after repair = %v", fs)
	}
	if got, ok := pairOf(b, ts[b]); !ok || got != a {
		t.Fatalf("b not relinked to a: %v %v", got, ok)
	}
	if chunks, _ := db.Chunks(); len(chunks) != 2 || chunks[0] != (world.ChunkPos{0, 0}) {
		t.Fatalf("chunks = %v", chunks)
	}
}
