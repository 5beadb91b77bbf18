package main

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/oriumgames/tiles"
	"github.com/oriumgames/tiles/store"
	"github.com/oriumgames/tiles/tag"
)

// finding is a chest whose pairing is not symmetric.
type finding struct {
	pos, partner cube.Pos
	problem      string
}

func (f finding) String() string {
	return fmt.Sprintf("chest %v paired with %v: %s", f.pos, f.partner, f.problem)
}

// readTiles reads the tile trees of every chunk of db, keyed by position.
func readTiles(db *store.DB) (map[cube.Pos]*tag.Compound, error) {
	chunks, err := db.Chunks()
	if err != nil {
		return nil, err
	}
	out := make(map[cube.Pos]*tag.Compound)
	for _, pos := range chunks {
		cs, err := db.LoadTiles(pos)
		if err != nil {
			return nil, err
		}
		for _, c := range cs {
			p := cube.Pos{int(c.Int("x", 0)), int(c.Int("y", 0)), int(c.Int("z", 0))}
			out[p] = c
		}
	}
	return out, nil
}

// pairOf returns the partner position stored in a chest tree.
func pairOf(pos cube.Pos, c *tag.Compound) (cube.Pos, bool) {
	x, okx := c.Tag(tiles.TagPairX)
	z, okz := c.Tag(tiles.TagPairZ)
	if !okx || !okz {
		return cube.Pos{}, false
	}
	xi, okx := x.(tag.Int)
	zi, okz := z.(tag.Int)
	if !okx || !okz {
		return cube.Pos{}, false
	}
	return cube.Pos{int(xi), pos[1], int(zi)}, true
}

// audit reports every chest whose partner does not point back at it.
func audit(ts map[cube.Pos]*tag.Compound) []finding {
	var out []finding
	for pos, c := range ts {
		if c.String("id", "") != tiles.IDChest {
			continue
		}
		partner, ok := pairOf(pos, c)
		if !ok {
			continue
		}
		f := finding{pos: pos, partner: partner}
		pc, ok := ts[partner]
		switch {
		case partner == pos:
			f.problem = "paired with itself"
		case !ok:
			f.problem = "no tile at partner position"
		case pc.String("id", "") != tiles.IDChest:
			f.problem = "partner is a " + pc.String("id", "")
		default:
			back, ok := pairOf(partner, pc)
			if !ok {
				f.problem = "partner is not paired"
			} else if back != pos {
				f.problem = fmt.Sprintf("partner is paired with %v", back)
			} else {
				continue
			}
		}
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b finding) int { return comparePos(a.pos, b.pos) })
	return out
}

func sortedPositions(ts map[cube.Pos]*tag.Compound) []cube.Pos {
	out := make([]cube.Pos, 0, len(ts))
	for pos := range ts {
		out = append(out, pos)
	}
	slices.SortFunc(out, comparePos)
	return out
}

func comparePos(a, b cube.Pos) int {
	return cmp.Or(cmp.Compare(a[0], b[0]), cmp.Compare(a[1], b[1]), cmp.Compare(a[2], b[2]))
}
