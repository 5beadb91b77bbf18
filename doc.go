// Package tiles implements persistent block entities ("tiles") for Dragonfly
// based servers: chests and shulker boxes whose state lives in a tag tree
// that survives chunk unloads and restarts.
//
// # Tiles
//
// A tile is a block position plus an owned *tag.Compound holding everything
// that is persisted about it (id, x, y, z and kind specific tags). Tiles are
// created through the registry:
//
//	nbt, _ := tiles.NewNBT(tiles.IDChest, pos, heldItem)
//	t, err := tiles.Load(w, nbt)
//
// where w is the World collaborator that owns the chunk the tile lives in
// (see the level package for an implementation).
//
// # Containers
//
// Chests and shulker boxes implement Container. Their items are loaded from
// the Items list when the tile is constructed and written back by SaveNBT.
// Inventory returns the effective view of a container; RealInventory always
// returns the container's own 27 slots.
//
// # Double chests
//
// Two chests on the same Y level may be paired. The pairing is stored on both
// sides as pairx and pairz tags and resolved lazily: the merged 54 slot
// DoubleInventory is only built once both chests are loaded, and it is
// dropped again as soon as either side unloads, closes or unpairs.
//
//	if err := a.PairWith(b); err != nil {
//	    return err
//	}
//	inv := a.Inventory() // *tiles.DoubleInventory while b is loaded
//
// Mismatched pairing data found on load is repaired on demand: a chest whose
// partner is paired elsewhere or is not a chest forgets its pairing, a chest
// whose partner forgot the pairing re-links it.
//
// # Concurrency
//
// Tiles are not safe for concurrent use. All tiles of a World must be
// accessed from the goroutine that owns it.
package tiles
