package tiles

import (
	"github.com/df-mc/dragonfly/server/event"
)

// Context is passed to handler methods that may cancel the action they are
// notified of.
type Context = event.Context[*Chest]

// Handler handles events emitted by tiles. Handlers run synchronously on the
// goroutine that owns the world.
type Handler interface {
	// HandlePair handles two chests about to be paired. ctx.Cancel() prevents
	// the pairing, leaving both chests untouched.
	HandlePair(ctx *Context, c, partner *Chest)
	// HandleUnpair handles a chest that was unpaired. partner is nil if the
	// former partner was not loaded.
	HandleUnpair(c, partner *Chest)
	// HandleClose handles a tile being closed, either because its block was
	// removed or because its chunk unloaded.
	HandleClose(t Tile)
}

// NopHandler implements Handler without doing anything. It may be embedded
// to only implement some of the methods.
type NopHandler struct{}

// Compile time check to make sure NopHandler implements Handler.
var _ Handler = NopHandler{}

func (NopHandler) HandlePair(*Context, *Chest, *Chest) {}
func (NopHandler) HandleUnpair(*Chest, *Chest)         {}
func (NopHandler) HandleClose(Tile)                    {}
