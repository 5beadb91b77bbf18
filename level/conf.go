package level

import (
	"log/slog"
	"time"

	"github.com/df-mc/dragonfly/server/world"
	"github.com/oriumgames/tiles"
)

// Config holds the settings of a Level.
type Config struct {
	// Log is the Logger used by the level. If nil, slog.Default() is used.
	Log *slog.Logger
	// Provider persists the tiles of the level. If nil, tiles are kept in
	// memory only.
	Provider Provider
	// Handler is notified of tile events. If nil, a tiles.NopHandler is used.
	Handler tiles.Handler
	// TickRate is the duration of a tick. If zero, 50ms is used.
	TickRate time.Duration
	// SaveInterval is the number of ticks between automatic saves of changed
	// chunks. If zero, changed chunks are only saved by Save, UnloadChunk and
	// Close.
	SaveInterval uint64
	// ViewDistance is the distance in blocks within which observers receive
	// tiles. If zero, 64 is used.
	ViewDistance float64
}

// New creates a Level using the settings of the Config. The tick loop is not
// started until Start is called.
func (conf Config) New() *Level {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Provider == nil {
		conf.Provider = NewMemProvider()
	}
	if conf.Handler == nil {
		conf.Handler = tiles.NopHandler{}
	}
	if conf.TickRate <= 0 {
		conf.TickRate = 50 * time.Millisecond
	}
	if conf.ViewDistance <= 0 {
		conf.ViewDistance = 64
	}
	return &Level{
		conf:      conf,
		chunks:    make(map[world.ChunkPos]*chunkData),
		observers: make(map[Observer]struct{}),
		queue:     newTaskQueue(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}
