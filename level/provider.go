package level

import (
	"fmt"
	"sync"

	"github.com/df-mc/dragonfly/server/world"
	"github.com/oriumgames/tiles/tag"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// Provider persists the tile trees of chunks.
type Provider interface {
	// LoadTiles returns the tile trees stored for the chunk at pos. A chunk
	// without stored tiles yields no compounds and no error.
	LoadTiles(pos world.ChunkPos) ([]*tag.Compound, error)
	// SaveTiles replaces the tile trees stored for the chunk at pos. Saving no
	// compounds removes the chunk's record.
	SaveTiles(pos world.ChunkPos, tiles []*tag.Compound) error
	// Close closes the provider.
	Close() error
}

// MemProvider is a Provider keeping encoded tile records in memory. It is
// used when a level has no Provider configured.
type MemProvider struct {
	mu      sync.Mutex
	records map[world.ChunkPos][]byte
}

// Compile time check to make sure MemProvider implements Provider.
var _ Provider = (*MemProvider)(nil)

// NewMemProvider returns an empty MemProvider.
func NewMemProvider() *MemProvider {
	return &MemProvider{records: make(map[world.ChunkPos][]byte)}
}

func (p *MemProvider) LoadTiles(pos world.ChunkPos) ([]*tag.Compound, error) {
	p.mu.Lock()
	b, ok := p.records[pos]
	p.mu.Unlock()
	if !ok {
		return nil, nil
	}
	cs, err := tag.UnmarshalAll(b, nbt.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("level: load tiles of chunk %v: %w", pos, err)
	}
	return cs, nil
}

func (p *MemProvider) SaveTiles(pos world.ChunkPos, tiles []*tag.Compound) error {
	if len(tiles) == 0 {
		p.mu.Lock()
		delete(p.records, pos)
		p.mu.Unlock()
		return nil
	}
	b, err := tag.MarshalAll(tiles, nbt.LittleEndian)
	if err != nil {
		return fmt.Errorf("level: save tiles of chunk %v: %w", pos, err)
	}
	p.mu.Lock()
	p.records[pos] = b
	p.mu.Unlock()
	return nil
}

// Chunks returns the number of chunks with stored tiles.
func (p *MemProvider) Chunks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

func (p *MemProvider) Close() error {
	return nil
}
