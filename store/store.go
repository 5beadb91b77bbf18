// Package store persists tiles in a LevelDB database using the key layout of
// Bedrock Edition worlds, so that the block entities of an existing world can
// be read and written in place.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/df-mc/goleveldb/leveldb/storage"
	"github.com/oriumgames/tiles/level"
	"github.com/oriumgames/tiles/tag"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// keyBlockEntities is the key suffix of the block entity record of a chunk.
const keyBlockEntities = 0x31

// Config holds the settings of a DB.
type Config struct {
	// Log is the Logger used by the DB. If nil, slog.Default() is used.
	Log *slog.Logger
	// Dimension is the Bedrock dimension id the DB reads and writes: 0 for
	// the overworld, 1 for the nether and 2 for the end.
	Dimension int32
	// ReadOnly opens the database without write access.
	ReadOnly bool
}

// DB stores the tiles of a dimension in a LevelDB database.
type DB struct {
	conf Config
	ldb  *leveldb.DB
}

// Compile time check to make sure DB implements level.Provider.
var _ level.Provider = (*DB)(nil)

// Open opens the LevelDB database in dir, creating it if it does not exist.
func (conf Config) Open(dir string) (*DB, error) {
	ldb, err := leveldb.OpenFile(dir, &opt.Options{
		Compression: opt.FlateCompression,
		BlockSize:   16 * opt.KiB,
		ReadOnly:    conf.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dir, err)
	}
	return conf.new(ldb), nil
}

// OpenMem opens a database held in memory.
func (conf Config) OpenMem() (*DB, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("store: open memory storage: %w", err)
	}
	return conf.new(ldb), nil
}

func (conf Config) new(ldb *leveldb.DB) *DB {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	return &DB{conf: conf, ldb: ldb}
}

// LoadTiles returns the tile trees stored for the chunk at pos.
func (db *DB) LoadTiles(pos world.ChunkPos) ([]*tag.Compound, error) {
	b, err := db.ldb.Get(chunkKey(pos, db.conf.Dimension), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("store: read tiles of chunk %v: %w", pos, err)
	}
	cs, err := tag.UnmarshalAll(b, nbt.LittleEndian)
	if err != nil {
		// Keep what decoded; the record is rewritten on the next save.
		db.conf.Log.Warn("store: corrupt block entity record", "chunk", pos, "decoded", len(cs), "err", err)
	}
	return cs, nil
}

// SaveTiles replaces the tile trees stored for the chunk at pos. Saving no
// tiles deletes the chunk's record.
func (db *DB) SaveTiles(pos world.ChunkPos, tiles []*tag.Compound) error {
	key := chunkKey(pos, db.conf.Dimension)
	if len(tiles) == 0 {
		if err := db.ldb.Delete(key, nil); err != nil {
			return fmt.Errorf("store: delete tiles of chunk %v: %w", pos, err)
		}
		return nil
	}
	b, err := tag.MarshalAll(tiles, nbt.LittleEndian)
	if err != nil {
		return fmt.Errorf("store: encode tiles of chunk %v: %w", pos, err)
	}
	if err := db.ldb.Put(key, b, nil); err != nil {
		return fmt.Errorf("store: write tiles of chunk %v: %w", pos, err)
	}
	return nil
}

// Chunks returns the positions of all chunks of the dimension holding a
// block entity record, sorted.
func (db *DB) Chunks() ([]world.ChunkPos, error) {
	var out []world.ChunkPos
	iter := db.ldb.NewIterator(nil, nil)
	for iter.Next() {
		pos, dim, ok := parseKey(iter.Key())
		if ok && dim == db.conf.Dimension {
			out = append(out, pos)
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("store: iterate chunks: %w", err)
	}
	slices.SortFunc(out, func(a, b world.ChunkPos) int {
		if a[0] != b[0] {
			return int(a[0]) - int(b[0])
		}
		return int(a[1]) - int(b[1])
	})
	return out, nil
}

// Close closes the database.
func (db *DB) Close() error {
	if err := db.ldb.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// chunkKey returns the key of the block entity record of the chunk at pos.
// The dimension is omitted for the overworld.
func chunkKey(pos world.ChunkPos, dim int32) []byte {
	n := 9
	if dim != 0 {
		n = 13
	}
	b := make([]byte, n)
	binary.LittleEndian.PutUint32(b, uint32(pos[0]))
	binary.LittleEndian.PutUint32(b[4:], uint32(pos[1]))
	if dim != 0 {
		binary.LittleEndian.PutUint32(b[8:], uint32(dim))
	}
	b[n-1] = keyBlockEntities
	return b
}

// parseKey parses a block entity record key.
func parseKey(k []byte) (pos world.ChunkPos, dim int32, ok bool) {
	if (len(k) != 9 && len(k) != 13) || k[len(k)-1] != keyBlockEntities {
		return pos, 0, false
	}
	pos = world.ChunkPos{int32(binary.LittleEndian.Uint32(k)), int32(binary.LittleEndian.Uint32(k[4:]))}
	if len(k) == 13 {
		dim = int32(binary.LittleEndian.Uint32(k[8:]))
	}
	return pos, dim, true
}
