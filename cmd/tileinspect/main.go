// Command tileinspect inspects and repairs the block entities of a Bedrock
// world database.
//
// Usage:
//
//	tileinspect [flags] list
//	tileinspect [flags] audit
//	tileinspect [flags] repair
//	tileinspect [flags] backup <file>
//	tileinspect [flags] restore <file>
package main

import (
	"errors"
	"flag"
	"fmt"
	_ "github.com/df-mc/dragonfly/server/block" // links internal/nbtconv, the go:linkname target of dragonfly item.Crossbow
	"log/slog"
	"os"

	"github.com/df-mc/dragonfly/server/world"
	"github.com/oriumgames/tiles"
	"github.com/oriumgames/tiles/config"
	"github.com/oriumgames/tiles/level"
	"github.com/oriumgames/tiles/store"
)

func main() {
	var (
		confPath = flag.String("config", "", "path of the YAML configuration file")
		dbPath   = flag.String("db", "", "world database directory, overriding the configuration")
		dim      = flag.String("dimension", "", "overworld, nether or end, overriding the configuration")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] list|audit|repair|backup <file>|restore <file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	conf, err := config.Load(*confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *dbPath != "" {
		conf.World.Path = *dbPath
	}
	if *dim != "" {
		conf.World.Dimension = *dim
	}
	if err := conf.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	lvl, _ := conf.LogLevel()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	if err := run(conf, log, flag.Args()); err != nil {
		log.Error("tileinspect failed", "err", err)
		os.Exit(1)
	}
}

func run(conf config.Config, log *slog.Logger, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("no command given")
	}
	sc := conf.StoreConfig(log)
	switch cmd := args[0]; cmd {
	case "list", "audit":
		sc.ReadOnly = true
	case "repair", "backup", "restore":
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if (args[0] == "backup" || args[0] == "restore") && len(args) != 2 {
		return fmt.Errorf("%s needs a file argument", args[0])
	}

	db, err := sc.Open(conf.World.Path)
	if err != nil {
		return err
	}
	switch args[0] {
	case "list":
		defer db.Close()
		return list(db)
	case "audit":
		defer db.Close()
		n, err := runAudit(db)
		if err == nil && n > 0 {
			err = fmt.Errorf("%d asymmetric pairings", n)
		}
		return err
	case "repair":
		return repair(conf, log, db)
	case "backup":
		defer db.Close()
		return backup(db, args[1])
	default:
		defer db.Close()
		return restore(db, args[1])
	}
}

func list(db *store.DB) error {
	ts, err := readTiles(db)
	if err != nil {
		return err
	}
	for _, pos := range sortedPositions(ts) {
		c := ts[pos]
		line := fmt.Sprintf("%v\t%s", pos, c.String("id", "?"))
		if name := c.String(tiles.TagCustomName, ""); name != "" {
			line += fmt.Sprintf("\t%q", name)
		}
		if partner, ok := pairOf(pos, c); ok {
			line += fmt.Sprintf("\tpaired %v", partner)
		}
		if items, ok := c.List(tiles.TagItems); ok {
			line += fmt.Sprintf("\titems %d", items.Len())
		}
		fmt.Println(line)
	}
	return nil
}

func runAudit(db *store.DB) (int, error) {
	ts, err := readTiles(db)
	if err != nil {
		return 0, err
	}
	fs := audit(ts)
	for _, f := range fs {
		fmt.Println(f)
	}
	return len(fs), nil
}

// repair loads every chunk into a level so that the pairing of every chest
// is checked, then saves the chunks that changed.
func repair(conf config.Config, log *slog.Logger, db *store.DB) error {
	l := conf.LevelConfig(log, db).New()
	chunks, err := db.Chunks()
	if err != nil {
		return errors.Join(err, l.Close())
	}
	for _, pos := range chunks {
		if err := l.LoadChunk(pos); err != nil {
			return errors.Join(err, l.Close())
		}
	}
	// Chests of chunks loaded before their partner's chunk only see the
	// partner now.
	checked := 0
	for _, pos := range chunks {
		checked += checkChunk(l, pos)
	}
	if err := l.Close(); err != nil {
		return err
	}
	log.Info("repair finished", "chunks", len(chunks), "chests", checked)
	return nil
}

func checkChunk(l *level.Level, pos world.ChunkPos) int {
	n := 0
	for _, t := range l.Tiles(pos) {
		if c, ok := t.(*tiles.Chest); ok {
			c.CheckPairing()
			n++
		}
	}
	return n
}

func backup(db *store.DB, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := db.Backup(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Printf("%d records written to %s\n", n, path)
	return nil
}

func restore(db *store.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := db.Restore(f)
	if err != nil {
		return err
	}
	fmt.Printf("%d records restored from %s\n", n, path)
	return nil
}
