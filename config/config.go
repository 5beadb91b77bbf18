// Package config loads the YAML configuration of the tileinspect command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oriumgames/tiles/level"
	"github.com/oriumgames/tiles/store"
	"gopkg.in/yaml.v3"
)

// Config is the configuration file of the command.
type Config struct {
	World struct {
		// Path is the directory of the world's LevelDB database.
		Path string `yaml:"path"`
		// Dimension is overworld, nether or end.
		Dimension string `yaml:"dimension"`
	} `yaml:"world"`
	Log struct {
		// Level is debug, info, warn or error.
		Level string `yaml:"level"`
	} `yaml:"log"`
	Level struct {
		TickRate     time.Duration `yaml:"tick_rate"`
		SaveInterval uint64        `yaml:"save_interval"`
		ViewDistance float64       `yaml:"view_distance"`
	} `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.World.Path = "world/db"
	c.World.Dimension = "overworld"
	c.Log.Level = "info"
	c.Level.TickRate = 50 * time.Millisecond
	c.Level.SaveInterval = 1200
	c.Level.ViewDistance = 64
	return c
}

// Load reads the configuration at path on top of Default. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Validate reports the first invalid setting of c.
func (c Config) Validate() error {
	if strings.TrimSpace(c.World.Path) == "" {
		return errors.New("world.path is empty")
	}
	if _, err := c.DimensionID(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Level.TickRate < 0 {
		return fmt.Errorf("level.tick_rate %v is negative", c.Level.TickRate)
	}
	if c.Level.ViewDistance < 0 {
		return fmt.Errorf("level.view_distance %v is negative", c.Level.ViewDistance)
	}
	return nil
}

// DimensionID returns the Bedrock dimension id of the configured dimension.
func (c Config) DimensionID() (int32, error) {
	switch strings.ToLower(c.World.Dimension) {
	case "", "overworld":
		return 0, nil
	case "nether":
		return 1, nil
	case "end":
		return 2, nil
	}
	return 0, fmt.Errorf("unknown world.dimension %q", c.World.Dimension)
}

// LogLevel returns the configured slog level.
func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// StoreConfig returns the settings of the world database.
func (c Config) StoreConfig(log *slog.Logger) store.Config {
	dim, _ := c.DimensionID()
	return store.Config{Log: log, Dimension: dim}
}

// LevelConfig returns the settings of a level reading from p.
func (c Config) LevelConfig(log *slog.Logger, p level.Provider) level.Config {
	return level.Config{
		Log:          log,
		Provider:     p,
		TickRate:     c.Level.TickRate,
		SaveInterval: c.Level.SaveInterval,
		ViewDistance: c.Level.ViewDistance,
	}
}
