// Package cli implements the incgraph command-line interface.
//
// # Commands
//
//   - scan: build the include graph for a project and print statistics
//   - query: list what a file includes or what includes it
//   - export: write the graph as JSON
//   - render: draw the graph as DOT, SVG or PNG
//   - watch: rebuild the graph whenever a source file changes
//   - cache: manage the include lookup cache
//
// Files come from an incgraph.toml project file (found in the working
// directory or a parent, or named with --config), from the command line,
// or both.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// shared with the engine, so -v also shows per-run build progress.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/incgraph/pkg/cache"
)

// appName is the application name used for directories and display.
const appName = "incgraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// stdout receives command results. Status lines go through the print
// helpers in ui.go, which also write here.
var stdout io.Writer = os.Stdout

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// memoryEntries bounds the in-process lookup cache.
const memoryEntries = 16384

// newCache opens the lookup cache: an in-process LRU in front of the
// on-disk cache. The LRU is used alone when disk caching is disabled or no
// cache directory is available.
func newCache(noCache bool) (cache.Cache, error) {
	mem, err := cache.NewMemoryCache(memoryEntries)
	if err != nil {
		return nil, err
	}
	if noCache {
		return mem, nil
	}
	dir, err := cacheDir()
	if err != nil {
		return mem, nil
	}
	disk, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.NewLayered(mem, disk, cache.TTLResolve), nil
}

// cacheDir returns the cache directory using XDG standard (~/.cache/incgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
