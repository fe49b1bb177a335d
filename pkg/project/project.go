// Package project loads incgraph.toml project files.
//
// A project file names the translation units to scan and the compile options
// each one is built with:
//
//	name       = "firmware"
//	root       = "."
//	flags      = ["-Iinclude", "-DNDEBUG"]
//	sources    = ["src/*.c", "drivers/*/*.c"]
//	resolution = "first"
//
//	[[file]]
//	path  = "src/boot.c"
//	flags = ["-Iarch/arm/include"]
//
// Every entry gets the global flags followed by its own. A [[file]] entry
// whose path is also matched by a source glob replaces that match in place,
// so the scan order stays the glob order.
//
// resolution picks whether an include resolves to the first matching header
// on the search path or to every matching header; see [resolver.Mode].
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	ierrors "github.com/matzehuels/incgraph/pkg/errors"
	"github.com/matzehuels/incgraph/pkg/incgraph"
	"github.com/matzehuels/incgraph/pkg/resolver"
)

// DefaultFile is the project file name looked up by [Find].
const DefaultFile = "incgraph.toml"

// Project is a parsed project file.
type Project struct {
	Name       string   `toml:"name"`
	Root       string   `toml:"root"`
	Flags      []string `toml:"flags"`
	SystemDirs []string `toml:"system_dirs"`
	Sources    []string `toml:"sources"`
	Files      []File   `toml:"file"`
	Resolution string   `toml:"resolution"`

	dir string
}

// File is a single [[file]] entry.
type File struct {
	Path  string   `toml:"path"`
	Flags []string `toml:"flags"`
}

// Entry is one file to enqueue with its complete option list.
type Entry struct {
	Path    string
	Options incgraph.Options
}

// Enqueuer receives entries. *incgraph.Engine satisfies it.
type Enqueuer interface {
	Enqueue(path string, opts incgraph.Options)
}

// New returns an empty project rooted at dir.
func New(dir string) *Project {
	return &Project{Root: ".", dir: dir}
}

// Load reads and validates the project file at path. Relative paths inside
// the file are anchored at the file's directory.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ierrors.Wrap(ierrors.ErrCodeFileNotFound, err, "project file %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	return Parse(data, dir)
}

// Parse decodes and validates a project file whose relative paths are
// anchored at dir.
func Parse(data []byte, dir string) (*Project, error) {
	p := New(dir)
	md, err := toml.Decode(string(data), p)
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ErrCodeInvalidConfig, err, "parse project file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, ierrors.New(ierrors.ErrCodeInvalidConfig, "unknown project key %q", undecoded[0].String())
	}
	if p.Root == "" {
		p.Root = "."
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Find looks for [DefaultFile] in dir and its parents.
func Find(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, DefaultFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Validate checks paths, globs and flags.
func (p *Project) Validate() error {
	if err := ierrors.ValidateSourcePath(p.Root); err != nil {
		return ierrors.Wrap(ierrors.ErrCodeInvalidConfig, err, "root")
	}
	for _, f := range p.Flags {
		if err := ierrors.ValidateOption(f); err != nil {
			return err
		}
	}
	for _, d := range p.SystemDirs {
		if err := ierrors.ValidateSourcePath(d); err != nil {
			return ierrors.Wrap(ierrors.ErrCodeInvalidConfig, err, "system_dirs")
		}
	}
	if p.Resolution != "" {
		if _, err := resolver.ParseMode(p.Resolution); err != nil {
			return ierrors.Wrap(ierrors.ErrCodeInvalidConfig, err, "resolution")
		}
	}
	for _, g := range p.Sources {
		if err := ierrors.ValidateGlob(g); err != nil {
			return ierrors.Wrap(ierrors.ErrCodeInvalidConfig, err, "sources")
		}
	}
	for i, f := range p.Files {
		if err := ierrors.ValidateSourcePath(f.Path); err != nil {
			return ierrors.Wrap(ierrors.ErrCodeInvalidConfig, err, "file[%d].path", i)
		}
		for _, opt := range f.Flags {
			if err := ierrors.ValidateOption(opt); err != nil {
				return ierrors.Wrap(ierrors.ErrCodeInvalidConfig, err, "file[%d].flags", i)
			}
		}
	}
	return nil
}

// RootDir returns the absolute project root.
func (p *Project) RootDir() string {
	return p.abs(p.dir, p.Root)
}

// SearchDirs returns the absolute system include directories.
func (p *Project) SearchDirs() []string {
	out := make([]string, 0, len(p.SystemDirs))
	for _, d := range p.SystemDirs {
		out = append(out, p.abs(p.RootDir(), d))
	}
	return out
}

// Add appends a [[file]] entry, as if it had been written in the file.
func (p *Project) Add(path string, flags ...string) {
	p.Files = append(p.Files, File{Path: path, Flags: flags})
}

// Entries expands the source globs and file entries into the list of files
// to enqueue. extra options are appended to every entry after the global
// flags.
func (p *Project) Entries(extra ...string) ([]Entry, error) {
	root := p.RootDir()
	global := make(incgraph.Options, 0, len(p.Flags)+len(extra))
	global = append(global, p.Flags...)
	global = append(global, extra...)

	var entries []Entry
	index := make(map[string]int)

	for _, pattern := range p.Sources {
		matches, err := filepath.Glob(p.abs(root, pattern))
		if err != nil {
			return nil, ierrors.Wrap(ierrors.ErrCodeInvalidConfig, err, "expand %q", pattern)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			path := incgraph.Canonical(m)
			if _, dup := index[path]; dup {
				continue
			}
			index[path] = len(entries)
			entries = append(entries, Entry{Path: path, Options: global})
		}
	}

	for _, f := range p.Files {
		path := incgraph.Canonical(p.abs(root, f.Path))
		opts := make(incgraph.Options, 0, len(global)+len(f.Flags))
		opts = append(opts, global...)
		opts = append(opts, f.Flags...)
		if i, ok := index[path]; ok {
			entries[i].Options = opts
			continue
		}
		index[path] = len(entries)
		entries = append(entries, Entry{Path: path, Options: opts})
	}
	return entries, nil
}

// EnqueueInto enqueues every entry and returns how many there were.
func (p *Project) EnqueueInto(q Enqueuer, extra ...string) (int, error) {
	entries, err := p.Entries(extra...)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		q.Enqueue(e.Path, e.Options)
	}
	return len(entries), nil
}

func (p *Project) abs(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
