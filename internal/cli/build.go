package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/incgraph/pkg/cache"
	ierrors "github.com/matzehuels/incgraph/pkg/errors"
	"github.com/matzehuels/incgraph/pkg/incgraph"
	"github.com/matzehuels/incgraph/pkg/project"
	"github.com/matzehuels/incgraph/pkg/resolver"
)

// buildFlags are the flags shared by every command that builds a graph.
type buildFlags struct {
	config     string   // project file; searched for when empty
	includes   []string // extra -I directories
	flags      []string // extra compile options
	resolution string   // overrides the project's resolution mode
	noCache    bool
}

func addBuildFlags(cmd *cobra.Command, f *buildFlags) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "project file (default: nearest "+project.DefaultFile+")")
	cmd.Flags().StringArrayVarP(&f.includes, "include-dir", "I", nil, "add an include search directory (repeatable)")
	cmd.Flags().StringArrayVar(&f.flags, "flag", nil, "add a compile option, e.g. --flag=-DNDEBUG (repeatable)")
	cmd.Flags().StringVar(&f.resolution, "resolution", "", "resolve includes to the first or every matching header (default: project setting, else every)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "do not read or write the on-disk lookup cache")
	_ = cmd.RegisterFlagCompletionFunc("resolution", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return resolver.Modes, cobra.ShellCompDirectiveNoFileComp
	})
}

// resolutionMode picks the scanner mode: the flag, then the project file,
// then every-match.
func resolutionMode(flag string, p *project.Project) (resolver.Mode, error) {
	name := flag
	if name == "" {
		name = p.Resolution
	}
	if name == "" {
		return resolver.EveryMatch, nil
	}
	m, err := resolver.ParseMode(name)
	if err != nil {
		return 0, ierrors.Wrap(ierrors.ErrCodeInvalidInput, err, "--resolution")
	}
	return m, nil
}

// session is one loaded project plus the engine built for it.
type session struct {
	project *project.Project
	engine  *incgraph.Engine
	stats   *buildStats
	cache   cache.Cache
	extra   []string
	restore func()
}

func (s *session) close() {
	s.engine.Cancel()
	s.restore()
	_ = s.cache.Close()
}

// loadProject resolves the project for a command. Files named on the
// command line are added to the project; without a project file they form
// a project rooted at the working directory.
func loadProject(f buildFlags, args []string) (*project.Project, error) {
	var p *project.Project
	switch {
	case f.config != "":
		loaded, err := project.Load(f.config)
		if err != nil {
			return nil, err
		}
		p = loaded
	default:
		if path, ok := project.Find("."); ok {
			loaded, err := project.Load(path)
			if err != nil {
				return nil, err
			}
			p = loaded
		} else {
			wd, err := filepath.Abs(".")
			if err != nil {
				return nil, fmt.Errorf("resolve working directory: %w", err)
			}
			p = project.New(wd)
		}
	}

	for _, arg := range args {
		if err := ierrors.ValidateSourcePath(arg); err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, ierrors.Wrap(ierrors.ErrCodeInvalidPath, err, "resolve %s", arg)
		}
		p.Add(abs)
	}
	if len(p.Sources) == 0 && len(p.Files) == 0 {
		return nil, ierrors.New(ierrors.ErrCodeInvalidInput, "no source files: pass files or create %s", project.DefaultFile)
	}
	return p, nil
}

// extraOptions turns -I and --flag values into compile options. Include
// directories are made absolute against the working directory.
func extraOptions(f buildFlags) ([]string, error) {
	var opts []string
	for _, dir := range f.includes {
		if err := ierrors.ValidateSourcePath(dir); err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, ierrors.Wrap(ierrors.ErrCodeInvalidPath, err, "resolve %s", dir)
		}
		opts = append(opts, "-I"+abs)
	}
	for _, opt := range f.flags {
		if err := ierrors.ValidateOption(opt); err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

// newSession loads the project and creates an engine with its files
// enqueued. The caller must call close.
func (c *CLI) newSession(f buildFlags, args []string, onReady func(incgraph.Result)) (*session, error) {
	prog := newProgress(c.Logger)

	p, err := loadProject(f, args)
	if err != nil {
		return nil, err
	}
	extra, err := extraOptions(f)
	if err != nil {
		return nil, err
	}
	mode, err := resolutionMode(f.resolution, p)
	if err != nil {
		return nil, err
	}

	store, err := newCache(f.noCache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	scope := "project:" + p.RootDir() + ":" + mode.String() + ":"
	r := resolver.NewCached(
		resolver.NewScanner(p.RootDir(), p.SearchDirs()...).WithMode(mode),
		store,
		cache.NewScopedKeyer(nil, scope),
	)

	stats := newBuildStats(c.Logger)
	s := &session{
		project: p,
		engine:  incgraph.New(r, incgraph.Config{Logger: c.Logger, OnReady: onReady}),
		stats:   stats,
		cache:   store,
		extra:   extra,
		restore: stats.install(),
	}
	n, err := p.EnqueueInto(s.engine, extra...)
	if err != nil {
		s.close()
		return nil, err
	}
	prog.done("loaded project", "root", p.RootDir(), "files", n, "resolution", mode)
	return s, nil
}

// requeue drops the graph and enqueues the project's files again,
// re-expanding source globs.
func (s *session) requeue() (int, error) {
	s.engine.DiscardAll()
	return s.project.EnqueueInto(s.engine, s.extra...)
}

// build runs one computation to completion with a spinner. If ctx is
// cancelled the partial result is returned together with ctx's error.
func (c *CLI) build(ctx context.Context, s *session) (incgraph.Result, error) {
	spin := newSpinnerWithContext(ctx, "Scanning includes...").WithStatus(func() string {
		return fmt.Sprintf("%d files", s.engine.NodeCount())
	})
	spin.Start()

	comp := s.engine.Compute(ctx)
	res, err := comp.Wait(context.Background())
	spin.Stop()
	if err != nil {
		return res, err
	}
	if res.Cancelled && ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

// buildGraph is the common path for commands that need a finished graph.
func (c *CLI) buildGraph(ctx context.Context, f buildFlags, args []string) (*session, incgraph.Result, error) {
	s, err := c.newSession(f, args, nil)
	if err != nil {
		return nil, incgraph.Result{}, err
	}
	res, err := c.build(ctx, s)
	if err != nil {
		s.close()
		return nil, res, err
	}
	c.Logger.Debug("graph built", "files", res.Files, "nodes", res.Nodes, "edges", res.Edges,
		"cache_hits", s.stats.hits.Load(), "cache_misses", s.stats.misses.Load())
	return s, res, nil
}
