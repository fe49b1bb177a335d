package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/incgraph/pkg/incgraph"
)

const defaultDebounce = 300 * time.Millisecond

// sourceExts are the file extensions whose changes trigger a rebuild.
var sourceExts = map[string]bool{
	".c": true, ".cc": true, ".cpp": true, ".cxx": true, ".c++": true,
	".h": true, ".hh": true, ".hpp": true, ".hxx": true, ".h++": true,
	".m": true, ".mm": true, ".inc": true, ".inl": true, ".ipp": true,
	".toml": true,
}

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		f        buildFlags
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [files...]",
		Short: "Rebuild the include graph whenever a source file changes",
		Long: `Watch builds the include graph, then watches the project root. After
each burst of changes to C-family sources or headers the graph is
discarded and rebuilt from scratch; a rebuild still in progress is
cancelled first. Press Ctrl-C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), f, args, debounce)
		},
	}

	addBuildFlags(cmd, &f)
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet period before rebuilding")
	return cmd
}

func (c *CLI) runWatch(ctx context.Context, f buildFlags, args []string, debounce time.Duration) error {
	s, err := c.newSession(f, args, func(res incgraph.Result) {
		if res.Cancelled {
			c.Logger.Debug("rebuild superseded", "run", res.ID, "nodes", res.Nodes)
			return
		}
		printSuccess("Graph ready")
		printStats(res)
	})
	if err != nil {
		return err
	}
	defer s.close()

	w, err := newTreeWatcher(s.project.RootDir(), loggerFromContext(ctx))
	if err != nil {
		return err
	}
	defer w.close()

	printInfo("Watching %s", s.project.RootDir())
	s.engine.Compute(ctx)

	return w.run(ctx, debounce, func(changed []string) {
		printInfo("%d file(s) changed, rebuilding", len(changed))
		for _, p := range changed {
			c.Logger.Debug("changed", "file", p)
		}
		n, err := s.requeue()
		if err != nil {
			printWarning("reload project: %v", err)
			return
		}
		c.Logger.Debug("requeued", "files", n)
		s.engine.Compute(ctx)
	})
}

// treeWatcher watches every directory under a root and reports batches of
// changed source files once the tree has been quiet for a debounce period.
type treeWatcher struct {
	w      *fsnotify.Watcher
	logger *log.Logger
}

func newTreeWatcher(root string, logger *log.Logger) (*treeWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	tw := &treeWatcher{w: w, logger: logger}
	if err := tw.addTree(root); err != nil {
		w.Close()
		return nil, err
	}
	return tw, nil
}

func (tw *treeWatcher) close() error {
	return tw.w.Close()
}

// addTree adds root and all its subdirectories, skipping hidden ones.
func (tw *treeWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			tw.logger.Debug("skip unreadable path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := tw.w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// run delivers debounced batches to onChange until ctx is done. onChange is
// called on the run goroutine.
func (tw *treeWatcher) run(ctx context.Context, debounce time.Duration, onChange func([]string)) error {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		changed = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-tw.w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if isDir, err := statDir(event.Name); err == nil && isDir {
					_ = tw.addTree(event.Name)
					continue
				}
			}
			if !relevant(event) {
				continue
			}
			changed[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-tw.w.Errors:
			if !ok {
				return nil
			}
			tw.logger.Warn("watch error", "err", err)
		case <-timerC:
			batch := make([]string, 0, len(changed))
			for p := range changed {
				batch = append(batch, p)
			}
			clear(changed)
			timer, timerC = nil, nil
			onChange(batch)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return sourceExts[strings.ToLower(filepath.Ext(event.Name))]
}

func statDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
