package resolver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/matzehuels/incgraph/pkg/incgraph"
)

// directiveRe matches #include, #include_next and #import with either
// quoted or angle-bracket targets.
var directiveRe = regexp.MustCompile(`^\s*#\s*(include_next|include|import)\s*([<"])([^>"]+)[>"]`)

// Mode selects how many files a directive resolves to.
type Mode int

const (
	// FirstMatch resolves a directive to the file a compiler would pick.
	FirstMatch Mode = iota
	// EveryMatch resolves a directive to every file along the search path
	// that has the target's name. The graph then also covers headers that
	// a different option set could have picked.
	EveryMatch
)

// Modes lists the resolution modes in their flag spelling.
var Modes = []string{"first", "every"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(Modes) {
		return Modes[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a flag value into a Mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range Modes {
		if s == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resolution mode %q (want one of %s)", s, strings.Join(Modes, ", "))
}

// Scanner resolves includes by reading the source file and searching for
// each target the way a C preprocessor does:
//
//   - "quoted": the including file's directory, then -iquote, -I, -F,
//     -isystem, SystemDirs, -idirafter
//   - <angle>: -I, -F, -isystem, SystemDirs, -idirafter
//   - #include_next: the same chain, starting after the directory the
//     including file was found in
//
// -F directories hold frameworks: <Foo/Bar.h> is looked up as
// Foo.framework/Headers/Bar.h. -nostdinc and -nobuiltininc drop SystemDirs.
//
// Targets that cannot be found are dropped. Conditional compilation is not
// evaluated; every directive in the file counts.
type Scanner struct {
	// WorkDir anchors relative search directories in the options.
	// Empty means the process working directory.
	WorkDir string

	// SystemDirs are searched for both include forms after -isystem.
	SystemDirs []string

	// Mode defaults to FirstMatch.
	Mode Mode
}

// NewScanner creates a scanner rooted at workDir.
func NewScanner(workDir string, systemDirs ...string) *Scanner {
	return &Scanner{WorkDir: workDir, SystemDirs: systemDirs}
}

// WithMode sets the resolution mode and returns s.
func (s *Scanner) WithMode(m Mode) *Scanner {
	s.Mode = m
	return s
}

type directive struct {
	target string
	angle  bool
	next   bool
}

// DirectIncludes scans path and returns the files its directives resolve to,
// in directive order. A missing file has no includes.
func (s *Scanner) DirectIncludes(ctx context.Context, path string, opts incgraph.Options) ([]string, error) {
	incs, _, err := s.TraceIncludes(ctx, path, opts)
	return incs, err
}

// TraceIncludes is DirectIncludes that also reports every candidate file it
// checked while searching.
func (s *Scanner) TraceIncludes(ctx context.Context, path string, opts incgraph.Options) ([]string, []Candidate, error) {
	ds, err := scanDirectives(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if len(ds) == 0 {
		return nil, nil, nil
	}

	sp := s.searchPaths(opts)
	includer := searchDir{path: filepath.Dir(path)}
	l := &lookup{mode: s.Mode}

	var out []string
	for _, d := range ds {
		if err := ctx.Err(); err != nil {
			return out, l.checked, err
		}
		chain := sp.quote
		if d.angle {
			chain = sp.angle
		}
		switch {
		case d.next:
			chain = chain[nextIndex(chain, path):]
		case !d.angle:
			chain = append([]searchDir{includer}, chain...)
		}
		out = append(out, l.search(chain, d.target)...)
	}
	return out, l.checked, nil
}

func scanDirectives(path string) ([]directive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ds []directive
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, "#") {
			continue
		}
		m := directiveRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ds = append(ds, directive{
			target: strings.TrimSpace(m[3]),
			angle:  m[2] == "<",
			next:   m[1] == "include_next",
		})
	}
	return ds, sc.Err()
}

// searchDir is one entry of a search chain.
type searchDir struct {
	path      string
	framework bool
}

// candidate returns where target would live in d.
func (d searchDir) candidate(target string) (string, bool) {
	if !d.framework {
		return filepath.Join(d.path, target), true
	}
	name, rest, ok := strings.Cut(target, "/")
	if !ok || name == "" || rest == "" {
		return "", false
	}
	return filepath.Join(d.path, name+".framework", "Headers", rest), true
}

func (d searchDir) contains(path string) bool {
	rel, err := filepath.Rel(d.path, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// nextIndex returns where an #include_next in path continues the search:
// after the innermost chain directory holding path, or at the start when
// path was not found through the chain.
func nextIndex(chain []searchDir, path string) int {
	best, depth := -1, -1
	for i, d := range chain {
		if d.contains(path) && len(d.path) > depth {
			best, depth = i, len(d.path)
		}
	}
	return best + 1
}

// lookup resolves targets against search chains and remembers every
// candidate it checked.
type lookup struct {
	mode    Mode
	checked []Candidate
}

func (l *lookup) search(chain []searchDir, target string) []string {
	if filepath.IsAbs(target) {
		if l.exists(target) {
			return []string{filepath.Clean(target)}
		}
		return nil
	}

	var found []string
	seen := make(map[string]bool)
	for _, d := range chain {
		candidate, ok := d.candidate(target)
		if !ok || seen[candidate] {
			continue
		}
		seen[candidate] = true
		if !l.exists(candidate) {
			continue
		}
		found = append(found, candidate)
		if l.mode == FirstMatch {
			break
		}
	}
	return found
}

func (l *lookup) exists(path string) bool {
	ok := isFile(path)
	l.checked = append(l.checked, Candidate{Path: path, Exists: ok})
	return ok
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

type searchPaths struct {
	quote []searchDir
	angle []searchDir
}

// searchPaths extracts include directories from compile options. Both the
// joined (-Idir) and separate (-I dir) spellings are accepted.
func (s *Scanner) searchPaths(opts incgraph.Options) searchPaths {
	var iquote, inc, isystem, after []searchDir
	noStd := false

	flags := []struct {
		name      string
		dst       *[]searchDir
		framework bool
	}{
		{"-iquote", &iquote, false},
		{"-isystem", &isystem, false},
		{"-idirafter", &after, false},
		{"-I", &inc, false},
		{"-F", &inc, true},
	}

	for i := 0; i < len(opts); i++ {
		opt := opts[i]
		if opt == "-nostdinc" || opt == "-nobuiltininc" {
			noStd = true
			continue
		}
		for _, f := range flags {
			if !strings.HasPrefix(opt, f.name) {
				continue
			}
			dir := strings.TrimPrefix(opt, f.name)
			if dir == "" && i+1 < len(opts) {
				i++
				dir = opts[i]
			}
			if dir != "" {
				*f.dst = append(*f.dst, searchDir{path: s.abs(dir), framework: f.framework})
			}
			break
		}
	}

	var system []searchDir
	if !noStd {
		for _, d := range s.SystemDirs {
			system = append(system, searchDir{path: s.abs(d)})
		}
	}

	var sp searchPaths
	sp.angle = concat(inc, isystem, system, after)
	sp.quote = concat(iquote, sp.angle)
	return sp
}

func (s *Scanner) abs(dir string) string {
	if filepath.IsAbs(dir) || s.WorkDir == "" {
		return filepath.Clean(dir)
	}
	return filepath.Join(s.WorkDir, dir)
}

func concat(lists ...[]searchDir) []searchDir {
	var out []searchDir
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

var (
	_ incgraph.Resolver = (*Scanner)(nil)
	_ Tracer            = (*Scanner)(nil)
)
