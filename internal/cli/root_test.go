package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	ierrors "github.com/matzehuels/incgraph/pkg/errors"
	"github.com/matzehuels/incgraph/pkg/project"
	"github.com/matzehuels/incgraph/pkg/resolver"
)

// swapStdout redirects command output to w and returns a restore function.
func swapStdout(w io.Writer) func() {
	old := stdout
	stdout = w
	return func() { stdout = old }
}

// runCLI executes the root command with args and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	defer swapStdout(&buf)()

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// fixture writes a small project and returns its root and project file.
//
//	main.c  -> a.h -> inc/b.h
//	util.c  -> inc/b.h
func fixture(t *testing.T) (string, string) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	root := t.TempDir()
	files := map[string]string{
		"main.c":  "#include \"a.h\"\nint main(void) { return 0; }\n",
		"util.c":  "#include <b.h>\n",
		"a.h":     "#pragma once\n#include <b.h>\n",
		"inc/b.h": "#pragma once\n",
		incgraphToml: `name    = "fixture"
flags   = ["-Iinc"]
sources = ["*.c"]
`,
	}
	writeFiles(t, root, files)
	return root, filepath.Join(root, incgraphToml)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

const incgraphToml = "incgraph.toml"

func lines(s string) []string {
	return strings.Fields(strings.TrimSpace(s))
}

func TestRootCommandTree(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := []string{"scan", "query", "export", "render", "watch", "cache", "completion"}
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestQueryCommand(t *testing.T) {
	root, cfg := fixture(t)
	abs := func(rel string) string { return filepath.Join(root, rel) }

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "transitive includes",
			args: []string{"query", abs("main.c"), "--config", cfg},
			want: []string{abs("a.h"), abs("inc/b.h")},
		},
		{
			name: "direct includes",
			args: []string{"query", abs("main.c"), "-r", "direct-includes", "--config", cfg},
			want: []string{abs("a.h")},
		},
		{
			name: "direct included by",
			args: []string{"query", abs("inc/b.h"), "-r", "direct-included-by", "--config", cfg},
			want: []string{abs("a.h"), abs("util.c")},
		},
		{
			name: "transitive included by, relative",
			args: []string{"query", abs("inc/b.h"), "-r", "transitive-included-by", "--relative", "--config", cfg},
			want: []string{"a.h", "util.c", "main.c"},
		},
		{
			name: "limit",
			args: []string{"query", abs("main.c"), "-n", "1", "--config", cfg},
			want: []string{abs("a.h")},
		},
		{
			name: "exists",
			args: []string{"query", abs("inc/b.h"), "-r", "direct-includes", "--exists", "--config", cfg},
			want: []string{"false"},
		},
		{
			name: "unknown file",
			args: []string{"query", abs("missing.h"), "--config", cfg},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			got := lines(out)
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("query output = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryCommandInvalidRole(t *testing.T) {
	root, cfg := fixture(t)
	_, err := runCLI(t, "query", filepath.Join(root, "main.c"), "-r", "sideways", "--config", cfg)
	if !ierrors.Is(err, ierrors.ErrCodeInvalidRole) {
		t.Errorf("error = %v, want INVALID_ROLE", err)
	}
}

func TestQueryCommandWithoutProjectFile(t *testing.T) {
	root, _ := fixture(t)
	main := filepath.Join(root, "main.c")
	out, err := runCLI(t, "query", main, "-I", filepath.Join(root, "inc"), "--no-cache")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(root, "a.h"), filepath.Join(root, "inc/b.h")}
	if got := lines(out); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("query output = %v, want %v", got, want)
	}
}

func TestExportAndRenderInput(t *testing.T) {
	root, cfg := fixture(t)
	graph := filepath.Join(t.TempDir(), "graph.json")

	if _, err := runCLI(t, "export", "--config", cfg, "-o", graph); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(graph)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"name": "fixture"`) {
		t.Errorf("export should carry the project name:\n%s", data)
	}

	out, err := runCLI(t, "render", "--input", graph, "--focus", filepath.Join(root, "a.h"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"digraph G {", filepath.Join(root, "main.c"), "filled"} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q:\n%s", want, out)
		}
	}
}

func TestScanCommand(t *testing.T) {
	_, cfg := fixture(t)
	out, err := runCLI(t, "scan", "--config", cfg)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	for _, want := range []string{"Scanned fixture", "4", "complete"} {
		if !strings.Contains(out, want) {
			t.Errorf("scan output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFormat(t *testing.T) {
	tests := []struct {
		opts    renderOpts
		want    string
		wantErr bool
	}{
		{renderOpts{}, formatDOT, false},
		{renderOpts{output: "g.svg"}, formatSVG, false},
		{renderOpts{output: "g.PNG"}, formatPNG, false},
		{renderOpts{output: "g.gv"}, formatDOT, false},
		{renderOpts{output: "g.svg", format: "dot"}, formatDOT, false},
		{renderOpts{output: "g.pdf"}, "", true},
	}

	for _, tt := range tests {
		got, err := renderFormat(tt.opts)
		if (err != nil) != tt.wantErr {
			t.Errorf("renderFormat(%+v) error = %v, wantErr %v", tt.opts, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("renderFormat(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

func TestLoadProjectRequiresFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := loadProject(buildFlags{}, nil)
	if !ierrors.Is(err, ierrors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestExtraOptions(t *testing.T) {
	opts, err := extraOptions(buildFlags{includes: []string{"/usr/local/include"}, flags: []string{"-DX=1"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(opts, " ") != "-I/usr/local/include -DX=1" {
		t.Errorf("extraOptions = %v", opts)
	}

	if _, err := extraOptions(buildFlags{flags: []string{""}}); err == nil {
		t.Error("empty flag should be rejected")
	}
}

func TestQueryResolutionMode(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"main.c":    "#include <cfg.h>\n",
		"one/cfg.h": "",
		"two/cfg.h": "",
	})
	main := filepath.Join(root, "main.c")
	base := []string{"query", main, "-r", "direct-includes", "-I", filepath.Join(root, "one"), "-I", filepath.Join(root, "two")}

	tests := []struct {
		name    string
		project string
		args    []string
		want    []string
	}{
		{
			name: "every match by default",
			want: []string{filepath.Join(root, "one/cfg.h"), filepath.Join(root, "two/cfg.h")},
		},
		{
			name: "first match flag",
			args: []string{"--resolution", "first"},
			want: []string{filepath.Join(root, "one/cfg.h")},
		},
		{
			name:    "first match from project file",
			project: "resolution = \"first\"\n",
			want:    []string{filepath.Join(root, "one/cfg.h")},
		},
		{
			name:    "flag overrides project file",
			project: "resolution = \"first\"\n",
			args:    []string{"--resolution", "every"},
			want:    []string{filepath.Join(root, "one/cfg.h"), filepath.Join(root, "two/cfg.h")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(slices.Clone(base), tt.args...)
			if tt.project != "" {
				cfg := filepath.Join(t.TempDir(), incgraphToml)
				if err := os.WriteFile(cfg, []byte(tt.project), 0o644); err != nil {
					t.Fatal(err)
				}
				args = append(args, "--config", cfg)
			}
			t.Chdir(root)
			out, err := runCLI(t, args...)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if got := lines(out); !slices.Equal(got, tt.want) {
				t.Errorf("query output = %v, want %v", got, tt.want)
			}
		})
	}

	t.Chdir(root)
	_, err := runCLI(t, append(slices.Clone(base), "--resolution", "all")...)
	if !ierrors.IsInvalid(err) {
		t.Errorf("unknown resolution mode error = %v, want an invalid-input error", err)
	}
}

func TestResolutionMode(t *testing.T) {
	p := project.New(t.TempDir())
	if m, err := resolutionMode("", p); err != nil || m != resolver.EveryMatch {
		t.Errorf("default = %v, %v; want every", m, err)
	}
	p.Resolution = "first"
	if m, _ := resolutionMode("", p); m != resolver.FirstMatch {
		t.Errorf("project setting = %v, want first", m)
	}
	if m, _ := resolutionMode("every", p); m != resolver.EveryMatch {
		t.Errorf("flag = %v, want every", m)
	}
}

func TestFlagValueCompletion(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"render", "--format", ""}, renderFormats},
		{[]string{"query", "--resolution", ""}, resolver.Modes},
		{[]string{"query", "main.c", "--role", ""}, roleNames()},
	}
	for _, tt := range tests {
		root := New(io.Discard, LogInfo).RootCommand()
		var buf bytes.Buffer
		root.SetOut(&buf)
		root.SetErr(io.Discard)
		root.SetArgs(append([]string{"__complete"}, tt.args...))
		if err := root.Execute(); err != nil {
			t.Fatalf("complete %v: %v", tt.args, err)
		}
		for _, w := range tt.want {
			if !strings.Contains(buf.String(), w+"\n") {
				t.Errorf("complete %v = %q, missing %q", tt.args, buf.String(), w)
			}
		}
	}
}
