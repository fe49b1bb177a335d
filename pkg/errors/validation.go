package errors

import (
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

const maxPathLength = 4096

// ValidateSourcePath checks a path named on the command line or in a
// project file. Absolute and relative paths are both accepted; the path is
// not required to exist.
func ValidateSourcePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters: %q", path)
		}
	}
	return nil
}

// ValidateRelativePath checks a path that must stay inside a project root.
func ValidateRelativePath(path string) error {
	if err := ValidateSourcePath(path); err != nil {
		return err
	}
	if filepath.IsAbs(path) {
		return New(ErrCodeInvalidPath, "path must be relative to the project root: %q", path)
	}
	if clean := filepath.Clean(path); clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return New(ErrCodeInvalidPath, "path escapes the project root: %q", path)
	}
	return nil
}

// ValidateGlob checks that pattern is well-formed filepath.Match syntax.
func ValidateGlob(pattern string) error {
	if err := ValidateSourcePath(pattern); err != nil {
		return err
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return Wrap(ErrCodeInvalidConfig, err, "malformed glob %q", pattern)
	}
	return nil
}

// ValidateOption rejects compile options that cannot be passed on a command
// line: empty strings and control characters.
func ValidateOption(opt string) error {
	if opt == "" {
		return New(ErrCodeInvalidConfig, "compile option cannot be empty")
	}
	for _, r := range opt {
		if r == '\x00' || (unicode.IsControl(r) && r != '\t') {
			return New(ErrCodeInvalidConfig, "compile option contains invalid characters: %q", opt)
		}
	}
	return nil
}

// ValidateFormat checks that format is one of allowed.
func ValidateFormat(format string, allowed ...string) error {
	if !slices.Contains(allowed, format) {
		return New(ErrCodeInvalidFormat, "unsupported format %q (want one of %s)", format, strings.Join(allowed, ", "))
	}
	return nil
}
