// Package srcfile resolves and reads Organic source files for the parser's
// include mechanism. It is the only package that touches the filesystem on
// the compile side, grounded on the teacher's plain os.ReadFile-based input
// resolution in cmd/play_mml/main.go, generalized to path-relative includes.
package srcfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Read loads the full contents of path as a UTF-8 string.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// Exists reports whether path names a regular, readable file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Canonical returns an identity string suitable for include-deduplication:
// an absolute, cleaned path. It does not require the file to exist so that
// a not-found include still produces a stable dedup key for diagnostics.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// ResolveInclude resolves an include("...") path literal relative to the
// directory of the file that contains the include statement.
func ResolveInclude(includingFile, includePath string) string {
	trimmed := strings.TrimSpace(includePath)
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(filepath.Dir(includingFile), trimmed)
}
