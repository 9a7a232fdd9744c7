package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// GetProjectRoot walks up from this source file to the directory holding
// go.mod. Fixtures and generated frames are placed relative to it.
func GetProjectRoot() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("testutil: caller information unavailable")
	}
	for dir := filepath.Dir(file); ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("testutil: no go.mod above " + filepath.Dir(file))
		}
		dir = parent
	}
}

// EnsureDir creates path and its parents.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}
