package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// Root indicators: a .quire data directory or a quire.yaml config file.
const (
	DataDirName    = ".quire"
	ConfigFileName = "quire.yaml"
)

// ErrRootNotFound is returned by FindRoot when no indicator exists up to the
// filesystem root.
var ErrRootNotFound = errors.New("root not found")

// FindRoot walks upwards from startDir looking for a directory holding a
// .quire directory or a quire.yaml file, and returns its absolute path.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if hasFile(dir, DataDirName) || hasFile(dir, ConfigFileName) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
