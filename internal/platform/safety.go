package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// devDirName is the directory under os.TempDir() holding sandboxed data sets.
const devDirName = "quire-dev"

// IsDevRun reports whether the process was started by `go run` or `go test`,
// both of which build binaries in temporary directories.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}
	if strings.HasPrefix(strings.ToLower(exe), strings.ToLower(os.TempDir())) {
		return true
	}
	return strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe")
}

// ResolveDataPath returns where the data set actually lives. With sandbox set
// the path is re-rooted under a temporary directory, unless it already is
// inside one (e.g. t.TempDir()).
func ResolveDataPath(userPath string, sandbox bool) string {
	if !sandbox {
		if userPath == "" {
			return "."
		}
		return userPath
	}

	clean := filepath.Clean(userPath)
	if rel, err := filepath.Rel(os.TempDir(), clean); err == nil && filepath.IsAbs(clean) && !strings.HasPrefix(rel, "..") {
		return clean
	}

	name := filepath.Base(clean)
	if userPath == "" || name == "." || name == string(os.PathSeparator) {
		name = "default"
	}
	return filepath.Join(os.TempDir(), devDirName, name)
}
