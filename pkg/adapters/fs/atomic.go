package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// TempFilePrefix marks the scratch files of an in-flight write.
	// The watcher never reports them.
	TempFilePrefix = "quire-tmp-"

	// tombstone is the digest recorded for a key this process removed.
	tombstone = "-"
)

// writeFileAtomic replaces filename with data so that readers see either the
// old blob or the new one, never a torn write. The temp file lives next to the
// target so the final rename stays on one filesystem.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(filename), err)
	}
	return nil
}

// digest fingerprints a blob. Used to tell our own writes apart from
// external edits when a change notification comes in.
func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// digestFile fingerprints the current content of filename, or returns the
// tombstone when it does not exist.
func digestFile(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return tombstone, nil
	}
	if err != nil {
		return "", err
	}
	return digest(data), nil
}
