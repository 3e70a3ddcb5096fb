package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/quire/pkg/adapters/fs"
	"github.com/aretw0/quire/pkg/adapters/memory"
	"github.com/aretw0/quire/pkg/adapters/sqlite"
	"github.com/aretw0/quire/pkg/core"
)

// Open resolves and initializes the storage of a data set. The uri is
// adapter specific: a directory for "fs", a directory or database file for
// "sqlite", ignored for "memory".
func Open(ctx context.Context, uri string, opts ...Option) (core.Storage, error) {
	return open(ctx, uri, buildOptions(opts))
}

func open(ctx context.Context, uri string, o *options) (core.Storage, error) {
	if o.storage != nil {
		return o.storage, nil
	}

	var (
		storage core.Storage
		err     error
	)
	switch o.adapter {
	case AdapterFS:
		storage = openFS(o.resolvePath(uri), o)
	case AdapterSQLite:
		storage, err = openSQLite(o.resolvePath(uri), o)
	case AdapterMemory:
		storage = memory.New()
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
	if err != nil {
		return nil, err
	}

	if init, ok := storage.(core.Initializer); ok {
		if err := init.Initialize(ctx); err != nil {
			return nil, err
		}
	}
	return storage, nil
}

// resolvePath applies the dev sandbox rules and logs the outcome.
func (o *options) resolvePath(uri string) string {
	bypass := o.readOnly || !o.devSafety
	sandbox := o.forceTemp || (IsDevRun() && !bypass)
	resolved := ResolveDataPath(uri, sandbox)

	if o.logger != nil && IsDevRun() {
		switch {
		case o.readOnly:
			o.logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolved)
		case bypass:
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
		default:
			o.logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", resolved)
		}
	}
	if o.logger != nil && sandbox && resolved != filepath.Clean(uri) {
		o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", uri, "resolved_path", resolved)
	}
	return resolved
}

func openFS(path string, o *options) *fs.Storage {
	return fs.New(fs.Config{
		Path:         path,
		MustExist:    o.mustExist,
		ReadOnly:     o.readOnly,
		Extension:    "." + extensionFor(o.codec),
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
}

func openSQLite(path string, o *options) (*sqlite.Storage, error) {
	if o.readOnly {
		return nil, fmt.Errorf("read-only mode is not supported by the %s adapter", AdapterSQLite)
	}
	if !isDatabaseFile(path) {
		path = filepath.Join(path, sqlite.DefaultFile)
	}
	if o.mustExist {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("database does not exist: %s", path)
		}
	}
	return sqlite.Open(path, o.logger)
}

// isDatabaseFile reports whether path names a database file rather than the
// directory holding one. Hidden directories like ".quire" have an extension too.
func isDatabaseFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func extensionFor(codec string) string {
	switch strings.ToLower(codec) {
	case "yaml", "yml":
		return "yaml"
	default:
		return "json"
	}
}
