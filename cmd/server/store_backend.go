package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"phaseout.no/internal/persistence/kv"
)

// openStore picks the save-game backend. The default keeps the game in a
// SQLite file under the data dir.
func openStore(backend, dataDir string) (kv.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		return kv.OpenSQLite(filepath.Join(dataDir, "save", "game.sqlite"))
	case "file":
		return kv.OpenFile(filepath.Join(dataDir, "save"))
	case "mem", "memory", "none":
		return kv.NewMem(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}
}
