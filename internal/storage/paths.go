// Package storage persists shard count caches and export history in BadgerDB.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "xqnnue"

// DatabaseDir returns <data home>/xqnnue/db, creating it if needed. The data
// home is $XDG_DATA_HOME or ~/.local/share on Unix and the user config dir
// (Application Support, %AppData%) on macOS and Windows.
func DatabaseDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" || base == "" {
		var err error
		if base, err = dataHome(); err != nil {
			return "", err
		}
	}

	dbDir := filepath.Join(base, appName, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", err
	}
	return dbDir, nil
}

func dataHome() (string, error) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		return os.UserConfigDir()
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}
