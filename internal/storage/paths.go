// Package storage persists session settings, finished games and aggregate
// statistics in a BadgerDB database.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "cobra"

// DataDir creates and returns the per-user directory cobra keeps its files
// in. XDG_DATA_HOME is honoured on Unix; macOS and Windows use their usual
// application data folders.
func DataDir() (string, error) {
	base, err := userDataHome()
	if err != nil {
		return "", fmt.Errorf("storage: data dir: %w", err)
	}
	return mkdir(filepath.Join(base, appName))
}

// DatabaseDir is the badger directory inside DataDir.
func DatabaseDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return mkdir(filepath.Join(dir, "db"))
}

func userDataHome() (string, error) {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("APPDATA"); dir != "" {
			return dir, nil
		}
	} else if runtime.GOOS != "darwin" {
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return dir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support"), nil
	case "windows":
		return filepath.Join(home, "AppData", "Roaming"), nil
	}
	return filepath.Join(home, ".local", "share"), nil
}

func mkdir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	return dir, nil
}
