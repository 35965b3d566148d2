// Package scaffold writes a starter pitch.yml.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/pitch/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// ErrExists is returned when the target already holds a configuration.
type ErrExists struct {
	Path string
}

func (e *ErrExists) Error() string {
	return fmt.Sprintf("%s already exists\n\nUse 'pitch init --force' to overwrite it", e.Path)
}

// CheckExisting returns *ErrExists if dir already contains pitch.yml.
func CheckExisting(dir string) error {
	path := filepath.Join(dir, config.DefaultPath)
	if _, err := os.Stat(path); err == nil {
		return &ErrExists{Path: path}
	}
	return nil
}

// Initialize writes pitch.yml into dir and returns its path. Without force an
// existing file is left untouched and *ErrExists is returned.
func Initialize(dir string, force bool) (string, error) {
	if !force {
		if err := CheckExisting(dir); err != nil {
			return "", err
		}
	}

	content, err := templatesFS.ReadFile("templates/pitch.yml.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to read pitch.yml template: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, config.DefaultPath)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	// The template must always load cleanly
	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("created %s is invalid: %w", path, err)
	}

	return path, nil
}
