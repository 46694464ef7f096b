package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	get "github.com/hashicorp/go-getter"
	"gopkg.in/yaml.v3"

	"github.com/OCharnyshevich/cavegen/internal/cave/config"
)

const configFile = "cave.yaml"

// Storage handles file-based persistence for generation parameters and presets.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a new Storage rooted at dir, creating subdirectories as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	dirs := []string{
		dir,
		filepath.Join(dir, "presets"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return &Storage{dir: dir, log: log}, nil
}

// Dir returns the storage root.
func (s *Storage) Dir() string { return s.dir }

// LoadConfig reads cave.yaml into cfg. If the file does not exist, cfg is unchanged.
func (s *Storage) LoadConfig(cfg *config.Config) error {
	path := filepath.Join(s.dir, configFile)
	if err := config.LoadInto(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	s.log.Info("loaded config from file", "path", path)
	return nil
}

// SaveConfig writes cfg to cave.yaml atomically.
func (s *Storage) SaveConfig(cfg *config.Config) error {
	path := filepath.Join(s.dir, configFile)
	return s.atomicWriteYAML(path, cfg)
}

// FetchPreset downloads a parameter file from src into presets/<name> and
// returns its local path. src is any go-getter source: a local path, an
// https URL, a git:: or s3:: address.
func (s *Storage) FetchPreset(ctx context.Context, src, name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid preset name %q", name)
	}
	dst := filepath.Join(s.dir, "presets", name)
	if err := os.RemoveAll(dst); err != nil {
		return "", fmt.Errorf("clear preset %s: %w", name, err)
	}

	s.log.Info("fetching preset", "src", src, "dst", dst)
	if err := get.GetFile(dst, src, get.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("fetch preset %s: %w", src, err)
	}
	return dst, nil
}

// atomicWriteYAML marshals v to YAML and writes it atomically using a temp file + rename.
func (s *Storage) atomicWriteYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
