package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/rtinspect/internal/logging"
)

// keysFile is the on-disk layout read by FileSource:
//
//	keys:
//	  - label: anon
//	    value: eyJhbGciOi...
//	  - label: service_role
//	    value: eyJhbGciOi...
type keysFile struct {
	Keys []Credential `yaml:"keys"`
}

// watchDebounce collapses the burst of events editors emit on save.
const watchDebounce = 100 * time.Millisecond

// FileSource reads credentials from a YAML keys file, for local stacks that
// have no settings endpoint.
type FileSource struct {
	Path string
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Name identifies this source in logs.
func (f *FileSource) Name() string {
	return "file:" + f.Path
}

// Fetch reads and parses the keys file.
func (f *FileSource) Fetch(ctx context.Context) ([]Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, newConfigError(fmt.Sprintf("keys file %s does not exist", f.Path))
		}
		return nil, &SettingsError{Type: ErrTypeConfig, Message: "failed to read keys file", Err: err}
	}

	var parsed keysFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, newParseError("failed to parse keys file", err)
	}

	if parsed.Keys == nil {
		return []Credential{}, nil
	}
	return parsed.Keys, nil
}

// Watch refreshes provider whenever the keys file changes, until ctx is done.
// The parent directory is watched so atomic-rename saves are seen.
func (f *FileSource) Watch(ctx context.Context, provider *Provider) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(f.Path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce = time.After(watchDebounce)
			}

		case <-debounce:
			debounce = nil
			if err := provider.Refresh(ctx); err != nil {
				logging.Warn("Keys file reload failed",
					zap.String("path", f.Path),
					zap.Error(err),
				)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Keys file watcher error", zap.Error(err))
		}
	}
}
