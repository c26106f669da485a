package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/alexjbarnes/apiconfig"
)

// FileProvider reads a JSON object from a file.
type FileProvider struct {
	path     string
	fs       afero.Fs
	optional bool
}

// FileOption configures a FileProvider.
type FileOption func(*FileProvider)

// WithFS reads through fsys instead of the OS filesystem.
func WithFS(fsys afero.Fs) FileOption {
	return func(f *FileProvider) { f.fs = fsys }
}

// Optional makes a missing file load as an empty mapping.
func Optional() FileOption {
	return func(f *FileProvider) { f.optional = true }
}

// NewFileProvider returns a provider for path, which must end in .json.
func NewFileProvider(path string, opts ...FileOption) (*FileProvider, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, apiconfig.Errorf(apiconfig.ErrConfigProvider, "config file %q must have a .json suffix", path)
	}

	f := &FileProvider{path: path, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *FileProvider) Name() string { return "file:" + f.path }

// Path returns the file path.
func (f *FileProvider) Path() string { return f.path }

func (f *FileProvider) Load(context.Context) (map[string]any, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if f.optional && errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, apiconfig.Errorf(apiconfig.ErrConfigProvider, "reading config file: %w", err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrConfigProvider, "parsing config file %s: %w", f.path, err)
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, apiconfig.Errorf(apiconfig.ErrConfigProvider,
			"config file %s must contain a JSON object, got %s", f.path, jsonKind(v))
	}
	return m, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Watch monitors the file and calls onChange when it is written, created,
// renamed or removed. The parent directory is watched so editors that
// replace the file atomically are seen. It blocks until ctx is cancelled
// and only works on the OS filesystem.
func (f *FileProvider) Watch(ctx context.Context, onChange func()) error {
	if _, ok := f.fs.(*afero.OsFs); !ok {
		return apiconfig.Errorf(apiconfig.ErrConfigProvider, "watching %s requires the OS filesystem", f.path)
	}

	target, err := filepath.Abs(f.path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching config directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				onChange()
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed")
			}
			// Watch errors are non-fatal; the next event still arrives.
		}
	}
}
