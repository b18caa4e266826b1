package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/docshelf/docshelf/pkg/observability"
)

// flagsFile is the YAML shape of the runtime flags file.
type flagsFile struct {
	ReadOnly      bool `yaml:"readonly"`
	LoginDisabled bool `yaml:"login_disabled"`
}

// RuntimeFlags holds the service modes that can change while the
// service runs. Reads are lock-free so the authorization gate can
// consult them on every request.
type RuntimeFlags struct {
	readOnly      atomic.Bool
	loginDisabled atomic.Bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewRuntimeFlags creates flags seeded from the boot-time auth config.
func NewRuntimeFlags(auth AuthConfig) *RuntimeFlags {
	f := &RuntimeFlags{}
	f.readOnly.Store(auth.ReadOnly)
	f.loginDisabled.Store(auth.LoginDisabled)
	return f
}

// ReadOnly reports whether mutations are currently locked out.
func (f *RuntimeFlags) ReadOnly() bool {
	return f.readOnly.Load()
}

// LoginDisabled reports whether authentication is currently bypassed.
func (f *RuntimeFlags) LoginDisabled() bool {
	return f.loginDisabled.Load()
}

// SetReadOnly overrides the read-only flag.
func (f *RuntimeFlags) SetReadOnly(v bool) {
	f.readOnly.Store(v)
}

// SetLoginDisabled overrides the login-disabled flag.
func (f *RuntimeFlags) SetLoginDisabled(v bool) {
	f.loginDisabled.Store(v)
}

// LoadFile replaces both flags with the values in the YAML file.
func (f *RuntimeFlags) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read flags file: %w", err)
	}
	var parsed flagsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse flags file: %w", err)
	}
	f.readOnly.Store(parsed.ReadOnly)
	f.loginDisabled.Store(parsed.LoginDisabled)
	return nil
}

// Watch loads the flags file and re-applies it whenever it changes.
// The watch runs until Close. Editors that replace the file on save are
// handled by watching the parent directory.
func (f *RuntimeFlags) Watch(path string, logger *observability.Logger) error {
	if err := f.LoadFile(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch flags file: %w", err)
	}

	f.watcher = watcher
	f.done = make(chan struct{})
	target := filepath.Clean(path)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := f.LoadFile(path); err != nil {
					logger.WithError(err).WithField("path", path).Warn("Failed to reload flags file")
					continue
				}
				logger.WithFields(map[string]interface{}{
					"readonly":       f.ReadOnly(),
					"login_disabled": f.LoginDisabled(),
				}).Info("Runtime flags reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("Flags watcher error")
			case <-f.done:
				return
			}
		}
	}()

	return nil
}

// Close stops the file watch, if one is running.
func (f *RuntimeFlags) Close() error {
	if f.watcher == nil {
		return nil
	}
	close(f.done)
	return f.watcher.Close()
}
