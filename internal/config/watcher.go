package config

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Reload is one accepted change of the config file.
type Reload struct {
	Config *Config

	// RestartNeeded names the settings that differ from the config the
	// process started with and only take effect on restart, such as
	// "source". It is empty once the file matches the startup values again.
	RestartNeeded []string
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithOverrides applies fn to every loaded config before it is validated,
// so command-line flags keep winning over the file.
func WithOverrides(fn func(*Config)) WatcherOption {
	return func(w *Watcher) { w.overrides = fn }
}

// Watcher reloads a config file when it changes. Settings that only apply at
// startup are compared against the first load.
type Watcher struct {
	path      string
	overrides func(*Config)
	onChange  func(Reload)

	mu      sync.RWMutex
	startup *Config
	current Reload

	watcher *fsnotify.Watcher
	done    chan struct{}
	stopped sync.WaitGroup
}

// NewWatcher loads path and starts watching it. onChange runs on the watch
// goroutine after every valid reload.
func NewWatcher(path string, onChange func(Reload), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, err := w.load()
	if err != nil {
		return nil, err
	}
	w.startup = cfg
	w.current = Reload{Config: cfg}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory so editors that replace the file are seen.
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	w.watcher = fsWatcher

	w.stopped.Add(1)
	go w.watch()

	return w, nil
}

func (w *Watcher) load() (*Config, error) {
	cfg, err := Load(w.path)
	if err != nil {
		return nil, err
	}
	if w.overrides != nil {
		w.overrides(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Config
}

// RestartNeeded returns the startup-only settings changed since the first
// load.
func (w *Watcher) RestartNeeded() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.RestartNeeded
}

func (w *Watcher) watch() {
	defer w.stopped.Done()
	filename := filepath.Base(w.path)

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.load()
	if err != nil {
		slog.Error("config reload rejected",
			slog.String("path", w.path),
			slog.String("error", err.Error()),
		)
		return
	}

	r := Reload{Config: cfg, RestartNeeded: restartNeeded(w.startup, cfg)}

	w.mu.Lock()
	w.current = r
	w.mu.Unlock()

	if len(r.RestartNeeded) > 0 {
		slog.Warn("config reloaded; restart to apply startup settings",
			slog.String("path", w.path),
			slog.Any("settings", r.RestartNeeded),
			slog.String("source_kind", cfg.Source.Kind),
		)
	} else {
		slog.Info("config reloaded", slog.String("path", w.path))
	}

	if w.onChange != nil {
		w.onChange(r)
	}
}

// restartNeeded lists the settings of next that only apply at startup and
// differ from startup. The source is opened once and the redacting log
// handler is installed once.
func restartNeeded(startup, next *Config) []string {
	var names []string
	if !startup.SameSource(next) {
		names = append(names, "source")
	}
	if startup.Logging.Sanitize != next.Logging.Sanitize {
		names = append(names, "logging.sanitize")
	}
	return names
}

// Close stops watching and waits for the watch goroutine to exit.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.stopped.Wait()
	return err
}
