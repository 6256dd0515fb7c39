package config

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/cuemby/pulsewave/pkg/log"
	"github.com/cuemby/pulsewave/pkg/types"
)

// defaultDebounce matches §4.15's stated default.
const defaultDebounce = 500 * time.Millisecond

// ReloadEvent is emitted on every debounced file change.
type ReloadEvent struct {
	Valid  bool
	Config *types.Config
	Err    error
}

// Watcher watches a config file path and emits a debounced, re-parsed,
// re-validated ReloadEvent on every change. Grounded on the teacher's
// ticker+stopCh background-loop idiom, adapted to fsnotify events.
type Watcher struct {
	path     string
	debounce time.Duration
	events   chan ReloadEvent
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher constructs a watcher for path with the given debounce
// interval (0 uses the §4.15 default).
func NewWatcher(path string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		events:   make(chan ReloadEvent, 1),
		stopCh:   make(chan struct{}),
	}
}

// Events returns the channel ReloadEvents are delivered on.
func (w *Watcher) Events() <-chan ReloadEvent {
	return w.events
}

// Start begins watching in the background. The caller must call Stop
// to release the underlying fsnotify watcher.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.path); err != nil {
		fw.Close()
		return err
	}

	go w.run(fw)
	return nil
}

// Stop ends the watch loop.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *Watcher) run(fw *fsnotify.Watcher) {
	defer fw.Close()

	logger := log.WithComponent("config.reload")
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.reload(logger)
			})

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("config watcher error")

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload(logger zerolog.Logger) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		logger.Error().Err(err).Str("path", w.path).Msg("config reload: read failed")
		w.emit(ReloadEvent{Valid: false, Err: err})
		return
	}

	cfg, err := Parse(data)
	if err != nil {
		logger.Warn().Err(err).Str("path", w.path).Msg("config reload: parse failed")
		w.emit(ReloadEvent{Valid: false, Err: err})
		return
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		logger.Warn().Err(err).Str("path", w.path).Msg("config reload: validation failed")
		w.emit(ReloadEvent{Valid: false, Err: err})
		return
	}

	logger.Info().Str("path", w.path).Msg("config reload: applied")
	w.emit(ReloadEvent{Valid: true, Config: cfg})
}

// emit delivers event, dropping it if the channel is full so a slow
// consumer cannot block the watch loop; only the latest state matters.
func (w *Watcher) emit(event ReloadEvent) {
	select {
	case w.events <- event:
	default:
		select {
		case <-w.events:
		default:
		}
		w.events <- event
	}
}
