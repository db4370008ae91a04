package seed

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher re-imports the seed file whenever it changes and then calls
// onChange, typically a reconciliation pass.
type Watcher struct {
	path     string
	store    Store
	prune    bool
	onChange func(context.Context)
	logger   *logger.Logger
	debounce time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	reloads  sync.WaitGroup
	lastHash [sha256.Size]byte
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, st Store, prune bool, onChange func(context.Context), log *logger.Logger) *Watcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		path:     path,
		store:    st,
		prune:    prune,
		onChange: onChange,
		logger:   log,
		debounce: defaultDebounce,
	}
}

// Run watches until ctx is done. The file's directory is watched so editors
// that replace the file by rename are handled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)
	if err := fw.Add(dir); err != nil {
		return err
	}

	w.mu.Lock()
	w.stopped = false
	w.mu.Unlock()

	w.remember()
	w.logger.Info("seed watcher started", logger.Field{Key: "path", Value: w.path})

	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule(ctx)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("seed watch error",
				logger.Field{Key: "path", Value: w.path},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}
}

// schedule debounces bursts of events from a single save.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.reloads.Add(1)
		w.mu.Unlock()

		defer w.reloads.Done()
		w.reload(ctx)
	})
}

// stopTimer cancels a pending reload and waits for a running one, so no
// import touches the store after Run returns.
func (w *Watcher) stopTimer() {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.reloads.Wait()
}

// remember records the current content so an unchanged file is not re-imported.
func (w *Watcher) remember() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.lastHash = sha256.Sum256(data)
	w.mu.Unlock()
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("seed file unreadable",
			logger.Field{Key: "path", Value: w.path},
			logger.Field{Key: "error", Value: err.Error()})
		return
	}

	hash := sha256.Sum256(data)
	w.mu.Lock()
	unchanged := hash == w.lastHash
	w.lastHash = hash
	w.mu.Unlock()
	if unchanged {
		w.logger.Debug("seed file unchanged", logger.Field{Key: "path", Value: w.path})
		return
	}

	f, err := Parse(data)
	if err != nil {
		w.logger.Error("seed file rejected", err, logger.Field{Key: "path", Value: w.path})
		return
	}

	if _, err := Import(ctx, w.store, f, w.prune, w.logger); err != nil {
		w.logger.Warn("seed imported with errors",
			logger.Field{Key: "path", Value: w.path},
			logger.Field{Key: "error", Value: err.Error()})
	}

	if w.onChange != nil {
		w.onChange(ctx)
	}
}
