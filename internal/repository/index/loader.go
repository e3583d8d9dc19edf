package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/regassist/internal/domain"
)

// Loader serves the product index file to the retrieval path.
// With ttl <= 0 every call reads the file; otherwise the decoded index is reused until it expires
// or the watcher reports a change. Concurrent reads of the same file are coalesced.
// Returned records are shared and must not be modified.
type Loader struct {
	path   string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
	flight singleflight.Group

	mu       sync.RWMutex
	cached   domain.IndexFile
	loadedAt time.Time
	valid    bool
	gen      uint64 // bumped by Invalidate; a load started under an older gen is not cached

	afterRead func() // test hook
}

// Option configures a Loader.
type Option func(*Loader)

// WithClock overrides the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// NewLoader creates a loader for the index file at path.
func NewLoader(path string, ttl time.Duration, logger *zap.Logger, opts ...Option) *Loader {
	l := &Loader{
		path:   filepath.Clean(path),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load returns the current index. A missing or malformed file yields an empty index and a logged warning.
func (l *Loader) Load(_ context.Context) domain.IndexFile {
	idx, gen, ok := l.fresh()
	if ok {
		return idx
	}

	// Loads started after an Invalidate never join a flight that began before it.
	key := l.path + "#" + strconv.FormatUint(gen, 10)
	v, _, _ := l.flight.Do(key, func() (any, error) {
		idx := l.read()
		if l.afterRead != nil {
			l.afterRead()
		}
		if l.ttl > 0 {
			l.mu.Lock()
			if l.gen == gen {
				l.cached, l.loadedAt, l.valid = idx, l.now(), true
			}
			l.mu.Unlock()
		}
		return idx, nil
	})
	return v.(domain.IndexFile)
}

func (l *Loader) fresh() (domain.IndexFile, uint64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.ttl <= 0 || !l.valid || l.now().Sub(l.loadedAt) >= l.ttl {
		return domain.IndexFile{}, l.gen, false
	}
	return l.cached, l.gen, true
}

func (l *Loader) read() domain.IndexFile {
	idx, err := ReadFile(l.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		l.logger.Debug("product index not found, retrieval disabled", zap.String("path", l.path))
		return domain.IndexFile{}
	case err != nil:
		l.logger.Warn("product index unreadable, retrieval disabled", zap.String("path", l.path), zap.Error(err))
		return domain.IndexFile{}
	}
	return idx
}

// Invalidate drops the cached index; the next Load reads the file.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.valid = false
	l.gen++
	l.mu.Unlock()
}

// Watch invalidates the cache whenever the index file changes, until ctx is done.
// The parent directory is watched because WriteFile replaces the file by rename.
func (l *Loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				l.handleEvent(ev)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("index watcher error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()

	l.logger.Info("watching product index", zap.String("path", l.path))
	return nil
}

func (l *Loader) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != l.path {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return
	}
	l.Invalidate()
	l.logger.Info("product index changed, cache dropped", zap.String("op", ev.Op.String()))
}
