package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/fsutil"
	"github.com/kailas-cloud/regassist/internal/metrics"
)

// ErrClosed is returned by mutations submitted after Close.
var ErrClosed = domain.ErrRegistryClosed

// document is the on-disk layout.
type document struct {
	Sources []domain.SourceRecord `json:"sources"`
}

// mutation runs on the writer goroutine against the current list.
// It returns the new list, or nil with changed=false to leave the file untouched.
type mutation struct {
	apply func(list []domain.SourceRecord) ([]domain.SourceRecord, bool, error)
	reply chan error // nil for fire-and-forget
}

// Registry is the detected source log persisted as one JSON file.
// A single writer goroutine owns the file; reads are served from an in-memory snapshot.
type Registry struct {
	path         string
	capacity     int
	contextChars int
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string

	queue  chan mutation
	stop   chan struct{}
	exited chan struct{}
	once   sync.Once

	mu       sync.RWMutex
	snapshot []domain.SourceRecord
}

// Config holds registry settings.
type Config struct {
	Path         string
	Capacity     int
	QueueSize    int
	ContextChars int
	Logger       *zap.Logger
	Now          func() time.Time
}

// Open loads the registry file (a missing or malformed file starts empty) and starts the writer.
func Open(cfg Config) *Registry {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	r := &Registry{
		path:         filepath.Clean(cfg.Path),
		capacity:     cfg.Capacity,
		contextChars: cfg.ContextChars,
		logger:       cfg.Logger,
		now:          now,
		newID:        func() string { return "src_" + uuid.NewString() },
		queue:        make(chan mutation, max(cfg.QueueSize, 1)),
		stop:         make(chan struct{}),
		exited:       make(chan struct{}),
	}
	r.snapshot = r.load()
	go r.run()
	return r
}

func (r *Registry) load() []domain.SourceRecord {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		r.logger.Warn("source registry unreadable, starting empty", zap.String("path", r.path), zap.Error(err))
		return nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		r.logger.Warn("source registry malformed, starting empty", zap.String("path", r.path), zap.Error(err))
		return nil
	}
	return doc.Sources
}

func (r *Registry) run() {
	defer close(r.exited)
	for {
		select {
		case m := <-r.queue:
			r.handle(m)
		case <-r.stop:
			for {
				select {
				case m := <-r.queue:
					r.handle(m)
				default:
					return
				}
			}
		}
	}
}

func (r *Registry) handle(m mutation) {
	current := r.List("")
	next, changed, err := m.apply(current)
	if err == nil && changed {
		if err = r.persist(next); err == nil {
			r.mu.Lock()
			r.snapshot = next
			r.mu.Unlock()
		}
	}
	if m.reply != nil {
		m.reply <- err
	} else if err != nil {
		metrics.DetectedSourcesTotal.WithLabelValues("error").Inc()
		r.logger.Warn("source registry update failed", zap.Error(err))
	}
}

func (r *Registry) persist(list []domain.SourceRecord) error {
	if list == nil {
		list = []domain.SourceRecord{}
	}
	data, err := json.MarshalIndent(document{Sources: list}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := fsutil.WriteFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// Record queues detected links without waiting. New links go first; known URLs are skipped;
// the list is cut to capacity. When the queue is full the links are dropped with a warning.
func (r *Registry) Record(links []domain.DetectedLink, question string) {
	if len(links) == 0 {
		return
	}
	ctxText := truncate(question, r.contextChars)
	detectedAt := r.now().UTC()

	m := mutation{apply: func(list []domain.SourceRecord) ([]domain.SourceRecord, bool, error) {
		seen := make(map[string]bool, len(list)+len(links))
		for _, s := range list {
			seen[urlKey(s.URL)] = true
		}
		fresh := make([]domain.SourceRecord, 0, len(links))
		for _, l := range links {
			key := urlKey(l.URL)
			if seen[key] {
				metrics.DetectedSourcesTotal.WithLabelValues("duplicate").Inc()
				continue
			}
			seen[key] = true
			fresh = append(fresh, domain.SourceRecord{
				ID:         r.newID(),
				Title:      l.Title,
				URL:        l.URL,
				Type:       domain.SourceDetected,
				Status:     domain.StatusPending,
				DetectedAt: detectedAt,
				Context:    ctxText,
			})
		}
		if len(fresh) == 0 {
			return nil, false, nil
		}
		next := append(fresh, list...)
		if r.capacity > 0 && len(next) > r.capacity {
			next = next[:r.capacity]
		}
		metrics.DetectedSourcesTotal.WithLabelValues("recorded").Add(float64(len(fresh)))
		return next, true, nil
	}}

	select {
	case <-r.stop:
		metrics.DetectedSourcesTotal.WithLabelValues("dropped").Add(float64(len(links)))
	case r.queue <- m:
	default:
		metrics.DetectedSourcesTotal.WithLabelValues("dropped").Add(float64(len(links)))
		r.logger.Warn("source registry queue full, links dropped", zap.Int("links", len(links)))
	}
}

// List returns registry entries, most recent first, optionally filtered by status.
func (r *Registry) List(status domain.SourceStatus) []domain.SourceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SourceRecord, 0, len(r.snapshot))
	for _, s := range r.snapshot {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	return out
}

// SetStatus moderates one entry and returns it.
func (r *Registry) SetStatus(ctx context.Context, id string, status domain.SourceStatus) (domain.SourceRecord, error) {
	var updated domain.SourceRecord
	err := r.submit(ctx, func(list []domain.SourceRecord) ([]domain.SourceRecord, bool, error) {
		for i := range list {
			if list[i].ID == id {
				list[i].Status = status
				updated = list[i]
				return list, true, nil
			}
		}
		return nil, false, domain.ErrSourceNotFound
	})
	return updated, err
}

// Delete removes one entry.
func (r *Registry) Delete(ctx context.Context, id string) error {
	return r.submit(ctx, func(list []domain.SourceRecord) ([]domain.SourceRecord, bool, error) {
		for i := range list {
			if list[i].ID == id {
				return append(list[:i:i], list[i+1:]...), true, nil
			}
		}
		return nil, false, domain.ErrSourceNotFound
	})
}

// Clear removes every entry.
func (r *Registry) Clear(ctx context.Context) error {
	return r.submit(ctx, func([]domain.SourceRecord) ([]domain.SourceRecord, bool, error) {
		return []domain.SourceRecord{}, true, nil
	})
}

// submit runs fn on the writer and waits for the outcome.
func (r *Registry) submit(
	ctx context.Context,
	fn func([]domain.SourceRecord) ([]domain.SourceRecord, bool, error),
) error {
	m := mutation{apply: fn, reply: make(chan error, 1)}
	select {
	case <-r.stop:
		return ErrClosed
	case r.queue <- m:
	case <-ctx.Done():
		return fmt.Errorf("submit: %w", ctx.Err())
	}
	select {
	case err := <-m.reply:
		return err
	case <-r.exited:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("wait: %w", ctx.Err())
	}
}

// Close stops accepting work, flushes queued mutations and waits for the writer.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stop) })
	<-r.exited
}

// urlKey compares URLs ignoring a trailing slash.
func urlKey(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
