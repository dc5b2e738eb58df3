// Package draft persists in-progress editing sessions: a point-in-time
// serialization of the original bytes, page states, annotation objects and
// cursor page, written to durable key-value storage behind a debounce so
// rapid edit bursts coalesce into one write. The draft is a convenience
// cache, not the source of truth; a write lost at session end is acceptable.
package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shockz09/pdfmark/observability"
	"github.com/shockz09/pdfmark/pages"
)

// ErrNoDraft is returned by Load when no draft exists under the key.
var ErrNoDraft = errors.New("no draft")

// DefaultQuietPeriod is the debounce window after the last change.
const DefaultQuietPeriod = 800 * time.Millisecond

// DefaultKey is the storage key used when the caller does not pick one.
const DefaultKey = "pdfmark-draft"

// Draft fully reconstructs a document session.
type Draft struct {
	ID                string                  `json:"id"`
	OriginalBytes     []byte                  `json:"originalBytes"`
	PageStates        []pages.State           `json:"pageStates"`
	AnnotationsByPage map[int]json.RawMessage `json:"annotationsByPage"`
	CurrentPage       int                     `json:"currentPage"`
	SavedAt           time.Time               `json:"savedAt"`
}

// Store is the durable key-value contract the adapter writes through.
type Store interface {
	Get(key string) ([]byte, error) // returns ErrNoDraft when absent
	Set(key string, value []byte) error
	Delete(key string) error
}

// CollectFunc captures the session's current state as a Draft.
type CollectFunc func() (*Draft, error)

// Adapter debounces draft writes. MarkDirty schedules a write after the
// quiet period; further calls push the deadline out. Flush writes
// immediately.
type Adapter struct {
	store   Store
	key     string
	quiet   time.Duration
	collect CollectFunc
	log     observability.Logger

	mu    sync.Mutex
	timer *time.Timer
	id    string
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

func WithQuietPeriod(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.quiet = d
		}
	}
}

func WithKey(key string) AdapterOption {
	return func(a *Adapter) {
		if key != "" {
			a.key = key
		}
	}
}

func WithLogger(log observability.Logger) AdapterOption {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

func NewAdapter(store Store, collect CollectFunc, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		store:   store,
		key:     DefaultKey,
		quiet:   DefaultQuietPeriod,
		collect: collect,
		log:     observability.NopLogger{},
		id:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MarkDirty notes that the session changed and (re)starts the quiet-period
// timer. A failed debounced write is logged and editing continues without
// autosave.
func (a *Adapter) MarkDirty() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.quiet, func() {
		if err := a.Flush(); err != nil {
			a.log.Warn("draft autosave failed", observability.Error("err", err))
		}
	})
}

// Flush writes the draft now, cancelling any pending debounced write.
func (a *Adapter) Flush() error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	d, err := a.collect()
	if err != nil {
		return fmt.Errorf("collect draft: %w", err)
	}
	if d == nil {
		return nil
	}
	if d.ID == "" {
		d.ID = a.id
	}
	d.SavedAt = time.Now().UTC()
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := a.store.Set(a.key, data); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	a.log.Debug("draft saved", observability.Int(observability.MetricDraftBytes, len(data)))
	return nil
}

// Load reads the persisted draft, returning ErrNoDraft when none exists.
func (a *Adapter) Load() (*Draft, error) {
	return Load(a.store, a.key)
}

// Clear removes the persisted draft, e.g. after a successful export.
func (a *Adapter) Clear() error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	return a.store.Delete(a.key)
}

// Close cancels any pending write. A debounced write in flight when the
// session ends may be lost; callers that need the final state call Flush.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// Load reads and decodes a draft directly from a store.
func Load(store Store, key string) (*Draft, error) {
	data, err := store.Get(key)
	if err != nil {
		return nil, err
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}
