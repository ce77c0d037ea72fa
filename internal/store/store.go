package store

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sadopc/netscope/internal/logging"
	"github.com/sadopc/netscope/internal/record"
)

// DefaultRetention is the number of records kept when no bound is given.
const DefaultRetention = 500

var (
	// ErrDuplicateID is returned by Append when the id is already stored.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrNotFound is returned when the id is not (or no longer) stored.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyCompleted is returned when a completed record would change.
	ErrAlreadyCompleted = errors.New("record already completed")
)

// EvictFunc is called with the ids removed by eviction or Clear.
type EvictFunc func(ids []string)

// Store is a bounded, insertion-ordered collection of records. It is safe
// for concurrent use.
type Store struct {
	mu        sync.RWMutex
	order     []string
	records   map[string]*record.Record
	retention int
	nextSeq   uint64

	listenMu  sync.RWMutex
	listeners []EvictFunc

	subMu       sync.RWMutex
	subscribers map[chan Event]struct{}

	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for eviction diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store that keeps at most retention records.
func New(retention int, opts ...Option) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &Store{
		records:     make(map[string]*record.Record, retention),
		order:       make([]string, 0, retention),
		retention:   retention,
		subscribers: make(map[chan Event]struct{}),
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retention returns the retention bound.
func (s *Store) Retention() int {
	return s.retention
}

// Append stores a new in-flight record and returns its id. Response and
// completion fields of rec are dropped; use Complete or Fail to finalize.
// Records beyond the retention bound are evicted oldest first.
func (s *Store) Append(rec record.Record) (string, error) {
	if rec.ID == "" {
		return "", fmt.Errorf("appending record: empty id")
	}
	stored := rec.Clone()
	stored.Revision = 1
	stored.CompletedAt = time.Time{}
	stored.StatusCode = 0
	stored.ResponseHeaders = nil
	stored.ResponseBody = nil
	stored.Error = ""

	s.mu.Lock()
	if _, ok := s.records[stored.ID]; ok {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, stored.ID)
	}
	s.nextSeq++
	stored.Seq = s.nextSeq
	s.records[stored.ID] = &stored
	s.order = append(s.order, stored.ID)
	evicted := s.trimLocked(s.retention)
	s.mu.Unlock()

	s.publish(Event{Kind: EventAppended, ID: stored.ID, Revision: stored.Revision})
	s.evicted(evicted)
	return stored.ID, nil
}

// Update applies mutators to a copy of an in-flight record, bumps its
// revision and swaps the copy in. It returns the new revision.
func (s *Store) Update(id string, mutators ...record.Mutator) (uint64, error) {
	s.mu.Lock()
	cur, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if cur.Completed() {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrAlreadyCompleted, id)
	}

	next := cur.Clone()
	for _, m := range mutators {
		m(&next)
	}
	// Identity and completion are owned by the store.
	next.ID = cur.ID
	next.Seq = cur.Seq
	next.StartedAt = cur.StartedAt
	next.CompletedAt = time.Time{}
	next.Error = ""
	next.Revision = cur.Revision + 1
	s.records[id] = &next
	rev := next.Revision
	s.mu.Unlock()

	s.publish(Event{Kind: EventUpdated, ID: id, Revision: rev})
	return rev, nil
}

// Complete records the response and finalizes the record. Repeating the
// call with identical arguments succeeds without bumping the revision.
func (s *Store) Complete(id string, statusCode int, headers http.Header, body []byte, completedAt time.Time) error {
	return s.finish(id, statusCode, headers, body, "", completedAt)
}

// Fail finalizes the record with an error in place of a response.
func (s *Store) Fail(id string, cause error, completedAt time.Time) error {
	msg := "request failed"
	if cause != nil {
		msg = cause.Error()
	}
	return s.finish(id, 0, nil, nil, msg, completedAt)
}

func (s *Store) finish(id string, status int, headers http.Header, body []byte, errMsg string, completedAt time.Time) error {
	s.mu.Lock()
	cur, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if cur.Completed() {
		// A zero time means "now" and matches whatever was recorded.
		at := completedAt
		if at.IsZero() {
			at = cur.CompletedAt
		}
		same := cur.SameCompletion(status, headers, body, errMsg, at)
		s.mu.Unlock()
		if same {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrAlreadyCompleted, id)
	}

	next := cur.Clone()
	next.StatusCode = status
	next.ResponseHeaders = headers.Clone()
	next.ResponseBody = append([]byte(nil), body...)
	if body == nil {
		next.ResponseBody = nil
	}
	next.Error = errMsg
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	next.CompletedAt = completedAt
	next.Revision = cur.Revision + 1
	s.records[id] = &next
	rev := next.Revision
	s.mu.Unlock()

	s.publish(Event{Kind: EventCompleted, ID: id, Revision: rev})
	return nil
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (record.Record, bool) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return record.Record{}, false
	}
	// Stored records are never modified in place, so the copy can happen
	// outside the lock.
	return rec.Clone(), true
}

// Revision returns the current revision of a record.
func (s *Store) Revision(id string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return 0, false
	}
	return rec.Revision, true
}

// Snapshot returns copies of all records in insertion order.
func (s *Store) Snapshot() []record.Record {
	s.mu.RLock()
	ptrs := make([]*record.Record, len(s.order))
	for i, id := range s.order {
		ptrs[i] = s.records[id]
	}
	s.mu.RUnlock()

	out := make([]record.Record, len(ptrs))
	for i, p := range ptrs {
		out[i] = p.Clone()
	}
	return out
}

// IDs returns the stored ids in insertion order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// EvictOldest removes the oldest records until at most keep remain and
// returns the removed ids.
func (s *Store) EvictOldest(keep int) []string {
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	evicted := s.trimLocked(keep)
	s.mu.Unlock()

	s.evicted(evicted)
	return evicted
}

// Clear removes every record.
func (s *Store) Clear() {
	s.mu.Lock()
	ids := s.order
	s.order = make([]string, 0, s.retention)
	s.records = make(map[string]*record.Record, s.retention)
	s.mu.Unlock()

	if len(ids) > 0 {
		for _, fn := range s.evictListeners() {
			fn(ids)
		}
	}
	s.publish(Event{Kind: EventCleared})
}

// OnEvict registers fn to be called after records are evicted or cleared.
// Listeners run on the evicting goroutine without store locks held.
func (s *Store) OnEvict(fn EvictFunc) {
	if fn == nil {
		return
	}
	s.listenMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenMu.Unlock()
}

func (s *Store) trimLocked(keep int) []string {
	if len(s.order) <= keep {
		return nil
	}
	n := len(s.order) - keep
	evicted := make([]string, n)
	copy(evicted, s.order[:n])
	for _, id := range evicted {
		delete(s.records, id)
	}
	// Copy the tail so the evicted prefix does not pin the backing array.
	rest := make([]string, keep, max(keep, s.retention))
	copy(rest, s.order[n:])
	s.order = rest
	return evicted
}

func (s *Store) evicted(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.logger.Debug("evicted records", "count", len(ids), "retention", s.retention)
	for _, fn := range s.evictListeners() {
		fn(ids)
	}
	for _, id := range ids {
		s.publish(Event{Kind: EventEvicted, ID: id})
	}
}

func (s *Store) evictListeners() []EvictFunc {
	s.listenMu.RLock()
	defer s.listenMu.RUnlock()
	out := make([]EvictFunc, len(s.listeners))
	copy(out, s.listeners)
	return out
}
