package layout

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sadopc/netscope/internal/measure"
	"github.com/sadopc/netscope/internal/record"
	"github.com/sadopc/netscope/internal/store"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// countingMeasurer wraps a real service and counts calls.
type countingMeasurer struct {
	svc   *measure.Service
	calls atomic.Int64
}

func (c *countingMeasurer) Measure(text string, maxWidth int, style measure.Style) int {
	c.calls.Add(1)
	return c.svc.Measure(text, maxWidth, style)
}

func newTestVM(t *testing.T, cfg Config) (*ViewModel, *store.Store, *countingMeasurer) {
	t.Helper()
	svc, err := measure.New(measure.Config{})
	if err != nil {
		t.Fatal(err)
	}
	m := &countingMeasurer{svc: svc}
	s := store.New(100)
	return New(s, m, cfg), s, m
}

func appendGet(t *testing.T, s *store.Store, id, path string) {
	t.Helper()
	if _, err := s.Append(record.New(id, "GET", path, nil, nil, t0)); err != nil {
		t.Fatal(err)
	}
}

func tenLineBody() []byte {
	var b strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return []byte(b.String())
}

func TestLayout_GrowsAfterCompletion(t *testing.T) {
	vm, s, m := newTestVM(t, DefaultConfig())
	appendGet(t, s, "r1", "/a")

	m1, err := vm.Layout("r1", 320)
	if err != nil {
		t.Fatal(err)
	}
	h1 := m1.CellHeight

	err = s.Complete("r1", 200, http.Header{"Content-Type": {"text/plain"}}, tenLineBody(), t0.Add(120*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	m2, err := vm.Layout("r1", 320)
	if err != nil {
		t.Fatal(err)
	}
	h2 := m2.CellHeight
	if h2 <= h1 {
		t.Fatalf("h2 = %d, want > h1 = %d", h2, h1)
	}
	if m2.Revision <= m1.Revision {
		t.Fatalf("revision did not advance: %d -> %d", m1.Revision, m2.Revision)
	}

	before := m.calls.Load()
	m3, err := vm.Layout("r1", 320)
	if err != nil {
		t.Fatal(err)
	}
	if m3 != m2 {
		t.Fatalf("third layout = %+v, want cached %+v", m3, m2)
	}
	if m.calls.Load() != before {
		t.Fatalf("cached layout measured again (%d -> %d calls)", before, m.calls.Load())
	}
}

func TestLayout_RepeatedCallsIdentical(t *testing.T) {
	vm, s, _ := newTestVM(t, DefaultConfig())
	appendGet(t, s, "r1", "/users")
	if _, err := s.Update("r1", record.SetRequestHeaders(http.Header{"Accept": {"application/json"}})); err != nil {
		t.Fatal(err)
	}

	first, err := vm.Layout("r1", 80)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		got, err := vm.Layout("r1", 80)
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("call %d = %+v, want %+v", i, got, first)
		}
	}
}

func TestLayout_RecomputesAfterUpdate(t *testing.T) {
	vm, s, m := newTestVM(t, DefaultConfig())
	appendGet(t, s, "r1", "/a")

	before, _ := vm.Layout("r1", 60)
	calls := m.calls.Load()

	if _, err := s.Update("r1", record.SetRequestBody([]byte(strings.Repeat("row\n", 6)))); err != nil {
		t.Fatal(err)
	}
	after, err := vm.Layout("r1", 60)
	if err != nil {
		t.Fatal(err)
	}
	if m.calls.Load() == calls {
		t.Fatal("layout after update reused stale metrics")
	}
	if after.Revision == before.Revision || after.CellHeight <= before.CellHeight {
		t.Fatalf("after = %+v, before = %+v", after, before)
	}
}

func TestLayout_EvictedRecord(t *testing.T) {
	vm, s, _ := newTestVM(t, DefaultConfig())
	appendGet(t, s, "r2", "/b")
	if _, err := vm.Layout("r2", 100); err != nil {
		t.Fatal(err)
	}
	if vm.CacheLen() != 1 {
		t.Fatalf("CacheLen() = %d, want 1", vm.CacheLen())
	}

	s.EvictOldest(0)

	if vm.CacheLen() != 0 {
		t.Fatalf("CacheLen() = %d after eviction, want 0", vm.CacheLen())
	}
	for _, w := range []int{0, 50, 320} {
		if _, err := vm.Layout("r2", w); !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("Layout(evicted, %d) = %v, want ErrRecordNotFound", w, err)
		}
	}
}

func TestLayout_CellWidth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InsetLeft, cfg.InsetRight = 2, 3
	vm, s, _ := newTestVM(t, cfg)
	appendGet(t, s, "r1", "/a")

	m, _ := vm.Layout("r1", 320)
	if m.CellWidth != 315 {
		t.Errorf("CellWidth = %d, want 315", m.CellWidth)
	}
	m, _ = vm.Layout("r1", 4)
	if m.CellWidth != 0 || m.CellHeight < cfg.MinCellHeight {
		t.Errorf("narrow metrics = %+v", m)
	}
}

func TestLayout_ClampsHeight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinCellHeight = 5
	cfg.MaxCellHeight = 10
	vm, s, _ := newTestVM(t, cfg)

	appendGet(t, s, "small", "/s")
	big := record.New("big", "POST", "/b", nil, []byte(strings.Repeat("x\n", 100)), t0)
	if _, err := s.Append(big); err != nil {
		t.Fatal(err)
	}

	if m, _ := vm.Layout("small", 80); m.CellHeight != 5 {
		t.Errorf("small CellHeight = %d, want min 5", m.CellHeight)
	}
	if m, _ := vm.Layout("big", 80); m.CellHeight != 10 {
		t.Errorf("big CellHeight = %d, want max 10", m.CellHeight)
	}
}

func TestLayout_WidthsCachedIndependently(t *testing.T) {
	vm, s, _ := newTestVM(t, DefaultConfig())
	long := record.New("r1", "POST", "/a", nil, []byte(strings.Repeat("word ", 60)), t0)
	if _, err := s.Append(long); err != nil {
		t.Fatal(err)
	}

	wide, _ := vm.Layout("r1", 200)
	narrow, _ := vm.Layout("r1", 30)
	if narrow.CellHeight <= wide.CellHeight {
		t.Fatalf("narrow = %d, wide = %d, want narrow taller", narrow.CellHeight, wide.CellHeight)
	}
	if again, _ := vm.Layout("r1", 200); again != wide {
		t.Fatalf("wide metrics changed after narrow layout: %+v vs %+v", again, wide)
	}
}

// evictingMeasurer evicts every stored record the first time it measures.
type evictingMeasurer struct {
	svc  *measure.Service
	s    *store.Store
	once sync.Once
}

func (e *evictingMeasurer) Measure(text string, maxWidth int, style measure.Style) int {
	e.once.Do(func() { e.s.EvictOldest(0) })
	return e.svc.Measure(text, maxWidth, style)
}

func TestLayout_EvictedWhileMeasuring(t *testing.T) {
	svc, err := measure.New(measure.Config{})
	if err != nil {
		t.Fatal(err)
	}
	s := store.New(10)
	vm := New(s, &evictingMeasurer{svc: svc, s: s}, DefaultConfig())
	appendGet(t, s, "r1", "/a")

	if _, err := vm.Layout("r1", 80); err != nil {
		t.Fatalf("Layout() error: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("store len = %d, want 0", s.Len())
	}
	if vm.CacheLen() != 0 {
		t.Fatalf("CacheLen() = %d, want 0 for a record evicted mid-measure", vm.CacheLen())
	}
}

func TestRemember_DropsUnknownRecord(t *testing.T) {
	vm, _, _ := newTestVM(t, DefaultConfig())
	vm.remember("ghost", 1, 80, 4)
	if vm.CacheLen() != 0 {
		t.Fatalf("CacheLen() = %d, want 0", vm.CacheLen())
	}
}

func TestRemember_IgnoresOlderRevision(t *testing.T) {
	vm, s, _ := newTestVM(t, DefaultConfig())
	appendGet(t, s, "r1", "/a")

	vm.remember("r1", 5, 80, 12)
	vm.remember("r1", 4, 80, 3)

	if h, ok := vm.cached("r1", 5, 80); !ok || h != 12 {
		t.Fatalf("cached(5) = %d, %v, want 12, true", h, ok)
	}
	if _, ok := vm.cached("r1", 4, 80); ok {
		t.Fatal("older revision must not be cached")
	}

	vm.remember("r1", 6, 80, 7)
	if _, ok := vm.cached("r1", 5, 80); ok {
		t.Fatal("superseded revision still cached")
	}
}

func TestRemember_BoundsWidths(t *testing.T) {
	vm, s, _ := newTestVM(t, DefaultConfig())
	appendGet(t, s, "r1", "/a")
	for w := 0; w < maxWidthsPerRecord*3; w++ {
		vm.remember("r1", 1, w, 3)
	}
	vm.mu.Lock()
	n := len(vm.cache["r1"].heights)
	vm.mu.Unlock()
	if n > maxWidthsPerRecord {
		t.Fatalf("%d widths cached, want at most %d", n, maxWidthsPerRecord)
	}
}

func TestVisibleRecords(t *testing.T) {
	vm, s, _ := newTestVM(t, DefaultConfig())
	for _, id := range []string{"a", "b", "c"} {
		appendGet(t, s, id, "/"+id)
	}
	if err := s.Complete("b", 404, nil, []byte("not found"), t0.Add(time.Second)); err != nil {
		t.Fatal(err)
	}

	rows := vm.VisibleRecords(120)
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	for i, id := range []string{"a", "b", "c"} {
		r := rows[i]
		if r.Record.ID != id || r.Metrics.RecordID != id {
			t.Fatalf("row %d = %s/%s, want %s", i, r.Record.ID, r.Metrics.RecordID, id)
		}
		if r.Metrics.Revision != r.Record.Revision {
			t.Fatalf("row %d metrics revision %d != record revision %d", i, r.Metrics.Revision, r.Record.Revision)
		}
		want, _ := vm.Layout(id, 120)
		if r.Metrics != want {
			t.Fatalf("row %d metrics = %+v, Layout = %+v", i, r.Metrics, want)
		}
	}
}

func TestPrune(t *testing.T) {
	svc, _ := measure.New(measure.Config{})
	s := store.New(10)
	// A Records implementation without OnEvict forces lazy discovery.
	vm := New(noEvictRecords{s}, svc, DefaultConfig())

	appendGet(t, s, "a", "/a")
	appendGet(t, s, "b", "/b")
	vm.VisibleRecords(80)
	s.EvictOldest(1)

	if vm.CacheLen() != 2 {
		t.Fatalf("CacheLen() = %d, want 2 before prune", vm.CacheLen())
	}
	if n := vm.Prune(); n != 1 {
		t.Fatalf("Prune() = %d, want 1", n)
	}
	if vm.CacheLen() != 1 {
		t.Fatalf("CacheLen() = %d, want 1 after prune", vm.CacheLen())
	}
}

type noEvictRecords struct{ s *store.Store }

func (n noEvictRecords) Get(id string) (record.Record, bool) { return n.s.Get(id) }
func (n noEvictRecords) Revision(id string) (uint64, bool)   { return n.s.Revision(id) }
func (n noEvictRecords) Snapshot() []record.Record           { return n.s.Snapshot() }

func TestLayout_ConcurrentWithWriters(t *testing.T) {
	vm, s, _ := newTestVM(t, DefaultConfig())
	appendGet(t, s, "r1", "/a")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Update("r1", record.AddRequestHeader(fmt.Sprintf("X-%d", i), "v"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if _, err := vm.Layout("r1", 40+i%3); err != nil {
				t.Errorf("Layout error: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	rev, _ := s.Revision("r1")
	m, err := vm.Layout("r1", 40)
	if err != nil {
		t.Fatal(err)
	}
	if m.Revision != rev {
		t.Fatalf("final metrics revision = %d, want current %d", m.Revision, rev)
	}
}
