// Package layout computes cell geometry for captured records.
//
// A ViewModel turns a record and a container width into Metrics. Heights
// are cached per (record, revision, width) and recomputed only after the
// record's revision changes; widths are derived from the container width
// on every call.
package layout

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sadopc/netscope/internal/measure"
	"github.com/sadopc/netscope/internal/record"
	"github.com/sadopc/netscope/internal/store"
)

// ErrRecordNotFound is returned when the record is not in the store,
// usually because it was evicted after the caller learned its id.
var ErrRecordNotFound = errors.New("layout: record not found")

// Records is the read side of the record store.
type Records interface {
	Get(id string) (record.Record, bool)
	Revision(id string) (uint64, bool)
	Snapshot() []record.Record
}

// Measurer measures wrapped text.
type Measurer interface {
	Measure(text string, maxWidth int, style measure.Style) int
}

type evictNotifier interface {
	OnEvict(fn store.EvictFunc)
}

// Config holds the presentation constants.
type Config struct {
	MinCellHeight   int
	MaxCellHeight   int // 0 means unbounded
	InsetLeft       int
	InsetRight      int
	VerticalPadding int // above and below the content
	SectionPadding  int // between regions
	MaxHeaderLines  int
	MaxBodyBytes    int
	MaxBodyLines    int
}

// DefaultConfig returns the layout defaults.
func DefaultConfig() Config {
	return Config{
		MinCellHeight:   3,
		MaxCellHeight:   40,
		InsetLeft:       1,
		InsetRight:      1,
		VerticalPadding: 0,
		SectionPadding:  1,
		MaxHeaderLines:  8,
		MaxBodyBytes:    4096,
		MaxBodyLines:    24,
	}
}

// Metrics is the geometry of one record at one container width.
type Metrics struct {
	RecordID       string
	Revision       uint64
	ContainerWidth int
	CellHeight     int
	CellWidth      int
}

// Row pairs a record with its metrics.
type Row struct {
	Record  record.Record
	Metrics Metrics
}

// Source is what a display adapter pulls rows from.
type Source interface {
	VisibleRecords(containerWidth int) []Row
}

// maxWidthsPerRecord bounds how many container widths are remembered for
// one revision, so a window being dragged does not grow the cache.
const maxWidthsPerRecord = 8

type cacheEntry struct {
	revision uint64
	heights  map[int]int
}

// ViewModel derives layout metrics for records. It is safe for concurrent use.
type ViewModel struct {
	records  Records
	measurer Measurer
	cfg      Config

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

// New creates a view model. If records can report evictions, the view
// model subscribes and drops cache entries of evicted records.
func New(records Records, measurer Measurer, cfg Config) *ViewModel {
	if cfg.MinCellHeight < 0 {
		cfg.MinCellHeight = 0
	}
	if cfg.MaxCellHeight > 0 && cfg.MaxCellHeight < cfg.MinCellHeight {
		cfg.MaxCellHeight = cfg.MinCellHeight
	}
	vm := &ViewModel{
		records:  records,
		measurer: measurer,
		cfg:      cfg,
		cache:    make(map[string]*cacheEntry),
	}
	if n, ok := records.(evictNotifier); ok {
		n.OnEvict(vm.Forget)
	}
	return vm
}

// Config returns the view model's configuration.
func (vm *ViewModel) Config() Config {
	return vm.cfg
}

// Layout returns the metrics for the record with the given id.
func (vm *ViewModel) Layout(id string, containerWidth int) (Metrics, error) {
	rev, ok := vm.records.Revision(id)
	if !ok {
		vm.Forget([]string{id})
		return Metrics{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if h, ok := vm.cached(id, rev, containerWidth); ok {
		return vm.metrics(id, rev, containerWidth, h), nil
	}

	rec, ok := vm.records.Get(id)
	if !ok {
		vm.Forget([]string{id})
		return Metrics{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return vm.layoutRecord(rec, containerWidth), nil
}

// VisibleRecords returns every stored record in insertion order with its
// metrics. Records evicted while the rows are built are simply absent.
func (vm *ViewModel) VisibleRecords(containerWidth int) []Row {
	recs := vm.records.Snapshot()
	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, Row{Record: rec, Metrics: vm.layoutRecord(rec, containerWidth)})
	}
	return rows
}

// CellWidth returns the content width for a container width.
func (vm *ViewModel) CellWidth(containerWidth int) int {
	w := containerWidth - vm.cfg.InsetLeft - vm.cfg.InsetRight
	if w < 0 {
		return 0
	}
	return w
}

// Forget drops cached metrics for ids.
func (vm *ViewModel) Forget(ids []string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for _, id := range ids {
		delete(vm.cache, id)
	}
}

// Prune drops cached metrics of records that are no longer stored and
// returns how many were dropped.
func (vm *ViewModel) Prune() int {
	vm.mu.Lock()
	ids := make([]string, 0, len(vm.cache))
	for id := range vm.cache {
		ids = append(ids, id)
	}
	vm.mu.Unlock()

	var gone []string
	for _, id := range ids {
		if _, ok := vm.records.Revision(id); !ok {
			gone = append(gone, id)
		}
	}
	vm.Forget(gone)
	return len(gone)
}

// CacheLen returns the number of records with cached metrics.
func (vm *ViewModel) CacheLen() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return len(vm.cache)
}

func (vm *ViewModel) layoutRecord(rec record.Record, containerWidth int) Metrics {
	if h, ok := vm.cached(rec.ID, rec.Revision, containerWidth); ok {
		return vm.metrics(rec.ID, rec.Revision, containerWidth, h)
	}
	// Measured without holding vm.mu.
	h := vm.measureHeight(rec, vm.CellWidth(containerWidth))
	vm.remember(rec.ID, rec.Revision, containerWidth, h)
	return vm.metrics(rec.ID, rec.Revision, containerWidth, h)
}

func (vm *ViewModel) measureHeight(rec record.Record, cellWidth int) int {
	width := cellWidth
	if width < 1 {
		width = 1
	}

	regions := vm.Compose(rec)
	h := 2 * vm.cfg.VerticalPadding
	for i, r := range regions {
		if i > 0 {
			h += vm.cfg.SectionPadding
		}
		h += vm.measurer.Measure(r.Text, width, r.Style)
	}

	if h < vm.cfg.MinCellHeight {
		h = vm.cfg.MinCellHeight
	}
	if vm.cfg.MaxCellHeight > 0 && h > vm.cfg.MaxCellHeight {
		h = vm.cfg.MaxCellHeight
	}
	return h
}

func (vm *ViewModel) metrics(id string, rev uint64, containerWidth, height int) Metrics {
	return Metrics{
		RecordID:       id,
		Revision:       rev,
		ContainerWidth: containerWidth,
		CellHeight:     height,
		CellWidth:      vm.CellWidth(containerWidth),
	}
}

func (vm *ViewModel) cached(id string, rev uint64, width int) (int, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	e, ok := vm.cache[id]
	if !ok || e.revision != rev {
		return 0, false
	}
	h, ok := e.heights[width]
	return h, ok
}

// remember records a computed height. A result computed from an older
// revision than the cached one is discarded, and so is one for a record
// evicted while it was being measured.
func (vm *ViewModel) remember(id string, rev uint64, width, height int) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	// Evictions remove the record before calling Forget, which waits on
	// vm.mu. A record still present here is forgotten later if evicted.
	if _, ok := vm.records.Revision(id); !ok {
		delete(vm.cache, id)
		return
	}

	e, ok := vm.cache[id]
	switch {
	case !ok || e.revision < rev:
		vm.cache[id] = &cacheEntry{revision: rev, heights: map[int]int{width: height}}
	case e.revision == rev:
		if len(e.heights) >= maxWidthsPerRecord {
			clear(e.heights)
		}
		e.heights[width] = height
	}
}
