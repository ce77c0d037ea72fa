// Package capture connects traffic producers to the record store.
package capture

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sadopc/netscope/internal/logging"
	"github.com/sadopc/netscope/internal/record"
	"github.com/sadopc/netscope/internal/store"
)

// Sink receives traffic as it happens. Implementations must be safe for
// concurrent use: callbacks arrive on whatever goroutine the network
// stack uses.
type Sink interface {
	OnRequestStart(id, method, url string, headers http.Header, body []byte, startedAt time.Time)
	OnResponse(id string, statusCode int, headers http.Header, body []byte, completedAt time.Time)
	OnRequestFailed(id string, err error, completedAt time.Time)
}

// StoreSink feeds a Store. Protocol violations (a repeated id, a response
// for an unknown or finished call) are logged and skipped.
type StoreSink struct {
	store  *store.Store
	logger *slog.Logger
}

// NewStoreSink creates a sink writing into s.
func NewStoreSink(s *store.Store, logger *slog.Logger) *StoreSink {
	if logger == nil {
		logger = logging.Nop()
	}
	return &StoreSink{store: s, logger: logger}
}

func (k *StoreSink) OnRequestStart(id, method, url string, headers http.Header, body []byte, startedAt time.Time) {
	_, err := k.store.Append(record.New(id, method, url, headers, body, startedAt))
	if err != nil {
		k.logger.Warn("skipping request start", "id", id, "method", method, "url", url, "error", err)
	}
}

func (k *StoreSink) OnResponse(id string, statusCode int, headers http.Header, body []byte, completedAt time.Time) {
	if err := k.store.Complete(id, statusCode, headers, body, completedAt); err != nil {
		k.skip("response", id, err)
	}
}

func (k *StoreSink) OnRequestFailed(id string, cause error, completedAt time.Time) {
	if err := k.store.Fail(id, cause, completedAt); err != nil {
		k.skip("failure", id, err)
	}
}

// Update forwards an in-flight change, such as response headers seen
// before the body has been read.
func (k *StoreSink) Update(id string, mutators ...record.Mutator) {
	if _, err := k.store.Update(id, mutators...); err != nil {
		k.skip("update", id, err)
	}
}

func (k *StoreSink) skip(what, id string, err error) {
	// A record evicted mid-flight is expected under load.
	if errors.Is(err, store.ErrNotFound) {
		k.logger.Debug("skipping "+what+" for evicted record", "id", id)
		return
	}
	k.logger.Warn("skipping "+what, "id", id, "error", err)
}
