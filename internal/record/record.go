package record

import (
	"bytes"
	"net/http"
	"strings"
	"time"
)

// Record represents a single captured API call.
//
// A Record handed out by the store is a private copy. Changing it has no
// effect on the stored value; use the store's Update with Mutators instead.
type Record struct {
	ID  string
	Seq uint64 // insertion sequence, assigned by the store

	StartedAt   time.Time
	CompletedAt time.Time // zero while in flight

	Method         string
	URL            string
	RequestHeaders http.Header
	RequestBody    []byte

	StatusCode      int // 0 until a response arrives
	ResponseHeaders http.Header
	ResponseBody    []byte
	Error           string // set when the call failed instead of responding

	Revision uint64
}

// New creates an in-flight record.
func New(id, method, url string, headers http.Header, body []byte, startedAt time.Time) Record {
	return Record{
		ID:             id,
		StartedAt:      startedAt,
		Method:         strings.ToUpper(method),
		URL:            url,
		RequestHeaders: headers.Clone(),
		RequestBody:    cloneBytes(body),
	}
}

// Completed reports whether completion has been recorded.
func (r Record) Completed() bool {
	return !r.CompletedAt.IsZero()
}

// InFlight reports whether the call is still waiting for a response.
func (r Record) InFlight() bool {
	return r.CompletedAt.IsZero()
}

// Failed reports whether the call completed with an error.
func (r Record) Failed() bool {
	return r.Completed() && r.Error != ""
}

// Duration returns the elapsed time of a completed call, or 0.
func (r Record) Duration() time.Duration {
	if r.InFlight() || r.StartedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// ContentType returns the response content type when completed, the
// request content type otherwise.
func (r Record) ContentType() string {
	if r.Completed() && r.ResponseHeaders != nil {
		if ct := r.ResponseHeaders.Get("Content-Type"); ct != "" {
			return ct
		}
	}
	return r.RequestHeaders.Get("Content-Type")
}

// Size returns the response body size, or the request body size while in flight.
func (r Record) Size() int64 {
	if r.Completed() {
		return int64(len(r.ResponseBody))
	}
	return int64(len(r.RequestBody))
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	c := r
	c.RequestHeaders = r.RequestHeaders.Clone()
	c.RequestBody = cloneBytes(r.RequestBody)
	c.ResponseHeaders = r.ResponseHeaders.Clone()
	c.ResponseBody = cloneBytes(r.ResponseBody)
	return c
}

// SameCompletion reports whether r was completed with exactly the given
// response values.
func (r Record) SameCompletion(status int, headers http.Header, body []byte, errMsg string, completedAt time.Time) bool {
	if !r.Completed() {
		return false
	}
	return r.StatusCode == status &&
		r.Error == errMsg &&
		r.CompletedAt.Equal(completedAt) &&
		bytes.Equal(r.ResponseBody, body) &&
		headersEqual(r.ResponseHeaders, headers)
}

func headersEqual(a, b http.Header) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	return true
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
