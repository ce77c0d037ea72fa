package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/netscope/internal/record"
)

// DefaultMaxBodyBytes caps how much of each body is captured.
const DefaultMaxBodyBytes = 64 << 10

// ErrBodyNotRead records a response whose body was closed before the
// length it declared had been read.
var ErrBodyNotRead = errors.New("response body closed before it was fully read")

// Updater is implemented by sinks that accept in-flight changes.
type Updater interface {
	Update(id string, mutators ...record.Mutator)
}

// Transport is an http.RoundTripper that reports every exchange to a Sink.
// Bodies are captured up to MaxBodyBytes; the caller still receives the
// complete, unmodified streams.
//
// The response is reported when the caller reaches EOF, hits a read error
// or closes the body. Closing early fails the record with ErrBodyNotRead
// when the response declared a Content-Length; a body of unknown length is
// reported with whatever the caller had read.
type Transport struct {
	Base         http.RoundTripper // defaults to http.DefaultTransport
	Sink         Sink
	MaxBodyBytes int64

	NewID func() string    // defaults to uuid.NewString
	Now   func() time.Time // defaults to time.Now
}

// NewTransport wraps base and reports into sink.
func NewTransport(base http.RoundTripper, sink Sink) *Transport {
	return &Transport{Base: base, Sink: sink}
}

// Client returns an http.Client using t.
func (t *Transport) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	id := t.newID()
	limit := t.limit()

	var reqBody []byte
	if req.Body != nil && req.Body != http.NoBody {
		captured, body, err := captureRequestBody(req, limit)
		if err != nil {
			t.Sink.OnRequestStart(id, req.Method, req.URL.String(), req.Header, nil, t.now())
			t.Sink.OnRequestFailed(id, err, t.now())
			return nil, err
		}
		reqBody = captured
		req = req.Clone(req.Context())
		req.Body = body
	}

	t.Sink.OnRequestStart(id, req.Method, req.URL.String(), req.Header, reqBody, t.now())

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		t.Sink.OnRequestFailed(id, err, t.now())
		return nil, err
	}

	if u, ok := t.Sink.(Updater); ok {
		u.Update(id, record.SetStatus(resp.StatusCode), record.SetResponseHeaders(resp.Header))
	}

	expected := resp.ContentLength
	if resp.Body == http.NoBody {
		expected = 0
	}
	resp.Body = &teeBody{
		rc:       resp.Body,
		limit:    limit,
		expected: expected,
		status:   resp.StatusCode,
		headers:  resp.Header.Clone(),
		report: func(status int, headers http.Header, body []byte, readErr error) {
			if readErr != nil {
				t.Sink.OnRequestFailed(id, readErr, t.now())
				return
			}
			t.Sink.OnResponse(id, status, headers, body, t.now())
		},
	}
	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) limit() int64 {
	if t.MaxBodyBytes > 0 {
		return t.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

func (t *Transport) newID() string {
	if t.NewID != nil {
		return t.NewID()
	}
	return uuid.NewString()
}

func (t *Transport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// captureRequestBody copies up to limit bytes of the request body and
// returns a replacement body that yields the full original stream.
func captureRequestBody(req *http.Request, limit int64) ([]byte, io.ReadCloser, error) {
	head, err := io.ReadAll(io.LimitReader(req.Body, limit))
	if err != nil {
		req.Body.Close()
		return nil, nil, err
	}
	body := struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), req.Body), req.Body}
	return head, body, nil
}

// teeBody captures a response body as the caller reads it and reports
// once, at EOF, on a read error or on Close.
type teeBody struct {
	rc       io.ReadCloser
	limit    int64
	expected int64 // declared length, -1 when unknown
	read     int64
	status   int
	headers  http.Header
	buf      bytes.Buffer
	once     sync.Once
	report   func(status int, headers http.Header, body []byte, err error)
}

func (b *teeBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	b.read += int64(n)
	if n > 0 {
		if room := b.limit - int64(b.buf.Len()); room > 0 {
			if int64(n) < room {
				room = int64(n)
			}
			b.buf.Write(p[:room])
		}
	}
	switch {
	case err == io.EOF:
		b.finish(nil)
	case err != nil:
		b.finish(err)
	}
	return n, err
}

func (b *teeBody) Close() error {
	err := b.rc.Close()
	if b.expected > 0 && b.read < b.expected {
		b.finish(fmt.Errorf("%w: read %d of %d bytes", ErrBodyNotRead, b.read, b.expected))
	} else {
		b.finish(nil)
	}
	return err
}

func (b *teeBody) finish(err error) {
	b.once.Do(func() {
		b.report(b.status, b.headers, b.buf.Bytes(), err)
	})
}
