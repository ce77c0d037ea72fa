package har

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/netscope/internal/record"
)

// Recorder receives replayed exchanges. *store.Store satisfies it.
type Recorder interface {
	Append(rec record.Record) (string, error)
	Complete(id string, statusCode int, headers http.Header, body []byte, completedAt time.Time) error
	Fail(id string, cause error, completedAt time.Time) error
}

// Read parses a HAR document.
func Read(r io.Reader) (HAR, error) {
	var h HAR
	if err := json.NewDecoder(r).Decode(&h); err != nil {
		return HAR{}, fmt.Errorf("parsing HAR: %w", err)
	}
	return h, nil
}

// Replay appends every entry of h to dst in file order and returns how
// many were recorded. Entries carrying the "pending" comment stay in
// flight; entries without a status are recorded as failed with the
// comment as the cause.
func Replay(h HAR, dst Recorder) (int, error) {
	n := 0
	for i, entry := range h.Log.Entries {
		if err := replayEntry(entry, dst); err != nil {
			return n, fmt.Errorf("entry %d: %w", i, err)
		}
		n++
	}
	return n, nil
}

func replayEntry(e HAREntry, dst Recorder) error {
	started, err := time.Parse(time.RFC3339Nano, e.StartedDateTime)
	if err != nil {
		return fmt.Errorf("parsing startedDateTime: %w", err)
	}

	var body []byte
	if e.Request.PostData != nil {
		body = []byte(e.Request.PostData.Text)
	}
	rec := record.New(uuid.NewString(), e.Request.Method, e.Request.URL, headerMap(e.Request.Headers), body, started)
	id, err := dst.Append(rec)
	if err != nil {
		return err
	}

	if e.Comment == "pending" {
		return nil
	}
	completed := started.Add(time.Duration(e.Time * float64(time.Millisecond)))
	if e.Response.Status == 0 {
		cause := e.Comment
		if cause == "" {
			cause = "no response"
		}
		return dst.Fail(id, errors.New(cause), completed)
	}

	respBody, err := contentBytes(e.Response.Content)
	if err != nil {
		return err
	}
	return dst.Complete(id, e.Response.Status, headerMap(e.Response.Headers), respBody, completed)
}

func contentBytes(c HARContent) ([]byte, error) {
	if c.Encoding == "base64" {
		b, err := base64.StdEncoding.DecodeString(c.Text)
		if err != nil {
			return nil, fmt.Errorf("decoding response content: %w", err)
		}
		return b, nil
	}
	return []byte(c.Text), nil
}

// headerMap skips HTTP/2 pseudo-headers.
func headerMap(list []HARHeader) http.Header {
	if len(list) == 0 {
		return nil
	}
	h := make(http.Header, len(list))
	for _, kv := range list {
		if strings.HasPrefix(kv.Name, ":") {
			continue
		}
		h.Add(kv.Name, kv.Value)
	}
	return h
}
