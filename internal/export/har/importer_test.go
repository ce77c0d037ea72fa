package har

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/netscope/internal/record"
	"github.com/sadopc/netscope/internal/store"
)

func TestReplay_RoundTrip(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pending := record.New("p1", "GET", "https://api.example.com/slow", nil, nil, start)
	failed := record.New("f1", "GET", "https://down.example.com", nil, nil, start)
	failed.CompletedAt = start.Add(time.Second)
	failed.Error = "connection refused"
	binary := completed("b1")
	binary.ResponseBody = []byte{0xff, 0xfe, 0x00}

	var buf bytes.Buffer
	if err := Write(&buf, []record.Record{completed("c1"), pending, failed, binary}, "test"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	doc, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	s := store.New(10)
	n, err := Replay(doc, s)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if n != 4 {
		t.Fatalf("replayed %d, want 4", n)
	}

	got := s.Snapshot()
	if got[0].StatusCode != 201 || string(got[0].ResponseBody) != `{"id":1}` {
		t.Errorf("completed = %d %q", got[0].StatusCode, got[0].ResponseBody)
	}
	if got[0].Duration() != 250*time.Millisecond {
		t.Errorf("duration = %v, want 250ms", got[0].Duration())
	}
	if got[0].RequestHeaders.Get("Content-Type") != "application/json" {
		t.Errorf("request headers = %v", got[0].RequestHeaders)
	}
	if string(got[0].RequestBody) != `{"name":"x"}` {
		t.Errorf("request body = %q", got[0].RequestBody)
	}
	if !got[1].InFlight() {
		t.Error("pending entry should stay in flight")
	}
	if !got[2].Failed() || got[2].Error != "connection refused" {
		t.Errorf("failed entry = %+v", got[2])
	}
	if !bytes.Equal(got[3].ResponseBody, []byte{0xff, 0xfe, 0x00}) {
		t.Errorf("binary body = %x", got[3].ResponseBody)
	}
}

func TestReplay_SkipsPseudoHeaders(t *testing.T) {
	doc := HAR{Log: HARLog{Entries: []HAREntry{{
		StartedDateTime: "2026-01-02T03:04:05Z",
		Request: HARRequest{
			Method:  "get",
			URL:     "https://example.com",
			Headers: []HARHeader{{Name: ":authority", Value: "example.com"}, {Name: "Accept", Value: "*/*"}},
		},
		Response: HARResponse{Status: 204},
	}}}}

	s := store.New(10)
	if _, err := Replay(doc, s); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	rec := s.Snapshot()[0]
	if rec.Method != "GET" {
		t.Errorf("Method = %q, want GET", rec.Method)
	}
	if len(rec.RequestHeaders) != 1 || rec.RequestHeaders.Get("Accept") != "*/*" {
		t.Errorf("headers = %v", rec.RequestHeaders)
	}
}

func TestReplay_NoStatusWithoutComment(t *testing.T) {
	doc := HAR{Log: HARLog{Entries: []HAREntry{{
		StartedDateTime: "2026-01-02T03:04:05Z",
		Request:         HARRequest{Method: "GET", URL: "https://example.com"},
	}}}}

	s := store.New(10)
	if _, err := Replay(doc, s); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if rec := s.Snapshot()[0]; rec.Error != "no response" {
		t.Errorf("Error = %q, want no response", rec.Error)
	}
}

func TestReplay_BadTimestamp(t *testing.T) {
	doc := HAR{Log: HARLog{Entries: []HAREntry{{StartedDateTime: "yesterday"}}}}

	n, err := Replay(doc, store.New(10))
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 0 {
		t.Errorf("replayed %d, want 0", n)
	}
}

type failingRecorder struct{}

func (failingRecorder) Append(record.Record) (string, error) { return "", errors.New("full") }
func (failingRecorder) Complete(string, int, http.Header, []byte, time.Time) error {
	return nil
}
func (failingRecorder) Fail(string, error, time.Time) error { return nil }

func TestReplay_AppendError(t *testing.T) {
	doc := HAR{Log: HARLog{Entries: []HAREntry{{StartedDateTime: "2026-01-02T03:04:05Z"}}}}
	if _, err := Replay(doc, failingRecorder{}); err == nil || !strings.Contains(err.Error(), "full") {
		t.Errorf("err = %v, want append error", err)
	}
}

func TestRead_InvalidJSON(t *testing.T) {
	if _, err := Read(strings.NewReader("{")); err == nil {
		t.Fatal("expected parse error")
	}
}
