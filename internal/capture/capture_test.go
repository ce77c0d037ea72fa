package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/netscope/internal/logging"
	"github.com/sadopc/netscope/internal/store"
)

func newSink(t *testing.T, retention int) (*StoreSink, *store.Store, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := logging.New(logging.Config{Level: slog.LevelDebug, Output: &logs})
	s := store.New(retention)
	return NewStoreSink(s, logger), s, &logs
}

func TestStoreSink_Lifecycle(t *testing.T) {
	sink, s, _ := newSink(t, 10)
	start := time.Now()

	sink.OnRequestStart("r1", "get", "https://api.example.com/a", http.Header{"Accept": {"*/*"}}, nil, start)
	sink.OnResponse("r1", 200, http.Header{"Content-Type": {"text/plain"}}, []byte("ok"), start.Add(time.Second))

	r, ok := s.Get("r1")
	if !ok {
		t.Fatal("record not stored")
	}
	if r.Method != "GET" || r.StatusCode != 200 || string(r.ResponseBody) != "ok" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.Duration() != time.Second {
		t.Fatalf("Duration() = %v, want 1s", r.Duration())
	}
}

func TestStoreSink_DuplicateIsLoggedAndSkipped(t *testing.T) {
	sink, s, logs := newSink(t, 10)
	now := time.Now()

	sink.OnRequestStart("r1", "GET", "/a", nil, nil, now)
	sink.OnRequestStart("r1", "POST", "/b", nil, nil, now)

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if r, _ := s.Get("r1"); r.Method != "GET" {
		t.Fatalf("duplicate overwrote record: %+v", r)
	}
	if !strings.Contains(logs.String(), "duplicate record id") {
		t.Fatalf("duplicate not logged: %s", logs.String())
	}
}

func TestStoreSink_UnknownAndFinished(t *testing.T) {
	sink, s, logs := newSink(t, 10)
	now := time.Now()

	sink.OnResponse("ghost", 200, nil, nil, now)
	sink.OnRequestFailed("ghost", errors.New("boom"), now)

	sink.OnRequestStart("r1", "GET", "/a", nil, nil, now)
	sink.OnResponse("r1", 200, nil, nil, now)
	sink.OnResponse("r1", 500, nil, nil, now)
	sink.Update("r1")

	if r, _ := s.Get("r1"); r.StatusCode != 200 {
		t.Fatalf("finished record changed: %+v", r)
	}
	if !strings.Contains(logs.String(), "already completed") {
		t.Fatalf("late response not logged: %s", logs.String())
	}
}

func TestStoreSink_Failure(t *testing.T) {
	sink, s, _ := newSink(t, 10)
	now := time.Now()

	sink.OnRequestStart("r1", "GET", "/a", nil, nil, now)
	sink.OnRequestFailed("r1", errors.New("timeout"), now.Add(time.Second))

	r, _ := s.Get("r1")
	if !r.Failed() || r.Error != "timeout" {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestTransport_CapturesExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"echo":%q}`, body)
	}))
	defer srv.Close()

	sink, s, _ := newSink(t, 10)
	tr := NewTransport(nil, sink)
	tr.NewID = func() string { return "fixed" }

	req, _ := http.NewRequest("POST", srv.URL+"/users", strings.NewReader("payload"))
	req.Header.Set("X-Test", "1")
	resp, err := tr.Client(5 * time.Second).Do(req)
	if err != nil {
		t.Fatal(err)
	}

	r, _ := s.Get("fixed")
	if !r.InFlight() || r.StatusCode != http.StatusCreated {
		t.Fatalf("headers not reported before body read: %+v", r)
	}

	got, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(got) != `{"echo":"payload"}` {
		t.Fatalf("caller body = %q", got)
	}

	r, _ = s.Get("fixed")
	if !r.Completed() {
		t.Fatal("record not completed after body read")
	}
	if string(r.RequestBody) != "payload" || r.RequestHeaders.Get("X-Test") != "1" {
		t.Errorf("request side not captured: %+v", r)
	}
	if string(r.ResponseBody) != `{"echo":"payload"}` || r.ContentType() != "application/json" {
		t.Errorf("response side not captured: %+v", r)
	}
}

func TestTransport_BodyLimit(t *testing.T) {
	big := strings.Repeat("z", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, big)
	}))
	defer srv.Close()

	sink, s, _ := newSink(t, 10)
	tr := NewTransport(nil, sink)
	tr.MaxBodyBytes = 100
	tr.NewID = func() string { return "r1" }

	resp, err := tr.Client(5 * time.Second).Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if len(got) != len(big) {
		t.Fatalf("caller received %d bytes, want %d", len(got), len(big))
	}
	r, _ := s.Get("r1")
	if len(r.ResponseBody) != 100 {
		t.Fatalf("captured %d bytes, want 100", len(r.ResponseBody))
	}
}

func TestTransport_CloseWithoutReading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink, s, _ := newSink(t, 10)
	tr := NewTransport(nil, sink)
	tr.NewID = func() string { return "r1" }

	resp, err := tr.Client(5 * time.Second).Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	resp.Body.Close()

	r, _ := s.Get("r1")
	if !r.Completed() || r.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestTransport_EarlyCloseWithKnownLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		io.WriteString(w, strings.Repeat("a", 1000))
	}))
	defer srv.Close()

	sink, s, _ := newSink(t, 10)
	tr := NewTransport(nil, sink)
	tr.NewID = func() string { return "r1" }

	resp, err := tr.Client(5 * time.Second).Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadFull(resp.Body, make([]byte, 10)); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	r, _ := s.Get("r1")
	if !r.Failed() || !strings.Contains(r.Error, ErrBodyNotRead.Error()) {
		t.Fatalf("early close should fail the record: %+v", r)
	}
	if !strings.Contains(r.Error, "read 10 of 1000 bytes") {
		t.Errorf("Error = %q, want byte counts", r.Error)
	}
}

func TestTransport_EarlyCloseWithUnknownLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "hello")
		w.(http.Flusher).Flush()
		io.WriteString(w, " world")
	}))
	defer srv.Close()

	sink, s, _ := newSink(t, 10)
	tr := NewTransport(nil, sink)
	tr.NewID = func() string { return "r1" }

	resp, err := tr.Client(5 * time.Second).Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if resp.ContentLength != -1 {
		t.Fatalf("ContentLength = %d, want unknown", resp.ContentLength)
	}
	if _, err := io.ReadFull(resp.Body, make([]byte, 5)); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	r, _ := s.Get("r1")
	if !r.Completed() || r.Failed() || string(r.ResponseBody) != "hello" {
		t.Fatalf("unknown-length body should complete with what was read: %+v", r)
	}
}

func TestTransport_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sink, s, _ := newSink(t, 10)
	tr := NewTransport(nil, sink)
	tr.NewID = func() string { return "r1" }

	if _, err := tr.Client(time.Second).Get(url); err == nil {
		t.Fatal("expected connection error")
	}
	r, ok := s.Get("r1")
	if !ok || !r.Failed() {
		t.Fatalf("failure not recorded: %+v", r)
	}
}

func TestTransport_ConcurrentRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.URL.Path)
	}))
	defer srv.Close()

	sink, s, _ := newSink(t, 100)
	client := NewTransport(nil, sink).Client(5 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(fmt.Sprintf("%s/%d", srv.URL, i))
			if err != nil {
				t.Error(err)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	if s.Len() != 20 {
		t.Fatalf("Len() = %d, want 20", s.Len())
	}
	for _, r := range s.Snapshot() {
		if !r.Completed() || r.StatusCode != 200 {
			t.Errorf("record %s not completed: %+v", r.ID, r)
		}
	}
}
