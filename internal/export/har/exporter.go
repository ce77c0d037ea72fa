package har

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/sadopc/netscope/internal/record"
)

// HAR represents the HAR 1.2 format for export.
type HAR struct {
	Log HARLog `json:"log"`
}

// HARLog is the top-level log object.
type HARLog struct {
	Version string     `json:"version"`
	Creator HARCreator `json:"creator"`
	Entries []HAREntry `json:"entries"`
}

// HARCreator identifies the tool that created the HAR.
type HARCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HAREntry represents a single request/response pair.
type HAREntry struct {
	StartedDateTime string      `json:"startedDateTime"`
	Time            float64     `json:"time"`
	Request         HARRequest  `json:"request"`
	Response        HARResponse `json:"response"`
	Timings         HARTimings  `json:"timings"`
	Comment         string      `json:"comment,omitempty"`
}

// HARRequest is the request portion of an entry.
type HARRequest struct {
	Method      string       `json:"method"`
	URL         string       `json:"url"`
	HTTPVersion string       `json:"httpVersion"`
	Headers     []HARHeader  `json:"headers"`
	QueryString []HARQuery   `json:"queryString"`
	PostData    *HARPostData `json:"postData,omitempty"`
	HeadersSize int          `json:"headersSize"`
	BodySize    int          `json:"bodySize"`
}

// HARResponse is the response portion of an entry.
type HARResponse struct {
	Status      int         `json:"status"`
	StatusText  string      `json:"statusText"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []HARHeader `json:"headers"`
	Content     HARContent  `json:"content"`
	RedirectURL string      `json:"redirectURL"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

// HARHeader is a name/value pair for headers.
type HARHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HARQuery is a name/value pair for query string parameters.
type HARQuery struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HARPostData is the body of a request.
type HARPostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// HARContent is the body of a response.
type HARContent struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// HARTimings holds timing info for an entry. Only the total wait is known
// for captured records.
type HARTimings struct {
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

// Export builds a HAR 1.2 document from records. In-flight records are
// exported with status 0 and a comment, as browsers do for pending calls.
func Export(records []record.Record, creatorVersion string) HAR {
	entries := make([]HAREntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, buildEntry(rec))
	}
	return HAR{
		Log: HARLog{
			Version: "1.2",
			Creator: HARCreator{Name: "netscope", Version: creatorVersion},
			Entries: entries,
		},
	}
}

// Write encodes records as indented HAR JSON to w.
func Write(w io.Writer, records []record.Record, creatorVersion string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Export(records, creatorVersion))
}

func buildEntry(rec record.Record) HAREntry {
	ms := float64(rec.Duration().Microseconds()) / 1000
	e := HAREntry{
		StartedDateTime: rec.StartedAt.UTC().Format(time.RFC3339Nano),
		Time:            ms,
		Request:         buildRequest(rec),
		Response:        buildResponse(rec),
		Timings:         HARTimings{Send: 0, Wait: ms, Receive: 0},
	}
	switch {
	case rec.InFlight():
		e.Comment = "pending"
	case rec.Failed():
		e.Comment = rec.Error
	}
	return e
}

func buildRequest(rec record.Record) HARRequest {
	req := HARRequest{
		Method:      rec.Method,
		URL:         rec.URL,
		HTTPVersion: "HTTP/1.1",
		Headers:     headerList(rec.RequestHeaders),
		QueryString: []HARQuery{},
		HeadersSize: -1,
		BodySize:    len(rec.RequestBody),
	}
	if u, err := url.Parse(rec.URL); err == nil {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range q[k] {
				req.QueryString = append(req.QueryString, HARQuery{Name: k, Value: v})
			}
		}
	}
	if len(rec.RequestBody) > 0 {
		mimeType := rec.RequestHeaders.Get("Content-Type")
		if mimeType == "" {
			mimeType = "text/plain"
		}
		req.PostData = &HARPostData{MimeType: mimeType, Text: string(rec.RequestBody)}
	}
	return req
}

func buildResponse(rec record.Record) HARResponse {
	resp := HARResponse{
		HTTPVersion: "HTTP/1.1",
		Headers:     []HARHeader{},
		HeadersSize: -1,
		BodySize:    -1,
	}
	if rec.InFlight() || rec.Failed() {
		return resp
	}

	resp.Status = rec.StatusCode
	resp.StatusText = http.StatusText(rec.StatusCode)
	resp.Headers = headerList(rec.ResponseHeaders)
	resp.RedirectURL = rec.ResponseHeaders.Get("Location")
	resp.BodySize = len(rec.ResponseBody)
	resp.Content = HARContent{
		Size:     len(rec.ResponseBody),
		MimeType: rec.ResponseHeaders.Get("Content-Type"),
	}
	if utf8.Valid(rec.ResponseBody) {
		resp.Content.Text = string(rec.ResponseBody)
	} else {
		resp.Content.Text = base64.StdEncoding.EncodeToString(rec.ResponseBody)
		resp.Content.Encoding = "base64"
	}
	return resp
}

func headerList(h http.Header) []HARHeader {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]HARHeader, 0, len(keys))
	for _, k := range keys {
		for _, v := range h[k] {
			out = append(out, HARHeader{Name: k, Value: v})
		}
	}
	return out
}
