package record

import "net/http"

// Mutator changes fields of an in-flight record copy. The store bumps the
// revision and restores identity and completion fields after it runs.
type Mutator func(*Record)

// SetRequestHeaders replaces the request headers.
func SetRequestHeaders(h http.Header) Mutator {
	h = h.Clone()
	return func(r *Record) {
		r.RequestHeaders = h.Clone()
	}
}

// AddRequestHeader appends a single request header value.
func AddRequestHeader(key, value string) Mutator {
	return func(r *Record) {
		if r.RequestHeaders == nil {
			r.RequestHeaders = make(http.Header)
		}
		r.RequestHeaders.Add(key, value)
	}
}

// SetRequestBody replaces the request body.
func SetRequestBody(body []byte) Mutator {
	body = cloneBytes(body)
	return func(r *Record) {
		r.RequestBody = cloneBytes(body)
	}
}

// SetStatus records a status code seen before the body has finished.
func SetStatus(code int) Mutator {
	return func(r *Record) {
		r.StatusCode = code
	}
}

// SetResponseHeaders replaces the response headers.
func SetResponseHeaders(h http.Header) Mutator {
	h = h.Clone()
	return func(r *Record) {
		r.ResponseHeaders = h.Clone()
	}
}

// AppendResponseBody appends a chunk of a streamed response body.
func AppendResponseBody(chunk []byte) Mutator {
	chunk = cloneBytes(chunk)
	return func(r *Record) {
		r.ResponseBody = append(r.ResponseBody, chunk...)
	}
}
