package signer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// Header is one request header.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list. Names compare case-insensitively.
type Headers []Header

// Get returns the first value for name, or "".
func (h Headers) Get(name string) string {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value
		}
	}
	return ""
}

// Has reports whether name is present.
func (h Headers) Has(name string) bool {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return true
		}
	}
	return false
}

// Set replaces the first header named name, or appends it.
func (h *Headers) Set(name, value string) {
	for i, hdr := range *h {
		if strings.EqualFold(hdr.Name, name) {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Header{Name: name, Value: value})
}

// Clone returns a copy that shares no storage with h.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	return append(Headers(nil), h...)
}

// Sorted returns a copy ordered by lower-cased name. Equal names keep
// their relative order.
func (h Headers) Sorted() Headers {
	out := h.Clone()
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// HTTPHeader converts h to an http.Header.
func (h Headers) HTTPHeader() http.Header {
	out := make(http.Header, len(h))
	for _, hdr := range h {
		out.Add(hdr.Name, hdr.Value)
	}
	return out
}

// SignedRequest is the output of a signing call: everything a transport
// needs to send the request with no further secret exchange.
type SignedRequest struct {
	Method  string
	URL     string
	Headers Headers

	// ExpiresAt is when the signature stops being accepted.
	ExpiresAt SigningTime
}

// RequestLine returns "METHOD URL HTTP/1.1".
func (r *SignedRequest) RequestLine() string {
	return r.Method + " " + r.URL + " HTTP/1.1"
}

// NewHTTPRequest builds an *http.Request for r. Content-Length is carried
// on the request rather than in its header map.
func (r *SignedRequest) NewHTTPRequest(ctx context.Context, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, err
	}
	var headers Headers
	for _, hdr := range r.Headers {
		if strings.EqualFold(hdr.Name, ContentLengthHeader) {
			n, err := strconv.ParseInt(hdr.Value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: %w", ContentLengthHeader, hdr.Value, err)
			}
			req.ContentLength = n
			continue
		}
		headers = append(headers, hdr)
	}
	req.Header = headers.HTTPHeader()
	return req, nil
}
