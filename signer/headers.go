package signer

import (
	"net/textproto"
	"sort"
	"strings"
)

// Rule defines an interface for header validation rules.
// Reference: AWS SDK v4 signer internal/v4/header_rules.go
type Rule interface {
	IsValid(value string) bool
}

// Rules is satisfied when any member rule is.
type Rules []Rule

func (r Rules) IsValid(value string) bool {
	for _, rule := range r {
		if rule.IsValid(value) {
			return true
		}
	}
	return false
}

// MapRule matches canonical header names exactly.
type MapRule map[string]struct{}

func (m MapRule) IsValid(value string) bool {
	_, ok := m[value]
	return ok
}

// ExcludeList inverts the inner rule.
type ExcludeList struct {
	Rule
}

func (e ExcludeList) IsValid(value string) bool {
	return !e.Rule.IsValid(value)
}

// Patterns matches case-insensitive name prefixes.
type Patterns []string

func (p Patterns) IsValid(value string) bool {
	for _, pattern := range p {
		if len(value) >= len(pattern) && strings.EqualFold(value[:len(pattern)], pattern) {
			return true
		}
	}
	return false
}

// InclusiveRules requires all rules to be valid.
type InclusiveRules []Rule

func (r InclusiveRules) IsValid(value string) bool {
	for _, rule := range r {
		if !rule.IsValid(value) {
			return false
		}
	}
	return true
}

// IgnoredHeaders lists headers that are never signed.
var IgnoredHeaders = Rules{
	ExcludeList{
		MapRule{
			AuthorizationHeader: struct{}{},
			"User-Agent":        struct{}{},
			"X-Amzn-Trace-Id":   struct{}{},
			"Expect":            struct{}{},
			"Transfer-Encoding": struct{}{},
		},
	},
}

// RequiredSignedHeaders lists headers S3 requires to stay signed headers
// rather than being hoisted into a presigned query.
// Reference: AWS SDK v4 signer internal/v4/headers.go RequiredSignedHeaders
var RequiredSignedHeaders = Rules{
	MapRule{
		"Cache-Control":                   struct{}{},
		"Content-Disposition":             struct{}{},
		"Content-Encoding":                struct{}{},
		"Content-Language":                struct{}{},
		"Content-Md5":                     struct{}{},
		"Content-Type":                    struct{}{},
		"Expires":                         struct{}{},
		"If-Match":                        struct{}{},
		"If-Modified-Since":               struct{}{},
		"If-None-Match":                   struct{}{},
		"If-Unmodified-Since":             struct{}{},
		"Range":                           struct{}{},
		"X-Amz-Acl":                       struct{}{},
		"X-Amz-Content-Sha256":            struct{}{},
		"X-Amz-Grant-Full-Control":        struct{}{},
		"X-Amz-Grant-Read":                struct{}{},
		"X-Amz-Grant-Read-Acp":            struct{}{},
		"X-Amz-Grant-Write":               struct{}{},
		"X-Amz-Grant-Write-Acp":           struct{}{},
		"X-Amz-Metadata-Directive":        struct{}{},
		"X-Amz-Mfa":                       struct{}{},
		"X-Amz-Server-Side-Encryption":    struct{}{},
		"X-Amz-Storage-Class":             struct{}{},
		"X-Amz-Tagging":                   struct{}{},
		"X-Amz-Website-Redirect-Location": struct{}{},
	},
	Patterns{"X-Amz-Server-Side-Encryption-"},
	Patterns{"X-Amz-Copy-Source"},
	Patterns{"X-Amz-Object-Lock-"},
	Patterns{"X-Amz-Meta-"},
}

// AllowedQueryHoisting selects the x-amz-* headers a presigned URL carries
// in its query instead of as signed headers.
var AllowedQueryHoisting = InclusiveRules{
	ExcludeList{RequiredSignedHeaders},
	Patterns{"X-Amz-"},
}

// CanonicalizeHeaderKey returns the canonical MIME form of a header key.
func CanonicalizeHeaderKey(key string) string {
	return textproto.CanonicalMIMEHeaderKey(key)
}

// StripExcessSpaces trims s and collapses runs of spaces into one.
func StripExcessSpaces(s string) string {
	s = strings.Trim(s, " ")
	if !strings.Contains(s, "  ") {
		return s
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' && i > 0 && s[i-1] == ' ' {
			continue
		}
		buf = append(buf, s[i])
	}
	return string(buf)
}

// canonicalHeaders is the signed header set of one request.
type canonicalHeaders struct {
	// names are lower-case and sorted.
	names  []string
	values map[string][]string
}

// newCanonicalHeaders collects host plus every header rule accepts.
// Reference: AWS SDK v4 signer v4.go buildCanonicalHeaders
func newCanonicalHeaders(host string, rule Rule, headers Headers) *canonicalHeaders {
	ch := &canonicalHeaders{
		names:  []string{"host"},
		values: map[string][]string{"host": {host}},
	}
	for _, hdr := range headers {
		key := CanonicalizeHeaderKey(hdr.Name)
		if key == "Host" || !rule.IsValid(key) {
			continue
		}
		lower := strings.ToLower(hdr.Name)
		if _, ok := ch.values[lower]; !ok {
			ch.names = append(ch.names, lower)
		}
		ch.values[lower] = append(ch.values[lower], hdr.Value)
	}
	sort.Strings(ch.names)
	return ch
}

// signedHeaders returns "host;x-amz-date;...".
func (ch *canonicalHeaders) signedHeaders() string {
	return strings.Join(ch.names, ";")
}

// String renders one "name:v1,v2\n" line per header.
func (ch *canonicalHeaders) String() string {
	var b strings.Builder
	for _, name := range ch.names {
		b.WriteString(name)
		b.WriteByte(':')
		for i, v := range ch.values[name] {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(StripExcessSpaces(v))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
