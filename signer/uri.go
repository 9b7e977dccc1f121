package signer

import (
	"net/url"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// isUnreserved reports whether c is an RFC 3986 unreserved character.
func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

// Escape percent-encodes every byte of s that is neither RFC 3986
// unreserved nor listed in safe. Encoding uses upper-case hex and never
// turns a space into '+'.
func Escape(s, safe string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) && strings.IndexByte(safe, s[i]) < 0 {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || strings.IndexByte(safe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

// EscapePath encodes a decoded resource path once, keeping '/' separators.
func EscapePath(p string) string {
	return Escape(p, "/")
}

// EscapeSigV4Query encodes a SigV4 query name or value: everything but
// unreserved characters, '/' included.
func EscapeSigV4Query(s string) string {
	return Escape(s, "")
}

// resourceURL joins endpoint and the decoded path segments into a URL whose
// path is encoded exactly once.
func resourceURL(endpoint string, segments ...string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, err
	}
	decoded := u.Path
	encoded := u.EscapedPath()
	for _, seg := range segments {
		decoded += "/" + seg
		encoded += "/" + EscapePath(seg)
	}
	u.Path = decoded
	u.RawPath = encoded
	return u, nil
}

// GetURIPath returns the URI path from the URL, already escaped.
// Reference: AWS SDK v4 signer internal/v4/util.go GetURIPath
func GetURIPath(u *url.URL) string {
	var uriPath string

	if len(u.Opaque) > 0 {
		const schemeSep, pathSep, queryStart = "//", "/", "?"
		opaque := u.Opaque

		if idx := strings.Index(opaque, queryStart); idx >= 0 {
			opaque = opaque[:idx]
		}
		if strings.Index(opaque, schemeSep) == 0 {
			opaque = opaque[len(schemeSep):]
		}
		if idx := strings.Index(opaque, pathSep); idx >= 0 {
			uriPath = opaque[idx:]
		}
	} else {
		uriPath = u.EscapedPath()
	}

	if len(uriPath) == 0 {
		uriPath = "/"
	}
	return uriPath
}

// canonicalHost returns u's host with the scheme's default port removed.
// Reference: AWS SDK v4 signer internal/v4/host.go SanitizeHostForHeader
func canonicalHost(u *url.URL) string {
	host := u.Host
	if port := PortOnly(host); port != "" && IsDefaultPort(u.Scheme, port) {
		return StripPort(host)
	}
	return host
}

// StripPort removes the port from a host:port string. IPv6 literals keep
// their brackets, matching the Host header net/http sends.
func StripPort(hostport string) string {
	colon := strings.IndexByte(hostport, ':')
	if colon == -1 {
		return hostport
	}
	if i := strings.IndexByte(hostport, ']'); i != -1 {
		return hostport[:i+1]
	}
	return hostport[:colon]
}

// PortOnly returns the port part of a host:port string.
func PortOnly(hostport string) string {
	colon := strings.IndexByte(hostport, ':')
	if colon == -1 {
		return ""
	}
	if i := strings.Index(hostport, "]:"); i != -1 {
		return hostport[i+len("]:"):]
	}
	if strings.Contains(hostport, "]") {
		return ""
	}
	return hostport[colon+len(":"):]
}

// IsDefaultPort checks if port is the default for the scheme.
func IsDefaultPort(scheme, port string) bool {
	if port == "" {
		return true
	}
	lowerScheme := strings.ToLower(scheme)
	return (lowerScheme == "http" && port == "80") ||
		(lowerScheme == "https" && port == "443")
}
