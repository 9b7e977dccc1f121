package signer

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// AzureSAS signs blob operations as service SAS URLs: the signature and
// its parameters travel in the query string.
// Reference: Azure Storage REST API "Create a service SAS", version 2017-04-17.
type AzureSAS struct {
	// Endpoint is a blob endpoint template with one %s for the account.
	Endpoint string
	// Version is the signed storage service version (sv).
	Version string
}

// Canonicalize implements Canonicalizer. The field order is fixed by the
// service; unused fields stay as empty lines.
func (a AzureSAS) Canonicalize(in *SigningInput) (CanonicalString, error) {
	op := in.Operation
	if err := op.validateBlob(); err != nil {
		return CanonicalString{}, err
	}
	return JoinCanonical(
		in.Permission.String(),        // sp
		"",                            // st
		in.Window.ExpiresAt.ISO8601(), // se
		"/blob/"+in.Account+"/"+op.Container+"/"+op.Name,
		"",          // si
		"",          // sip
		"",          // spr
		a.version(), // sv
		"",          // rscc
		"",          // rscd
		"",          // rsce
		"",          // rscl
		"",          // rsct
	), nil
}

// Assemble implements Assembler.
func (a AzureSAS) Assemble(in *SigningInput, signature string) (*SignedRequest, error) {
	op := in.Operation
	u, err := resourceURL(azureEndpoint(a.Endpoint, in.Account), op.Container, op.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResource, err)
	}

	params := [][2]string{
		{AzureSASVersionKey, a.version()},
		{AzureSASExpiryKey, in.Window.ExpiresAt.ISO8601()},
		{AzureSASResourceKey, AzureBlobResource},
		{AzureSASPermissionKey, in.Permission.String()},
		{AzureSASSignatureKey, signature},
	}
	var q strings.Builder
	for i, p := range params {
		if i > 0 {
			q.WriteByte('&')
		}
		q.WriteString(p[0])
		q.WriteByte('=')
		q.WriteString(EscapeSASQuery(p[1]))
	}
	u.RawQuery = q.String()

	headers := azureContentHeaders(op)
	headers.Set(DateHeader, in.Window.SignedAt.RFC1123())

	return &SignedRequest{
		Method:    op.Kind.Method(),
		URL:       u.String(),
		Headers:   headers.Sorted(),
		ExpiresAt: in.Window.ExpiresAt,
	}, nil
}

func (a AzureSAS) version() string {
	if a.Version == "" {
		return AzureAPIVersion
	}
	return a.Version
}

// EscapeSASQuery encodes a SAS query value: everything except unreserved
// characters and '/' is percent-encoded, so ':' becomes %3A and '+' and
// '=' in signatures become %2B and %3D.
func EscapeSASQuery(s string) string {
	return Escape(s, "/")
}

// AzureSharedKey signs blob operations with a Shared Key Authorization
// header and leaves the URL untouched.
// Reference: Azure Storage REST API "Authorize with Shared Key".
type AzureSharedKey struct {
	Endpoint string
	Version  string
}

// Canonicalize implements Canonicalizer.
func (a AzureSharedKey) Canonicalize(in *SigningInput) (CanonicalString, error) {
	op := in.Operation
	if err := op.validateBlob(); err != nil {
		return CanonicalString{}, err
	}
	h := a.requestHeaders(in)

	length := h.Get(ContentLengthHeader)
	if length == "0" {
		length = ""
	}

	var b strings.Builder
	for _, field := range []string{
		op.Kind.Method(),
		h.Get("Content-Encoding"),
		h.Get("Content-Language"),
		length,
		h.Get(ContentMD5Header),
		h.Get(ContentTypeHeader),
		"", // Date, superseded by x-ms-date
		h.Get("If-Modified-Since"),
		h.Get("If-Match"),
		h.Get("If-None-Match"),
		h.Get("If-Unmodified-Since"),
		h.Get("Range"),
	} {
		b.WriteString(field)
		b.WriteByte('\n')
	}
	b.WriteString(canonicalizedAzureHeaders(h))
	b.WriteString("/" + in.Account + "/" + EscapePath(op.Container+"/"+op.Name))
	return NewCanonicalString(b.String()), nil
}

// Assemble implements Assembler.
func (a AzureSharedKey) Assemble(in *SigningInput, signature string) (*SignedRequest, error) {
	op := in.Operation
	u, err := resourceURL(azureEndpoint(a.Endpoint, in.Account), op.Container, op.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResource, err)
	}

	headers := a.requestHeaders(in)
	headers.Set(AuthorizationHeader, BuildAzureAuthorizationHeader(in.Account, signature))

	return &SignedRequest{
		Method:    op.Kind.Method(),
		URL:       u.String(),
		Headers:   headers.Sorted(),
		ExpiresAt: in.Window.ExpiresAt,
	}, nil
}

// requestHeaders returns the headers sent with, and signed into, a Shared
// Key request.
func (a AzureSharedKey) requestHeaders(in *SigningInput) Headers {
	h := azureContentHeaders(in.Operation)
	h.Set(AzureDateHeader, in.Window.SignedAt.RFC1123())
	version := a.Version
	if version == "" {
		version = AzureAPIVersion
	}
	h.Set(AzureVersionHeader, version)
	return h
}

// azureContentHeaders merges the caller's headers with the content
// metadata of op. PUT always creates a block blob.
func azureContentHeaders(op Operation) Headers {
	h := op.Headers.Clone()
	if op.ContentLength != nil {
		h.Set(ContentLengthHeader, op.contentLength())
	}
	if len(op.ContentMD5) > 0 {
		h.Set(ContentMD5Header, base64.StdEncoding.EncodeToString(op.ContentMD5))
	}
	if op.ContentType != "" {
		h.Set(ContentTypeHeader, op.ContentType)
	}
	if op.Kind.Method() == http.MethodPut {
		h.Set(AzureBlobTypeHeader, AzureBlockBlob)
	}
	return h
}

// canonicalizedAzureHeaders renders the x-ms-* headers as sorted
// "name:value\n" lines.
func canonicalizedAzureHeaders(h Headers) string {
	values := make(map[string][]string)
	var names []string
	for _, hdr := range h {
		name := strings.ToLower(strings.TrimSpace(hdr.Name))
		if !strings.HasPrefix(name, AzureHeaderPrefix) {
			continue
		}
		if _, ok := values[name]; !ok {
			names = append(names, name)
		}
		values[name] = append(values[name], StripExcessSpaces(hdr.Value))
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.Join(values[name], ","))
		b.WriteByte('\n')
	}
	return b.String()
}

func azureEndpoint(template, account string) string {
	if template == "" {
		template = DefaultAzureEndpoint
	}
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, account)
	}
	return template
}
