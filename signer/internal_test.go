package signer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		input    string
		safe     string
		expected string
	}{
		{"2008-06-05T16:53:19Z", "/", "2008-06-05T16%3A53%3A19Z"},
		{"HzCwPCszb39utrHpHKFK6eeZWHJVLcaIwJYXVUgJ+Qo=", "/", "HzCwPCszb39utrHpHKFK6eeZWHJVLcaIwJYXVUgJ%2BQo%3D"},
		{"xyHwMhO1Dg2LoJH/VoXeLraAp1FBWjdfcc0y31LMKnY=", "/", "xyHwMhO1Dg2LoJH/VoXeLraAp1FBWjdfcc0y31LMKnY%3D"},
		{"a/b", "", "a%2Fb"},
		{"my file", "", "my%20file"},
		{"unreserved-._~", "", "unreserved-._~"},
		{"ü", "", "%C3%BC"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Escape(tt.input, tt.safe); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestParseResourcePath(t *testing.T) {
	tests := []struct {
		path      string
		container string
		name      string
		wantErr   bool
	}{
		{path: "container/name", container: "container", name: "name"},
		{path: "/container/dir/name.txt", container: "container", name: "dir/name.txt"},
		{path: "container", container: "container"},
		{path: "Container/Name", container: "Container", name: "Name"},
		{path: "", wantErr: true},
		{path: "/", wantErr: true},
		{path: "/name", container: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			container, name, err := ParseResourcePath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedResource) {
					t.Errorf("expected ErrMalformedResource, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if container != tt.container || name != tt.name {
				t.Errorf("expected %s/%s, got %s/%s", tt.container, tt.name, container, name)
			}
		})
	}
}

func TestResourcePathEncodedOnce(t *testing.T) {
	in := testSigningInput(t, PutBlob, "container/dir/my file+1.txt")

	canonical, err := AzureSAS{}.Canonicalize(in)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(string(canonical.Bytes()), "\n/blob/identity/container/dir/my file+1.txt\n") {
		t.Errorf("canonical resource should hold the decoded name, got %q", canonical.Bytes())
	}

	req, err := AzureSAS{}.Assemble(in, "sig")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		t.Fatalf("failed to parse URL: %v", err)
	}
	if u.EscapedPath() != "/container/dir/my%20file%2B1.txt" {
		t.Errorf("expected path encoded once, got %s", u.EscapedPath())
	}
	if u.Path != "/container/dir/my file+1.txt" {
		t.Errorf("expected decoded path to round trip, got %s", u.Path)
	}
}

func TestSASQueryMatchesCanonicalFields(t *testing.T) {
	in := testSigningInput(t, DeleteBlob, "container/name")

	canonical, err := AzureSAS{}.Canonicalize(in)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	fields := strings.Split(string(canonical.Bytes()), "\n")
	if len(fields) != 13 {
		t.Fatalf("expected 13 fields, got %d", len(fields))
	}

	req, err := AzureSAS{}.Assemble(in, "a+b/c=")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	u, _ := url.Parse(req.URL)
	q := u.Query()

	checks := map[string]string{
		AzureSASPermissionKey: fields[0],
		AzureSASExpiryKey:     fields[2],
		AzureSASVersionKey:    fields[7],
		AzureSASResourceKey:   AzureBlobResource,
		AzureSASSignatureKey:  "a+b/c=",
	}
	for key, expected := range checks {
		if got := q.Get(key); got != expected {
			t.Errorf("%s: expected %s, got %s", key, expected, got)
		}
	}

	if !strings.HasPrefix(u.RawQuery, "sv=") || !strings.HasSuffix(u.RawQuery, "&sig=a%2Bb/c%3D") {
		t.Errorf("unexpected parameter order %s", u.RawQuery)
	}
}

func TestAzureSharedKeyCanonical(t *testing.T) {
	in := testSigningInput(t, PutBlob, "container/name")
	length := int64(0)
	in.Operation.ContentLength = &length
	in.Operation.Headers = Headers{
		{Name: "X-MS-Meta-B", Value: "  two   words "},
		{Name: "x-ms-meta-a", Value: "one"},
	}

	canonical, err := AzureSharedKey{}.Canonicalize(in)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	expected := "PUT\n" +
		"\n\n" + // encoding, language
		"\n" + // zero length is signed as empty
		"\n\n\n" + // md5, type, date
		"\n\n\n\n\n" +
		"x-ms-blob-type:BlockBlob\n" +
		"x-ms-date:Thu, 05 Jun 2008 16:38:19 GMT\n" +
		"x-ms-meta-a:one\n" +
		"x-ms-meta-b:two words\n" +
		"x-ms-version:2017-04-17\n" +
		"/identity/container/name"
	if got := string(canonical.Bytes()); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestStripExcessSpaces(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"a", "a"},
		{"  a  ", "a"},
		{"a  b", "a b"},
		{" a   b  c ", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := StripExcessSpaces(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestCanonicalHeaders(t *testing.T) {
	headers := Headers{
		{Name: "X-Amz-Meta-Tag", Value: "b"},
		{Name: "Authorization", Value: "ignored"},
		{Name: "Host", Value: "ignored.example.com"},
		{Name: "x-amz-meta-tag", Value: "a  c"},
		{Name: "Content-Type", Value: "text/plain"},
	}
	ch := newCanonicalHeaders("bucket.s3.amazonaws.com", IgnoredHeaders, headers)

	if got := ch.signedHeaders(); got != "content-type;host;x-amz-meta-tag" {
		t.Errorf("expected content-type;host;x-amz-meta-tag, got %s", got)
	}
	expected := "content-type:text/plain\nhost:bucket.s3.amazonaws.com\nx-amz-meta-tag:b,a c\n"
	if got := ch.String(); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestBuildCanonicalQuery(t *testing.T) {
	query := BuildCanonicalQuery(map[string][]string{
		"b":               {"2", "1"},
		"a":               {""},
		AmzCredentialKey:  {"AKID/20130524/us-east-1/s3/aws4_request"},
		"x-id with space": {"v w"},
	})
	expected := "X-Amz-Credential=AKID%2F20130524%2Fus-east-1%2Fs3%2Faws4_request&a=&b=1&b=2&x-id%20with%20space=v%20w"
	if query != expected {
		t.Errorf("expected %s, got %s", expected, query)
	}
}

func TestGetURIPath(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{name: "empty", url: "https://bucket.s3.amazonaws.com", expected: "/"},
		{name: "simple", url: "https://bucket.s3.amazonaws.com/key", expected: "/key"},
		{name: "escaped", url: "https://bucket.s3.amazonaws.com/a%20b", expected: "/a%20b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			if err != nil {
				t.Fatalf("failed to parse URL: %v", err)
			}
			if got := GetURIPath(u); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}

	opaque := &url.URL{Scheme: "https", Opaque: "//bucket.s3.amazonaws.com/a%2Fb"}
	if got := GetURIPath(opaque); got != "/a%2Fb" {
		t.Errorf("expected /a%%2Fb, got %s", got)
	}
}

func TestCanonicalHost(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://example.com:443/x", "example.com"},
		{"http://example.com:80/x", "example.com"},
		{"http://example.com:9000/x", "example.com:9000"},
		{"https://[::1]:443/x", "[::1]"},
		{"https://[::1]/x", "[::1]"},
		{"https://[::1]:8443/x", "[::1]:8443"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			u, _ := url.Parse(tt.url)
			if got := canonicalHost(u); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestHeaders(t *testing.T) {
	var h Headers
	h.Set("X-Ms-Date", "old")
	h.Set("Content-Type", "text/plain")
	h.Set("x-ms-date", "new")

	if len(h) != 2 {
		t.Fatalf("expected 2 headers, got %v", h)
	}
	if h.Get("X-MS-DATE") != "new" {
		t.Errorf("expected Set to replace case-insensitively, got %v", h)
	}
	if !h.Has("content-type") || h.Has("Content-Length") {
		t.Errorf("unexpected Has result for %v", h)
	}

	clone := h.Clone()
	clone.Set("Content-Type", "application/json")
	if h.Get("Content-Type") != "text/plain" {
		t.Error("Clone should not share storage")
	}

	sorted := h.Sorted()
	if sorted[0].Name != "Content-Type" || sorted[1].Name != "X-Ms-Date" {
		t.Errorf("unexpected order %v", sorted)
	}
	if h[0].Name != "X-Ms-Date" {
		t.Error("Sorted should not reorder the receiver")
	}

	hh := Headers{
		{Name: "x-ms-meta-tag", Value: "a"},
		{Name: "X-Ms-Meta-Tag", Value: "b"},
		{Name: "Content-Type", Value: "text/plain"},
	}.HTTPHeader()
	if got := hh.Values("X-Ms-Meta-Tag"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected both values in order, got %v", got)
	}
	if hh.Get("content-type") != "text/plain" {
		t.Errorf("unexpected header map %v", hh)
	}
}

func TestNewHTTPRequest(t *testing.T) {
	req := &SignedRequest{
		Method: "PUT",
		URL:    "https://identity.blob.core.windows.net/container/name",
		Headers: Headers{
			{Name: ContentLengthHeader, Value: "2"},
			{Name: AzureBlobTypeHeader, Value: AzureBlockBlob},
		},
	}
	httpReq, err := req.NewHTTPRequest(context.Background(), strings.NewReader("hi"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if httpReq.ContentLength != 2 {
		t.Errorf("expected content length 2, got %d", httpReq.ContentLength)
	}
	if httpReq.Header.Get(ContentLengthHeader) != "" {
		t.Error("Content-Length should not be in the header map")
	}
	if httpReq.Header.Get(AzureBlobTypeHeader) != AzureBlockBlob {
		t.Errorf("expected %s, got %s", AzureBlockBlob, httpReq.Header.Get(AzureBlobTypeHeader))
	}
}

func TestCanonicalStringRedacted(t *testing.T) {
	c := JoinCanonical("r", "", "/blob/identity/container/secret-name")
	for _, s := range []string{c.String(), fmt.Sprintf("%v", c), fmt.Sprintf("%#v", c)} {
		if strings.Contains(s, "secret-name") {
			t.Errorf("canonical string leaked through formatting: %s", s)
		}
	}
	if c.Len() != len("r\n\n/blob/identity/container/secret-name") {
		t.Errorf("unexpected length %d", c.Len())
	}
}

func TestCredentialsRedacted(t *testing.T) {
	creds := Credentials{Account: "identity", Secret: "aaaabbbb"}
	if s := fmt.Sprint(creds); strings.Contains(s, "aaaabbbb") {
		t.Errorf("secret leaked: %s", s)
	}
}

func TestKeyDecoders(t *testing.T) {
	key, err := Base64Key("aaaabbbb")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(key) != 6 {
		t.Errorf("expected 6 bytes, got %d", len(key))
	}

	for _, secret := range []string{"", "!!!", "a"} {
		if _, err := Base64Key(secret); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("%q: expected ErrInvalidKey, got %v", secret, err)
		}
	}
	if _, err := RawKey(""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestHMACComputerKeySize(t *testing.T) {
	c := HMACComputer{KeySize: 32}
	_, err := c.ComputeSignature(nil, NewCanonicalString("x"), make([]byte, 16))
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}

	sig, err := c.ComputeSignature(nil, NewCanonicalString("x"), make([]byte, 32))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil || len(raw) != 32 {
		t.Errorf("expected a base64 encoded 32 byte MAC, got %s", sig)
	}
}

func TestParseOperationKind(t *testing.T) {
	tests := []struct {
		input    string
		expected OperationKind
	}{
		{"get", GetBlob},
		{"GET", GetBlob},
		{"put", PutBlob},
		{"Delete", DeleteBlob},
	}
	for _, tt := range tests {
		got, err := ParseOperationKind(tt.input)
		if err != nil {
			t.Errorf("%s: expected no error, got %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("%s: expected %s, got %s", tt.input, tt.expected, got)
		}
	}

	if _, err := ParseOperationKind("list"); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("expected ErrUnsupportedOperation, got %v", err)
	}
}

func TestComputePayloadDigests(t *testing.T) {
	d, err := ComputePayloadDigests(strings.NewReader(""))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.Length != 0 || d.SHA256 != EmptyStringSHA256 {
		t.Errorf("unexpected digests %+v", d)
	}
	if base64.StdEncoding.EncodeToString(d.MD5) != "1B2M2Y8AsgTpgAmY7PhCfg==" {
		t.Errorf("unexpected md5 %x", d.MD5)
	}

	op, err := NewOperation(PutBlob, "c/n", d.Options()...)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if op.ContentLength == nil || *op.ContentLength != 0 {
		t.Error("expected content length option to be applied")
	}

	for _, p := range []ProviderID{AzureBlob, AzureBlobSharedKey, AWSS3} {
		op, _ := NewOperation(PutBlob, "c/n", d.OptionsFor(p)...)
		if op.Headers.Has(ContentSHAKey) {
			t.Errorf("%s: payload hash should not be set", p)
		}
	}
	op, _ = NewOperation(PutBlob, "c/n", d.OptionsFor(AWSS3Header)...)
	if got := op.Headers.Get(ContentSHAKey); got != EmptyStringSHA256 {
		t.Errorf("expected %s, got %s", EmptyStringSHA256, got)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, "ok"},
		{fmt.Errorf("wrapped: %w", ErrInvalidDuration), "invalid_duration"},
		{ErrInvalidKey, "invalid_key"},
		{ErrUnsupportedProvider, "unsupported_provider"},
		{ErrUnsupportedOperation, "unsupported_operation"},
		{ErrMalformedResource, "malformed_resource"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.expected {
			t.Errorf("expected %s, got %s", tt.expected, got)
		}
	}
}

// testSigningInput returns input for account "identity" signed at
// Thu, 05 Jun 2008 16:38:19 GMT with the default window.
func testSigningInput(t *testing.T, kind OperationKind, resource string) *SigningInput {
	t.Helper()
	op, err := NewOperation(kind, resource)
	if err != nil {
		t.Fatalf("failed to build operation: %v", err)
	}
	window, err := ExpiryPolicy{}.Resolve(time.Date(2008, time.June, 5, 16, 38, 19, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("failed to resolve window: %v", err)
	}
	permission, err := DefaultPermissions.Resolve(kind)
	if err != nil {
		t.Fatalf("failed to resolve permission: %v", err)
	}
	return &SigningInput{
		Provider:   AzureBlob,
		Operation:  op,
		Window:     window,
		Account:    "identity",
		Permission: permission,
	}
}
