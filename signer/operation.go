package signer

import (
	"fmt"
	"net/http"
	"strings"
)

// OperationKind names the blob operation being signed.
type OperationKind int

const (
	GetBlob OperationKind = iota + 1
	PutBlob
	DeleteBlob
)

var operationNames = map[OperationKind]string{
	GetBlob:    "get",
	PutBlob:    "put",
	DeleteBlob: "delete",
}

var operationMethods = map[OperationKind]string{
	GetBlob:    http.MethodGet,
	PutBlob:    http.MethodPut,
	DeleteBlob: http.MethodDelete,
}

// String returns the lower-case name of the kind.
func (k OperationKind) String() string {
	if name, ok := operationNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OperationKind(%d)", int(k))
}

// Method returns the HTTP method for the kind, or "" if unknown.
func (k OperationKind) Method() string {
	return operationMethods[k]
}

// ParseOperationKind accepts an operation name ("get", "put", "delete")
// or an HTTP method, case-insensitively.
func ParseOperationKind(s string) (OperationKind, error) {
	for k, name := range operationNames {
		if strings.EqualFold(s, name) || strings.EqualFold(s, operationMethods[k]) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedOperation, s)
}

// Operation is one blob operation to sign. Container and Name are the
// decoded (not percent-encoded) resource path components; case matters.
type Operation struct {
	Kind      OperationKind
	Container string
	Name      string

	// ContentLength is nil when the length is not known.
	ContentLength *int64
	ContentType   string
	// ContentMD5 is the raw digest; it is base64 encoded on the wire.
	ContentMD5 []byte

	// Headers are extra headers that accompany the request verbatim.
	Headers Headers
}

// OperationOption configures optional Operation fields.
type OperationOption func(*Operation)

// WithContentLength sets the payload length.
func WithContentLength(n int64) OperationOption {
	return func(op *Operation) {
		op.ContentLength = &n
	}
}

// WithContentType sets the payload media type.
func WithContentType(ct string) OperationOption {
	return func(op *Operation) {
		op.ContentType = ct
	}
}

// WithContentMD5 sets the raw MD5 digest of the payload.
func WithContentMD5(sum []byte) OperationOption {
	return func(op *Operation) {
		op.ContentMD5 = append([]byte(nil), sum...)
	}
}

// WithHeader appends an extra request header.
func WithHeader(name, value string) OperationOption {
	return func(op *Operation) {
		op.Headers = append(op.Headers, Header{Name: name, Value: value})
	}
}

// NewOperation builds an Operation for resourcePath, whose first segment
// is the container and the remainder the blob name.
func NewOperation(kind OperationKind, resourcePath string, opts ...OperationOption) (Operation, error) {
	container, name, err := ParseResourcePath(resourcePath)
	if err != nil {
		return Operation{}, err
	}
	op := Operation{
		Kind:      kind,
		Container: container,
		Name:      name,
	}
	for _, opt := range opts {
		opt(&op)
	}
	return op, nil
}

// ParseResourcePath splits "container/blob/name" into its container and
// blob name. A leading slash is ignored.
func ParseResourcePath(resourcePath string) (container, name string, err error) {
	p := strings.TrimPrefix(resourcePath, "/")
	container, name, _ = strings.Cut(p, "/")
	if container == "" {
		return "", "", fmt.Errorf("%w: missing container in %q", ErrMalformedResource, resourcePath)
	}
	return container, name, nil
}

// ResourcePath returns "container/name".
func (op Operation) ResourcePath() string {
	if op.Name == "" {
		return op.Container
	}
	return op.Container + "/" + op.Name
}

// contentLength returns the length as a string, or "" when unset.
func (op Operation) contentLength() string {
	if op.ContentLength == nil {
		return ""
	}
	return fmt.Sprint(*op.ContentLength)
}

// validateBlob checks the rules shared by every blob-scoped signature.
func (op Operation) validateBlob() error {
	switch {
	case op.Container == "":
		return fmt.Errorf("%w: empty container name", ErrMalformedResource)
	case strings.Contains(op.Container, "/"):
		return fmt.Errorf("%w: container %q contains '/'", ErrMalformedResource, op.Container)
	case op.Name == "":
		return fmt.Errorf("%w: empty blob name in container %q", ErrMalformedResource, op.Container)
	case op.ContentLength != nil && *op.ContentLength < 0:
		return fmt.Errorf("%w: negative content length %d", ErrMalformedResource, *op.ContentLength)
	}
	return nil
}

// Credentials identify the account and carry its still-encoded secret.
type Credentials struct {
	Account string
	Secret  string
}

// String redacts the secret.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Account: %q, Secret: <redacted>}", c.Account)
}

// Permission is the single character permission token signed into SAS
// style signatures.
type Permission byte

const (
	PermissionRead   Permission = 'r'
	PermissionWrite  Permission = 'w'
	PermissionDelete Permission = 'd'
)

func (p Permission) String() string {
	return string(rune(p))
}

// PermissionTable maps operation kinds to permission tokens for a provider.
type PermissionTable map[OperationKind]Permission

// DefaultPermissions is the read/write/delete mapping used by every
// built-in provider.
var DefaultPermissions = PermissionTable{
	GetBlob:    PermissionRead,
	PutBlob:    PermissionWrite,
	DeleteBlob: PermissionDelete,
}

// Resolve returns the permission for kind. Unmapped kinds are an error,
// never a default permission.
func (t PermissionTable) Resolve(kind OperationKind) (Permission, error) {
	p, ok := t[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %s has no permission mapping", ErrUnsupportedOperation, kind)
	}
	return p, nil
}
