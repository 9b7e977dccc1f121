package signer

import "errors"

// Errors returned by the signing engine. Callers test for them with
// errors.Is; returned errors wrap one of these with call context.
var (
	ErrInvalidDuration      = errors.New("signer: invalid duration")
	ErrInvalidKey           = errors.New("signer: invalid key")
	ErrUnsupportedProvider  = errors.New("signer: unsupported provider")
	ErrUnsupportedOperation = errors.New("signer: unsupported operation")
	ErrMalformedResource    = errors.New("signer: malformed resource")
)

// ErrorKind returns a stable label for err, suitable for metrics.
// A nil error is "ok"; errors outside the taxonomy are "internal".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrUnsupportedProvider):
		return "unsupported_provider"
	case errors.Is(err, ErrUnsupportedOperation):
		return "unsupported_operation"
	case errors.Is(err, ErrMalformedResource):
		return "malformed_resource"
	default:
		return "internal"
	}
}
