package signer

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// CanonicalString is the exact byte sequence a signature is computed over.
// It is not secret, but it carries resource paths and header values, so
// its fmt representations are redacted.
type CanonicalString struct {
	b []byte
}

// NewCanonicalString wraps s.
func NewCanonicalString(s string) CanonicalString {
	return CanonicalString{b: []byte(s)}
}

// JoinCanonical joins fields with the newline delimiter. Empty fields keep
// their position.
func JoinCanonical(fields ...string) CanonicalString {
	return NewCanonicalString(strings.Join(fields, "\n"))
}

// Bytes returns the canonical bytes.
func (c CanonicalString) Bytes() []byte {
	return c.b
}

// Len returns the length in bytes.
func (c CanonicalString) Len() int {
	return len(c.b)
}

// String implements fmt.Stringer without revealing the content.
func (c CanonicalString) String() string {
	return fmt.Sprintf("CanonicalString(%d bytes)", len(c.b))
}

// GoString implements fmt.GoStringer without revealing the content.
func (c CanonicalString) GoString() string {
	return c.String()
}

// SigningInput is the per-call state handed to a provider strategy.
type SigningInput struct {
	Provider   ProviderID
	Operation  Operation
	Window     TimeWindow
	Account    string
	Permission Permission
}

// Canonicalizer builds the provider specific string-to-sign.
type Canonicalizer interface {
	Canonicalize(in *SigningInput) (CanonicalString, error)
}

// SignatureComputer computes the encoded signature over a canonical string
// with the decoded account key.
type SignatureComputer interface {
	ComputeSignature(in *SigningInput, canonical CanonicalString, key []byte) (string, error)
}

// Assembler merges a signature into the request descriptor.
type Assembler interface {
	Assemble(in *SigningInput, signature string) (*SignedRequest, error)
}

// KeyDecoder turns the encoded secret of Credentials into key bytes.
type KeyDecoder func(secret string) ([]byte, error)

// Base64Key decodes standard base64 secrets, as issued for Azure storage
// accounts.
func Base64Key(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrInvalidKey)
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: secret is not valid base64: %v", ErrInvalidKey, err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: secret decodes to zero bytes", ErrInvalidKey)
	}
	return key, nil
}

// RawKey uses the secret bytes as is, as SigV4 does.
func RawKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrInvalidKey)
	}
	return []byte(secret), nil
}

// Strategy is everything the Registry needs to sign for one provider.
type Strategy struct {
	Canonicalizer Canonicalizer
	Signature     SignatureComputer
	Assembler     Assembler
	DecodeKey     KeyDecoder
	Permissions   PermissionTable
	Expiry        ExpiryPolicy
}

func (s Strategy) validate() error {
	switch {
	case s.Canonicalizer == nil:
		return fmt.Errorf("strategy has no canonicalizer")
	case s.Signature == nil:
		return fmt.Errorf("strategy has no signature computer")
	case s.Assembler == nil:
		return fmt.Errorf("strategy has no assembler")
	case s.DecodeKey == nil:
		return fmt.Errorf("strategy has no key decoder")
	case len(s.Permissions) == 0:
		return fmt.Errorf("strategy has no permissions")
	}
	return nil
}
