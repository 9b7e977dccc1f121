package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
)

// HMACSHA256 computes HMAC-SHA256 of data with the given key.
// Reference: AWS SDK v4 signer internal/v4/hmac.go HMACSHA256
func HMACSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// DeriveKey performs the SigV4 key derivation:
//   - kDate = HMAC-SHA256("AWS4" + secret, date)
//   - kRegion = HMAC-SHA256(kDate, region)
//   - kService = HMAC-SHA256(kRegion, service)
//   - kSigning = HMAC-SHA256(kService, "aws4_request")
//
// Reference: AWS SDK v4 signer internal/v4/cache.go deriveKey function
func DeriveKey(secret []byte, service, region string, t SigningTime) []byte {
	seed := make([]byte, 0, len(secret)+4)
	seed = append(seed, "AWS4"...)
	seed = append(seed, secret...)

	kDate := HMACSHA256(seed, []byte(t.ShortTimeFormat()))
	kRegion := HMACSHA256(kDate, []byte(region))
	kService := HMACSHA256(kRegion, []byte(service))
	return HMACSHA256(kService, []byte("aws4_request"))
}

// HMACComputer is a SignatureComputer that signs the canonical bytes
// directly with the account key.
type HMACComputer struct {
	// Hash constructs the digest; nil means SHA-256.
	Hash func() hash.Hash

	// KeySize, when non-zero, is the only accepted key length.
	KeySize int

	// Encode renders the MAC; nil means standard base64.
	Encode func([]byte) string
}

// ComputeSignature implements SignatureComputer.
func (c HMACComputer) ComputeSignature(_ *SigningInput, canonical CanonicalString, key []byte) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if c.KeySize > 0 && len(key) != c.KeySize {
		return "", fmt.Errorf("%w: key is %d bytes, want %d", ErrInvalidKey, len(key), c.KeySize)
	}

	newHash := c.Hash
	if newHash == nil {
		newHash = sha256.New
	}
	mac := hmac.New(newHash, key)
	mac.Write(canonical.Bytes())

	encode := c.Encode
	if encode == nil {
		encode = base64.StdEncoding.EncodeToString
	}
	return encode(mac.Sum(nil)), nil
}

// HexEncode is an HMACComputer.Encode for lower-case hex signatures.
func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}
