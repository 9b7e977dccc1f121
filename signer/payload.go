package signer

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// PayloadDigests describes a request body for the operations that carry
// one.
type PayloadDigests struct {
	Length int64
	MD5    []byte
	// SHA256 is hex encoded, as sent in X-Amz-Content-Sha256.
	SHA256 string
}

// ComputePayloadDigests reads body to the end and returns its length and
// digests.
func ComputePayloadDigests(body io.Reader) (PayloadDigests, error) {
	m := md5.New()
	s := sha256.New()
	n, err := io.Copy(io.MultiWriter(m, s), body)
	if err != nil {
		return PayloadDigests{}, fmt.Errorf("failed to compute payload digests: %w", err)
	}
	return PayloadDigests{
		Length: n,
		MD5:    m.Sum(nil),
		SHA256: hex.EncodeToString(s.Sum(nil)),
	}, nil
}

// Options returns the operation options describing the payload.
func (d PayloadDigests) Options() []OperationOption {
	return []OperationOption{
		WithContentLength(d.Length),
		WithContentMD5(d.MD5),
	}
}

// OptionsFor is Options plus what provider signs of the payload itself.
// The SigV4 header provider signs the SHA-256 in place of UNSIGNED-PAYLOAD;
// presigned URLs never carry a payload hash.
func (d PayloadDigests) OptionsFor(provider ProviderID) []OperationOption {
	opts := d.Options()
	if provider == AWSS3Header && d.SHA256 != "" {
		opts = append(opts, WithHeader(ContentSHAKey, d.SHA256))
	}
	return opts
}
