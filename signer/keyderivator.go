package signer

import (
	"crypto/sha256"
	"strings"
	"time"
)

// keyDerivator derives SigV4 signing keys.
// Reference: AWS SDK v4 signer v4.go keyDerivator interface
type keyDerivator interface {
	DeriveKey(accessKeyID string, secret []byte, service, region string, signingTime SigningTime) []byte
}

// credentialID identifies the credential a key was derived from. The
// secret is held only as a digest, so a rotated secret misses the cache.
type credentialID struct {
	accessKeyID string
	secret      [sha256.Size]byte
}

func newCredentialID(accessKeyID string, secret []byte) credentialID {
	return credentialID{accessKeyID: accessKeyID, secret: sha256.Sum256(secret)}
}

// derivedKey represents a cached derived key.
type derivedKey struct {
	credential credentialID
	date       time.Time
	key        []byte
}

// derivedKeyStore is the storage behind SigningKeyDeriver.
type derivedKeyStore interface {
	get(scope string, cred credentialID, t time.Time) ([]byte, bool)
	set(scope string, cred credentialID, t time.Time, k []byte)
}

// lookupKey creates a cache key from service and region.
func lookupKey(service, region string) string {
	var b strings.Builder
	b.Grow(len(region) + len(service) + 1)
	b.WriteString(region)
	b.WriteRune('/')
	b.WriteString(service)
	return b.String()
}

// isSameDay checks if two times are on the same day.
func isSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// SigningKeyDeriver derives signing keys and caches them per
// day/region/service/credential.
// Reference: AWS SDK v4 signer internal/v4/cache.go
type SigningKeyDeriver struct {
	cache derivedKeyStore
}

// NewSigningKeyDeriver returns a deriver backed by a concurrency-safe cache.
func NewSigningKeyDeriver() *SigningKeyDeriver {
	return &SigningKeyDeriver{
		cache: newDerivedKeyCache(),
	}
}

// DeriveKey returns the signing key for the given scope. The cache entry
// is only reused for the same credential and the same UTC day.
func (k *SigningKeyDeriver) DeriveKey(accessKeyID string, secret []byte, service, region string, signingTime SigningTime) []byte {
	scope := lookupKey(service, region)
	cred := newCredentialID(accessKeyID, secret)
	if key, ok := k.cache.get(scope, cred, signingTime.Time); ok {
		return key
	}

	key := DeriveKey(secret, service, region, signingTime)
	k.cache.set(scope, cred, signingTime.Time, key)
	return key
}
