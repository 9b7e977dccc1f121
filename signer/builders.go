package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// BuildCredentialScope builds the SigV4 credential scope.
// Format: date/region/service/aws4_request
// Reference: AWS SDK v4 signer internal/v4/scope.go
func BuildCredentialScope(t SigningTime, region, service string) string {
	return strings.Join([]string{
		t.ShortTimeFormat(),
		region,
		service,
		"aws4_request",
	}, "/")
}

// BuildCanonicalQuery encodes params sorted by name then value, as SigV4
// requires. Empty values keep their trailing '='.
func BuildCanonicalQuery(params map[string][]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		values := append([]string(nil), params[name]...)
		sort.Strings(values)
		for _, v := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(EscapeSigV4Query(name))
			b.WriteByte('=')
			b.WriteString(EscapeSigV4Query(v))
		}
	}
	return b.String()
}

// BuildCanonicalRequest builds the canonical request string.
// Format: METHOD\nURI\nQUERY\nHEADERS\nSIGNED_HEADERS\nPAYLOAD_HASH
// Reference: AWS SDK v4 signer v4.go buildCanonicalString
func BuildCanonicalRequest(method, uri, query, canonicalHeaders, signedHeaders, payloadHash string) string {
	return strings.Join([]string{
		method,
		uri,
		query,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")
}

// BuildStringToSign builds the string to sign.
// Format: ALGORITHM\nTIMESTAMP\nSCOPE\nHEX(SHA256(CANONICAL_REQUEST))
// Reference: AWS SDK v4 signer v4.go buildStringToSign
func BuildStringToSign(timestamp, credentialScope, canonicalRequest string) CanonicalString {
	hash := sha256.Sum256([]byte(canonicalRequest))
	return JoinCanonical(
		SigningAlgorithm,
		timestamp,
		credentialScope,
		hex.EncodeToString(hash[:]),
	)
}

// BuildAuthorizationHeader builds the SigV4 Authorization header value.
// Format: ALGORITHM Credential=..., SignedHeaders=..., Signature=...
func BuildAuthorizationHeader(credential, signedHeaders, signature string) string {
	var b strings.Builder
	b.Grow(len(SigningAlgorithm) + len(credential) + len(signedHeaders) + len(signature) + 48)
	b.WriteString(SigningAlgorithm)
	b.WriteString(" Credential=")
	b.WriteString(credential)
	b.WriteString(", SignedHeaders=")
	b.WriteString(signedHeaders)
	b.WriteString(", Signature=")
	b.WriteString(signature)
	return b.String()
}

// BuildAzureAuthorizationHeader builds "SharedKey account:signature".
func BuildAzureAuthorizationHeader(account, signature string) string {
	return AzureSharedKeyScheme + " " + account + ":" + signature
}
