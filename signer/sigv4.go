package signer

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SigV4 signs S3 object operations with AWS Signature Version 4, either as
// a presigned URL or as an Authorization header.
// Reference: AWS SDK v4 signer v4.go httpSigner
type SigV4 struct {
	Region  string
	Service string

	// Endpoint switches to path-style URLs under the given base URL, for
	// S3-compatible stores. Empty means virtual-hosted AWS endpoints.
	Endpoint string

	// Presign selects query authentication.
	Presign bool

	// DisableHeaderHoisting keeps x-amz-* headers out of the presigned
	// query string.
	DisableHeaderHoisting bool

	keys keyDerivator
}

// NewSigV4 returns a SigV4 strategy sharing deriver's key cache.
func NewSigV4(region, service, endpoint string, presign bool, deriver *SigningKeyDeriver) *SigV4 {
	if region == "" {
		region = DefaultS3Region
	}
	if service == "" {
		service = "s3"
	}
	if deriver == nil {
		deriver = NewSigningKeyDeriver()
	}
	return &SigV4{
		Region:   region,
		Service:  service,
		Endpoint: endpoint,
		Presign:  presign,
		keys:     deriver,
	}
}

// sigV4Request is the prepared state for one request. Canonicalize and
// Assemble each rebuild it from the SigningInput: SigningInput is shared by
// every provider and carries no strategy specific state, and a SigV4 value
// is shared across goroutines, so it cannot hold the request either.
type sigV4Request struct {
	url        *url.URL
	query      map[string][]string
	headers    Headers
	signed     *canonicalHeaders
	credential string
	canonical  CanonicalString
}

// Canonicalize implements Canonicalizer.
func (s *SigV4) Canonicalize(in *SigningInput) (CanonicalString, error) {
	req, err := s.prepare(in)
	if err != nil {
		return CanonicalString{}, err
	}
	return req.canonical, nil
}

// ComputeSignature implements SignatureComputer. key is the raw secret;
// the signing key is derived from it per day, region and service.
func (s *SigV4) ComputeSignature(in *SigningInput, canonical CanonicalString, key []byte) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	signingKey := s.keys.DeriveKey(in.Account, key, s.Service, s.Region, in.Window.SignedAt)
	return HexEncode(HMACSHA256(signingKey, canonical.Bytes())), nil
}

// Assemble implements Assembler.
func (s *SigV4) Assemble(in *SigningInput, signature string) (*SignedRequest, error) {
	req, err := s.prepare(in)
	if err != nil {
		return nil, err
	}

	headers := req.headers
	if s.Presign {
		req.url.RawQuery = BuildCanonicalQuery(req.query) + "&" + AmzSignatureKey + "=" + signature
	} else {
		headers.Set(AuthorizationHeader, BuildAuthorizationHeader(
			req.credential,
			req.signed.signedHeaders(),
			signature,
		))
	}

	return &SignedRequest{
		Method:    in.Operation.Kind.Method(),
		URL:       req.url.String(),
		Headers:   headers.Sorted(),
		ExpiresAt: in.Window.ExpiresAt,
	}, nil
}

// prepare builds the URL, query, headers and string-to-sign for in.
func (s *SigV4) prepare(in *SigningInput) (*sigV4Request, error) {
	op := in.Operation
	if err := op.validateBlob(); err != nil {
		return nil, err
	}

	u, err := s.objectURL(op.Container, op.Name)
	if err != nil {
		return nil, err
	}

	t := in.Window.SignedAt
	scope := BuildCredentialScope(t, s.Region, s.Service)
	req := &sigV4Request{
		url:        u,
		query:      make(map[string][]string),
		headers:    op.Headers.Clone(),
		credential: in.Account + "/" + scope,
	}

	if op.ContentLength != nil && *op.ContentLength > 0 {
		req.headers.Set(ContentLengthHeader, op.contentLength())
	}
	if len(op.ContentMD5) > 0 {
		req.headers.Set(ContentMD5Header, base64.StdEncoding.EncodeToString(op.ContentMD5))
	}
	if op.ContentType != "" {
		req.headers.Set(ContentTypeHeader, op.ContentType)
	}

	payloadHash := UnsignedPayload
	var signable Headers
	if s.Presign {
		if name, ok := presignReserved(op.Headers); ok {
			return nil, fmt.Errorf("%w: header %s collides with a presign query parameter", ErrMalformedResource, name)
		}
		req.query[AmzAlgorithmKey] = []string{SigningAlgorithm}
		req.query[AmzCredentialKey] = []string{req.credential}
		req.query[AmzDateKey] = []string{t.TimeFormat()}
		req.query[AmzExpiresKey] = []string{strconv.FormatInt(in.Window.Seconds(), 10)}
		signable = req.headers
		if !s.DisableHeaderHoisting {
			signable = s.hoist(req)
		}
	} else {
		req.headers.Set(AmzDateKey, t.TimeFormat())
		if v := req.headers.Get(ContentSHAKey); v != "" {
			payloadHash = v
		} else {
			req.headers.Set(ContentSHAKey, payloadHash)
		}
		signable = req.headers
	}

	req.signed = newCanonicalHeaders(canonicalHost(u), IgnoredHeaders, signable)
	if s.Presign {
		req.query[AmzSignedHeadersKey] = []string{req.signed.signedHeaders()}
	}

	canonicalRequest := BuildCanonicalRequest(
		op.Kind.Method(),
		GetURIPath(u),
		BuildCanonicalQuery(req.query),
		req.signed.String(),
		req.signed.signedHeaders(),
		payloadHash,
	)
	req.canonical = BuildStringToSign(t.TimeFormat(), scope, canonicalRequest)
	return req, nil
}

// presignAuthKeys are the query parameters a presigned URL carries once.
var presignAuthKeys = []string{
	AmzAlgorithmKey,
	AmzCredentialKey,
	AmzDateKey,
	AmzExpiresKey,
	AmzSignedHeadersKey,
	AmzSignatureKey,
}

// presignReserved returns the first header in h named like a presign
// authentication parameter.
func presignReserved(h Headers) (string, bool) {
	for _, hdr := range h {
		for _, key := range presignAuthKeys {
			if strings.EqualFold(hdr.Name, key) {
				return hdr.Name, true
			}
		}
	}
	return "", false
}

// hoist moves hoistable x-amz-* headers into the query and returns the
// headers left to sign. Hoisted headers are not sent as headers.
// Reference: AWS SDK v4 signer v4.go buildQuery
func (s *SigV4) hoist(req *sigV4Request) Headers {
	var kept Headers
	for _, hdr := range req.headers {
		if AllowedQueryHoisting.IsValid(CanonicalizeHeaderKey(hdr.Name)) {
			req.query[hdr.Name] = append(req.query[hdr.Name], hdr.Value)
			continue
		}
		kept = append(kept, hdr)
	}
	req.headers = kept
	return kept
}

// objectURL returns the URL of bucket/key.
func (s *SigV4) objectURL(bucket, key string) (*url.URL, error) {
	if s.Endpoint != "" {
		u, err := resourceURL(s.Endpoint, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResource, err)
		}
		return u, nil
	}

	if !isDNSBucketName(bucket) {
		return nil, fmt.Errorf("%w: bucket %q is not a valid virtual-hosted bucket name", ErrMalformedResource, bucket)
	}
	host := bucket + ".s3.amazonaws.com"
	if s.Region != DefaultS3Region {
		host = bucket + ".s3." + s.Region + ".amazonaws.com"
	}
	u, err := resourceURL("https://"+host, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResource, err)
	}
	return u, nil
}

// isDNSBucketName reports whether name can be used as a host label set:
// 3-63 lower-case letters, digits, '-' and '.', starting and ending with
// a letter or digit.
func isDNSBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		case c == '-' || c == '.':
			if i == 0 || i == len(name)-1 {
				return false
			}
		default:
			return false
		}
	}
	return !strings.Contains(name, "..")
}
