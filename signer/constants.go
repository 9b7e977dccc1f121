package signer

import "time"

// DefaultExpiry is the validity window used when the caller does not
// supply an explicit duration.
const DefaultExpiry = 15 * time.Minute

// Azure Blob Storage constants.
// Reference: Azure Storage REST API, "Create a service SAS" and
// "Authorize with Shared Key" (x-ms-version 2017-04-17).
const (
	// AzureAPIVersion is the storage service version signed into SAS tokens
	// and sent as x-ms-version.
	AzureAPIVersion = "2017-04-17"

	// DefaultAzureEndpoint is the blob endpoint template; %s is the account.
	DefaultAzureEndpoint = "https://%s.blob.core.windows.net"

	// SAS query parameter keys, in the order they are appended to the URL.
	AzureSASVersionKey    = "sv"
	AzureSASExpiryKey     = "se"
	AzureSASResourceKey   = "sr"
	AzureSASPermissionKey = "sp"
	AzureSASSignatureKey  = "sig"

	// AzureBlobResource is the signed resource type for a single blob.
	AzureBlobResource = "b"

	AzureBlobTypeHeader = "x-ms-blob-type"
	AzureBlockBlob      = "BlockBlob"
	AzureDateHeader     = "x-ms-date"
	AzureVersionHeader  = "x-ms-version"

	// AzureSharedKeyScheme prefixes the Shared Key Authorization header.
	AzureSharedKeyScheme = "SharedKey"

	// AzureHeaderPrefix marks headers that take part in Shared Key
	// canonicalized headers.
	AzureHeaderPrefix = "x-ms-"
)

// Signature Version 4 (SigV4) constants.
// Reference: AWS SDK v4 signer internal/v4/const.go
const (
	// EmptyStringSHA256 is the hex encoded SHA256 hash of an empty string.
	EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	// UnsignedPayload is signed in place of a body hash. The engine never
	// sees request bodies.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// SigningAlgorithm is the SigV4 signing algorithm identifier.
	SigningAlgorithm = "AWS4-HMAC-SHA256"

	AmzAlgorithmKey     = "X-Amz-Algorithm"
	AmzDateKey          = "X-Amz-Date"
	AmzCredentialKey    = "X-Amz-Credential"
	AmzExpiresKey       = "X-Amz-Expires"
	AmzSignedHeadersKey = "X-Amz-SignedHeaders"
	AmzSignatureKey     = "X-Amz-Signature"
	ContentSHAKey       = "X-Amz-Content-Sha256"

	// MaxPresignExpiry is the longest window S3 accepts in X-Amz-Expires.
	MaxPresignExpiry = 7 * 24 * time.Hour

	// DefaultS3Region is used when no region is configured.
	DefaultS3Region = "us-east-1"
)

// Common HTTP header names.
const (
	AuthorizationHeader = "Authorization"
	DateHeader          = "Date"
	ContentLengthHeader = "Content-Length"
	ContentTypeHeader   = "Content-Type"
	ContentMD5Header    = "Content-MD5"
)

// Time layouts.
const (
	// ISO8601Format is second precision UTC, as signed into SAS expiry.
	ISO8601Format = "2006-01-02T15:04:05Z"

	// RFC1123Format is the HTTP date format (always GMT).
	RFC1123Format = "Mon, 02 Jan 2006 15:04:05 GMT"

	// TimeFormat is the time format for X-Amz-Date header/query.
	// Format: YYYYMMDDTHHMMSSZ
	TimeFormat = "20060102T150405Z"

	// ShortTimeFormat is the shortened time format for credential scope.
	// Format: YYYYMMDD
	ShortTimeFormat = "20060102"
)
