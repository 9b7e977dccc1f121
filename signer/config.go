package signer

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the provider settings of a default Registry.
// Every field is optional.
type Config struct {
	// AzureEndpoint is the blob endpoint template; %s is the account.
	AzureEndpoint string

	// AzureVersion is the storage service version to sign.
	AzureVersion string

	// S3Region is the AWS region (e.g., "auto" for Cloudflare R2).
	S3Region string

	// S3Service is the SigV4 service name (defaults to "s3").
	S3Service string

	// S3Endpoint selects path-style URLs for S3-compatible stores.
	S3Endpoint string

	// DefaultExpiry applies when a caller gives no explicit duration.
	DefaultExpiry time.Duration

	// DisableHeaderHoisting keeps x-amz-* headers out of presigned queries.
	DisableHeaderHoisting bool
}

// Validate checks the fields and fills in defaults.
func (c *Config) Validate() error {
	if c.AzureEndpoint == "" {
		c.AzureEndpoint = DefaultAzureEndpoint
	}
	if c.AzureVersion == "" {
		c.AzureVersion = AzureAPIVersion
	}
	if c.S3Region == "" {
		c.S3Region = DefaultS3Region
	}
	if c.S3Service == "" {
		c.S3Service = "s3"
	}
	if c.S3Endpoint != "" {
		u, err := url.Parse(c.S3Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("s3 endpoint %q must be an absolute URL", c.S3Endpoint)
		}
	}
	if c.DefaultExpiry < 0 {
		return fmt.Errorf("default expiry %s must not be negative", c.DefaultExpiry)
	}
	if c.DefaultExpiry == 0 {
		c.DefaultExpiry = DefaultExpiry
	}
	if c.DefaultExpiry > MaxPresignExpiry {
		return fmt.Errorf("default expiry %s exceeds %s", c.DefaultExpiry, MaxPresignExpiry)
	}
	return nil
}

// Built-in provider identifiers.
const (
	AzureBlob          ProviderID = "azureblob"
	AzureBlobSharedKey ProviderID = "azureblob-sharedkey"
	AWSS3              ProviderID = "aws-s3"
	AWSS3Header        ProviderID = "aws-s3-header"
)

// NewDefaultRegistry returns a Registry with every built-in provider
// registered.
func NewDefaultRegistry(clock Clock, config Config, opts ...Option) (*Registry, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	r := NewRegistry(clock, opts...)
	azureExpiry := ExpiryPolicy{Default: config.DefaultExpiry}
	s3Expiry := ExpiryPolicy{Default: config.DefaultExpiry, Max: MaxPresignExpiry}

	sas := AzureSAS{Endpoint: config.AzureEndpoint, Version: config.AzureVersion}
	sharedKey := AzureSharedKey{Endpoint: config.AzureEndpoint, Version: config.AzureVersion}

	deriver := NewSigningKeyDeriver()
	presign := NewSigV4(config.S3Region, config.S3Service, config.S3Endpoint, true, deriver)
	presign.DisableHeaderHoisting = config.DisableHeaderHoisting
	header := NewSigV4(config.S3Region, config.S3Service, config.S3Endpoint, false, deriver)

	strategies := map[ProviderID]Strategy{
		AzureBlob: {
			Canonicalizer: sas,
			Signature:     HMACComputer{},
			Assembler:     sas,
			DecodeKey:     Base64Key,
			Permissions:   DefaultPermissions,
			Expiry:        azureExpiry,
		},
		AzureBlobSharedKey: {
			Canonicalizer: sharedKey,
			Signature:     HMACComputer{},
			Assembler:     sharedKey,
			DecodeKey:     Base64Key,
			Permissions:   DefaultPermissions,
			Expiry:        azureExpiry,
		},
		AWSS3: {
			Canonicalizer: presign,
			Signature:     presign,
			Assembler:     presign,
			DecodeKey:     RawKey,
			Permissions:   DefaultPermissions,
			Expiry:        s3Expiry,
		},
		AWSS3Header: {
			Canonicalizer: header,
			Signature:     header,
			Assembler:     header,
			DecodeKey:     RawKey,
			Permissions:   DefaultPermissions,
			Expiry:        s3Expiry,
		},
	}
	for id, s := range strategies {
		if err := r.Register(id, s); err != nil {
			return nil, err
		}
	}
	return r, nil
}
