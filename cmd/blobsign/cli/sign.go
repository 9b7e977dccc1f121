package cli

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/forestrie/go-blobsign/signer"
)

// SecretEnv supplies --secret when the flag is not given.
const SecretEnv = "BLOBSIGN_SECRET"

// SignOptions are the flags of the sign command.
type SignOptions struct {
	Provider      string
	Operation     string
	Account       string
	Secret        string
	ExpiresIn     int64
	ContentLength int64
	ContentType   string
	ContentMD5    string
	Headers       []string
	File          string
	Output        string
}

// AddFlags adds the sign flags to cmd.
func (o *SignOptions) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Provider, "provider", "p", string(signer.AzureBlob),
		"signing provider (see the providers command)")
	cmd.Flags().StringVar(&o.Operation, "op", "get",
		"operation to sign: get, put or delete")
	cmd.Flags().StringVar(&o.Account, "account", "",
		"account name or access key id; defaults to the configured account")
	cmd.Flags().StringVar(&o.Secret, "secret", "",
		"account key or secret access key (or set "+SecretEnv+")")
	cmd.Flags().Int64Var(&o.ExpiresIn, "expires", 0,
		fmt.Sprintf("validity in seconds (default %d)", durationSeconds(signer.DefaultExpiry)))
	cmd.Flags().Int64Var(&o.ContentLength, "content-length", -1,
		"payload length in bytes")
	cmd.Flags().StringVar(&o.ContentType, "content-type", "",
		"payload media type")
	cmd.Flags().StringVar(&o.ContentMD5, "content-md5", "",
		"base64 MD5 digest of the payload")
	cmd.Flags().StringArrayVarP(&o.Headers, "header", "H", nil,
		`extra request header as "Name: value" (repeatable)`)
	cmd.Flags().StringVarP(&o.File, "file", "f", "",
		"payload file; sets content length and MD5")
	cmd.Flags().StringVarP(&o.Output, "output", "o", "text",
		"output format: text, json or yaml")
	_ = cmd.MarkFlagFilename("file")
}

// operation builds the signer.Operation described by the flags.
func (o *SignOptions) operation(resource string) (signer.Operation, error) {
	kind, err := signer.ParseOperationKind(o.Operation)
	if err != nil {
		return signer.Operation{}, err
	}

	var opts []signer.OperationOption
	if o.File != "" {
		f, err := os.Open(o.File)
		if err != nil {
			return signer.Operation{}, fmt.Errorf("failed to open payload: %w", err)
		}
		digests, err := signer.ComputePayloadDigests(f)
		f.Close()
		if err != nil {
			return signer.Operation{}, err
		}
		opts = append(opts, digests.OptionsFor(signer.ProviderID(o.Provider))...)
	}
	if o.ContentLength >= 0 {
		opts = append(opts, signer.WithContentLength(o.ContentLength))
	}
	if o.ContentMD5 != "" {
		sum, err := base64.StdEncoding.DecodeString(o.ContentMD5)
		if err != nil {
			return signer.Operation{}, fmt.Errorf("invalid --content-md5: %w", err)
		}
		opts = append(opts, signer.WithContentMD5(sum))
	}
	if o.ContentType != "" {
		opts = append(opts, signer.WithContentType(o.ContentType))
	}
	for _, h := range o.Headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return signer.Operation{}, fmt.Errorf("invalid --header %q, want \"Name: value\"", h)
		}
		opts = append(opts, signer.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	return signer.NewOperation(kind, resource, opts...)
}

// credentials prefers flags and the environment over configured accounts.
func (o *SignOptions) credentials(configured signer.Credentials, ok bool) (signer.Credentials, error) {
	secret := o.Secret
	if secret == "" {
		secret = os.Getenv(SecretEnv)
	}
	if o.Account == "" && secret == "" {
		if !ok {
			return signer.Credentials{}, fmt.Errorf("no account configured for provider %s; pass --account and --secret", o.Provider)
		}
		return configured, nil
	}

	// A configured secret belongs to the configured account only.
	if secret == "" && ok && o.Account != configured.Account {
		return signer.Credentials{}, fmt.Errorf("--secret is required when --account differs from the account configured for %s", o.Provider)
	}

	creds := signer.Credentials{Account: o.Account, Secret: secret}
	if ok {
		if creds.Account == "" {
			creds.Account = configured.Account
		}
		if creds.Secret == "" {
			creds.Secret = configured.Secret
		}
	}
	if creds.Account == "" || creds.Secret == "" {
		return signer.Credentials{}, errors.New("both --account and --secret are required")
	}
	return creds, nil
}

// NewSign creates the sign command.
func NewSign(ro *RootOptions) *cobra.Command {
	o := &SignOptions{}

	long := `Sign a blob operation and print the request to send.

    RESOURCE is CONTAINER/BLOB_NAME (or BUCKET/KEY for S3), not percent
    encoded. The signature is computed locally; nothing is sent.`

	cmd := &cobra.Command{
		Use:   "sign [OPTIONS] RESOURCE",
		Short: "Sign a blob operation.",
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ro.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			r, err := newRegistry(cfg, logger)
			if err != nil {
				return err
			}

			op, err := o.operation(args[0])
			if err != nil {
				return err
			}
			provider := signer.ProviderID(o.Provider)
			configured, ok := cfg.Credentials(provider)
			creds, err := o.credentials(configured, ok)
			if err != nil {
				return err
			}

			var opts []signer.SignOption
			if cmd.Flags().Changed("expires") {
				opts = append(opts, signer.WithExpiresIn(o.ExpiresIn))
			}

			req, err := r.SignContext(cmd.Context(), provider, op, creds, opts...)
			if err != nil {
				return err
			}
			return writeSignedRequest(cmd.OutOrStdout(), o.Output, req)
		},
	}

	o.AddFlags(cmd)
	return cmd
}

// signedOutput is the json and yaml rendering of a signed request.
type signedOutput struct {
	Method    string         `json:"method" yaml:"method"`
	URL       string         `json:"url" yaml:"url"`
	Headers   []headerOutput `json:"headers" yaml:"headers"`
	ExpiresAt time.Time      `json:"expires_at" yaml:"expires_at"`
}

type headerOutput struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

func writeSignedRequest(w io.Writer, format string, req *signer.SignedRequest) error {
	out := signedOutput{
		Method:    req.Method,
		URL:       req.URL,
		Headers:   make([]headerOutput, len(req.Headers)),
		ExpiresAt: req.ExpiresAt.Time,
	}
	for i, h := range req.Headers {
		out.Headers[i] = headerOutput{Name: h.Name, Value: h.Value}
	}

	switch format {
	case "text", "":
		fmt.Fprintln(w, req.RequestLine())
		for _, h := range req.Headers {
			fmt.Fprintf(w, "%s: %s\n", h.Name, h.Value)
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}
