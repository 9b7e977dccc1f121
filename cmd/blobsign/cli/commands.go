// Package cli implements the blobsign command tree.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forestrie/go-blobsign/internal/config"
	"github.com/forestrie/go-blobsign/internal/logging"
	"github.com/forestrie/go-blobsign/signer"
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

// RootOptions are the flags shared by every subcommand.
type RootOptions struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
}

// AddFlags adds the root-level flags to cmd.
func (o *RootOptions) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "",
		"path to a YAML config file")
	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", "",
		"override the minimum log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&o.LogFormat, "log-format", "",
		"override the log encoding (json, console)")
}

// load reads the configuration and applies flag overrides.
func (o *RootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Logging.Encoding = o.LogFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Encoding: cfg.Logging.Encoding,
	})
}

func newRegistry(cfg *config.Config, logger *zap.Logger, opts ...signer.Option) (*signer.Registry, error) {
	opts = append([]signer.Option{signer.WithLogger(logger)}, opts...)
	return signer.NewDefaultRegistry(signer.SystemClock, cfg.Signer.Engine(), opts...)
}

// New returns the root command.
func New() *cobra.Command {
	ro := &RootOptions{}

	cmd := &cobra.Command{
		Use:               "blobsign",
		Short:             "Sign blob storage requests for Azure Blob Storage and S3.",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	ro.AddFlags(cmd)

	cmd.AddCommand(NewSign(ro))
	cmd.AddCommand(NewProviders(ro))
	cmd.AddCommand(NewServe(ro))
	cmd.AddCommand(NewVersion())
	return cmd
}

// NewVersion prints the build version.
func NewVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "blobsign %s (azure sv=%s)\n", Version, signer.AzureAPIVersion)
		},
	}
}

// NewProviders lists the registered providers.
func NewProviders(ro *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the signing providers.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ro.load()
			if err != nil {
				return err
			}
			r, err := newRegistry(cfg, zap.NewNop())
			if err != nil {
				return err
			}
			for _, p := range r.Providers() {
				_, configured := cfg.Credentials(p)
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s account configured: %t\n", p, configured)
			}
			return nil
		},
	}
}

// durationSeconds renders d for flag help.
func durationSeconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
