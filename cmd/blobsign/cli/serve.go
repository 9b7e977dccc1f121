package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forestrie/go-blobsign/internal/metrics"
	"github.com/forestrie/go-blobsign/internal/server"
	"github.com/forestrie/go-blobsign/signer"
)

// NewServe creates the serve command, which runs the presign service.
func NewServe(ro *RootOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP presign service.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ro.load()
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			m := metrics.New()
			r, err := newRegistry(cfg, logger, signer.WithObserver(m))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("blobsign starting",
				zap.String("version", Version),
				zap.Int("accounts", len(cfg.Accounts)),
				zap.String("s3_region", cfg.Signer.S3Region),
			)
			srv := server.New(r, cfg, m.Handler(), logger)
			return srv.Run(ctx, server.ListenConfig{
				Address:         cfg.Server.Address,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			})
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address (overrides server.address)")
	return cmd
}
