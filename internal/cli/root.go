// Package cli implements irdashctl, a one-shot terminal view of the
// dashboard.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/bootstrap"
	"github.com/irdash/backend/internal/infrastructure/config"
	"github.com/irdash/backend/internal/infrastructure/logger"
)

type globalFlags struct {
	logLevel string
	timeout  time.Duration
}

// NewRootCmd builds the irdashctl command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "irdashctl",
		Short: "Investor relations dashboard from the terminal",
		Long: `irdashctl connects to the configured gateway, loads the dashboard once
and prints it. Configuration comes from config.toml and IRDASH_* variables,
the same as the server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 15*time.Second, "Give up after this long")

	root.AddCommand(membersCmd(flags))
	root.AddCommand(dealsCmd(flags))
	root.AddCommand(volumeCmd(flags))
	root.AddCommand(metricsCmd(flags))
	root.AddCommand(usersCmd(flags))
	return root
}

// session is one connected dashboard.
type session struct {
	cfg  *config.Config
	log  *zap.Logger
	rt   *bootstrap.Runtime
	dash *dashboard.Dashboard
}

func (s *session) close() {
	if s.dash != nil {
		s.dash.Stop()
	}
	_ = s.rt.Close()
	_ = s.log.Sync()
}

// connect loads configuration and opens the gateway. The dashboard is only
// started when withDashboard is set.
func connect(ctx context.Context, flags *globalFlags, withDashboard bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(&logger.Config{
		Level:      flags.logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "15:04:05",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	rt, err := bootstrap.Open(ctx, cfg, log, nil, nil)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: log, rt: rt}
	if withDashboard {
		s.dash = bootstrap.NewDashboard(ctx, rt, cfg, log)
	}
	return s, nil
}

// run wraps a command body with a timeout and a connected session.
func run(cmd *cobra.Command, flags *globalFlags, withDashboard bool, body func(ctx context.Context, s *session) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	s, err := connect(ctx, flags, withDashboard)
	if err != nil {
		return err
	}
	defer s.close()
	return body(ctx, s)
}

// Execute runs irdashctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
