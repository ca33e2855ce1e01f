// Command coachctl renders reports from the command line and manages the
// report archive schema.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yks-coach/coach-hub/config"
	"github.com/yks-coach/coach-hub/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cliState is shared by the subcommands.
type cliState struct {
	envFile  string
	logLevel string
	timeout  time.Duration

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:   "coachctl",
		Short: "Progress reports for the YKS coaching platform",
		Long: `coachctl renders student progress reports from the coaching platform
and manages the report archive.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(st.envFile)
			if err != nil {
				return err
			}
			level := st.logLevel
			if level == "" {
				level = cfg.Observability.LogLevel
			}
			st.cfg = cfg
			st.log = logger.New(logger.Options{Output: stderr, Level: level, Format: "text"})
			slog.SetDefault(st.log)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&st.envFile, "env-file", ".env", "Path of the .env file")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "Log level (default: LOG_LEVEL)")
	root.PersistentFlags().DurationVar(&st.timeout, "timeout", 5*time.Minute, "Operation timeout")

	root.AddCommand(
		newReportCmd(st),
		newBatchCmd(st),
		newMigrateCmd(st),
		newVersionCmd(),
	)
	return root
}

// opContext returns the command context bounded by --timeout.
func (st *cliState) opContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if st.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, st.timeout)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "coachctl", version)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
