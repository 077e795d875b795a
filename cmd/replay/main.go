package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wolfman30/scam-honeypot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/scam-honeypot/internal/config"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

type options struct {
	session   string
	offline   bool
	pretty    bool
	logLevel  string
	withSinks bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "replay <transcript>",
		Short: "Replay a scam transcript through the honeypot pipeline",
		Long: `Replay feeds every scammer message of a transcript through the honeypot,
one turn at a time, and prints the response for each turn as JSON.

The transcript is either a JSON array of {"sender","text","timestamp"} messages
or plain text with one scammer message per line. Use "-" to read stdin.
State is kept in memory; report sinks are skipped unless --sinks is set.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runReplay(ctx, cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.session, "session", "", "session id to use (default: derived from the first message)")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "disable model tiers; classifier off and canned persona replies")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "error", "log level for pipeline logs written to stderr")
	cmd.Flags().BoolVar(&opts.withSinks, "sinks", false, "deliver the final report to the configured sinks")
	return cmd
}

func runReplay(ctx context.Context, cmd *cobra.Command, path string, opts *options) error {
	in := cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open transcript: %w", err)
		}
		defer f.Close()
		in = f
	}
	msgs, err := loadTranscript(in)
	if err != nil {
		return err
	}

	cfg := appconfig.Load()
	cfg.StoreBackend = "memory"
	cfg.LockBackend = "local"
	cfg.RedisAddr = ""
	if opts.offline {
		cfg.BedrockModelID = ""
		cfg.GeminiAPIKey = ""
	}
	if !opts.withSinks {
		cfg.ReportTable = ""
		cfg.ReportBucket = ""
		cfg.ReportQueueURL = ""
		cfg.CallbackURL = ""
		cfg.AlertEmailFrom = ""
		cfg.AlertEmailTo = nil
	}

	logger := logging.NewWithWriter(cmd.ErrOrStderr(), opts.logLevel)
	honeypot, err := bootstrap.BuildHoneypot(ctx, cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		return err
	}
	defer honeypot.Close()

	return replay(ctx, honeypot.Service, msgs, replayOptions{
		session: opts.session,
		pretty:  opts.pretty,
	}, cmd.OutOrStdout())
}
