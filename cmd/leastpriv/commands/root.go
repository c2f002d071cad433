package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DrSkyle/leastpriv/pkg/config"
	"github.com/DrSkyle/leastpriv/pkg/engine/analysis"
	"github.com/DrSkyle/leastpriv/pkg/logging"
	"github.com/DrSkyle/leastpriv/pkg/telemetry"
	"github.com/DrSkyle/leastpriv/pkg/version"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitPartial = 2
)

var (
	cfgFile string
	cfg     config.Config
	logger  = slog.Default()

	shutdownTelemetry func(context.Context) error
)

// flagKeys maps command line flags to config keys. Flags a command does not
// define are skipped when binding.
var flagKeys = map[string]string{
	"region":           "region",
	"profile":          "profile",
	"stack":            "stack",
	"log-group-prefix": "sources.log_group_prefix",
	"lookback":         "sources.lookback",
	"max-events":       "sources.max_events",
	"filter-pattern":   "sources.filter_pattern",
	"cloudtrail":       "sources.cloudtrail",
	"lambda-inventory": "sources.lambda_inventory",
	"output-dir":       "output.output_dir",
	"format":           "output.formats",
	"slack-webhook":    "output.slack_webhook",
	"slack-channel":    "output.slack_channel",
	"concurrency":      "concurrency",
	"rules":            "rules_file",
	"verify":           "verify",
	"publish-metrics":  "publish_metrics",
	"strict":           "strict",
	"otel-endpoint":    "otel_endpoint",
	"json-logs":        "json_logs",
	"log-level":        "log_level",
	"verbose":          "verbose",
}

var rootCmd = &cobra.Command{
	Use:   "leastpriv",
	Short: "Least-privilege IAM policies from observed access denials",
	Long: `leastpriv reads authorization failures from CloudWatch Logs, CloudTrail or local
log files and proposes the smallest IAM policy that would have allowed them.`,
	Version:       version.Current,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := config.NewViper(cfgFile)
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("bind --%s: %w", name, err)
				}
			}
		}

		loaded, err := config.Load(v, cfgFile != "")
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.LogLevel
		if cfg.Verbose {
			level = "debug"
		}
		logger = logging.New(os.Stderr, logging.Options{JSON: cfg.JSONLogs, Level: level})
		slog.SetDefault(logger)

		shutdownTelemetry, err = telemetry.Init(cmd.Context(), version.AppName, version.Current, cfg.OtelEndpoint)
		if err != nil {
			logger.Warn("Telemetry disabled", "error", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return flushTelemetry()
	},
}

func flushTelemetry() error {
	if shutdownTelemetry == nil {
		return nil
	}
	err := shutdownTelemetry(context.Background())
	shutdownTelemetry = nil
	return err
}

// Execute runs the CLI and returns the process exit code. Partial results
// in strict mode exit with ExitPartial.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRunE does not run after a failed RunE.
	_ = flushTelemetry()

	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, analysis.ErrPartialResult):
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExitPartial
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExitError
	}
}

func init() {
	d := config.Default()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $HOME/"+config.FileName+")")
	pf.String("region", d.Region, "AWS Region")
	pf.String("profile", "", "AWS shared config profile")
	pf.String("output-dir", d.Output.Dir, "Artifact directory or s3://bucket/prefix")
	pf.StringSlice("format", d.Output.Formats, "Report formats: json, csv, markdown, terraform")
	pf.String("rules", "", "YAML suppression rules file")
	pf.Int("concurrency", d.Concurrency, "Sources fetched in parallel")
	pf.Bool("strict", false, "Exit non-zero when any source failed")
	pf.String("slack-webhook", "", "Slack Webhook URL")
	pf.String("slack-channel", "", "Slack channel override")
	pf.String("otel-endpoint", "", "OTLP HTTP endpoint for traces")
	pf.Bool("json-logs", false, "Emit logs as JSON")
	pf.String("log-level", d.LogLevel, "Log level: debug, info, warn, error")
	pf.BoolP("verbose", "v", false, "Debug logging including every AWS API call")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scanFileCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(permissionsCmd)
	rootCmd.AddCommand(versionCmd)
}

func renderHelp(cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FF99")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("LEASTPRIV %s", version.Current)))
	if cmd.Long != "" {
		fmt.Fprintln(out, cmd.Long)
	} else {
		fmt.Fprintln(out, cmd.Short)
	}

	fmt.Fprintln(out, titleStyle.Render("USAGE"))
	fmt.Fprintf(out, "  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(out, titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Fprintf(out, "  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Fprintln(out)
	}

	if cmd.Example != "" {
		fmt.Fprintln(out, titleStyle.Render("EXAMPLES"))
		fmt.Fprintln(out, cmd.Example)
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-18s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Fprintln(out, flagStyle.Render(output))
	})
	fmt.Fprintln(out)
}
