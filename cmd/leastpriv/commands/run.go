package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/DrSkyle/leastpriv/pkg/engine/analysis"
	"github.com/DrSkyle/leastpriv/pkg/engine/notifier"
	"github.com/DrSkyle/leastpriv/pkg/engine/policy"
	"github.com/DrSkyle/leastpriv/pkg/engine/report"
	"github.com/DrSkyle/leastpriv/pkg/resource"
	"github.com/DrSkyle/leastpriv/pkg/storage"
	"github.com/DrSkyle/leastpriv/pkg/telemetry"
	"github.com/DrSkyle/leastpriv/pkg/tui"
	"github.com/DrSkyle/leastpriv/pkg/version"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/charmbracelet/lipgloss"
)

// runOptions carries what differs between analyze and scan-file.
type runOptions struct {
	Sources   []analysis.LogSource
	Inventory resource.Inventory
	// AWSConfig is resolved lazily, only for s3:// output targets.
	AWSConfig func() (aws.Config, error)
	TUI       bool
	Out       io.Writer
}

// runAnalysis runs the orchestrator, writes artifacts and notifies. A
// non-nil result is returned alongside ErrPartialResult and
// ErrAllSourcesFailed so callers can still act on it.
func runAnalysis(ctx context.Context, opts runOptions) (*analysis.Result, error) {
	var rules *policy.CELEngine
	if cfg.RulesFile != "" {
		var err error
		if rules, err = policy.LoadRules(cfg.RulesFile); err != nil {
			return nil, err
		}
		logger.Info("Loaded suppression rules", "file", cfg.RulesFile, "rules", rules.Len())
	}

	orch, err := analysis.New(opts.Sources,
		analysis.WithInventory(opts.Inventory),
		analysis.WithRules(rules),
		analysis.WithLogger(logger),
		analysis.WithConfig(analysis.Config{Concurrency: cfg.Concurrency, StrictMode: cfg.StrictMode}),
		analysis.WithTracer(telemetry.Tracer("leastpriv/analysis")),
	)
	if err != nil {
		return nil, err
	}

	res, runErr := orch.Run(ctx)
	if res == nil {
		return nil, runErr
	}

	meta := report.Meta{Stack: cfg.Stack, Region: cfg.Region, Version: version.Current}
	store, err := storage.Open(cfg.Output.Dir, opts.AWSConfig)
	if err != nil {
		return res, err
	}
	written, err := report.Write(ctx, store, res, cfg.Output.Formats, meta)
	if err != nil {
		return res, err
	}

	if cfg.Output.SlackWebhook != "" {
		slack := notifier.NewSlackClient(cfg.Output.SlackWebhook, cfg.Output.SlackChannel)
		if err := slack.SendRunSummary(ctx, res, notifier.Summary{Stack: cfg.Stack, Region: cfg.Region}); err != nil {
			logger.Warn("Slack notification failed", "error", err)
		}
	}

	if opts.TUI {
		if err := tui.Run(res, cfg.Stack, cfg.Region); err != nil {
			return res, fmt.Errorf("tui: %w", err)
		}
	}
	printSummary(opts.Out, res, written)

	return res, runErr
}

func printSummary(w io.Writer, res *analysis.Result, written []string) {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF99"))
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))

	fmt.Fprintln(w, title.Render("ANALYSIS COMPLETE"))
	fmt.Fprintf(w, "  Sources: %d  Records: %d  Denials: %d  Suggestions: %d\n",
		res.Stats.Sources, res.Stats.RecordsScanned, res.Stats.Denials, len(res.Permissions))

	counts := res.CountBySeverity()
	for _, sev := range aggregate.Severities {
		fmt.Fprintf(w, "  %-9s %d\n", sev.String()+":", counts[sev])
	}
	if res.Stats.Suppressed > 0 {
		fmt.Fprintln(w, dim.Render(fmt.Sprintf("  %d suggestions suppressed by rules", res.Stats.Suppressed)))
	}
	for _, wn := range res.Warnings {
		fmt.Fprintln(w, warn.Render("  [WARN] "+wn.String()))
	}
	for _, f := range res.FailedSources {
		fmt.Fprintln(w, warn.Render(fmt.Sprintf("  [FAILED] %s: %s", f.Source, f.Error)))
	}
	if len(res.CleanSources) > 0 {
		fmt.Fprintln(w, dim.Render(fmt.Sprintf("  %d sources had no denials", len(res.CleanSources))))
	}
	for _, loc := range written {
		fmt.Fprintf(w, "  -> %s\n", loc)
	}
}
