package commands

import (
	"fmt"

	"github.com/DrSkyle/leastpriv/pkg/config"
	"github.com/DrSkyle/leastpriv/pkg/engine/analysis"
	awsclient "github.com/DrSkyle/leastpriv/pkg/engine/aws"
	"github.com/DrSkyle/leastpriv/pkg/resource"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze CloudWatch Logs (and CloudTrail) for access denials",
	Long: `Reads recent denials from CloudWatch Logs, optionally scoped to a CloudFormation
stack, and writes suggested permissions plus a synthesized IAM policy.`,
	Example: `  leastpriv analyze --stack orders-prod --lookback 48h
  leastpriv analyze --log-group-prefix /aws/lambda/orders --cloudtrail --format json,terraform
  leastpriv analyze --stack orders-prod --verify --output-dir s3://audit-bucket/leastpriv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := awsclient.NewClient(ctx, awsclient.SessionOptions{
			Region:  cfg.Region,
			Profile: cfg.Profile,
			Verbose: cfg.Verbose,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		identity, err := client.VerifyIdentity(ctx)
		if err != nil {
			return fmt.Errorf("failed to verify identity: %w", err)
		}
		logger.Info("Connected to AWS", "identity", identity, "region", cfg.Region)

		var inv resource.Inventory
		switch {
		case cfg.Stack != "":
			inv, err = awsclient.StackInventory(ctx, awsclient.NewStackClient(client.Config), cfg.Stack)
		case cfg.Sources.LambdaInventory:
			inv, err = awsclient.LambdaInventory(ctx, awsclient.NewLambdaClient(client.Config))
		}
		if err != nil {
			return err
		}

		logs := awsclient.NewLogsSource(client.Config)
		logs.Prefix = cfg.Sources.LogGroupPrefix
		logs.FilterPattern = cfg.Sources.FilterPattern
		logs.Lookback = cfg.Sources.Lookback
		logs.MaxEvents = cfg.Sources.MaxEvents
		if cfg.Stack != "" {
			// A stack always pins the groups, even when it owns none.
			logs.Groups = inv.LogGroups()
			logs.Pinned = true
		}
		sources := []analysis.LogSource{logs}

		if cfg.Sources.CloudTrail {
			ct := awsclient.NewCloudTrailSource(client.Config)
			ct.Lookback = cfg.Sources.Lookback
			ct.MaxEvents = cfg.Sources.MaxEvents
			sources = append(sources, ct)
		}

		showTUI, _ := cmd.Flags().GetBool("tui")
		res, runErr := runAnalysis(ctx, runOptions{
			Sources:   sources,
			Inventory: inv,
			AWSConfig: func() (aws.Config, error) { return client.Config, nil },
			TUI:       showTUI,
			Out:       cmd.OutOrStdout(),
		})
		if res == nil {
			return runErr
		}

		if cfg.Verify {
			issues, err := awsclient.VerifyPolicy(ctx, awsclient.NewIAMClient(client.Config), res.Policy)
			if err != nil {
				logger.Warn("Policy verification failed", "error", err)
			}
			for _, is := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "  [VERIFY] %s on %s: %s\n", is.Action, is.Resource, is.Decision)
			}
			if err == nil && len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "  [VERIFY] every suggested pair is allowed by the policy")
			}
		}

		if cfg.PublishMetrics {
			err := awsclient.PublishMetrics(ctx, awsclient.NewCloudWatchClient(client.Config), awsclient.RunMetrics{
				Stack:         cfg.Stack,
				BySeverity:    res.CountBySeverity(),
				FailedSources: len(res.FailedSources),
				At:            res.GeneratedAt,
			})
			if err != nil {
				logger.Warn("Metric publishing failed", "error", err)
			}
		}
		return runErr
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.String("stack", "", "CloudFormation stack whose resources scope the run")
	f.String("log-group-prefix", "", "Only read log groups with this prefix (ignored with --stack)")
	f.Duration("lookback", config.DefaultLookback, "How far back to read events")
	f.Int("max-events", config.DefaultMaxEvents, "Cap on events per source, 0 for no cap")
	f.String("filter-pattern", "", "CloudWatch Logs filter pattern override")
	f.Bool("cloudtrail", false, "Also read CloudTrail event history")
	f.Bool("lambda-inventory", false, "Use ListFunctions as inventory when no stack is set")
	f.Bool("verify", false, "Simulate the synthesized policy with IAM")
	f.Bool("publish-metrics", false, "Publish run metrics to CloudWatch")
	f.Bool("tui", false, "Browse suggestions interactively")
}
