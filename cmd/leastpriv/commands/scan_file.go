package commands

import (
	"context"
	"fmt"

	"github.com/DrSkyle/leastpriv/pkg/engine/analysis"
	awsclient "github.com/DrSkyle/leastpriv/pkg/engine/aws"
	"github.com/DrSkyle/leastpriv/pkg/engine/logfile"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
)

var scanFileCmd = &cobra.Command{
	Use:   "scan-file <path>...",
	Short: "Analyze local log files without AWS access",
	Long: `Treats every file as one source. Lines may be CloudWatch export JSON, CloudTrail
event JSON, or plain text with an optional leading timestamp. Directories are
read recursively and .gz files are decompressed.`,
	Example: `  leastpriv scan-file ./exports/*.json
  leastpriv scan-file ./logs --format markdown,csv --tui`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		showTUI, _ := cmd.Flags().GetBool("tui")

		_, err := runAnalysis(ctx, runOptions{
			Sources:   []analysis.LogSource{logfile.NewSource(args...)},
			AWSConfig: lazyAWSConfig(ctx),
			TUI:       showTUI,
			Out:       cmd.OutOrStdout(),
		})
		return err
	},
}

// lazyAWSConfig builds a session only when a caller needs one.
func lazyAWSConfig(ctx context.Context) func() (aws.Config, error) {
	return func() (aws.Config, error) {
		client, err := awsclient.NewClient(ctx, awsclient.SessionOptions{
			Region:  cfg.Region,
			Profile: cfg.Profile,
			Verbose: cfg.Verbose,
			Logger:  logger,
		})
		if err != nil {
			return aws.Config{}, fmt.Errorf("aws session: %w", err)
		}
		return client.Config, nil
	}
}

func init() {
	scanFileCmd.Flags().Bool("tui", false, "Browse suggestions interactively")
}
