package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/DrSkyle/leastpriv/pkg/engine/permissions"
	"github.com/DrSkyle/leastpriv/pkg/engine/policy"
	"github.com/DrSkyle/leastpriv/pkg/engine/report"
	"github.com/DrSkyle/leastpriv/pkg/storage"
	"github.com/DrSkyle/leastpriv/pkg/version"
	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Synthesize a policy from stored suggestions",
	Long: `Reads suggestions written by a previous run (suggestions.json or a bare JSON
array), applies the suppression rules if configured, and prints the IAM policy.`,
	Example: `  leastpriv policy --input leastpriv-out/suggestions.json
  leastpriv policy --input s3://audit-bucket/leastpriv/suggestions.json --terraform`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input, _ := cmd.Flags().GetString("input")
		asTerraform, _ := cmd.Flags().GetBool("terraform")

		data, err := readInput(ctx, input)
		if err != nil {
			return err
		}
		perms, err := report.DecodeSuggestions(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", input, err)
		}

		if cfg.RulesFile != "" {
			rules, err := policy.LoadRules(cfg.RulesFile)
			if err != nil {
				return err
			}
			var warnings []policy.Warning
			if perms, warnings, err = policy.Filter(ctx, rules, perms); err != nil {
				return err
			}
			for _, w := range warnings {
				logger.Warn("Rule warning", "rule", w.RuleID, "action", w.Action, "resource", w.Resource)
			}
		}

		doc := permissions.Synthesize(perms)
		var out []byte
		if asTerraform {
			out, err = report.GenerateTerraform(doc, report.Meta{Stack: cfg.Stack, Region: cfg.Region, Version: version.Current})
		} else {
			out, err = report.GeneratePolicy(doc)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(out), "\n"))
		return nil
	},
}

// readInput loads a local path or an s3://bucket/key object.
func readInput(ctx context.Context, target string) ([]byte, error) {
	dir, key := ".", target
	if i := strings.LastIndex(target, "/"); i >= 0 {
		dir, key = target[:i], target[i+1:]
	}
	if key == "" {
		return nil, fmt.Errorf("input %q names a directory", target)
	}
	store, err := storage.Open(dir, lazyAWSConfig(ctx))
	if err != nil {
		return nil, err
	}
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return data, nil
}

func init() {
	policyCmd.Flags().String("input", report.ResultFile, "Suggestions file or s3://bucket/key")
	policyCmd.Flags().Bool("terraform", false, "Print an aws_iam_policy resource instead of JSON")
}
