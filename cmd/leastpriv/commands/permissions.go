package commands

import (
	"fmt"
	"strings"

	"github.com/DrSkyle/leastpriv/pkg/engine/permissions"
	"github.com/spf13/cobra"
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Print the IAM policy leastpriv itself needs",
	Long: `Generates the IAM JSON policy required to run leastpriv. Modules: ` + strings.ToLower(strings.Join(permissions.Modules(), ", ")) + `.`,
	Example: `  leastpriv permissions
  leastpriv permissions --modules logs,cloudformation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		modules, _ := cmd.Flags().GetStringSlice("modules")
		jsonBytes, err := permissions.SelfPolicy(modules).JSON()
		if err != nil {
			return fmt.Errorf("error generating policy: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonBytes))
		return nil
	},
}

func init() {
	permissionsCmd.Flags().StringSlice("modules", nil, "Limit to these modules (default all)")
}
