package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rowguard/rowguard"
	"github.com/rowguard/rowguard/clinic"
	"github.com/rowguard/rowguard/internal/cli"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Render the effective policy table",
	Long: `Render the policy table as one line per (relation, operation) pair, with
the predicate in its canonical form. Useful for review and for diffing
policy changes across revisions.`,
	Example: `  # Aligned plain-text table
  rowguard inspect

  # YAML, for machine diffing
  rowguard inspect --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := resolveString(inspectFormat, cfg.Inspect.Format)
		rules := clinic.Rules()

		switch format {
		case "table":
			fmt.Print(rowguard.FormatRules(rules))
		case "yaml":
			out, err := rowguard.MarshalRules(rules)
			if err != nil {
				return cli.GeneralError("rendering policy table", err)
			}
			fmt.Print(string(out))
		default:
			return cli.ConfigError(fmt.Sprintf("unknown format %q (want table or yaml)", format), nil)
		}

		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "", "output format: table or yaml")
}
