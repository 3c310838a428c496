package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rowguard/rowguard"
	"github.com/rowguard/rowguard/clinic"
	"github.com/rowguard/rowguard/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the policy model",
	Long: `Validate the policy and relationship path tables: empty predicate sets,
undeclared or misanchored paths, and cycles in the foreign-key graph.`,
	Example: `  # Validate the built-in clinic model
  rowguard validate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, paths := clinic.Rules(), clinic.Paths()
		if err := rowguard.Validate(rules, paths); err != nil {
			return cli.ModelError("validating policy model", err)
		}

		if !quiet {
			fmt.Printf("Policy model is valid: %d policies, %d relationship paths.\n",
				len(rules.Policies()), len(paths.Names()))
		}

		return nil
	},
}
