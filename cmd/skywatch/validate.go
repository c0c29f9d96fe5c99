package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skywatch-sim/internal/config"
)

var validateSchema string

var validateCmd = &cobra.Command{
	Use:   "validate [config.yaml]",
	Short: "Check a configuration file against the schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateFile(args[0], validateSchema); err != nil {
			return err
		}
		if validateSchema == "" {
			// the embedded schema also gets the cross-field checks
			if _, err := config.Load(args[0]); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "CUE schema file (default: embedded schema)")
}
