package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-optimum/internal/application"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a run config without judging",
		Long:  "Parse the run config strictly, apply struct and semantic validation, and report the first set of problems found.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := application.LoadRunConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "config %s is valid: %d objectives, %d trials, judge %s\n",
				config.Metadata.Name, len(config.Objectives), len(config.Trials), config.Judge.Type)
			return nil
		},
	}
}
