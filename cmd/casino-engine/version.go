package main

import (
	"github.com/spf13/cobra"

	"github.com/MJE43/entropy-casino-engine/internal/api"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the engine version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), api.GetVersionInfo())
		},
	}
}
