// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/insight-engine/internal/engine"
)

var showCmd = &cobra.Command{
	Use:   "show <summary.yaml>",
	Short: "Reformat a previously saved research summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := engine.ReadSummaryFile(args[0])
		if err != nil {
			return err
		}
		if format, _ := cmd.Flags().GetString("format"); format == "json" {
			return engine.FormatJSON(summary, os.Stdout)
		}
		engine.FormatTable(summary, os.Stdout)
		return nil
	},
}

func init() {
	showCmd.Flags().String("format", "table", "output format: table or json")
	rootCmd.AddCommand(showCmd)
}
