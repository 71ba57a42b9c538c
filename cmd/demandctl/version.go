package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"demandboard/pkg/contracts"
)

func newVersionCmd() *cobra.Command {
	var short, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Needs no configuration
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch {
			case short:
				fmt.Fprintln(w, contracts.Version)
				return nil
			case jsonOutput:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(contracts.GetVersionInfo())
			default:
				fmt.Fprintln(w, contracts.GetFullVersionString())
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print version string only")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
