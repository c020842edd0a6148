// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the SquareCheck CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "squarecheck",
		Short: "SquareCheck - classroom attendance service",
		Long: `SquareCheck is the attendance service for classroom courses,
serving the session-based authentication API and its supporting tooling.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}
