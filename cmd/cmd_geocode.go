// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Resolve a single address to validated coordinates",
	Long: `Resolves a free-form Indian institutional address through the provider
chain and prints the result as JSON. A resolution failure still prints a
terminal result with "source": "none"; the command exits non-zero in that
case so scripts can branch on it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := buildResolver(resolveOptions)
		if err != nil {
			return err
		}

		result := resolver.Geocode(strings.Join(args, " "), resolveOptions.RetryBudget)

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}

		fmt.Println(string(data))

		if result.Failed() {
			os.Exit(1)
		}

		return nil
	},
}

func init() {
	registerResolverFlags(geocodeCmd)
	rootCmd.AddCommand(geocodeCmd)
}
