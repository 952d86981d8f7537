// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/collegelinks/collegelinks/profile"
	"github.com/collegelinks/collegelinks/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the geocoding API server (local only)",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		resolver, err := buildResolver(resolveOptions)
		if err != nil {
			return err
		}

		db, err := sql.Open("duckdb", resolveOptions.dbPath())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		repo := profile.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		srv := server.NewServer(resolver, repo, resolveOptions.RetryBudget)

		fmt.Println("🗺️  Geocoding API server starting...")
		fmt.Println("📍 Open http://localhost:8080 in your browser")
		fmt.Println("🔒 Local only - not exposed to internet")

		return srv.Run()
	},
}

func init() {
	registerResolverFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}
