// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/collegelinks/collegelinks/geocoding"
	"github.com/collegelinks/collegelinks/profile"
	"github.com/collegelinks/collegelinks/utils"
)

var batchCmd = &cobra.Command{
	Use:   "batch <colleges.csv>",
	Short: "Geocode a CSV of colleges into the local database",
	Long: `Reads a CSV with header id,name,address[,type,established], resolves
every address and upserts the resulting profiles into the local DuckDB
database. Already-resolved addresses are served from the cache, so the
command is safe to re-run after interruptions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		colleges, err := readCollegesCSV(args[0])
		if err != nil {
			return err
		}

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

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(colleges),
				progressbar.OptionSetDescription("Geocoding"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		var resolved int

		for _, p := range colleges {
			result := resolver.Geocode(p.Address, resolveOptions.RetryBudget)

			p.Point = result.Point
			p.Source = string(result.Source)
			p.Confidence = result.Confidence
			p.ValidationScore = result.ValidationScore

			if result.Failed() {
				logFailure(p, result)
			} else {
				resolved++
			}

			if err := repo.Save(p); err != nil {
				return fmt.Errorf("saving profile %s: %w", p.ID, err)
			}

			if bar != nil {
				_ = bar.Add(1)
			}
		}

		log.Printf("✅ Geocoded %s of %s colleges\n",
			utils.FormatInt(int64(resolved)),
			utils.FormatInt(int64(len(colleges))))

		return nil
	},
}

// readCollegesCSV parses the batch input. Column order is fixed; type and
// established are optional trailing columns.
func readCollegesCSV(path string) ([]*profile.Profile, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		return nil, fmt.Errorf("opening colleges file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	if len(header) < 3 || header[0] != "id" || header[1] != "name" || header[2] != "address" {
		return nil, fmt.Errorf("unexpected header %v, want id,name,address[,type,established]", header)
	}

	var colleges []*profile.Profile

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		if len(record) < 3 {
			return nil, fmt.Errorf("line %d: want at least 3 fields, got %d", line, len(record))
		}

		p := &profile.Profile{
			ID:      record[0],
			Name:    record[1],
			Address: record[2],
		}

		if len(record) > 3 {
			p.Type = record[3]
		}

		if len(record) > 4 && record[4] != "" {
			established, err := strconv.Atoi(record[4])
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing established year: %w", line, err)
			}

			p.Established = established
		}

		colleges = append(colleges, p)
	}

	return colleges, nil
}

func logFailure(p *profile.Profile, result *geocoding.Result) {
	log.Printf("⚠️  %s: %s", p.Name, result.Error)
}

func init() {
	registerResolverFlags(batchCmd)
	rootCmd.AddCommand(batchCmd)
}
