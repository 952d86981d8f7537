// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/collegelinks/collegelinks/ml"
	"github.com/collegelinks/collegelinks/utils"
)

var trainCmd = &cobra.Command{
	Use:   "train <samples.json>",
	Short: "Train the geocoding validation model",
	Long: `Trains the logistic validation model on a JSON array of labeled samples
and writes the weights to the model file. Subsequent geocode, batch and
serve runs pick the trained model up automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0]) // #nosec G304 - path is provided by the operator
		if err != nil {
			return fmt.Errorf("reading samples file: %w", err)
		}

		var samples []ml.Sample
		if err := json.Unmarshal(data, &samples); err != nil {
			return fmt.Errorf("unmarshaling samples: %w", err)
		}

		validator := ml.NewValidator(resolveOptions.modelPath())
		if err := validator.Train(samples); err != nil {
			return fmt.Errorf("training model: %w", err)
		}

		log.Printf("✅ Trained model on %s samples, saved to %s\n",
			utils.FormatInt(int64(len(samples))),
			resolveOptions.modelPath())

		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&resolveOptions.DataPath, "data", "data", "directory for the model file")
	trainCmd.Flags().StringVar(&resolveOptions.ModelFile, "model", "", "trained validation model (defaults to <data>/model.json)")
	rootCmd.AddCommand(trainCmd)
}
