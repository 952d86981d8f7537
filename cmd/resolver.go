// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"

	"github.com/collegelinks/collegelinks/address"
	"github.com/collegelinks/collegelinks/geocoding"
	"github.com/collegelinks/collegelinks/ml"
)

// resolverOptions are the flags shared by every command that geocodes.
type resolverOptions struct {
	DataPath      string
	GoogleAPIKey  string
	DistrictsFile string
	ModelFile     string
	RetryBudget   int
}

var resolveOptions = &resolverOptions{}

func registerResolverFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&resolveOptions.DataPath, "data", "data", "directory for the cache, model and database files")
	cmd.Flags().StringVar(&resolveOptions.GoogleAPIKey, "google-key", "", "Google Maps API key (defaults to GOOGLE_MAPS_API_KEY, then ADC)")
	cmd.Flags().StringVar(&resolveOptions.DistrictsFile, "districts", "", "CSV gazetteer of state,district pairs")
	cmd.Flags().StringVar(&resolveOptions.ModelFile, "model", "", "trained validation model (defaults to <data>/model.json)")
	cmd.Flags().IntVar(&resolveOptions.RetryBudget, "retries", geocoding.DefaultRetryBudget, "address variations to try after the original")
}

func (o *resolverOptions) cachePath() string {
	return filepath.Join(o.DataPath, "geocode-cache.json")
}

func (o *resolverOptions) modelPath() string {
	if o.ModelFile != "" {
		return o.ModelFile
	}

	return filepath.Join(o.DataPath, "model.json")
}

func (o *resolverOptions) dbPath() string {
	return filepath.Join(o.DataPath, "collegelinks.duckdb")
}

// googleKey resolves the Google Maps API key: the flag, then the
// environment, then Application Default Credentials. An empty key is not
// fatal; the resolver falls back to Nominatim alone.
func (o *resolverOptions) googleKey() string {
	if o.GoogleAPIKey != "" {
		return o.GoogleAPIKey
	}

	if key := os.Getenv("GOOGLE_MAPS_API_KEY"); key != "" {
		return key
	}

	log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

	key, err := getAPIKeyFromADC(context.Background())
	if err != nil {
		log.Printf("Failed to retrieve API key via ADC: %v", err)
		log.Print("Google Maps geocoding disabled; using Nominatim only.")

		return ""
	}

	log.Println("✅ Successfully retrieved Google Maps API Key via ADC")

	return key
}

func getAPIKeyFromADC(ctx context.Context) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		return "", errors.New("no project id found in default credentials")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	const targetDisplayName = "CollegeLinks Geocoding Key"

	req := &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	}

	it := client.ListKeys(ctx, req)

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != targetDisplayName {
			continue
		}

		// ListKeys redacts the KeyString; GetKeyString retrieves the secret.
		getReq := &apikeyspb.GetKeyStringRequest{
			Name: key.Name,
		}

		resp, err := client.GetKeyString(ctx, getReq)
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' found but KeyString is empty", targetDisplayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", targetDisplayName, projectID)
}

// buildResolver wires the processor, cache, model and providers from the
// shared flags. Google goes first when a key is available.
func buildResolver(o *resolverOptions) (*geocoding.Resolver, error) {
	if err := os.MkdirAll(o.DataPath, 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	var processor *address.Processor

	if o.DistrictsFile != "" {
		districts, err := address.LoadDistricts(o.DistrictsFile)
		if err != nil {
			return nil, fmt.Errorf("loading districts: %w", err)
		}

		processor = address.NewProcessorWithDistricts(districts)
	} else {
		processor = address.NewProcessor()
	}

	cache := geocoding.NewCache(o.cachePath())
	validator := ml.NewValidator(o.modelPath())

	var providers []geocoding.Geocoder

	if key := o.googleKey(); key != "" {
		providers = append(providers, geocoding.NewGoogleMapsGeocoder(key))
	}

	providers = append(providers, geocoding.NewNominatimGeocoder())

	return geocoding.NewResolver(processor, cache, validator, providers...), nil
}
