package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"storefront-services/internal/locator/geocode"
)

var geocodeReq geocode.Request

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve one address through the configured providers and print the result",
	Example: `  storefront geocode --city Provo --state UT --country US
  storefront geocode --address "1 Main St" --city Springfield --zip 62701 --country US`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := geocodeReq.Validate(); err != nil {
			return err
		}

		resolver, _ := buildGeocoder(cfg, nil, nil, log)
		result, err := resolver.Resolve(cmd.Context(), geocodeReq)
		if err != nil {
			return fmt.Errorf("geocode %q: %w", geocode.Variants(geocodeReq)[0], err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	f := geocodeCmd.Flags()
	f.StringVar(&geocodeReq.Address, "address", "", "street address")
	f.StringVar(&geocodeReq.City, "city", "", "city (required)")
	f.StringVar(&geocodeReq.State, "state", "", "state or region")
	f.StringVar(&geocodeReq.ZipCode, "zip", "", "postal code")
	f.StringVar(&geocodeReq.Country, "country", "", "country (required)")
	rootCmd.AddCommand(geocodeCmd)
}
