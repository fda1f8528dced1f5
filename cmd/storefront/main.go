// cmd/storefront/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront-services/internal/common/config"
	"storefront-services/internal/common/logger"
)

var (
	cfgFile string

	// set in PersistentPreRunE
	cfg    *config.Config
	zapLog *zap.Logger
	log    logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront services: catalog browsing, store locator, geocoding and inquiries",
	Long: `storefront runs the public storefront API, the Zeebe job workers that
back the same operations inside process flows, and a one-shot geocoding
command for checking provider configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.LoadFromFile(cfgFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		zapLog, err = logger.NewFromConfig(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		log = logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
			"service": cfg.App.Name,
			"command": cmd.Name(),
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLog != nil {
			_ = zapLog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
