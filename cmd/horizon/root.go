package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/horizonml/horizon/internal/ioconfig"
	"github.com/horizonml/horizon/internal/iologger"
	"github.com/horizonml/horizon/pkg/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *slog.Logger
)

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "horizon",
		Short: "Horizon manages the temporal feature pipeline and model lifecycle",
		Long: `Horizon turns raw tabular time-series uploads into forecasting models.

The pipeline stages:
  - ingest: upload a CSV/XLSX/XLS file, infer column types, build a table
  - roles: mark key/date/target columns and derive the temporal target table
  - materialize: execute a feature SQL definition and track its lineage
  - train: select features and fit a gradient-boosted model
  - predict: replay the stored feature SQL against new data and score it

Configuration precedence (highest to lowest):
  1. CLI flags (--host, --port, etc.)
  2. Environment variables (HORIZON_*)
  3. Config file (~/.config/horizon/config.yaml)
  4. Built-in defaults

Environment Variables:
  All configuration can be set via HORIZON_* environment variables.
  Nested fields use underscores (database.host → HORIZON_DATABASE_HOST).

  Examples:
    HORIZON_DATABASE_DRIVER         Store backend (postgres/sqlite)
    HORIZON_DATABASE_HOST           PostgreSQL host
    HORIZON_DATABASE_PASSWORD       PostgreSQL password
    HORIZON_BLOB_ENDPOINT           S3-compatible artifact store endpoint
    HORIZON_TRAINING_MAX_ROUNDS     Boosting round cap
    HORIZON_LOG_LEVEL               Log level (debug/info/warn/error)

  See 'go doc github.com/horizonml/horizon/pkg/config' for complete list.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("determining home directory: %w", err)
			}

			// Generate a documented config file on first run; running on
			// defaults is fine if that fails.
			if cfgFile == "" {
				if _, statErr := os.Stat(config.ConfigFilePath(home)); os.IsNotExist(statErr) {
					if path, genErr := ioconfig.Generate(home); genErr == nil {
						fmt.Printf("Generated default config at: %s\n", path)
					}
				}
			}

			result, err := ioconfig.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = result.Config
			cfg.HomeDir = home

			if cfg, err = ioconfig.BindFlags(cmd, cfg); err != nil {
				return err
			}

			log, err = iologger.Init(config.LogDir(home), cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}

			switch result.Source {
			case "file":
				fmt.Printf("Using config from: %s\n", result.SourcePath)
			case "defaults+env":
				fmt.Println("Using built-in defaults with environment variable overrides")
			case "defaults":
				fmt.Println("Using built-in defaults (no config file)")
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ~/.config/horizon/config.yaml)")
	addStoreFlags(rootCmd)

	rootCmd.Flags().BoolP("version", "V", false, "version for horizon")

	rootCmd.AddCommand(getInitCmd())
	rootCmd.AddCommand(getProjectCmd())
	rootCmd.AddCommand(getIngestCmd())
	rootCmd.AddCommand(getDatasetsCmd())
	rootCmd.AddCommand(getModelsCmd())
	rootCmd.AddCommand(getRolesCmd())
	rootCmd.AddCommand(getMaterializeCmd())
	rootCmd.AddCommand(getFeaturesCmd())
	rootCmd.AddCommand(getTrainCmd())
	rootCmd.AddCommand(getPredictCmd())
	rootCmd.AddCommand(getJobsCmd())

	return rootCmd
}

// getConfig returns the loaded configuration (for use in subcommands)
func getConfig() *config.Config {
	return cfg
}
