// Package ioconfig loads configuration from files, environment and
// flags. This is an impure package; the pure configuration model lives
// in pkg/config.
package ioconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/horizonml/horizon/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LoadResult contains the loaded configuration and where it came from.
type LoadResult struct {
	Config     *config.Config
	SourcePath string // config file used, empty when running on defaults
	Source     string // "file", "defaults", or "defaults+env"
}

// Load reads configuration with the precedence flags > env vars >
// config file > defaults. Env vars use the HORIZON_ prefix with
// underscores for nesting. When configPath is empty the default
// location ~/.config/horizon/config.yaml is tried.
func Load(configPath string) (*LoadResult, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("HORIZON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Defaults are registered before reading so AutomaticEnv knows
	// which keys to check.
	defaults := config.Defaults()
	v.SetDefault("database.driver", defaults.Database.Driver)
	v.SetDefault("database.host", defaults.Database.Host)
	v.SetDefault("database.port", defaults.Database.Port)
	v.SetDefault("database.user", defaults.Database.User)
	v.SetDefault("database.password", defaults.Database.Password)
	v.SetDefault("database.database", defaults.Database.Database)
	v.SetDefault("database.ssl_mode", defaults.Database.SSLMode)
	v.SetDefault("database.file", defaults.Database.File)
	v.SetDefault("database.max_connections", defaults.Database.MaxConnections)
	v.SetDefault("database.batch_size", defaults.Database.BatchSize)
	v.SetDefault("blob.endpoint", defaults.Blob.Endpoint)
	v.SetDefault("blob.bucket", defaults.Blob.Bucket)
	v.SetDefault("blob.access_key", defaults.Blob.AccessKey)
	v.SetDefault("blob.secret_key", defaults.Blob.SecretKey)
	v.SetDefault("blob.use_ssl", defaults.Blob.UseSSL)
	v.SetDefault("oracle.url", defaults.Oracle.URL)
	v.SetDefault("oracle.token", defaults.Oracle.Token)
	v.SetDefault("oracle.timeout_sec", defaults.Oracle.TimeoutSec)
	v.SetDefault("selection.mi_top_k", defaults.Selection.MITopK)
	v.SetDefault("selection.tree_top_k", defaults.Selection.TreeTopK)
	v.SetDefault("selection.tree_count", defaults.Selection.TreeCount)
	v.SetDefault("selection.corr_threshold", defaults.Selection.CorrThreshold)
	v.SetDefault("selection.seed", defaults.Selection.Seed)
	v.SetDefault("training.max_rounds", defaults.Training.MaxRounds)
	v.SetDefault("training.learning_rate", defaults.Training.LearningRate)
	v.SetDefault("training.max_depth", defaults.Training.MaxDepth)
	v.SetDefault("training.subsample", defaults.Training.Subsample)
	v.SetDefault("training.col_sample", defaults.Training.ColSample)
	v.SetDefault("training.early_stopping", defaults.Training.EarlyStopping)
	v.SetDefault("training.validation_fraction", defaults.Training.ValidationFraction)
	v.SetDefault("training.seed", defaults.Training.Seed)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.destination", defaults.Log.Destination)
	v.SetDefault("jobs_number", defaults.JobsNumber)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if home, err := os.UserHomeDir(); err == nil {
		defaultPath := config.ConfigFilePath(home)
		if _, statErr := os.Stat(defaultPath); statErr == nil {
			v.SetConfigFile(defaultPath)
		}
	}

	configFileRead := false
	usedConfigPath := ""
	if err := v.ReadInConfig(); err != nil {
		switch err.(type) {
		case viper.ConfigFileNotFoundError:
			if configPath != "" {
				return nil, fmt.Errorf("config file not found: %s", configPath)
			}
		case *os.PathError:
			if configPath != "" {
				return nil, fmt.Errorf("config file not found: %s", configPath)
			}
		default:
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		configFileRead = true
		usedConfigPath = v.ConfigFileUsed()
	}

	cfg := config.Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	source := "defaults"
	if configFileRead {
		source = "file"
	} else if hasEnvVars() {
		source = "defaults+env"
	}

	return &LoadResult{
		Config:     cfg,
		SourcePath: usedConfigPath,
		Source:     source,
	}, nil
}

func hasEnvVars() bool {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "HORIZON_") {
			return true
		}
	}
	return false
}

// BindFlags applies set CLI flags on top of the loaded config. Flags
// have the highest precedence.
func BindFlags(cmd *cobra.Command, cfg *config.Config) (*config.Config, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	var opts []config.Option
	if v.IsSet("driver") {
		opts = append(opts, config.OptDatabaseDriver(v.GetString("driver")))
	}
	if v.IsSet("host") {
		opts = append(opts, config.OptDatabaseHost(v.GetString("host")))
	}
	if v.IsSet("port") {
		opts = append(opts, config.OptDatabasePort(v.GetInt("port")))
	}
	if v.IsSet("user") {
		opts = append(opts, config.OptDatabaseUser(v.GetString("user")))
	}
	if v.IsSet("password") {
		opts = append(opts, config.OptDatabasePassword(v.GetString("password")))
	}
	if v.IsSet("database") {
		opts = append(opts, config.OptDatabaseName(v.GetString("database")))
	}
	if v.IsSet("db-file") {
		opts = append(opts, config.OptDatabaseFile(v.GetString("db-file")))
	}
	if v.IsSet("jobs") {
		opts = append(opts, config.OptJobsNumber(v.GetInt("jobs")))
	}
	if v.IsSet("log-level") {
		opts = append(opts, config.OptLogLevel(v.GetString("log-level")))
	}
	cfg.Update(opts)
	return cfg, nil
}
