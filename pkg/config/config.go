// Package config provides configuration management for Horizon.
//
// This package has no I/O dependencies (no file operations, no network
// calls). Loading from files and environment happens in internal/ioconfig.
//
// Precedence (highest to lowest): CLI flags > env vars > config.yaml >
// defaults. Environment variables use the HORIZON_ prefix with underscores
// for nesting (database.host → HORIZON_DATABASE_HOST).
//
// A default config (from Defaults()) is always valid. All mutations go
// through Option functions; invalid values are rejected with a warning and
// the config stays in a valid state.
package config

import (
	"path/filepath"
	"runtime"
)

// AppName is used in generating file system paths.
const AppName = "horizon"

// Config represents the complete Horizon configuration.
type Config struct {
	// Database contains tabular-store connection settings.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Blob contains artifact-store settings.
	Blob BlobConfig `mapstructure:"blob" yaml:"blob"`

	// Oracle contains the optional text-to-SQL assistant endpoint.
	Oracle OracleConfig `mapstructure:"oracle" yaml:"oracle"`

	// Selection contains feature-selection tunables.
	Selection SelectionConfig `mapstructure:"selection" yaml:"selection"`

	// Training contains model-training tunables.
	Training TrainingConfig `mapstructure:"training" yaml:"training"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of concurrent workers for parallel
	// operations such as feature-store scans.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config, cache and logs directories reside.
	// It is set by the CLI during init; there is no default for it.
	HomeDir string
}

// DatabaseConfig contains tabular-store connection parameters.
// When Driver is "sqlite" the store runs against a local file (or memory)
// and the connection fields are ignored.
type DatabaseConfig struct {
	// Driver selects the store backend: "postgres" or "sqlite".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Host is the PostgreSQL server hostname or IP address.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the PostgreSQL server port number.
	Port int `mapstructure:"port" yaml:"port"`

	// User is the database username.
	User string `mapstructure:"user" yaml:"user"`

	// Password is the database password.
	Password string `mapstructure:"password" yaml:"password"`

	// Database is the database name to connect to.
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode specifies the SSL connection mode.
	// Valid values: "disable", "require", "verify-ca", "verify-full"
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`

	// File is the SQLite database path for the sqlite driver.
	// ":memory:" gives an in-process store.
	File string `mapstructure:"file" yaml:"file"`

	// MaxConnections caps the pgx connection pool.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections"`

	// BatchSize is the number of rows per bulk-insert batch during
	// dataset ingestion.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// BlobConfig contains settings for the S3-compatible artifact store.
// When Endpoint is empty, artifacts are kept only in the local cache
// directory.
type BlobConfig struct {
	// Endpoint is the S3-compatible endpoint host, e.g.
	// "s3.us-south.cloud-object-storage.appdomain.cloud".
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Bucket is the bucket holding model artifacts and exports.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// AccessKey and SecretKey authenticate against the endpoint.
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`

	// UseSSL controls TLS for the endpoint connection.
	UseSSL bool `mapstructure:"use_ssl" yaml:"use_ssl"`
}

// OracleConfig points at the optional text-to-SQL drafting service.
type OracleConfig struct {
	// URL is the drafting endpoint; empty disables the oracle.
	URL string `mapstructure:"url" yaml:"url"`

	// Token is sent as a bearer token when non-empty.
	Token string `mapstructure:"token" yaml:"token"`

	// TimeoutSec bounds a single drafting call.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// SelectionConfig contains feature-selection tunables. The defaults
// reproduce the reference pipeline exactly; changing them changes which
// features models see.
type SelectionConfig struct {
	// MITopK is how many columns the mutual-information ranker keeps.
	MITopK int `mapstructure:"mi_top_k" yaml:"mi_top_k"`

	// TreeTopK is how many columns the tree-importance ranker keeps.
	TreeTopK int `mapstructure:"tree_top_k" yaml:"tree_top_k"`

	// TreeCount is the size of the random forest used for importances.
	TreeCount int `mapstructure:"tree_count" yaml:"tree_count"`

	// CorrThreshold is the absolute pairwise correlation above which
	// the later column of a pair is pruned.
	CorrThreshold float64 `mapstructure:"corr_threshold" yaml:"corr_threshold"`

	// Seed makes the rankers deterministic.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// TrainingConfig contains gradient-boosting hyper-parameters.
type TrainingConfig struct {
	// MaxRounds caps the number of boosting rounds.
	MaxRounds int `mapstructure:"max_rounds" yaml:"max_rounds"`

	// LearningRate shrinks each tree's contribution.
	LearningRate float64 `mapstructure:"learning_rate" yaml:"learning_rate"`

	// MaxDepth limits individual tree depth.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`

	// Subsample is the row fraction sampled per round.
	Subsample float64 `mapstructure:"subsample" yaml:"subsample"`

	// ColSample is the column fraction sampled per round.
	ColSample float64 `mapstructure:"col_sample" yaml:"col_sample"`

	// EarlyStopping stops boosting after this many rounds without
	// validation improvement.
	EarlyStopping int `mapstructure:"early_stopping" yaml:"early_stopping"`

	// ValidationFraction is the chronological tail held out for
	// evaluation (no shuffling; inputs are time-ordered).
	ValidationFraction float64 `mapstructure:"validation_fraction" yaml:"validation_fraction"`

	// Seed makes subsampling deterministic.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json' or 'text'.
	Format string `mapstructure:"format" yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'.
	Level string `mapstructure:"level" yaml:"level"`
	// Destination can be a log file (default place), STDERR or STDOUT.
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// Defaults creates a Config with sensible default values. The returned
// config is always valid and ready to use.
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Password:       "postgres",
			Database:       "horizon",
			SSLMode:        "disable",
			File:           ":memory:",
			MaxConnections: 10,
			BatchSize:      1000,
		},
		Blob: BlobConfig{
			UseSSL: true,
		},
		Oracle: OracleConfig{
			TimeoutSec: 120,
		},
		Selection: SelectionConfig{
			MITopK:        15,
			TreeTopK:      10,
			TreeCount:     200,
			CorrThreshold: 0.9,
			Seed:          42,
		},
		Training: TrainingConfig{
			MaxRounds:          1000,
			LearningRate:       0.05,
			MaxDepth:           6,
			Subsample:          0.8,
			ColSample:          0.8,
			EarlyStopping:      50,
			ValidationFraction: 0.2,
			Seed:               42,
		},
		Log: LogConfig{
			Format:      "text",
			Level:       "info",
			Destination: "stderr",
		},
		JobsNumber: runtime.NumCPU(),
	}
}

// ConfigDir returns the directory path for configuration files.
// Returns ~/.config/horizon by default.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", AppName)
}

// CacheDir returns the directory path for cached artifacts.
// Returns ~/.cache/horizon by default.
func CacheDir(homeDir string) string {
	return filepath.Join(homeDir, ".cache", AppName)
}

// LogDir returns the directory path for log files.
// Returns ~/.local/share/horizon/logs by default.
func LogDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName, "logs")
}

// ConfigFilePath returns the full path to the config.yaml file.
func ConfigFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "config.yaml")
}
