package ioconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/horizonml/horizon/pkg/config"
	"gopkg.in/yaml.v3"
)

// configYAML is the documented template written by `horizon config
// generate`. Every value is commented out; uncommenting overrides the
// default.
const configYAML = `# Horizon configuration.
# Precedence: CLI flags > HORIZON_* env vars > this file > defaults.

database:
  # driver selects the tabular store: postgres or sqlite.
  # driver: postgres
  # host: localhost
  # port: 5432
  # user: postgres
  # password: postgres
  # database: horizon
  # ssl_mode: disable
  # file is the sqlite path when driver is sqlite; ":memory:" keeps
  # everything in process.
  # file: ":memory:"
  # batch_size: 1000

blob:
  # endpoint enables the S3-compatible artifact store; empty keeps
  # artifacts local-only.
  # endpoint: ""
  # bucket: ""
  # access_key: ""
  # secret_key: ""
  # use_ssl: true

oracle:
  # url enables the text-to-SQL drafting assistant; empty disables it.
  # url: ""
  # token: ""
  # timeout_sec: 120

selection:
  # mi_top_k: 15
  # tree_top_k: 10
  # tree_count: 200
  # corr_threshold: 0.9
  # seed: 42

training:
  # max_rounds: 1000
  # learning_rate: 0.05
  # max_depth: 6
  # subsample: 0.8
  # col_sample: 0.8
  # early_stopping: 50
  # validation_fraction: 0.2
  # seed: 42

log:
  # level: info
  # format: text
  # destination: stderr
`

// Generate writes the documented default config file, refusing to
// overwrite an existing one. Returns the path written.
func Generate(homeDir string) (string, error) {
	path := config.ConfigFilePath(homeDir)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configYAML), 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// ValidateGenerated parses a generated config file; used by tests to
// keep the template and the model in sync.
func ValidateGenerated(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	return nil
}
