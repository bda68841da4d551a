package config

import (
	"log/slog"
	"strings"
)

// Option is a function that modifies a Config.
// Options validate inputs and reject invalid values with warnings.
type Option func(*Config)

// Update applies a slice of Option functions to the Config.
// This is the only way to modify a Config after creation.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// OptDatabaseDriver selects the tabular-store backend.
// Valid values: "postgres", "sqlite".
func OptDatabaseDriver(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if s == "postgres" || s == "sqlite" {
			c.Database.Driver = s
		} else if s != "" {
			slog.Warn("unknown database driver, ignoring", "driver", s)
		}
	}
}

// OptDatabaseHost sets the PostgreSQL server hostname or IP address.
func OptDatabaseHost(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if validString("database host", s) {
			c.Database.Host = s
		}
	}
}

// OptDatabasePort sets the PostgreSQL server port number.
func OptDatabasePort(i int) Option {
	return func(c *Config) {
		if validInt("database port", i) {
			c.Database.Port = i
		}
	}
}

// OptDatabaseUser sets the database username.
func OptDatabaseUser(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if validString("database user", s) {
			c.Database.User = s
		}
	}
}

// OptDatabasePassword sets the database password.
func OptDatabasePassword(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if validString("database password", s) {
			c.Database.Password = s
		}
	}
}

// OptDatabaseName sets the database name to connect to.
func OptDatabaseName(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if validString("database name", s) {
			c.Database.Database = s
		}
	}
}

// OptDatabaseFile sets the SQLite database path for the sqlite driver.
func OptDatabaseFile(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if validString("database file", s) {
			c.Database.File = s
		}
	}
}

// OptBatchSize sets the number of rows per bulk-insert batch.
func OptBatchSize(i int) Option {
	return func(c *Config) {
		if validInt("batch size", i) {
			c.Database.BatchSize = i
		}
	}
}

// OptBlobEndpoint sets the S3-compatible endpoint for the artifact store.
func OptBlobEndpoint(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) { c.Blob.Endpoint = s }
}

// OptBlobBucket sets the artifact bucket name.
func OptBlobBucket(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if validString("blob bucket", s) {
			c.Blob.Bucket = s
		}
	}
}

// OptOracleURL sets the text-to-SQL drafting endpoint.
func OptOracleURL(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) { c.Oracle.URL = s }
}

// OptLogLevel sets the logging level: debug, info, warn, error.
func OptLogLevel(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		switch s {
		case "debug", "info", "warn", "error":
			c.Log.Level = s
		default:
			slog.Warn("unknown log level, ignoring", "level", s)
		}
	}
}

// OptLogFormat sets the logging format: json or text.
func OptLogFormat(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		switch s {
		case "json", "text":
			c.Log.Format = s
		default:
			slog.Warn("unknown log format, ignoring", "format", s)
		}
	}
}

// OptLogDestination sets where logs go: file, stdout or stderr.
func OptLogDestination(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		switch s {
		case "file", "stdout", "stderr":
			c.Log.Destination = s
		default:
			slog.Warn("unknown log destination, ignoring", "destination", s)
		}
	}
}

// OptJobsNumber sets the number of concurrent workers.
func OptJobsNumber(i int) Option {
	return func(c *Config) {
		if validInt("jobs number", i) {
			c.JobsNumber = i
		}
	}
}

func validString(name, s string) bool {
	if s == "" {
		slog.Warn("empty value, ignoring", "option", name)
		return false
	}
	return true
}

func validInt(name string, i int) bool {
	if i <= 0 {
		slog.Warn("value has to be positive, ignoring", "option", name, "value", i)
		return false
	}
	return true
}
