package main

import (
	"github.com/spf13/cobra"
)

// addStoreFlags registers the store-connection overrides shared by all
// subcommands. ioconfig.BindFlags maps set flags onto the config.
func addStoreFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("driver", "",
		"tabular store backend: postgres or sqlite")
	cmd.PersistentFlags().String("host", "", "PostgreSQL host")
	cmd.PersistentFlags().Int("port", 0, "PostgreSQL port")
	cmd.PersistentFlags().String("user", "", "PostgreSQL user")
	cmd.PersistentFlags().String("password", "", "PostgreSQL password")
	cmd.PersistentFlags().String("database", "", "database name")
	cmd.PersistentFlags().String("db-file", "",
		"SQLite database path for the sqlite driver")
	cmd.PersistentFlags().Int("jobs", 0, "number of concurrent workers")
	cmd.PersistentFlags().String("log-level", "",
		"log level: debug, info, warn or error")
}
