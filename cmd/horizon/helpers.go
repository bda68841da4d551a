package main

import (
	"context"
	"fmt"

	"github.com/horizonml/horizon/internal/ioblob"
	"github.com/horizonml/horizon/internal/iodb"
	"github.com/horizonml/horizon/internal/ioregistry"
	"github.com/horizonml/horizon/pkg/blob"
	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/db"
)

// connectOperator connects the store implied by configuration. The
// caller owns Close.
func connectOperator(ctx context.Context) (db.Operator, error) {
	cfg := getConfig()

	var op db.Operator
	switch cfg.Database.Driver {
	case "sqlite":
		op = iodb.NewLiteOperator()
	default:
		op = iodb.NewPgxOperator()
	}
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		fmt.Printf("Connected to sqlite store: %s\n", cfg.Database.File)
	} else {
		fmt.Printf("Connected to database: %s@%s:%d/%s\n",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port,
			cfg.Database.Database)
	}
	return op, nil
}

// connectRegistry wires the metadata registry on top of a fresh
// operator connection.
func connectRegistry(ctx context.Context) (db.Operator, *ioregistry.Registry, error) {
	op, err := connectOperator(ctx)
	if err != nil {
		return nil, nil, err
	}
	reg, err := ioregistry.New(op, log)
	if err != nil {
		op.Close()
		return nil, nil, fmt.Errorf("failed to open metadata registry: %w", err)
	}
	return op, reg, nil
}

// artifactStores returns the primary blob store plus the local fallback
// used when a remote write fails. With no remote endpoint the primary
// already is local and no fallback is needed.
func artifactStores() (primary, fallback blob.Store, err error) {
	cfg := getConfig()
	primary, err = ioblob.NewStore(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open artifact store: %w", err)
	}
	if cfg.Blob.Endpoint != "" {
		fallback, err = ioblob.NewLocalStore(config.CacheDir(cfg.HomeDir))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open artifact cache: %w", err)
		}
	}
	return primary, fallback, nil
}
