// Package storage selects a snapshot store backend by driver name.
package storage

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dudu/hairline/internal/progress"
	"github.com/dudu/hairline/internal/storage/jsonfile"
	"github.com/dudu/hairline/internal/storage/memory"
	"github.com/dudu/hairline/internal/storage/postgres"
	"github.com/dudu/hairline/internal/storage/sqlite"
)

// Supported drivers
const (
	DriverMemory   = "memory"
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and locates the backend.
type Config struct {
	Driver string `toml:"driver"`
	// DSN is the file path for json and sqlite, a connection string for postgres
	DSN string `toml:"dsn"`
}

// Validate checks the driver name and DSN
func (c Config) Validate() error {
	switch strings.ToLower(c.Driver) {
	case DriverMemory:
		return nil
	case DriverJSON, DriverSQLite, DriverPostgres:
		if c.DSN == "" {
			return fmt.Errorf("storage driver %q requires a dsn", c.Driver)
		}
		return nil
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
}

// Backend is a snapshot store that holds resources.
type Backend interface {
	progress.Store
	io.Closer
}

// Open creates the configured backend.
func Open(cfg Config, log logrus.FieldLogger) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		backend Backend
		err     error
	)
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory:
		backend = memory.NewStore()
	case DriverJSON:
		backend, err = jsonfile.NewStore(cfg.DSN, log)
	case DriverSQLite:
		backend, err = sqlite.NewStore(cfg.DSN)
	default:
		backend, err = postgres.New(cfg.DSN, log)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Driver, err)
	}
	return backend, nil
}
