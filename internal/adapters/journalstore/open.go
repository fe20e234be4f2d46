// Package journalstore opens the configured trade journal backend.
package journalstore

import (
	"fmt"

	"paperTradingBot/internal/adapters/filejournal"
	"paperTradingBot/internal/adapters/sqlite"
	"paperTradingBot/internal/ports"
)

// Drivers
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config selects and locates the journal backend.
type Config struct {
	Driver string
	Path   string // File journal path
	DBPath string // SQLite database path
	Logger ports.Logger
}

// Open returns the journal for cfg.Driver.
func Open(cfg Config) (ports.TradeJournal, error) {
	switch cfg.Driver {
	case DriverFile, "":
		j, err := filejournal.New(filejournal.Config{Path: cfg.Path, Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
		return j, nil
	case DriverSQLite:
		j, err := sqlite.NewJournal(sqlite.Config{DBPath: cfg.DBPath, Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
		return j, nil
	}
	return nil, fmt.Errorf("unknown journal driver %q: %w", cfg.Driver, ports.ErrConfigurationError)
}
