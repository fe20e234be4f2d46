package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/journal"
	"paperTradingBot/internal/ports"
)

// Journal implements ports.TradeJournal on an append-only SQLite table.
type Journal struct {
	db     *sql.DB
	logger ports.Logger
}

var _ ports.TradeJournal = (*Journal)(nil)

// Config holds configuration for the SQLite journal.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewJournal opens the database, creating the file and schema if needed.
func NewJournal(cfg Config) (*Journal, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite journal: %w", ports.ErrConfigurationError)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/journal.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w: %w", filepath.Dir(dbPath), ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	// A single connection keeps inserts strictly ordered.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db, logger: cfg.Logger}
	if err := j.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite trade journal ready", map[string]interface{}{"path": dbPath})
	return j, nil
}

// initializeSchema creates the journal table. Triggers reject updates and
// deletes so the table stays append-only.
func (j *Journal) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trade_journal (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT NOT NULL,
		trade_time TIMESTAMP NOT NULL,
		price TEXT NOT NULL,
		quantity TEXT NOT NULL,
		profit_loss TEXT NOT NULL,
		line TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trade_journal_symbol_time ON trade_journal (symbol, trade_time);
	CREATE TRIGGER IF NOT EXISTS trade_journal_no_update BEFORE UPDATE ON trade_journal
	BEGIN SELECT RAISE(ABORT, 'trade_journal is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS trade_journal_no_delete BEFORE DELETE ON trade_journal
	BEGIN SELECT RAISE(ABORT, 'trade_journal is append-only'); END;
	`
	if _, err := j.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		j.logger.Info(context.Background(), "Closing SQLite database connection")
		return j.db.Close()
	}
	return nil
}

// Append inserts rec after every previously appended trade.
func (j *Journal) Append(ctx context.Context, rec domain.TradeRecord) error {
	const query = `
	INSERT INTO trade_journal (trade_id, symbol, action, reason, trade_time, price, quantity, profit_loss, line)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := j.db.ExecContext(ctx, query,
		rec.ID, rec.Symbol, string(rec.Action), string(rec.Reason), rec.Time.UTC(),
		rec.Price.String(), rec.Quantity.String(), rec.ProfitLoss.String(), journal.Format(rec))
	if err != nil {
		return fmt.Errorf("failed to insert trade %s: %w: %w", rec.ID, ports.ErrWriteFailed, err)
	}
	return nil
}

// LastN returns the most recent n trades, oldest first.
func (j *Journal) LastN(ctx context.Context, n int) ([]domain.TradeRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	const query = `
	SELECT line FROM (
		SELECT seq, line FROM trade_journal ORDER BY seq DESC LIMIT ?
	) ORDER BY seq ASC`

	rows, err := j.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal tail: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w: %w", ports.ErrQueryFailed, err)
		}
		rec, err := journal.Parse(line)
		if err != nil {
			j.logger.Warn(ctx, "Skipping unreadable journal row", map[string]interface{}{"error": err.Error()})
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return out, nil
}

