package filejournal

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/journal"
	"paperTradingBot/internal/ports"
)

// Journal appends one text line per trade to a file.
type Journal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger ports.Logger
}

var _ ports.TradeJournal = (*Journal)(nil)

// Config holds configuration for the file journal.
type Config struct {
	Path   string
	Logger ports.Logger
}

// New opens (creating if needed) the journal file for appending.
func New(cfg Config) (*Journal, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for file journal: %w", ports.ErrConfigurationError)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("journal path is required: %w", ports.ErrConfigurationError)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory '%s': %w: %w", filepath.Dir(cfg.Path), ports.ErrWriteFailed, err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal '%s': %w: %w", cfg.Path, ports.ErrWriteFailed, err)
	}

	cfg.Logger.Info(context.Background(), "Trade journal opened", map[string]interface{}{"path": cfg.Path})
	return &Journal{path: cfg.Path, file: f, logger: cfg.Logger}, nil
}

// Append writes rec as one line and syncs it to disk.
func (j *Journal) Append(ctx context.Context, rec domain.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return fmt.Errorf("journal '%s' is closed: %w", j.path, ports.ErrWriteFailed)
	}
	if _, err := j.file.WriteString(journal.Format(rec) + "\n"); err != nil {
		return fmt.Errorf("append to journal '%s': %w: %w", j.path, ports.ErrWriteFailed, err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("sync journal '%s': %w: %w", j.path, ports.ErrWriteFailed, err)
	}
	return nil
}

// LastN scans the file and returns the last n parseable records, oldest first.
// Lines that do not parse are skipped with a warning.
func (j *Journal) LastN(ctx context.Context, n int) ([]domain.TradeRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("open journal '%s': %w: %w", j.path, ports.ErrQueryFailed, err)
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal '%s': %w: %w", j.path, ports.ErrQueryFailed, err)
	}

	out := make([]domain.TradeRecord, 0, len(ring))
	for _, line := range ring {
		rec, err := journal.Parse(line)
		if err != nil {
			j.logger.Warn(ctx, "Skipping unreadable journal line", map[string]interface{}{"path": j.path, "error": err.Error()})
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close closes the file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
