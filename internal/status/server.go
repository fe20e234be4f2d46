// Package status serves the read-only keepalive, status and metrics endpoints.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"paperTradingBot/internal/app"
	"paperTradingBot/internal/journal"
	"paperTradingBot/internal/ports"
)

// Provider exposes the trading service state and the journal it appends to.
type Provider interface {
	Status() app.Status
	Journal() ports.TradeJournal
}

// Config holds the server parameters.
type Config struct {
	Addr        string
	JournalTail int // Entries included in /status
}

// Response is the body of GET /status.
type Response struct {
	Status  app.Status `json:"status"`
	Journal []string   `json:"journal"`
}

// Server is the status HTTP server.
type Server struct {
	cfg      Config
	provider Provider
	journal  ports.TradeJournal
	metrics  http.Handler
	logger   ports.Logger
	srv      *http.Server
}

// New creates a status server. metrics may be nil to disable /metrics.
func New(cfg Config, provider Provider, metrics http.Handler, logger ports.Logger) (*Server, error) {
	if provider == nil || logger == nil {
		return nil, fmt.Errorf("provider and logger are required for status server: %w", ports.ErrConfigurationError)
	}
	tradeJournal := provider.Journal()
	if tradeJournal == nil {
		return nil, fmt.Errorf("provider has no trade journal: %w", ports.ErrConfigurationError)
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("status address is required: %w", ports.ErrConfigurationError)
	}
	s := &Server{
		cfg:      cfg,
		provider: provider,
		journal:  tradeJournal,
		metrics:  metrics,
		logger:   logger,
	}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleKeepalive)
	mux.HandleFunc("GET /status", s.handleStatus)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Status server listening", map[string]interface{}{"addr": s.cfg.Addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("status server: %w: %w", ports.ErrConnectionFailed, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleKeepalive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("paper trader alive\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := Response{Status: s.provider.Status(), Journal: []string{}}

	if s.cfg.JournalTail > 0 {
		recs, err := s.journal.LastN(r.Context(), s.cfg.JournalTail)
		if err != nil {
			s.logger.Warn(r.Context(), "Failed to read journal for status", map[string]interface{}{"error": err.Error()})
		}
		for _, rec := range recs {
			resp.Journal = append(resp.Journal, journal.Format(rec))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error(r.Context(), err, "Failed to encode status response")
	}
}
