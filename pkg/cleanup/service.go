// Package cleanup provides data retention for stored conversations.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/conversation"
)

// Config controls the retention sweep.
type Config struct {
	// RetentionDays is how long an untouched conversation survives before it
	// is soft-deleted. Zero disables the service.
	RetentionDays int
	// Interval is how often the sweep runs.
	Interval time.Duration
}

// Service periodically soft-deletes conversations past their retention
// window. Deletion is a status change; rows stay queryable for audits. The
// sweep is idempotent and safe to run from multiple replicas.
type Service struct {
	cfg   Config
	store conversation.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a retention service over the given store.
func NewService(cfg Config, store conversation.Store) *Service {
	return &Service{cfg: cfg, store: store}
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Retention service started",
		"retention_days", s.cfg.RetentionDays,
		"interval", s.cfg.Interval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep soft-deletes every conversation untouched for the retention window.
func (s *Service) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
	count, err := s.store.SoftDeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Retention: soft-delete conversations failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: soft-deleted old conversations", "count", count)
	}
}
