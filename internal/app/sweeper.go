package app

import (
	"context"
	"time"

	"github.com/pagebrief/entitlement-service/internal/repository"
	"go.uber.org/zap"
)

// CredentialSweeper periodically deletes expired credential rows. Expired
// credentials already fail verification on their own; the sweep only keeps
// the table from growing without bound.
type CredentialSweeper struct {
	credentials repository.CredentialRepository
	interval    time.Duration
	logger      *zap.Logger
}

func NewCredentialSweeper(credentials repository.CredentialRepository, interval time.Duration, logger *zap.Logger) *CredentialSweeper {
	return &CredentialSweeper{
		credentials: credentials,
		interval:    interval,
		logger:      logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
// An interval of zero disables sweeping.
func (s *CredentialSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Credential sweep disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *CredentialSweeper) sweep(ctx context.Context) {
	deleted, err := s.credentials.DeleteExpired(ctx)
	if err != nil {
		s.logger.Warn("Credential sweep failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("Swept expired credentials", zap.Int64("deleted", deleted))
	}
}
