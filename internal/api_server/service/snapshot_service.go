package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/executive-war-room/internal/domain/ledger"
	"github.com/executive-war-room/internal/domain/snapshot"
)

// SnapshotServiceImpl implements the SnapshotService interface
type SnapshotServiceImpl struct {
	repo      ledger.Repository
	rates     snapshot.Rates
	opTimeout time.Duration
	logger    *slog.Logger
}

// NewSnapshotService creates a new snapshot service converting amounts with rates
func NewSnapshotService(logger *slog.Logger, repo ledger.Repository, rates snapshot.Rates, opTimeout time.Duration) SnapshotService {
	return &SnapshotServiceImpl{
		repo:      repo,
		rates:     rates,
		opTimeout: opTimeout,
		logger:    logger.With("component", "snapshot_service"),
	}
}

// Build reads the whole ledger and rolls it into the snapshot for f
func (s *SnapshotServiceImpl) Build(ctx context.Context, f snapshot.Filters, asOf time.Time) (snapshot.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	events, err := s.repo.List(ctx, ledger.Filter{})
	if err != nil {
		s.logger.Error("Failed to read ledger for snapshot", "error", err)
		return snapshot.Snapshot{}, ledger.NewStoreError(OpList, err)
	}

	return snapshot.Build(events, f, asOf, s.rates), nil
}
