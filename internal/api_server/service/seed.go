package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/domain/ledger"
)

// SeedActor is recorded as the actor of events loaded from a seed file
const SeedActor = "seed"

// LoadSeed decodes a JSON array of events from r and stores each one. Events
// that already exist are skipped so a persistent backend can be re-seeded on
// every start. It returns the number of events created.
func LoadSeed(ctx context.Context, logger *slog.Logger, repo ledger.Repository, r io.Reader, now time.Time) (int, error) {
	var events []*ledger.Event
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&events); err != nil {
		return 0, fmt.Errorf("failed to decode seed events: %w", err)
	}

	created := 0
	for i, e := range events {
		if e == nil {
			return created, fmt.Errorf("seed event %d is null", i)
		}
		if err := prepareSeedEvent(e, now); err != nil {
			return created, fmt.Errorf("seed event %d (%s): %w", i, e.ID, err)
		}

		act := activity.New(e.ID, activity.TypeEventCreated, SeedActor, string(e.Status), "", e.CreatedAt)
		err := repo.Create(ctx, e, act)
		switch {
		case errors.Is(err, ledger.ErrDuplicateEvent{}):
			logger.Debug("Seed event already present", "event_id", e.ID)
		case err != nil:
			return created, fmt.Errorf("failed to store seed event %s: %w", e.ID, err)
		default:
			created++
		}
	}

	logger.Info("Seed events loaded", "created", created, "total", len(events))
	return created, nil
}

// prepareSeedEvent fills defaults and validates the lifecycle invariants
func prepareSeedEvent(e *ledger.Event, now time.Time) error {
	if e.Status == "" {
		e.Status = ledger.StatusNew
	}
	if e.Currency == "" {
		e.Currency = "USD"
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	e.UpdatedAt = e.UpdatedAt.UTC()
	if e.Status == ledger.StatusApproved && e.ApprovedAt == nil {
		at := e.UpdatedAt
		e.ApprovedAt = &at
	}
	if e.Version <= 0 {
		e.Version = 1
	}

	receipts := make([]ledger.Receipt, 0, len(e.Receipts))
	for _, r := range e.Receipts {
		normalized, err := r.Normalize(e.ID, e.CreatedAt)
		if err != nil {
			return err
		}
		receipts = append(receipts, normalized)
	}
	e.Receipts = receipts

	return e.Validate()
}
