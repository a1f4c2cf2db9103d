package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/domain/ledger"
	"github.com/executive-war-room/internal/platform/metrics"
)

// Ledger operation names used in logs and metrics
const (
	OpCreate        = "create"
	OpApprove       = "approve"
	OpAssign        = "assign"
	OpAttachReceipt = "attach_receipt"
	OpGet           = "get"
	OpList          = "list"
)

// LedgerOptions tune the ledger service
type LedgerOptions struct {
	OperationTimeout time.Duration
	StrictAssignment bool
}

// LedgerServiceImpl implements the LedgerService interface
type LedgerServiceImpl struct {
	repo    ledger.Repository
	metrics *metrics.Metrics
	logger  *slog.Logger
	opts    LedgerOptions
}

// NewLedgerService creates a new ledger service
func NewLedgerService(logger *slog.Logger, repo ledger.Repository, m *metrics.Metrics, opts LedgerOptions) LedgerService {
	return &LedgerServiceImpl{
		repo:    repo,
		metrics: m,
		logger:  logger.With("component", "ledger_service"),
		opts:    opts,
	}
}

func (s *LedgerServiceImpl) Create(ctx context.Context, in CreateEventInput, actor Actor) (*ledger.Event, error) {
	now := time.Now()
	e, err := ledger.NewEvent(in.ID, in.Title, in.Org, in.BusinessUnit, in.Amount, in.Currency, now)
	if err != nil {
		s.record(OpCreate, in.ID, actor, err, true)
		return nil, err
	}
	act := activity.New(e.ID, activity.TypeEventCreated, actor.Identity, string(e.Status), actor.CorrelationID, now)

	ctx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	err = ledger.NewStoreError(OpCreate, s.repo.Create(ctx, e, act))
	s.record(OpCreate, e.ID, actor, err, true)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *LedgerServiceImpl) Approve(ctx context.Context, eventID string, actor Actor) (*ledger.Event, error) {
	return s.update(ctx, OpApprove, eventID, actor, func(e *ledger.Event) (*activity.Activity, error) {
		now := time.Now()
		changed, err := e.Approve(now)
		if err != nil || !changed {
			return nil, err
		}
		return activity.New(e.ID, activity.TypeEventApproved, actor.Identity, string(e.Status), actor.CorrelationID, now), nil
	})
}

func (s *LedgerServiceImpl) Assign(ctx context.Context, eventID, owner string, actor Actor) (*ledger.Event, error) {
	if strings.TrimSpace(owner) == "" {
		err := ledger.ValidationError{Field: "owner", Message: "is required"}
		s.record(OpAssign, eventID, actor, err, false)
		return nil, err
	}

	return s.update(ctx, OpAssign, eventID, actor, func(e *ledger.Event) (*activity.Activity, error) {
		now := time.Now()
		if err := e.Assign(owner, actor.Identity, s.opts.StrictAssignment, now); err != nil {
			return nil, err
		}
		return activity.New(e.ID, activity.TypeEventAssigned, actor.Identity, string(e.Status), actor.CorrelationID, now).
			WithOwner(e.Owner), nil
	})
}

func (s *LedgerServiceImpl) AttachReceipt(ctx context.Context, eventID string, receipt ledger.Receipt, actor Actor) (*ledger.Event, error) {
	// Malformed receipts never reach the store
	if id := strings.TrimSpace(eventID); id != "" {
		if _, err := receipt.Normalize(id, time.Now()); err != nil {
			s.record(OpAttachReceipt, eventID, actor, err, false)
			return nil, err
		}
	}

	return s.update(ctx, OpAttachReceipt, eventID, actor, func(e *ledger.Event) (*activity.Activity, error) {
		now := time.Now()
		attached, err := e.AttachReceipt(receipt, now)
		if err != nil {
			return nil, err
		}
		return activity.New(e.ID, activity.TypeReceiptAttached, actor.Identity, string(e.Status), actor.CorrelationID, now).
			WithReceipt(attached.ID, string(attached.Gate)), nil
	})
}

func (s *LedgerServiceImpl) Get(ctx context.Context, eventID string) (*ledger.Event, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, ledger.ValidationError{Field: "eventId", Message: "is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	e, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return nil, ledger.NewStoreError(OpGet, err)
	}
	return e, nil
}

func (s *LedgerServiceImpl) List(ctx context.Context, f ledger.Filter) ([]*ledger.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	events, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, ledger.NewStoreError(OpList, err)
	}
	return events, nil
}

// update runs mutate against one event under the operation timeout
func (s *LedgerServiceImpl) update(ctx context.Context, op, eventID string, actor Actor, mutate ledger.Mutation) (*ledger.Event, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		err := ledger.ValidationError{Field: "eventId", Message: "is required"}
		s.record(op, eventID, actor, err, false)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	changed := false
	e, err := s.repo.Update(ctx, eventID, func(e *ledger.Event) (*activity.Activity, error) {
		act, err := mutate(e)
		changed = act != nil
		return act, err
	})
	err = ledger.NewStoreError(op, err)
	s.record(op, eventID, actor, err, changed)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *LedgerServiceImpl) record(op, eventID string, actor Actor, err error, changed bool) {
	log := s.logger.With(
		"operation", op,
		"event_id", eventID,
		"actor", actor.Identity,
		"correlation_id", actor.CorrelationID,
	)

	var storeErr *ledger.StoreError
	switch {
	case err == nil && !changed:
		s.metrics.LedgerMutation(op, metrics.OutcomeNoop)
		log.Info("Ledger operation changed nothing")
	case err == nil:
		s.metrics.LedgerMutation(op, metrics.OutcomeSuccess)
		log.Info("Ledger operation applied")
	case errors.As(err, &storeErr):
		s.metrics.LedgerMutation(op, metrics.OutcomeFailure)
		log.Error("Ledger store failure", "error", err)
	default:
		s.metrics.LedgerMutation(op, metrics.OutcomeFailure)
		log.Warn("Ledger operation rejected", "error", err)
	}
}
