// Package postgres provides the PostgreSQL ledger store. Mutations run in a
// transaction holding the event's row lock, and the outbox message for the
// change is written in the same transaction.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/domain/ledger"
	"github.com/executive-war-room/internal/domain/outbox"
	"github.com/executive-war-room/internal/domain/shared"
	"github.com/executive-war-room/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const eventColumns = `id, title, org, business_unit, amount, currency, status, owner, assigned_by, receipts, approved_at, created_at, updated_at, version`

// EventRepository implements ledger.Repository for PostgreSQL
type EventRepository struct {
	db     persistence.TxBeginner
	outbox *OutboxRepository // nil when activities are not streamed
	logger *slog.Logger
}

// NewEventRepository creates a PostgreSQL event store. ob may be nil.
func NewEventRepository(logger *slog.Logger, db *persistence.PostgresDB, ob *OutboxRepository) *EventRepository {
	return &EventRepository{
		db:     db.Pool(),
		outbox: ob,
		logger: logger,
	}
}

// Create inserts a new event. Returns ErrDuplicateEvent when the id is taken.
func (r *EventRepository) Create(ctx context.Context, e *ledger.Event, act *activity.Activity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	receipts, err := json.Marshal(e.Receipts)
	if err != nil {
		return fmt.Errorf("failed to encode receipts: %w", err)
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	return persistence.RunInTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			e.ID,
			e.Title,
			e.Org,
			e.BusinessUnit,
			e.Amount,
			string(e.Currency),
			string(e.Status),
			e.Owner,
			e.AssignedBy,
			receipts,
			e.ApprovedAt,
			e.CreatedAt,
			e.UpdatedAt,
			e.Version,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == persistence.UniqueViolation {
				return ledger.ErrDuplicateEvent{EventID: e.ID}
			}
			r.logger.Error("Failed to create event", "event_id", e.ID, "error", err)
			return fmt.Errorf("failed to create event: %w", err)
		}
		return r.enqueue(ctx, tx, act)
	})
}

// Get retrieves an event by its id
func (r *EventRepository) Get(ctx context.Context, id string) (*ledger.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	e, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEventNotFound{EventID: id}
		}
		r.logger.Error("Failed to get event", "event_id", id, "error", err)
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// List returns the events matching f ordered by id
func (r *EventRepository) List(ctx context.Context, f ledger.Filter) ([]*ledger.Event, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}
	add("status", string(f.Status))
	add("org", f.Org)
	add("business_unit", f.BusinessUnit)
	add("owner", f.Owner)

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list events", "error", err)
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]*ledger.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			r.logger.Error("Failed to scan event", "error", err)
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over events", "error", err)
		return nil, fmt.Errorf("error iterating over events: %w", err)
	}

	return events, nil
}

// Update locks the event row, applies mutate and writes the new state and
// its outbox message in one transaction
func (r *EventRepository) Update(ctx context.Context, id string, mutate ledger.Mutation) (*ledger.Event, error) {
	var updated *ledger.Event

	err := persistence.RunInTx(ctx, r.db, func(tx pgx.Tx) error {
		current, err := r.lockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		previousVersion := current.Version

		act, err := mutate(current)
		if err != nil {
			return err
		}
		if act == nil {
			updated = current
			return nil
		}
		if err := current.Validate(); err != nil {
			return err
		}

		receipts, err := json.Marshal(current.Receipts)
		if err != nil {
			return fmt.Errorf("failed to encode receipts: %w", err)
		}

		query := `
			UPDATE events
			SET status = $1, owner = $2, assigned_by = $3, receipts = $4, approved_at = $5, updated_at = $6, version = $7
			WHERE id = $8 AND version = $9
		`
		result, err := tx.Exec(ctx, query,
			string(current.Status),
			current.Owner,
			current.AssignedBy,
			receipts,
			current.ApprovedAt,
			current.UpdatedAt,
			current.Version,
			current.ID,
			previousVersion, // Check previous version for optimistic locking
		)
		if err != nil {
			r.logger.Error("Failed to update event", "event_id", id, "error", err)
			return fmt.Errorf("failed to update event: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ledger.ErrConcurrentModification
		}

		if err := r.enqueue(ctx, tx, act); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// lockForUpdate reads the event holding its row lock until tx ends
func (r *EventRepository) lockForUpdate(ctx context.Context, tx pgx.Tx, id string) (*ledger.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`

	e, err := scanEvent(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEventNotFound{EventID: id}
		}
		r.logger.Error("Failed to lock event for update", "event_id", id, "error", err)
		return nil, fmt.Errorf("failed to lock event for update: %w", err)
	}
	return e, nil
}

func (r *EventRepository) enqueue(ctx context.Context, tx pgx.Tx, act *activity.Activity) error {
	if r.outbox == nil || act == nil {
		return nil
	}
	msg, err := outbox.NewMessage(act)
	if err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}
	return r.outbox.WithTx(tx).Create(ctx, msg)
}

func scanEvent(row pgx.Row) (*ledger.Event, error) {
	var (
		e          ledger.Event
		currency   string
		status     string
		receipts   []byte
		approvedAt *time.Time
	)
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Org,
		&e.BusinessUnit,
		&e.Amount,
		&currency,
		&status,
		&e.Owner,
		&e.AssignedBy,
		&receipts,
		&approvedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.Version,
	)
	if err != nil {
		return nil, err
	}

	e.Currency = shared.Currency(currency)
	e.Status = ledger.Status(status)
	e.Receipts = []ledger.Receipt{}
	if len(receipts) > 0 {
		if err := json.Unmarshal(receipts, &e.Receipts); err != nil {
			return nil, fmt.Errorf("failed to decode receipts of event %s: %w", e.ID, err)
		}
		if e.Receipts == nil {
			e.Receipts = []ledger.Receipt{}
		}
	}
	if approvedAt != nil {
		at := approvedAt.UTC()
		e.ApprovedAt = &at
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}
