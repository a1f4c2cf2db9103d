package outbox

import (
	"context"
	"strconv"

	"github.com/executive-war-room/internal/domain/shared"
)

// Repository manages transactional outbox message persistence. Messages are
// created by the event store alongside the mutation; the poller drains them.
type Repository interface {
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
}

// ErrMessageNotFound indicates missing outbox message
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message not found: " + strconv.FormatInt(e.ID, 10)
}
