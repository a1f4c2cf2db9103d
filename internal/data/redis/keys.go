// Package redis provides the Redis ledger store. Each event is a JSON value
// guarded by WATCH/MULTI optimistic transactions; the outbox lives in the same
// keyspace and is written in the same transaction as the event.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/executive-war-room/internal/domain/ledger"
)

// keyspace builds the keys of one deployment
type keyspace struct {
	prefix string
}

func (k keyspace) event(id string) string { return k.prefix + ":event:" + id }
func (k keyspace) eventIndex() string { return k.prefix + ":events" }
func (k keyspace) outboxSeq() string { return k.prefix + ":outbox:seq" }
func (k keyspace) outboxPending() string { return k.prefix + ":outbox:pending" }
func (k keyspace) outboxMessage(id int64) string {
	return k.prefix + ":outbox:msg:" + strconv.FormatInt(id, 10)
}

// withRetry runs fn until it stops failing with a CAS conflict. After
// maxRetries conflicts it gives up with ErrConcurrentModification.
func withRetry(ctx context.Context, maxRetries int, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", maxRetries, ledger.ErrConcurrentModification)
}
