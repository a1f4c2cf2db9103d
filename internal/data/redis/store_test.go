package redis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/domain/ledger"
	"github.com/executive-war-room/internal/domain/outbox"
	"github.com/executive-war-room/internal/domain/shared"
)

const testPrefix = "warroom"

func newTestStore(t *testing.T) (*EventRepository, *OutboxRepository, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := NewEventRepository(logger, client, testPrefix, 1000, true)
	ob := NewOutboxRepository(logger, client, testPrefix, 10)
	return events, ob, client
}

func createTestEvent(t *testing.T, repo *EventRepository, id, org string) *ledger.Event {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e, err := ledger.NewEvent(id, "Quarterly close "+id, org, "finance", 12500, "USD", now)
	require.NoError(t, err)
	act := activity.New(id, activity.TypeEventCreated, "alice", string(e.Status), "corr-"+id, now)
	require.NoError(t, repo.Create(context.Background(), e, act))
	return e
}

func assignTo(owner, by string) ledger.Mutation {
	return func(e *ledger.Event) (*activity.Activity, error) {
		if err := e.Assign(owner, by, false, time.Now()); err != nil {
			return nil, err
		}
		return activity.New(e.ID, activity.TypeEventAssigned, by, string(e.Status), "", time.Now()).WithOwner(owner), nil
	}
}

func TestEventRepository_CreateAndGet(t *testing.T) {
	repo, ob, _ := newTestStore(t)
	ctx := context.Background()

	created := createTestEvent(t, repo, "evt-1", "acme")

	got, err := repo.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, ledger.StatusNew, got.Status)
	assert.Equal(t, int64(12500), got.Amount)
	assert.NotNil(t, got.Receipts)

	pending, err := ob.GetPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "evt-1", pending[0].EventID)
	assert.Equal(t, shared.OutboxStatusPending, pending[0].Status)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrEventNotFound{})
}

func TestEventRepository_CreateDuplicate(t *testing.T) {
	repo, ob, _ := newTestStore(t)
	ctx := context.Background()

	createTestEvent(t, repo, "evt-1", "acme")

	dup, err := ledger.NewEvent("evt-1", "Other title", "", "", 1, "EUR", time.Now())
	require.NoError(t, err)
	err = repo.Create(ctx, dup, activity.New("evt-1", activity.TypeEventCreated, "bob", "NEW", "", time.Now()))
	assert.ErrorIs(t, err, ledger.ErrDuplicateEvent{})

	got, err := repo.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly close evt-1", got.Title, "the first write must survive")

	pending, err := ob.GetPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "a rejected create must not queue an activity")
}

func TestEventRepository_ListOrderAndFilter(t *testing.T) {
	repo, _, _ := newTestStore(t)
	ctx := context.Background()

	for _, tc := range []struct{ id, org string }{
		{"evt-3", "acme"},
		{"evt-1", "globex"},
		{"evt-2", "acme"},
	} {
		createTestEvent(t, repo, tc.id, tc.org)
	}

	all, err := repo.List(ctx, ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "evt-1", all[0].ID)
	assert.Equal(t, "evt-2", all[1].ID)
	assert.Equal(t, "evt-3", all[2].ID)

	acme, err := repo.List(ctx, ledger.Filter{Org: "acme"})
	require.NoError(t, err)
	require.Len(t, acme, 2)
	assert.Equal(t, "evt-2", acme[0].ID)
	assert.Equal(t, "evt-3", acme[1].ID)

	none, err := repo.List(ctx, ledger.Filter{Status: ledger.StatusApproved})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEventRepository_ListSkipsIndexEntriesWithoutValue(t *testing.T) {
	repo, _, client := newTestStore(t)
	ctx := context.Background()

	createTestEvent(t, repo, "evt-1", "acme")
	createTestEvent(t, repo, "evt-2", "acme")
	require.NoError(t, client.Del(ctx, repo.keys.event("evt-1")).Err())

	events, err := repo.List(ctx, ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-2", events[0].ID)
}

func TestEventRepository_UpdateQueuesActivityWithEvent(t *testing.T) {
	repo, ob, _ := newTestStore(t)
	ctx := context.Background()
	createTestEvent(t, repo, "evt-1", "acme")

	updated, err := repo.Update(ctx, "evt-1", assignTo("carol", "alice"))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusAssigned, updated.Status)
	assert.Equal(t, "carol", updated.Owner)

	stored, err := repo.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "carol", stored.Owner)
	assert.Equal(t, "alice", stored.AssignedBy)

	pending, err := ob.GetPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Less(t, pending[0].ID, pending[1].ID)

	act, err := pending[1].GetActivity()
	require.NoError(t, err)
	assert.Equal(t, activity.TypeEventAssigned, act.Type)
	assert.Equal(t, "carol", act.Owner)
	assert.Equal(t, string(ledger.StatusAssigned), act.Status)
}

func TestEventRepository_UpdateWithoutChange(t *testing.T) {
	repo, ob, _ := newTestStore(t)
	ctx := context.Background()
	created := createTestEvent(t, repo, "evt-1", "acme")

	got, err := repo.Update(ctx, "evt-1", func(e *ledger.Event) (*activity.Activity, error) {
		e.Title = "scratch edit"
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, created.Version, got.Version)

	stored, err := repo.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, created.Title, stored.Title, "a mutation without activity is not persisted")

	pending, err := ob.GetPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestEventRepository_UpdateErrors(t *testing.T) {
	repo, ob, _ := newTestStore(t)
	ctx := context.Background()
	createTestEvent(t, repo, "evt-1", "acme")

	_, err := repo.Update(ctx, "missing", assignTo("carol", "alice"))
	assert.ErrorIs(t, err, ledger.ErrEventNotFound{})

	_, err = repo.Update(ctx, "evt-1", assignTo("", "alice"))
	assert.ErrorIs(t, err, ledger.ValidationError{})

	stored, err := repo.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusNew, stored.Status)

	pending, err := ob.GetPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestEventRepository_ConcurrentAssignKeepsOwnerPair(t *testing.T) {
	repo, ob, _ := newTestStore(t)
	ctx := context.Background()
	createTestEvent(t, repo, "evt-1", "acme")

	const writers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Update(ctx, "evt-1", assignTo(fmt.Sprintf("o%d", i), fmt.Sprintf("b%d", i)))
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	require.Empty(t, errs)

	stored, err := repo.Get(ctx, "evt-1")
	require.NoError(t, err)
	require.NotEmpty(t, stored.Owner)
	assert.Equal(t, "b"+stored.Owner[1:], stored.AssignedBy, "owner and assignedBy must come from the same writer")
	assert.Equal(t, 1+writers, stored.Version, "every writer must observe its predecessor")

	pending, err := ob.GetPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1+writers)

	last, err := pending[len(pending)-1].GetActivity()
	require.NoError(t, err)
	assert.Equal(t, stored.Owner, last.Owner, "the newest activity describes the stored state")
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	repo, ob, _ := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		createTestEvent(t, repo, id, "acme")
	}

	limited, err := ob.GetPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "evt-1", limited[0].EventID)
	assert.Equal(t, "evt-2", limited[1].EventID)

	first, second := limited[0].ID, limited[1].ID

	require.NoError(t, ob.IncrementAttempts(ctx, first))
	pending, err := ob.GetPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.NotNil(t, pending[0].LastAttemptAt)

	require.NoError(t, ob.UpdateStatus(ctx, first, shared.OutboxStatusProcessed))
	require.NoError(t, ob.UpdateStatus(ctx, second, shared.OutboxStatusFailedToPublish))

	pending, err = ob.GetPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "evt-3", pending[0].EventID)

	processed, err := ob.get(ctx, ob.client, first)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusProcessed, processed.Status)
	assert.Equal(t, 1, processed.Attempts)

	var notFound outbox.ErrMessageNotFound
	assert.ErrorAs(t, ob.UpdateStatus(ctx, 999, shared.OutboxStatusProcessed), &notFound)
	assert.ErrorAs(t, ob.IncrementAttempts(ctx, 999), &notFound)
}

func TestEventRepository_UnstreamedSkipsOutbox(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := NewEventRepository(logger, client, testPrefix, 10, false)
	createTestEvent(t, repo, "evt-1", "acme")
	_, err := repo.Update(context.Background(), "evt-1", assignTo("carol", "alice"))
	require.NoError(t, err)

	assert.False(t, mr.Exists(repo.keys.outboxSeq()))
	assert.False(t, mr.Exists(repo.keys.outboxPending()))
}
