package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/executive-war-room/internal/data/memory"
	"github.com/executive-war-room/internal/domain/ledger"
	"github.com/executive-war-room/internal/domain/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testRates(t *testing.T) snapshot.Rates {
	t.Helper()
	rates, err := snapshot.ParseRates("USD:1,GBP:1.25,EUR:1.1")
	require.NoError(t, err)
	return rates
}

func TestSnapshotService_Build(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	repo := memory.NewEventRepository(nil)

	for _, in := range []struct {
		id, org  string
		amount   int64
		currency string
	}{
		{"evt-1", "Acme", 10000, "USD"},
		{"evt-2", "Acme", 8000, "GBP"},
		{"evt-3", "Globex", 5000, "EUR"},
	} {
		e, err := ledger.NewEvent(in.id, "Event "+in.id, in.org, "Ops", in.amount, in.currency, asOf.AddDate(0, 0, -2))
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, e, nil))
	}

	svc := NewSnapshotService(testLogger, repo, testRates(t), time.Second)

	s, err := svc.Build(ctx, snapshot.NormalizeFilters("acme", "", "", ""), asOf)
	require.NoError(t, err)
	assert.Equal(t, "acme", s.Org)

	values := map[string]float64{}
	for _, tile := range s.Tiles {
		values[tile.Key] = tile.Value
	}
	assert.Equal(t, float64(2), values["events_total"])
	assert.Equal(t, float64(20000), values["value_total"])

	again, err := svc.Build(ctx, snapshot.NormalizeFilters("acme", "", "", ""), asOf)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestSnapshotService_StoreFailure(t *testing.T) {
	repo := new(MockEventRepository)
	repo.On("List", mock.Anything, ledger.Filter{}).Return(nil, errors.New("i/o timeout")).Once()

	svc := NewSnapshotService(testLogger, repo, testRates(t), time.Second)
	_, err := svc.Build(context.Background(), snapshot.NormalizeFilters("", "", "", ""), time.Now())

	var storeErr *ledger.StoreError
	assert.ErrorAs(t, err, &storeErr)
	repo.AssertExpectations(t)
}
