package activity

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	a := New("evt-1", TypeEventAssigned, "carol@ops", "ASSIGNED", "corr-1", at)

	require.NotNil(t, a)
	_, err := uuid.Parse(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, "evt-1", a.EventID)
	assert.Equal(t, TypeEventAssigned, a.Type)
	assert.Equal(t, "carol@ops", a.Actor)
	assert.Equal(t, "ASSIGNED", a.Status)
	assert.Equal(t, "corr-1", a.CorrelationID)
	assert.Equal(t, time.UTC, a.OccurredAt.Location())
	assert.True(t, at.Equal(a.OccurredAt))

	other := New("evt-1", TypeEventAssigned, "carol@ops", "ASSIGNED", "corr-1", at)
	assert.NotEqual(t, a.ID, other.ID)
}

func TestErrDuplicateActivity_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrDuplicateActivity{ID: "a1"})

	assert.True(t, errors.Is(err, ErrDuplicateActivity{}))
	assert.True(t, errors.Is(err, ErrDuplicateActivity{ID: "a1"}))
	assert.False(t, errors.Is(err, ErrDuplicateActivity{ID: "a2"}))
	assert.Equal(t, "duplicate activity: a1", ErrDuplicateActivity{ID: "a1"}.Error())
}

func TestActivity_Validate(t *testing.T) {
	valid := New("evt-1", TypeEventApproved, "carol@ops", "APPROVED", "", time.Now())
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(a *Activity)
	}{
		{"MissingID", func(a *Activity) { a.ID = "" }},
		{"MissingEventID", func(a *Activity) { a.EventID = "" }},
		{"MissingOccurredAt", func(a *Activity) { a.OccurredAt = time.Time{} }},
		{"UnknownType", func(a *Activity) { a.Type = "EVENT_DELETED" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := *valid
			tt.mutate(&a)
			assert.ErrorIs(t, a.Validate(), ErrInvalidActivity)
		})
	}
}
