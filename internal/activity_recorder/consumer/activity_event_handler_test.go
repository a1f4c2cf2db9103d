package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/platform/messaging/producers"
)

type MockRecordingService struct {
	mock.Mock
}

func (m *MockRecordingService) Record(ctx context.Context, a *activity.Activity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestHandleMessage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	valid := activity.New("evt-1", activity.TypeReceiptAttached, "ops@acme", "ASSIGNED", "", time.Now().Truncate(time.Millisecond))
	valid.WithReceipt("r1", "VERIFIED")
	validJSON, err := json.Marshal(valid)
	require.NoError(t, err)

	validMsg := kafka.Message{
		Key:   []byte("evt-1"),
		Value: validJSON,
		Headers: []kafka.Header{
			{Key: producers.HeaderCorrelationID, Value: []byte("corr-header")},
		},
	}
	badMsg := kafka.Message{Key: []byte("evt-2"), Value: []byte("invalid json")}

	sameActivity := mock.MatchedBy(func(a *activity.Activity) bool {
		return a.ID == valid.ID && a.ReceiptID == "r1" && a.CorrelationID == "corr-header"
	})

	tests := []struct {
		name          string
		msg           kafka.Message
		withDLQ       bool
		setupMocks    func(svc *MockRecordingService, dlq *MockDeadLetterPublisher)
		expectedError string
	}{
		{
			name:    "successful recording",
			msg:     validMsg,
			withDLQ: true,
			setupMocks: func(svc *MockRecordingService, _ *MockDeadLetterPublisher) {
				svc.On("Record", ctx, sameActivity).Return(nil).Once()
			},
		},
		{
			name:    "store failure is retried",
			msg:     validMsg,
			withDLQ: true,
			setupMocks: func(svc *MockRecordingService, _ *MockDeadLetterPublisher) {
				svc.On("Record", ctx, sameActivity).Return(errors.New("mongo down")).Once()
			},
			expectedError: "mongo down",
		},
		{
			name:    "invalid activity is dead-lettered",
			msg:     validMsg,
			withDLQ: true,
			setupMocks: func(svc *MockRecordingService, dlq *MockDeadLetterPublisher) {
				svc.On("Record", ctx, sameActivity).Return(activity.ErrInvalidActivity).Once()
				dlq.On("PublishToDLQ", ctx, "evt-1", validJSON, mock.AnythingOfType("string")).Return(nil).Once()
			},
		},
		{
			name:    "undecodable message is dead-lettered",
			msg:     badMsg,
			withDLQ: true,
			setupMocks: func(_ *MockRecordingService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", ctx, "evt-2", []byte("invalid json"), mock.MatchedBy(func(reason string) bool {
					return len(reason) > 0
				})).Return(nil).Once()
			},
		},
		{
			name:    "dead letter failure returns the original error",
			msg:     badMsg,
			withDLQ: true,
			setupMocks: func(_ *MockRecordingService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", ctx, "evt-2", mock.Anything, mock.Anything).Return(errors.New("dlq down")).Once()
			},
			expectedError: "Failed to unmarshal activity",
		},
		{
			name:          "undecodable message without DLQ is retried",
			msg:           badMsg,
			setupMocks:    func(*MockRecordingService, *MockDeadLetterPublisher) {},
			expectedError: "Failed to unmarshal activity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockRecordingService{}
			dlq := &MockDeadLetterPublisher{}
			tt.setupMocks(svc, dlq)

			var handler *ActivityEventHandler
			if tt.withDLQ {
				handler = NewActivityEventHandler(logger, svc, dlq)
			} else {
				handler = NewActivityEventHandler(logger, svc, nil)
			}

			err := handler.HandleMessage(ctx, tt.msg)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			svc.AssertExpectations(t)
			dlq.AssertExpectations(t)
		})
	}
}
