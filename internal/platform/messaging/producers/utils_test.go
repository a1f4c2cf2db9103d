package producers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTopicAdmin struct {
	mock.Mock
}

func (m *MockTopicAdmin) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	args := m.Called(topics)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kafka.Partition), args.Error(1)
}

func (m *MockTopicAdmin) CreateTopics(topics ...kafka.TopicConfig) error {
	args := m.Called(topics)
	return args.Error(0)
}

func TestBrokerList(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, BrokerList(" k1:9092, ,k2:9092 "))
	assert.Empty(t, BrokerList(""))
}

func TestEnsureTopic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("ExistingTopic", func(t *testing.T) {
		admin := new(MockTopicAdmin)
		admin.On("ReadPartitions", []string{"activity"}).Return([]kafka.Partition{{Topic: "activity"}}, nil).Once()

		require.NoError(t, ensureTopic(ctx, admin, "activity", 3, 1, time.Millisecond, logger))
		admin.AssertNotCalled(t, "CreateTopics", mock.Anything)
	})

	t.Run("MissingTopicIsCreatedWithDefaults", func(t *testing.T) {
		admin := new(MockTopicAdmin)
		admin.On("ReadPartitions", []string{"activity"}).Return(nil, errors.New("unknown topic")).Times(topicReadAttempts)
		admin.On("CreateTopics", []kafka.TopicConfig{{Topic: "activity", NumPartitions: 1, ReplicationFactor: 1}}).Return(nil).Once()

		require.NoError(t, ensureTopic(ctx, admin, "activity", 0, 0, time.Millisecond, logger))
		admin.AssertExpectations(t)
	})

	t.Run("CreateFailure", func(t *testing.T) {
		admin := new(MockTopicAdmin)
		admin.On("ReadPartitions", mock.Anything).Return(nil, errors.New("unknown topic"))
		admin.On("CreateTopics", mock.Anything).Return(errors.New("not controller")).Once()

		err := ensureTopic(ctx, admin, "activity", 1, 1, time.Millisecond, logger)
		assert.ErrorContains(t, err, "not controller")
	})

	t.Run("CancelledWhileWaiting", func(t *testing.T) {
		admin := new(MockTopicAdmin)
		admin.On("ReadPartitions", mock.Anything).Return(nil, errors.New("broker not available"))

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := ensureTopic(cctx, admin, "activity", 1, 1, time.Hour, logger)
		assert.ErrorIs(t, err, context.Canceled)
		admin.AssertNotCalled(t, "CreateTopics", mock.Anything)
	})
}
