package consumers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/executive-war-room/internal/config"
)

// fakeReader serves queued messages, then blocks until the context ends
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestNewKafkaConsumer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.KafkaConfig{
		Brokers:       "localhost:9092, localhost:9093",
		ActivityTopic: "test-topic",
		ConsumerGroup: "test-group",
		MinBytes:      1024,
		MaxBytes:      10240,
		MaxWait:       time.Second,
	}

	consumer := NewKafkaConsumer(context.Background(), logger, cfg)
	require.NotNil(t, consumer)
	require.NotNil(t, consumer.reader, "Kafka reader should be initialized")
	assert.Equal(t, "test-topic", consumer.topic)
	assert.Equal(t, "test-group", consumer.groupID)
	require.NoError(t, consumer.Close())
}

func TestStartOffset(t *testing.T) {
	assert.Equal(t, kafka.FirstOffset, startOffset(0))
	assert.Equal(t, kafka.FirstOffset, startOffset(kafka.FirstOffset))
	assert.Equal(t, kafka.LastOffset, startOffset(kafka.LastOffset))
}

func TestKafkaConsumer_Subscribe(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := &fakeReader{
		fetchErrs: []error{errors.New("group rebalance")},
		queue: []kafka.Message{
			{Offset: 1, Key: []byte("evt-1"), Value: []byte("ok")},
			{Offset: 2, Key: []byte("evt-2"), Value: []byte("flaky")},
			{Offset: 3, Key: []byte("evt-3"), Value: []byte("ok")},
		},
	}
	consumer := &KafkaConsumer{reader: reader, logger: logger, topic: "t", groupID: "g", fetchBackoff: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		seen     []string
		failures int
	)
	handled := make(chan struct{}, 8)
	require.NoError(t, consumer.Subscribe(ctx, func(_ context.Context, msg kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(msg.Key))
		handled <- struct{}{}
		if string(msg.Value) == "flaky" && failures < 2 {
			failures++
			return errors.New("store unavailable")
		}
		return nil
	}))

	for i := 0; i < 5; i++ {
		select {
		case <-handled:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for messages")
		}
	}

	assert.Eventually(t, func() bool { return len(reader.committedOffsets()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2, 3}, reader.committedOffsets())

	mu.Lock()
	assert.Equal(t, []string{"evt-1", "evt-2", "evt-2", "evt-2", "evt-3"}, seen)
	mu.Unlock()

	require.NoError(t, consumer.Close())
	assert.True(t, reader.closed)
}

func TestKafkaConsumer_FailedMessageBlocksLaterOffsets(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := &fakeReader{
		queue: []kafka.Message{
			{Offset: 1, Key: []byte("evt-1"), Value: []byte("fail")},
			{Offset: 2, Key: []byte("evt-2"), Value: []byte("ok")},
		},
	}
	consumer := &KafkaConsumer{reader: reader, logger: logger, topic: "t", groupID: "g", fetchBackoff: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	var (
		mu   sync.Mutex
		seen []string
	)
	attempts := make(chan struct{}, 64)
	go func() {
		defer close(done)
		consumer.run(ctx, func(_ context.Context, msg kafka.Message) error {
			mu.Lock()
			seen = append(seen, string(msg.Key))
			mu.Unlock()
			select {
			case attempts <- struct{}{}:
			default:
			}
			if string(msg.Value) == "fail" {
				return errors.New("store unavailable")
			}
			return nil
		})
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-attempts:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for retries")
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}

	assert.Empty(t, reader.committedOffsets(), "nothing may be committed while offset 1 is unprocessed")
	mu.Lock()
	assert.NotContains(t, seen, "evt-2")
	assert.GreaterOrEqual(t, len(seen), 3)
	mu.Unlock()
}

func TestKafkaConsumer_Close(t *testing.T) {
	consumer := &KafkaConsumer{reader: nil, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	require.NoError(t, consumer.Close(), "Close should return nil if reader is nil")
}
