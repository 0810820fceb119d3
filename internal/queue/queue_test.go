// internal/queue/queue_test.go
package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"design-assistant/internal/common/logger"
)

const (
	testTopic = "design-jobs"
	testDLQ   = "design-jobs-dlq"
)

// ==========================
// Test Helper Functions
// ==========================

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

type recordingAlerter struct {
	mu     sync.Mutex
	stages []string
}

func (a *recordingAlerter) DeadLetterAlert(ctx context.Context, stage, topic string, payload []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stages = append(a.stages, stage)
}

func (a *recordingAlerter) seen() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.stages...)
}

// ==========================
// Producer Tests
// ==========================

func TestProducer_Publish(t *testing.T) {
	mr, client := setupMiniredis(t)

	p := NewProducer(client, testTopic, testDLQ, logger.NewNoOpLogger())
	p.Publish(context.Background(), []byte(`{"jobId":"j1"}`))

	values, err := mr.List(testTopic)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, `{"jobId":"j1"}`, values[0])

	assert.False(t, mr.Exists(testDLQ), "successful publish must not touch the DLQ")
}

func TestProducer_PublishFailureDeadLetters(t *testing.T) {
	client, mock := redismock.NewClientMock()
	alerter := &recordingAlerter{}
	payload := []byte(`{"jobId":"j2"}`)

	mock.ExpectLPush(testTopic, payload).SetErr(errors.New("connection refused"))
	mock.ExpectLPush(testDLQ, payload).SetVal(1)

	p := NewProducer(client, testTopic, testDLQ, logger.NewNoOpLogger()).WithAlerter(alerter)

	// Publish never returns an error; failure is observed via the DLQ.
	p.Publish(context.Background(), payload)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []string{"publish"}, alerter.seen())
}

func TestProducer_DeadLetterFailureIsSwallowed(t *testing.T) {
	client, mock := redismock.NewClientMock()
	payload := []byte(`{"jobId":"j3"}`)

	mock.ExpectLPush(testTopic, payload).SetErr(errors.New("down"))
	mock.ExpectLPush(testDLQ, payload).SetErr(errors.New("still down"))

	p := NewProducer(client, testTopic, testDLQ, logger.NewNoOpLogger())
	p.Publish(context.Background(), payload)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProducer_DeadLetterDepth(t *testing.T) {
	mr, client := setupMiniredis(t)
	mr.Lpush(testDLQ, "a")
	mr.Lpush(testDLQ, "b")

	p := NewProducer(client, testTopic, testDLQ, logger.NewNoOpLogger())
	depth, err := p.DeadLetterDepth(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)
}

// ==========================
// Consumer Tests
// ==========================

func TestConsumer_ProcessesJobsInOrder(t *testing.T) {
	_, client := setupMiniredis(t)

	var mu sync.Mutex
	var handled []string
	done := make(chan struct{}, 2)

	handler := func(ctx context.Context, payload []byte) error {
		mu.Lock()
		handled = append(handled, string(payload))
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	c := NewConsumer(client, testTopic, testDLQ, 100*time.Millisecond, handler, logger.NewNoOpLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	// LPUSH + BRPOP makes the list FIFO.
	require.NoError(t, client.LPush(ctx, testTopic, "first").Err())
	require.NoError(t, client.LPush(ctx, testTopic, "second").Err())

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for consumer")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, handled)
}

func TestConsumer_DeadLettersFailedJobAndContinues(t *testing.T) {
	mr, client := setupMiniredis(t)
	alerter := &recordingAlerter{}

	done := make(chan string, 2)
	handler := func(ctx context.Context, payload []byte) error {
		defer func() { done <- string(payload) }()
		if string(payload) == "poison" {
			return errors.New("unprocessable")
		}
		return nil
	}

	c := NewConsumer(client, testTopic, testDLQ, 100*time.Millisecond, handler, logger.NewNoOpLogger()).
		WithAlerter(alerter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.NoError(t, client.LPush(ctx, testTopic, "poison").Err())
	require.NoError(t, client.LPush(ctx, testTopic, "healthy").Err())

	var seen []string
	for i := 0; i < 2; i++ {
		select {
		case p := <-done:
			seen = append(seen, p)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for consumer")
		}
	}

	// The poison payload did not stop the loop.
	assert.Equal(t, []string{"poison", "healthy"}, seen)

	require.Eventually(t, func() bool {
		values, err := mr.List(testDLQ)
		return err == nil && len(values) == 1 && values[0] == "poison"
	}, 5*time.Second, 20*time.Millisecond, "poison payload should land on the DLQ verbatim")

	assert.Eventually(t, func() bool {
		return len(alerter.seen()) == 1 && alerter.seen()[0] == "consume"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestConsumer_StopsOnContextCancel(t *testing.T) {
	_, client := setupMiniredis(t)

	c := NewConsumer(client, testTopic, testDLQ, 50*time.Millisecond, func(ctx context.Context, payload []byte) error {
		return nil
	}, logger.NewNoOpLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- c.Run(ctx) }()

	cancel()

	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}
