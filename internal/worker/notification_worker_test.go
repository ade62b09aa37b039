package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/notification"
)

type flakyMailer struct {
	mu       sync.Mutex
	failures int
	sent     []notification.Message
	calls    int
}

func (m *flakyMailer) Send(_ context.Context, msg notification.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("relay unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *flakyMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type setup struct {
	queue  *notification.RedisQueue
	client *redis.Client
	mailer *flakyMailer
	worker *NotificationWorker
}

func newSetup(t *testing.T, failures, maxAttempts int) setup {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	renderer, err := notification.NewRenderer()
	require.NoError(t, err)

	queue := notification.NewRedisQueue(client, "mail")
	mailer := &flakyMailer{failures: failures}
	w := NewNotificationWorker(queue, renderer, mailer, zap.NewNop(), NotificationWorkerConfig{
		MaxAttempts: maxAttempts,
		PollTimeout: time.Second,
	})
	return setup{queue: queue, client: client, mailer: mailer, worker: w}
}

func enqueueAssigned(t *testing.T, q notification.Queue) {
	t.Helper()
	require.NoError(t, q.Enqueue(context.Background(), notification.Job{
		Template: notification.TemplateTicketAssigned,
		To:       []string{"tech@example.com"},
		Data:     map[string]string{"Number": "TI-1001", "Title": "Printer jam"},
	}))
}

func TestProcessNextDeliversAndAcks(t *testing.T) {
	s := newSetup(t, 0, 3)
	enqueueAssigned(t, s.queue)

	took, err := s.worker.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.True(t, took)
	require.Equal(t, 1, s.mailer.sentCount())
	assert.Equal(t, "[TI-1001] Assigned to you: Printer jam", s.mailer.sent[0].Subject)

	inFlight, err := s.client.LLen(context.Background(), "mail:processing").Result()
	require.NoError(t, err)
	assert.Zero(t, inFlight)
}

func TestProcessNextRetriesThenSucceeds(t *testing.T) {
	s := newSetup(t, 2, 5)
	enqueueAssigned(t, s.queue)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		took, err := s.worker.ProcessNext(ctx)
		require.NoError(t, err)
		require.True(t, took)
	}
	assert.Equal(t, 1, s.mailer.sentCount())
	dead, err := s.client.LLen(ctx, "mail:dead").Result()
	require.NoError(t, err)
	assert.Zero(t, dead)
}

func TestProcessNextDeadLettersAfterMaxAttempts(t *testing.T) {
	s := newSetup(t, 10, 2)
	enqueueAssigned(t, s.queue)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		took, err := s.worker.ProcessNext(ctx)
		require.NoError(t, err)
		require.True(t, took)
	}
	assert.Zero(t, s.mailer.sentCount())

	dead, err := s.client.LLen(ctx, "mail:dead").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, dead)
	pending, err := s.client.LLen(ctx, "mail").Result()
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestProcessNextDeadLettersUnknownTemplate(t *testing.T) {
	s := newSetup(t, 0, 5)
	require.NoError(t, s.queue.Enqueue(context.Background(), notification.Job{
		Template: "missing",
		To:       []string{"x@example.com"},
	}))

	took, err := s.worker.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.True(t, took)
	assert.Equal(t, 0, s.mailer.calls)

	dead, err := s.client.LLen(context.Background(), "mail:dead").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, dead)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newSetup(t, 0, 3)
	enqueueAssigned(t, s.queue)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.worker.Run(ctx) }()

	require.Eventually(t, func() bool { return s.mailer.sentCount() == 1 }, 3*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
