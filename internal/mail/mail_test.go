package mail

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prperemyshlev/media-favourites/pkg/observability"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

var errSMTP = errors.New("smtp: 451 temporary failure")

type fakeSender struct {
	mu       sync.Mutex
	sent     []*Message
	failures int
	always   bool
	calls    int
}

func (s *fakeSender) Send(_ context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.always || s.failures > 0 {
		s.failures--
		return errSMTP
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *fakeSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQueue(client), mr
}

func newTestMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	m, err := observability.NewMetrics(noop.NewMeterProvider())
	require.NoError(t, err)
	return m
}

func testTemplates() *Templates {
	return &Templates{
		VerifyURL: "http://localhost:5000/api/auth/verify-email",
		ResetURL:  "http://localhost:3000/reset-password",
	}
}
