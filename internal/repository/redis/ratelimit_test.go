package redisrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int) (*SlidingWindowLimiter, redismock.ClientMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	l := NewSlidingWindowLimiter(db, "auth", limit, time.Minute)
	l.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	l.hitID = func() string { return "hit-1" }

	return l, mock
}

func expectAdmit(mock redismock.ClientMock, limit int) *redismock.ExpectedCmd {
	return mock.ExpectEvalSha(admit.Hash(),
		[]string{KeyRateLimit("auth", "ip:10.0.0.1")},
		int64(1_700_000_000_000), int64(60_000), limit, "hit-1",
	)
}

func TestLimiterAdmits(t *testing.T) {
	l, mock := newTestLimiter(t, 10)
	expectAdmit(mock, 10).SetVal([]interface{}{int64(1), int64(4), int64(0)})

	d, err := l.Allow(context.Background(), "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 10, d.Limit)
	assert.Equal(t, 6, d.Remaining)
	assert.Zero(t, d.RetryAfter)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLimiterRejectsOverBudget(t *testing.T) {
	l, mock := newTestLimiter(t, 10)
	expectAdmit(mock, 10).SetVal([]interface{}{int64(0), int64(10), int64(1500)})

	d, err := l.Allow(context.Background(), "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Zero(t, d.Remaining)
	assert.Equal(t, 1500*time.Millisecond, d.RetryAfter)
}

func TestLimiterRedisError(t *testing.T) {
	l, mock := newTestLimiter(t, 10)
	expectAdmit(mock, 10).SetErr(errors.New("connection refused"))

	_, err := l.Allow(context.Background(), "ip:10.0.0.1")
	require.ErrorContains(t, err, "connection refused")
}
