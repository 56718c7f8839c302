package period

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iamasit07/glicko2-ratings/internal/service/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCloser struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingCloser) ClosePeriod(ctx context.Context) (*rating.PeriodSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &rating.PeriodSummary{ClosedPeriodID: int64(c.calls)}, nil
}

func (c *countingCloser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestSchedulerRunNow(t *testing.T) {
	closer := &countingCloser{}
	s := NewScheduler(closer, "")
	assert.Equal(t, DefaultSchedule, s.schedule)

	s.RunNow()
	assert.Equal(t, 1, closer.count())

	closer.err = errors.New("db down")
	s.RunNow()
	assert.Equal(t, 2, closer.count())
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(&countingCloser{}, "not a schedule")
	assert.Error(t, s.Start())
}

func TestSchedulerFires(t *testing.T) {
	closer := &countingCloser{}
	s := NewScheduler(closer, "* * * * * *")
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.False(t, s.Next().IsZero())
	assert.Eventually(t, func() bool { return closer.count() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
