package flows

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

type stubFeed struct {
	mu        sync.Mutex
	unseen    int64
	stats     models.DashboardStats
	err       error
	unseenErr error
	statsErr  error
	polls     int
}

func (s *stubFeed) UnseenContacts(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if s.err != nil {
		return 0, s.err
	}
	if s.unseenErr != nil {
		return 0, s.unseenErr
	}
	return s.unseen, nil
}

func (s *stubFeed) DashboardStats(context.Context) (*models.DashboardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	stats := s.stats
	return &stats, nil
}

func (s *stubFeed) set(unseen int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unseen = unseen
	s.err = err
}

func (s *stubFeed) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func TestPollerKeepsLastGoodValues(t *testing.T) {
	feed := &stubFeed{unseen: 3, stats: models.DashboardStats{TotalUsers: 10, TotalPendingBookings: 2}}
	poller := NewPoller(feed, time.Hour, nil, nil)

	snap := poller.PollOnce(context.Background())
	require.NoError(t, snap.Err)
	assert.Equal(t, int64(3), snap.Unseen)
	assert.Equal(t, int64(2), snap.Stats.TotalPendingBookings)
	updatedAt := snap.UpdatedAt

	feed.set(0, errors.New("connection refused"))
	snap = poller.PollOnce(context.Background())
	assert.Error(t, snap.Err)
	assert.Equal(t, int64(3), snap.Unseen, "a failed poll keeps the previous count")
	assert.Equal(t, updatedAt, snap.UpdatedAt)

	feed.set(5, nil)
	snap = poller.PollOnce(context.Background())
	assert.NoError(t, snap.Err)
	assert.Equal(t, int64(5), poller.Latest().Unseen)
}

func TestPollerRefreshesEachValueOnItsOwn(t *testing.T) {
	feed := &stubFeed{unseen: 1, stats: models.DashboardStats{TotalUsers: 4}}
	poller := NewPoller(feed, time.Hour, nil, nil)
	poller.PollOnce(context.Background())

	feed.mu.Lock()
	feed.unseen, feed.stats = 2, models.DashboardStats{TotalUsers: 9}
	feed.statsErr = errors.New("stats unavailable")
	feed.mu.Unlock()

	snap := poller.PollOnce(context.Background())
	assert.Error(t, snap.Err)
	assert.Equal(t, int64(2), snap.Unseen, "the count refreshes while stats fail")
	assert.Equal(t, int64(4), snap.Stats.TotalUsers)

	feed.mu.Lock()
	feed.statsErr = nil
	feed.unseenErr = errors.New("contacts unavailable")
	feed.mu.Unlock()
	snap = poller.PollOnce(context.Background())
	assert.Error(t, snap.Err)
	assert.Equal(t, int64(2), snap.Unseen)
	assert.Equal(t, int64(9), snap.Stats.TotalUsers, "stats refresh while the count fails")
}

func TestPollerStartStop(t *testing.T) {
	feed := &stubFeed{unseen: 1}
	updates := make(chan FeedSnapshot, 16)
	poller := NewPoller(feed, 10*time.Millisecond, func(s FeedSnapshot) {
		select {
		case updates <- s:
		default:
		}
	}, nil)

	stop := poller.Start(context.Background())

	select {
	case snap := <-updates:
		assert.Equal(t, int64(1), snap.Unseen, "the first poll runs immediately")
	case <-time.After(time.Second):
		t.Fatal("no immediate poll")
	}

	assert.Eventually(t, func() bool { return feed.Polls() >= 3 }, time.Second, 5*time.Millisecond)

	stop()
	after := feed.Polls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, feed.Polls(), "no polls after stop returns")
}

func TestPollerDefaultInterval(t *testing.T) {
	poller := NewPoller(&stubFeed{}, 0, nil, nil)
	assert.Equal(t, DefaultPollInterval, poller.interval)
}
