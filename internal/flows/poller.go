package flows

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// DefaultPollInterval is how often the admin feed refreshes
const DefaultPollInterval = 30 * time.Second

// FeedAPI is the part of the API the feed polls
type FeedAPI interface {
	UnseenContacts(ctx context.Context) (int64, error)
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
}

// FeedSnapshot is the latest poll result. A failed poll keeps the previous
// values and records the error.
type FeedSnapshot struct {
	Unseen    int64
	Stats     models.DashboardStats
	UpdatedAt time.Time
	Err       error
}

// Poller refreshes the unseen contact count and the dashboard counters on
// a fixed interval. It runs on its own goroutine and shares no state with
// the other flows.
type Poller struct {
	api      FeedAPI
	interval time.Duration
	logger   logrus.FieldLogger
	onUpdate func(FeedSnapshot)

	mu     sync.RWMutex
	latest FeedSnapshot
}

// NewPoller creates a poller; interval <= 0 means DefaultPollInterval.
// onUpdate may be nil and is called after every poll.
func NewPoller(api FeedAPI, interval time.Duration, onUpdate func(FeedSnapshot), logger logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Poller{api: api, interval: interval, onUpdate: onUpdate, logger: logger}
}

// Start polls immediately and then on every tick until ctx is done or the
// returned stop function is called. stop waits for the goroutine to exit.
func (p *Poller) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	return func() {
		cancel()
		<-done
	}
}

// Run blocks, polling until ctx is done
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce fetches both values and returns the new snapshot. The two
// requests are independent: a failing one leaves its previous value in place
// and is reported in Err while the other is still refreshed.
func (p *Poller) PollOnce(ctx context.Context) FeedSnapshot {
	unseen, unseenErr := p.api.UnseenContacts(ctx)
	stats, statsErr := p.api.DashboardStats(ctx)
	err := errors.Join(unseenErr, statsErr)

	p.mu.Lock()
	if unseenErr == nil {
		p.latest.Unseen = unseen
	}
	if statsErr == nil && stats != nil {
		p.latest.Stats = *stats
	}
	if unseenErr == nil || statsErr == nil {
		p.latest.UpdatedAt = time.Now()
	}
	p.latest.Err = err
	snapshot := p.latest
	p.mu.Unlock()

	if err != nil {
		p.logger.WithError(err).Debug("Feed poll failed")
	}
	if p.onUpdate != nil {
		p.onUpdate(snapshot)
	}
	return snapshot
}

// Latest returns the most recent snapshot
func (p *Poller) Latest() FeedSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}
