package coach

import (
	"context"
	"sync"

	"backend-ridermate/internal/ride"
	"backend-ridermate/internal/stream"

	"github.com/sirupsen/logrus"
)

const EventSummary = "coach.summary"

type Publisher interface {
	Publish(rideID string, evt stream.Event)
}

// Debrief writes a coach summary in the background after each finished ride
// and publishes it on that ride's stream. The ride itself is already recorded
// when a debrief starts, so a failed or cancelled summary changes nothing.
type Debrief struct {
	coach    *Coach
	profiles ProfileSource
	stats    StatsSource
	pub      Publisher
	log      logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDebrief(c *Coach, profiles ProfileSource, stats StatsSource, pub Publisher, log logrus.FieldLogger) *Debrief {
	ctx, cancel := context.WithCancel(context.Background())
	return &Debrief{
		coach:    c,
		profiles: profiles,
		stats:    stats,
		pub:      pub,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RideFinished returns immediately; the summary is produced on its own
// goroutine.
func (d *Debrief) RideFinished(userID string, r ride.Ride) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(userID, r.ID)
	}()
}

func (d *Debrief) run(userID, rideID string) {
	log := d.log.WithFields(logrus.Fields{"user_id": userID, "ride_id": rideID})

	stats, err := d.stats.Weekly(d.ctx, userID)
	if err != nil {
		log.WithError(err).Warn("debrief: weekly stats")
		return
	}
	p, err := d.profiles.Get(d.ctx, userID)
	if err != nil {
		log.WithError(err).Warn("debrief: profile")
		return
	}

	task := d.coach.StartSummary(d.ctx, stats, p)
	select {
	case <-task.Done():
	case <-d.ctx.Done():
		task.Cancel()
		return
	}
	if d.ctx.Err() != nil {
		return
	}
	d.pub.Publish(rideID, stream.Event{Type: EventSummary, RideID: rideID, Data: SummaryReply{Summary: task.Wait(), Stats: stats}})
}

// Close cancels debriefs still waiting on the assistant and waits for their
// goroutines.
func (d *Debrief) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
}
