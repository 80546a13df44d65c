// Package tracking runs live rides. Every active ride is owned by one
// goroutine that applies samples, ticks, snapshots and stop in order.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"backend-ridermate/internal/metrics"
	"backend-ridermate/internal/ride"
	"backend-ridermate/internal/stream"

	"github.com/gookit/validate"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTickInterval      = time.Second
	DefaultSimulatorInterval = time.Second

	mpsToKmh = 3.6

	// eventBuffer bounds the stream events waiting for the publisher.
	eventBuffer = 256
)

var (
	ErrInvalidSample = errors.New("invalid location sample")
	ErrClosed        = errors.New("tracking service closed")
)

type Publisher interface {
	Publish(rideID string, evt stream.Event)
}

// Recorder persists a finished ride.
type Recorder interface {
	Record(ctx context.Context, userID string, r ride.Ride) error
}

// Scorer credits ride points to the weekly leaderboard.
type Scorer interface {
	Add(ctx context.Context, userID string, points int) error
}

type Service struct {
	publisher Publisher
	recorder  Recorder
	scorer    Scorer
	metrics   *metrics.Metrics
	log       logrus.FieldLogger

	tickInterval time.Duration
	simInterval  time.Duration
	now          func() time.Time
	rand         func() float64

	events   chan outbound
	pumpDone chan struct{}
	onFinish FinishHook

	mu     sync.Mutex
	rides  map[string]*tracker
	closed bool
	quit   chan struct{}
	wg     sync.WaitGroup
}

func NewService(pub Publisher, rec Recorder, scorer Scorer, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Service{
		publisher:    pub,
		recorder:     rec,
		scorer:       scorer,
		metrics:      m,
		log:          log,
		tickInterval: DefaultTickInterval,
		simInterval:  DefaultSimulatorInterval,
		now:          time.Now,
		rand:         rand.Float64,
		rides:        make(map[string]*tracker),
		quit:         make(chan struct{}),
		events:       make(chan outbound, eventBuffer),
		pumpDone:     make(chan struct{}),
	}
	go s.pump()
	return s
}

// FinishHook runs after a finished ride has been recorded.
type FinishHook func(userID string, r ride.Ride)

// OnFinish installs hook. Call it before the service takes traffic.
func (s *Service) OnFinish(hook FinishHook) {
	s.onFinish = hook
}

type outbound struct {
	rideID string
	evt    stream.Event
}

type commandKind int

const (
	cmdSample commandKind = iota
	cmdSnapshot
	cmdSimulate
	cmdStop
)

type command struct {
	kind   commandKind
	sample Sample
	reply  chan reply
}

type reply struct {
	snapshot   ride.Snapshot
	ride       ride.Ride
	simulating bool
	err        error
}

type tracker struct {
	userID string
	rideID string
	cmds   chan command
	// done is closed once the ride stops taking commands.
	done chan struct{}
}

func (t *tracker) active() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// send hands a command to the ride's goroutine. Once accepted, a command is
// always answered.
func (t *tracker) send(ctx context.Context, cmd command) (reply, error) {
	cmd.reply = make(chan reply, 1)
	select {
	case t.cmds <- cmd:
	case <-t.done:
		return reply{}, fmt.Errorf("%w: ride %s has stopped", ride.ErrInvalidState, t.rideID)
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	r := <-cmd.reply
	return r, r.err
}

// Start begins a ride for userID. Only one ride per user may be active.
func (s *Service) Start(ctx context.Context, userID string) (ride.Snapshot, error) {
	snap, err := s.spawn(userID)
	if err != nil {
		return ride.Snapshot{}, err
	}
	s.metrics.RideStarted()
	s.log.WithFields(logrus.Fields{"user_id": userID, "ride_id": snap.RideID}).Info("ride started")
	s.publish(snap.RideID, EventState, snap)
	return snap, nil
}

// spawn registers a new ride for userID and starts its goroutine.
func (s *Service) spawn(userID string) (ride.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ride.Snapshot{}, ErrClosed
	}
	if t, ok := s.rides[userID]; ok && t.active() {
		return ride.Snapshot{}, fmt.Errorf("start: %w: ride %s is already active", ride.ErrInvalidState, t.rideID)
	}

	session := ride.NewSession()
	if err := session.Start(s.now()); err != nil {
		return ride.Snapshot{}, err
	}
	snap := session.Snapshot()

	t := &tracker{
		userID: userID,
		rideID: session.ID(),
		cmds:   make(chan command),
		done:   make(chan struct{}),
	}
	s.rides[userID] = t
	s.wg.Add(1)
	go s.run(t, session)
	return snap, nil
}

// AddSample feeds one location fix into the user's active ride.
func (s *Service) AddSample(ctx context.Context, userID string, sample Sample) (ride.Snapshot, error) {
	if v := validate.Struct(&sample); !v.Validate() {
		return ride.Snapshot{}, fmt.Errorf("%w: %s", ErrInvalidSample, v.Errors.One())
	}
	t, err := s.lookup(userID)
	if err != nil {
		return ride.Snapshot{}, err
	}
	res, err := t.send(ctx, command{kind: cmdSample, sample: sample})
	return res.snapshot, err
}

func (s *Service) Snapshot(ctx context.Context, userID string) (ride.Snapshot, error) {
	t, err := s.lookup(userID)
	if err != nil {
		return ride.Snapshot{}, err
	}
	res, err := t.send(ctx, command{kind: cmdSnapshot})
	return res.snapshot, err
}

// ToggleSimulate starts or stops synthetic samples for the active ride.
func (s *Service) ToggleSimulate(ctx context.Context, userID string) (SimulateResponse, error) {
	t, err := s.lookup(userID)
	if err != nil {
		return SimulateResponse{}, err
	}
	res, err := t.send(ctx, command{kind: cmdSimulate})
	if err != nil {
		return SimulateResponse{}, err
	}
	s.log.WithFields(logrus.Fields{"ride_id": t.rideID, "simulating": res.simulating}).Info("simulator toggled")
	return SimulateResponse{Simulating: res.simulating, Snapshot: res.snapshot}, nil
}

// ReportLocationError records that the location source failed. The ride
// keeps running.
func (s *Service) ReportLocationError(userID, message string) error {
	t, err := s.lookup(userID)
	if err != nil {
		return err
	}
	s.metrics.LocationError()
	s.log.WithFields(logrus.Fields{"user_id": userID, "ride_id": t.rideID}).Warnf("location unavailable: %s", message)
	s.publish(t.rideID, EventLocationUnavailable, LocationError{Message: message})
	return nil
}

// Stop finalizes the active ride, records it and credits its points. The
// ride goroutine stops its ticker and refuses further commands before the
// aggregates are read.
func (s *Service) Stop(ctx context.Context, userID string) (ride.Ride, error) {
	t, err := s.lookup(userID)
	if err != nil {
		return ride.Ride{}, err
	}
	res, err := t.send(ctx, command{kind: cmdStop})
	if err != nil {
		return ride.Ride{}, err
	}

	s.mu.Lock()
	if s.rides[userID] == t {
		delete(s.rides, userID)
	}
	s.mu.Unlock()

	r := res.ride
	log := s.log.WithFields(logrus.Fields{"user_id": userID, "ride_id": r.ID})

	persistCtx := context.WithoutCancel(ctx)
	if s.recorder != nil {
		if err := s.recorder.Record(persistCtx, userID, r); err != nil {
			log.WithError(err).Error("record ride")
			return r, fmt.Errorf("persist ride %s: %w", r.ID, err)
		}
	}
	if s.scorer != nil {
		if err := s.scorer.Add(persistCtx, userID, r.Points); err != nil {
			log.WithError(err).Warn("leaderboard update failed")
		}
	}

	s.metrics.RideFinished()
	log.WithFields(logrus.Fields{
		"distance_km": r.DistanceKm,
		"points":      r.Points,
		"overspeeds":  r.OverspeedEvents,
	}).Info("ride finished")
	s.publish(r.ID, EventFinished, r)
	if s.onFinish != nil {
		s.onFinish(userID, r)
	}
	return r, nil
}

// Close stops every ride goroutine. Rides still active are discarded.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if n := len(s.rides); n > 0 {
		s.log.WithField("active_rides", n).Warn("discarding active rides on shutdown")
	}
	close(s.quit)
	s.mu.Unlock()
	s.wg.Wait()
	<-s.pumpDone
}

func (s *Service) lookup(userID string) (*tracker, error) {
	s.mu.Lock()
	t, ok := s.rides[userID]
	s.mu.Unlock()
	if !ok || !t.active() {
		return nil, fmt.Errorf("%w: no active ride", ride.ErrInvalidState)
	}
	return t, nil
}

func (s *Service) run(t *tracker, session *ride.Session) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	var (
		sim     *Simulator
		simTick *time.Ticker
		simC    <-chan time.Time
	)
	stopSim := func() {
		if simTick != nil {
			simTick.Stop()
		}
		sim, simTick, simC = nil, nil, nil
	}
	defer stopSim()

	for {
		select {
		case <-s.quit:
			close(t.done)
			return

		case <-ticker.C:
			if err := session.OnTick(); err == nil {
				s.publish(t.rideID, EventState, session.Snapshot())
			}

		case <-simC:
			lat, lng, speed := sim.Next()
			if err := s.apply(t, session, lat, lng, speed, s.now()); err != nil {
				s.log.WithError(err).WithField("ride_id", t.rideID).Debug("simulated sample rejected")
			}

		case cmd := <-t.cmds:
			switch cmd.kind {
			case cmdSample:
				at := s.now()
				if cmd.sample.Timestamp > 0 {
					at = time.UnixMilli(cmd.sample.Timestamp)
				}
				err := s.apply(t, session, cmd.sample.Latitude, cmd.sample.Longitude, resolveSpeedKmh(cmd.sample.Speed, sim), at)
				cmd.reply <- reply{snapshot: session.Snapshot(), simulating: sim != nil, err: err}

			case cmdSnapshot:
				cmd.reply <- reply{snapshot: session.Snapshot(), simulating: sim != nil}

			case cmdSimulate:
				if sim != nil {
					stopSim()
				} else {
					snap := session.Snapshot()
					sim = NewSimulator(snap.LastPoint, snap.CurrentSpeed, s.rand)
					simTick = time.NewTicker(s.simInterval)
					simC = simTick.C
				}
				cmd.reply <- reply{snapshot: session.Snapshot(), simulating: sim != nil}

			case cmdStop:
				ticker.Stop()
				stopSim()
				close(t.done)
				r, err := session.Stop(s.now())
				cmd.reply <- reply{ride: r, err: err}
				return
			}
		}
	}
}

func (s *Service) apply(t *tracker, session *ride.Session, lat, lng, speedKmh float64, at time.Time) error {
	before := session.Snapshot().OverspeedCount
	if err := session.OnLocationSample(lat, lng, speedKmh, at); err != nil {
		return err
	}
	s.metrics.SampleAccepted()

	snap := session.Snapshot()
	if snap.OverspeedCount > before {
		s.metrics.OverspeedEdge()
		s.log.WithFields(logrus.Fields{"ride_id": t.rideID, "speed_kmh": speedKmh}).Info("overspeed")
	}
	s.publish(t.rideID, EventState, snap)
	return nil
}

// publish queues an event for the stream without blocking the caller. Events
// are dropped when the queue is full.
func (s *Service) publish(rideID, typ string, data any) {
	if s.publisher == nil {
		return
	}
	o := outbound{rideID: rideID, evt: stream.Event{Type: typ, RideID: rideID, At: s.now().UnixMilli(), Data: data}}
	select {
	case s.events <- o:
	default:
		s.log.WithFields(logrus.Fields{"ride_id": rideID, "type": typ}).Debug("stream event dropped")
	}
}

// pump hands queued events to the publisher in order, off the ride
// goroutines.
func (s *Service) pump() {
	defer close(s.pumpDone)
	for {
		select {
		case o := <-s.events:
			s.publisher.Publish(o.rideID, o.evt)
		case <-s.quit:
			return
		}
	}
}

// resolveSpeedKmh converts a GPS speed in m/s to km/h. A missing or
// non-positive reading falls back to the simulator's speed, or zero.
func resolveSpeedKmh(gpsMps *float64, sim *Simulator) float64 {
	if gpsMps != nil && *gpsMps > 0 {
		return *gpsMps * mpsToKmh
	}
	if sim != nil {
		return sim.SpeedKmh()
	}
	return 0
}
