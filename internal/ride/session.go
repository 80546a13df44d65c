package ride

import (
	"errors"
	"fmt"
	"math"
	"time"

	"backend-ridermate/internal/shared/geo"

	"github.com/google/uuid"
)

const (
	// OverspeedLimitKmh is the threshold above which a sample counts as overspeeding.
	OverspeedLimitKmh = 60.0
	// JitterFloorKm is the minimum hop between samples that counts as movement.
	JitterFloorKm = 0.002

	pointsPerKm       = 10
	overspeedPenalty  = 5
	scorePerOverspeed = 10
	maxSafetyScore    = 100
)

// ErrInvalidState is returned when an operation is invoked in the wrong state.
// The session is left untouched.
var ErrInvalidState = errors.New("invalid ride session state")

type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	default:
		return "idle"
	}
}

// Session tracks one ride. It is not safe for concurrent use; callers must
// serialize Start, OnTick, OnLocationSample and Stop.
type Session struct {
	state          State
	id             string
	startedAt      time.Time
	elapsedSeconds int
	currentSpeed   float64
	distanceKm     float64
	points         int
	overspeedCount int
	overspeeding   bool
	path           []RidePoint
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) ID() string {
	return s.id
}

// Start moves the session from Idle to Active and resets every counter.
func (s *Session) Start(now time.Time) error {
	if s.state != Idle {
		return fmt.Errorf("start: %w: session is %s", ErrInvalidState, s.state)
	}
	*s = Session{
		state:     Active,
		id:        uuid.NewString(),
		startedAt: now,
	}
	return nil
}

// OnTick advances the elapsed time by one second.
func (s *Session) OnTick() error {
	if s.state != Active {
		return fmt.Errorf("tick: %w: session is %s", ErrInvalidState, s.state)
	}
	s.elapsedSeconds++
	return nil
}

// OnLocationSample applies one position/speed reading. Samples closer than
// JitterFloorKm to the previous point are kept in the path but add no
// distance and leave points unchanged.
func (s *Session) OnLocationSample(lat, lon, speedKmh float64, at time.Time) error {
	if s.state != Active {
		return fmt.Errorf("location sample: %w: session is %s", ErrInvalidState, s.state)
	}
	if speedKmh < 0 || math.IsNaN(speedKmh) {
		speedKmh = 0
	}

	s.currentSpeed = speedKmh

	if speedKmh > OverspeedLimitKmh {
		if !s.overspeeding {
			s.overspeedCount++
		}
		s.overspeeding = true
	} else {
		s.overspeeding = false
	}

	if n := len(s.path); n > 0 {
		prev := s.path[n-1]
		hop := geo.HaversineKm(prev.Latitude, prev.Longitude, lat, lon)
		if hop > JitterFloorKm {
			s.distanceKm += hop
			s.points = int(math.Floor(s.distanceKm*pointsPerKm)) - s.overspeedCount*overspeedPenalty
		}
	}

	s.path = append(s.path, RidePoint{
		Latitude:  lat,
		Longitude: lon,
		Timestamp: at.UnixMilli(),
		Speed:     speedKmh,
	})
	return nil
}

// Stop finalizes the session into a Ride and returns the session to Idle.
func (s *Session) Stop(now time.Time) (Ride, error) {
	if s.state != Active {
		return Ride{}, fmt.Errorf("stop: %w: session is %s", ErrInvalidState, s.state)
	}

	var maxSpeed, sum float64
	for _, p := range s.path {
		if p.Speed > maxSpeed {
			maxSpeed = p.Speed
		}
		sum += p.Speed
	}
	avgSpeed := 0.0
	if len(s.path) > 0 {
		avgSpeed = sum / float64(len(s.path))
	}

	path := s.path
	if path == nil {
		path = []RidePoint{}
	}

	r := Ride{
		ID:              s.id,
		StartTime:       s.startedAt.UnixMilli(),
		EndTime:         now.UnixMilli(),
		DistanceKm:      math.Round(s.distanceKm*100) / 100,
		DurationMinutes: s.elapsedSeconds / 60,
		MaxSpeed:        maxSpeed,
		AvgSpeed:        avgSpeed,
		OverspeedEvents: s.overspeedCount,
		Points:          max(0, s.points),
		SafetyScore:     SafetyScore(s.overspeedCount),
		Path:            path,
	}

	*s = Session{}
	return r, nil
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		RideID:         s.id,
		State:          s.state.String(),
		ElapsedSeconds: s.elapsedSeconds,
		CurrentSpeed:   s.currentSpeed,
		DistanceKm:     s.distanceKm,
		Points:         s.points,
		OverspeedCount: s.overspeedCount,
		IsOverspeeding: s.overspeeding,
		PathLength:     len(s.path),
	}
	if !s.startedAt.IsZero() {
		snap.StartedAt = s.startedAt.UnixMilli()
	}
	if n := len(s.path); n > 0 {
		last := s.path[n-1]
		snap.LastPoint = &last
	}
	return snap
}

// SafetyScore maps an overspeed event count onto 0..100.
func SafetyScore(overspeedCount int) int {
	return max(0, maxSafetyScore-overspeedCount*scorePerOverspeed)
}
