package ride

import (
	"errors"
	"testing"
	"time"

	"backend-ridermate/internal/shared/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rideStart = time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

func activeSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession()
	require.NoError(t, s.Start(rideStart))
	return s
}

func TestJitterFilterIgnoresShortHops(t *testing.T) {
	s := activeSession(t)

	require.NoError(t, s.OnLocationSample(12.9716, 77.5946, 20, rideStart))
	// ~1.1 m north
	require.NoError(t, s.OnLocationSample(12.97161, 77.5946, 20, rideStart.Add(time.Second)))

	snap := s.Snapshot()
	assert.Zero(t, snap.DistanceKm)
	assert.Zero(t, snap.Points)
	assert.Equal(t, 2, snap.PathLength, "noise samples are still appended")
}

func TestJitterFilterCountsRealMovement(t *testing.T) {
	s := activeSession(t)

	require.NoError(t, s.OnLocationSample(12.9716, 77.5946, 20, rideStart))
	require.NoError(t, s.OnLocationSample(12.9717, 77.5946, 20, rideStart.Add(time.Second)))

	want := geo.HaversineKm(12.9716, 77.5946, 12.9717, 77.5946)
	assert.Greater(t, want, JitterFloorKm)
	assert.Equal(t, want, s.Snapshot().DistanceKm)
}

func TestJitterPreviousPointIsLastAppended(t *testing.T) {
	s := activeSession(t)

	// Three 1.1 m hops: each is noise relative to the point before it.
	lat := 12.9716
	for i := 0; i < 3; i++ {
		require.NoError(t, s.OnLocationSample(lat, 77.5946, 10, rideStart))
		lat += 0.00001
	}
	assert.Zero(t, s.Snapshot().DistanceKm)
}

func TestOverspeedEdgeCounting(t *testing.T) {
	s := activeSession(t)

	speeds := []float64{70, 70, 70, 40, 70}
	for i, v := range speeds {
		require.NoError(t, s.OnLocationSample(12.9716, 77.5946, v, rideStart.Add(time.Duration(i)*time.Second)))
	}

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.OverspeedCount)
	assert.True(t, snap.IsOverspeeding)
}

func TestOverspeedThresholdIsExclusive(t *testing.T) {
	s := activeSession(t)

	require.NoError(t, s.OnLocationSample(12.9716, 77.5946, 61, rideStart))
	require.NoError(t, s.OnLocationSample(12.9716, 77.5946, 60, rideStart))
	assert.False(t, s.Snapshot().IsOverspeeding, "a sample at the limit clears the flag")

	require.NoError(t, s.OnLocationSample(12.9716, 77.5946, 61, rideStart))
	assert.Equal(t, 2, s.Snapshot().OverspeedCount)
}

func TestSafetyScore(t *testing.T) {
	assert.Equal(t, 100, SafetyScore(0))
	assert.Equal(t, 70, SafetyScore(3))
	assert.Equal(t, 0, SafetyScore(10))
	assert.Equal(t, 0, SafetyScore(15))
}

func TestStopScoreFromOverspeedCount(t *testing.T) {
	s := activeSession(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.OnLocationSample(12.9716, 77.5946, 80, rideStart))
		require.NoError(t, s.OnLocationSample(12.9716, 77.5946, 30, rideStart))
	}

	r, err := s.Stop(rideStart.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, r.OverspeedEvents)
	assert.Equal(t, 70, r.SafetyScore)
}

func TestPointsRecomputedAndClampedAtStop(t *testing.T) {
	s := activeSession(t)

	// Oscillate around the limit while moving ~11 m per sample: distance
	// grows slowly while each oscillation costs five points.
	lat := 12.9716
	for i := 0; i < 6; i++ {
		speed := 70.0
		if i%2 == 1 {
			speed = 30
		}
		require.NoError(t, s.OnLocationSample(lat, 77.5946, speed, rideStart))
		lat += 0.0001
	}

	assert.Negative(t, s.Snapshot().Points)

	r, err := s.Stop(rideStart.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Points)
}

func TestPointsFormula(t *testing.T) {
	s := activeSession(t)

	require.NoError(t, s.OnLocationSample(12.9716, 77.5946, 30, rideStart))
	// ~1.11 km north
	require.NoError(t, s.OnLocationSample(12.9816, 77.5946, 70, rideStart))

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.OverspeedCount)
	assert.Equal(t, 11-5, snap.Points)
}

func TestAverageSpeed(t *testing.T) {
	s := activeSession(t)
	for _, v := range []float64{10, 20, 30} {
		require.NoError(t, s.OnLocationSample(12.9716, 77.5946, v, rideStart))
	}

	r, err := s.Stop(rideStart)
	require.NoError(t, err)
	assert.Equal(t, 20.0, r.AvgSpeed)
	assert.Equal(t, 30.0, r.MaxSpeed)
}

func TestStopEmptySession(t *testing.T) {
	s := activeSession(t)
	for i := 0; i < 125; i++ {
		require.NoError(t, s.OnTick())
	}

	r, err := s.Stop(rideStart.Add(125 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.DistanceKm)
	assert.Equal(t, 0.0, r.MaxSpeed)
	assert.Equal(t, 0.0, r.AvgSpeed)
	assert.Equal(t, 0, r.Points)
	assert.Equal(t, 100, r.SafetyScore)
	assert.Equal(t, 2, r.DurationMinutes)
	assert.NotNil(t, r.Path)
	assert.Empty(t, r.Path)
	assert.Equal(t, rideStart.UnixMilli(), r.StartTime)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, Idle, s.State())
}

func TestStopRoundsDistance(t *testing.T) {
	s := activeSession(t)
	require.NoError(t, s.OnLocationSample(12.9716, 77.5946, 30, rideStart))
	require.NoError(t, s.OnLocationSample(12.9816, 77.5946, 30, rideStart))

	r, err := s.Stop(rideStart)
	require.NoError(t, err)
	assert.Equal(t, 1.11, r.DistanceKm)
}

func TestNegativeSpeedClamped(t *testing.T) {
	s := activeSession(t)
	require.NoError(t, s.OnLocationSample(12.9716, 77.5946, -4, rideStart))
	assert.Equal(t, 0.0, s.Snapshot().CurrentSpeed)
}

func TestIdleSessionRejectsOperations(t *testing.T) {
	s := NewSession()
	before := s.Snapshot()

	_, err := s.Stop(rideStart)
	assert.True(t, errors.Is(err, ErrInvalidState))

	err = s.OnLocationSample(12.9716, 77.5946, 30, rideStart)
	assert.True(t, errors.Is(err, ErrInvalidState))

	err = s.OnTick()
	assert.True(t, errors.Is(err, ErrInvalidState))

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, Idle, s.State())
}

func TestStopIsNotRepeatable(t *testing.T) {
	s := activeSession(t)
	_, err := s.Stop(rideStart)
	require.NoError(t, err)

	_, err = s.Stop(rideStart)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStartTwiceRejected(t *testing.T) {
	s := activeSession(t)
	require.NoError(t, s.OnTick())

	err := s.Start(rideStart.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, s.Snapshot().ElapsedSeconds)
}

func TestStartResetsCounters(t *testing.T) {
	s := activeSession(t)
	require.NoError(t, s.OnLocationSample(12.9716, 77.5946, 90, rideStart))
	_, err := s.Stop(rideStart)
	require.NoError(t, err)

	require.NoError(t, s.Start(rideStart.Add(time.Hour)))
	snap := s.Snapshot()
	assert.Zero(t, snap.OverspeedCount)
	assert.Zero(t, snap.PathLength)
	assert.False(t, snap.IsOverspeeding)
	assert.Equal(t, "active", snap.State)
}
