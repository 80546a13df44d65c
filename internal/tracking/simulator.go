package tracking

import "backend-ridermate/internal/ride"

const (
	// SimulatorOriginLat and SimulatorOriginLng place a simulated ride in
	// central Bangalore when the ride has no points yet.
	SimulatorOriginLat = 12.9716
	SimulatorOriginLng = 77.5946

	simulatorStep     = 0.0001
	simulatorMaxSpeed = 80.0
)

// Simulator produces synthetic fixes that drift north-east with a random
// walk on speed.
type Simulator struct {
	lat, lng float64
	speedKmh float64
	rand     func() float64
}

func NewSimulator(from *ride.RidePoint, speedKmh float64, rnd func() float64) *Simulator {
	s := &Simulator{lat: SimulatorOriginLat, lng: SimulatorOriginLng, speedKmh: speedKmh, rand: rnd}
	if from != nil {
		s.lat, s.lng = from.Latitude, from.Longitude
	}
	return s
}

// Next advances one step and returns the new position and speed in km/h.
func (s *Simulator) Next() (lat, lng, speedKmh float64) {
	s.lat += simulatorStep
	s.lng += simulatorStep
	s.speedKmh = min(simulatorMaxSpeed, max(0, s.speedKmh+(s.rand()-0.4)*10))
	return s.lat, s.lng, s.speedKmh
}

// SpeedKmh is the speed of the last simulated step.
func (s *Simulator) SpeedKmh() float64 {
	return s.speedKmh
}
