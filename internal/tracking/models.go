package tracking

import "backend-ridermate/internal/ride"

const (
	EventState               = "ride.state"
	EventFinished            = "ride.finished"
	EventLocationUnavailable = "location.unavailable"
)

// Sample is one geolocation fix. Speed is in m/s and may be absent; a zero
// Timestamp means "now".
type Sample struct {
	Latitude  float64  `json:"latitude" validate:"min:-90|max:90"`
	Longitude float64  `json:"longitude" validate:"min:-180|max:180"`
	Speed     *float64 `json:"speed"`
	Timestamp int64    `json:"timestamp"`
}

type LocationError struct {
	Message string `json:"message"`
}

type SimulateResponse struct {
	Simulating bool          `json:"simulating"`
	Snapshot   ride.Snapshot `json:"snapshot"`
}
