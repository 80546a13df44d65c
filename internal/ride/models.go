package ride

// RidePoint is a single accepted GPS sample. Speed is in km/h.
type RidePoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
	Speed     float64 `json:"speed"`
}

// Ride is the finalized record of one session. It is never mutated after Stop.
type Ride struct {
	ID              string      `json:"id"`
	StartTime       int64       `json:"start_time"`
	EndTime         int64       `json:"end_time"`
	DistanceKm      float64     `json:"distance_km"`
	DurationMinutes int         `json:"duration_minutes"`
	MaxSpeed        float64     `json:"max_speed"`
	AvgSpeed        float64     `json:"avg_speed"`
	OverspeedEvents int         `json:"overspeed_events"`
	Points          int         `json:"points"`
	SafetyScore     int         `json:"safety_score"`
	Path            []RidePoint `json:"path"`
}

// Snapshot is the live, observable state of a session.
type Snapshot struct {
	RideID         string     `json:"ride_id"`
	State          string     `json:"state"`
	StartedAt      int64      `json:"started_at"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	CurrentSpeed   float64    `json:"current_speed"`
	DistanceKm     float64    `json:"distance_km"`
	Points         int        `json:"points"`
	OverspeedCount int        `json:"overspeed_count"`
	IsOverspeeding bool       `json:"is_overspeeding"`
	PathLength     int        `json:"path_length"`
	LastPoint      *RidePoint `json:"last_point,omitempty"`
}

type LastRide struct {
	Date            int64   `json:"date"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	Overspeeds      int     `json:"overspeeds"`
	AvgSpeed        float64 `json:"avg_speed"`
	Score           int     `json:"score"`
}

// CoachStats is the trailing seven day projection over a rider's history.
type CoachStats struct {
	TotalKmWeek         float64   `json:"total_km_week"`
	TotalRidesWeek      int       `json:"total_rides_week"`
	TotalOverspeedsWeek int       `json:"total_overspeeds_week"`
	TotalPointsWeek     int       `json:"total_points_week"`
	AvgSafetyScore      int       `json:"avg_safety_score"`
	LastRide            *LastRide `json:"last_ride,omitempty"`
}
