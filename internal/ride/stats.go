package ride

import (
	"math"
	"time"
)

// StatsWindow is the trailing period covered by WeeklyStats.
const StatsWindow = 7 * 24 * time.Hour

// WeeklyStats projects rides (newest first) onto CoachStats. A ride belongs to
// the window when its start time is strictly after now minus StatsWindow.
// LastRide always reflects rides[0], even when it falls outside the window.
func WeeklyStats(rides []Ride, now time.Time) CoachStats {
	cutoff := now.Add(-StatsWindow).UnixMilli()

	var (
		stats      CoachStats
		totalKm    float64
		totalScore int
	)
	for _, r := range rides {
		if r.StartTime <= cutoff {
			continue
		}
		stats.TotalRidesWeek++
		totalKm += r.DistanceKm
		stats.TotalOverspeedsWeek += r.OverspeedEvents
		stats.TotalPointsWeek += r.Points
		totalScore += r.SafetyScore
	}

	stats.TotalKmWeek = math.Round(totalKm*10) / 10
	stats.AvgSafetyScore = maxSafetyScore
	if stats.TotalRidesWeek > 0 {
		stats.AvgSafetyScore = int(math.Round(float64(totalScore) / float64(stats.TotalRidesWeek)))
	}

	if len(rides) > 0 {
		last := rides[0]
		stats.LastRide = &LastRide{
			Date:            last.StartTime,
			DistanceKm:      last.DistanceKm,
			DurationMinutes: last.DurationMinutes,
			Overspeeds:      last.OverspeedEvents,
			AvgSpeed:        last.AvgSpeed,
			Score:           last.SafetyScore,
		}
	}
	return stats
}
