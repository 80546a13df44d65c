package coach

import (
	"fmt"
	"strconv"
	"strings"

	"backend-ridermate/internal/profile"
	"backend-ridermate/internal/ride"
)

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func summaryPrompt(stats ride.CoachStats, p profile.Profile) string {
	lastRide := "No rides recorded yet."
	if lr := stats.LastRide; lr != nil {
		lastRide = fmt.Sprintf(`Last Ride Stats:
- Distance: %s km
- Duration: %d min
- Average Speed: %.1f km/h
- Overspeed Events (>%.0fkm/h): %d
- Safety Score: %d/100`, num(lr.DistanceKm), lr.DurationMinutes, lr.AvgSpeed, ride.OverspeedLimitKmh, lr.Overspeeds, lr.Score)
	}

	return fmt.Sprintf(`You are RiderMate, an expert AI motorcycle riding coach in India.

Rider Profile:
Name: %s
City: %s
Vehicle: %s

Weekly Stats (Last 7 Days):
Total Distance: %.1f km
Total Rides: %d
Total Overspeed Events: %d
Total Points: %d
Overall Safety Score: %d/100

%s

Task:
Analyze the rider's performance.
1. Provide a short, personalized summary of their weekly performance (max 2 sentences).
2. Give 2 specific, actionable safety tips based on their stats (especially if they have overspeed events). Use a friendly but professional "Coach" tone.
If the safety score is low (<70), be firm about safety. If high (>90), praise them.`,
		p.Name, p.City, p.VehicleType,
		stats.TotalKmWeek, stats.TotalRidesWeek, stats.TotalOverspeedsWeek, stats.TotalPointsWeek, stats.AvgSafetyScore,
		lastRide)
}

func chatInstruction(stats ride.CoachStats, p profile.Profile) string {
	lastScore := "N/A"
	if stats.LastRide != nil && stats.LastRide.Score > 0 {
		lastScore = strconv.Itoa(stats.LastRide.Score)
	}
	return fmt.Sprintf(`You are RiderMate, a friendly and knowledgeable motorcycle riding companion and safety coach in India.
You are chatting with %s from %s.

Current Stats:
- Weekly Safety Score: %d/100
- Recent Overspeeds: %d
- Last Ride Score: %s

Guidelines:
- Keep answers concise, practical, and easy to read on a mobile device (under 100 words).
- Focus on road safety, vehicle maintenance, and rider well-being (hydration, rest).
- If the user asks about going fast, strictly advise against overspeeding and emphasize the dangers on Indian roads.
- Be conversational and encouraging.`,
		p.Name, p.City, stats.AvgSafetyScore, stats.TotalOverspeedsWeek, lastScore)
}

func chatPrompt(message string, history []string) string {
	return fmt.Sprintf("Previous conversation:\n%s\n\nUser: %s", strings.Join(history, "\n"), message)
}
