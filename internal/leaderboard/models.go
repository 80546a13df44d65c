package leaderboard

type Entry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Points      int    `json:"points"`
	SafetyScore int    `json:"safety_score"`
}
