package coach

import (
	"context"

	"backend-ridermate/internal/profile"
	"backend-ridermate/internal/ride"
)

const (
	SenderUser = "user"
	SenderAI   = "ai"
)

type ChatMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history"`
}

type SummaryReply struct {
	Summary string          `json:"summary"`
	Stats   ride.CoachStats `json:"stats"`
}

// Assistant is the remote language model. Implementations may fail or be
// slow; Coach turns every failure into a fixed reply.
type Assistant interface {
	Summarize(ctx context.Context, stats ride.CoachStats, p profile.Profile) (string, error)
	Chat(ctx context.Context, message string, stats ride.CoachStats, p profile.Profile, history []string) (string, error)
}

// HistoryLines renders chat history the way the prompt expects it.
func HistoryLines(msgs []ChatMessage) []string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		who := "Coach"
		if m.Sender == SenderUser {
			who = "Rider"
		}
		lines = append(lines, who+": "+m.Text)
	}
	return lines
}
