// Package coach produces the AI coach's weekly summary and chat replies.
package coach

import (
	"context"
	"strings"
	"time"

	"backend-ridermate/internal/metrics"
	"backend-ridermate/internal/profile"
	"backend-ridermate/internal/ride"

	"github.com/sirupsen/logrus"
)

const (
	MsgMissingKey     = "Error: API Key missing."
	MsgSummaryOffline = "Ride safe! I'm currently having trouble connecting to the coaching server."
	MsgChatOffline    = "Sorry, I'm offline right now. Ride safe!"
	MsgSummaryEmpty   = "Could not generate summary."
	MsgChatEmpty      = "I didn't catch that."
)

// Coach wraps an Assistant and always answers with text. A nil assistant
// means no API key was configured.
type Coach struct {
	assistant Assistant
	timeout   time.Duration
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
}

func New(assistant Assistant, timeout time.Duration, m *metrics.Metrics, log logrus.FieldLogger) *Coach {
	return &Coach{assistant: assistant, timeout: timeout, metrics: m, log: log}
}

func (c *Coach) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Coach) Summary(ctx context.Context, stats ride.CoachStats, p profile.Profile) string {
	if c.assistant == nil {
		c.metrics.CoachFallback("summary")
		return MsgMissingKey
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	text, err := c.assistant.Summarize(ctx, stats, p)
	if err != nil {
		c.log.WithError(err).Warn("coach summary failed")
		c.metrics.CoachFallback("summary")
		return MsgSummaryOffline
	}
	if strings.TrimSpace(text) == "" {
		return MsgSummaryEmpty
	}
	return text
}

func (c *Coach) Chat(ctx context.Context, message string, stats ride.CoachStats, p profile.Profile, history []ChatMessage) string {
	if c.assistant == nil {
		c.metrics.CoachFallback("chat")
		return MsgMissingKey
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	text, err := c.assistant.Chat(ctx, message, stats, p, HistoryLines(history))
	if err != nil {
		c.log.WithError(err).Warn("coach chat failed")
		c.metrics.CoachFallback("chat")
		return MsgChatOffline
	}
	if strings.TrimSpace(text) == "" {
		return MsgChatEmpty
	}
	return text
}

// SummaryTask is a summary request running in the background. It is
// independent of any ride; cancelling it only affects the reply.
type SummaryTask struct {
	cancel context.CancelFunc
	done   chan struct{}
	text   string
}

func (c *Coach) StartSummary(ctx context.Context, stats ride.CoachStats, p profile.Profile) *SummaryTask {
	ctx, cancel := context.WithCancel(ctx)
	task := &SummaryTask{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(task.done)
		defer cancel()
		task.text = c.Summary(ctx, stats, p)
	}()
	return task
}

func (t *SummaryTask) Cancel() {
	t.cancel()
}

// Wait blocks until the summary is ready and returns it.
func (t *SummaryTask) Wait() string {
	<-t.done
	return t.text
}

// Done is closed once the summary is available.
func (t *SummaryTask) Done() <-chan struct{} {
	return t.done
}
