package coach

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-ridermate/internal/logging"
	"backend-ridermate/internal/metrics"
	"backend-ridermate/internal/profile"
	"backend-ridermate/internal/ride"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssistant struct {
	reply   string
	err     error
	block   bool
	history []string
	message string
}

func (f *fakeAssistant) Summarize(ctx context.Context, _ ride.CoachStats, _ profile.Profile) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeAssistant) Chat(ctx context.Context, message string, _ ride.CoachStats, _ profile.Profile, history []string) (string, error) {
	f.message = message
	f.history = history
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func newCoach(a Assistant, timeout time.Duration) (*Coach, *metrics.Metrics) {
	m := metrics.New()
	return New(a, timeout, m, logging.Discard()), m
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMissingKey(t *testing.T) {
	c, _ := newCoach(nil, time.Second)
	assert.Equal(t, MsgMissingKey, c.Summary(context.Background(), ride.CoachStats{}, profile.Default()))
	assert.Equal(t, MsgMissingKey, c.Chat(context.Background(), "hi", ride.CoachStats{}, profile.Default(), nil))
}

func TestSummaryReplies(t *testing.T) {
	ctx := context.Background()

	c, _ := newCoach(&fakeAssistant{reply: "Great week!"}, time.Second)
	assert.Equal(t, "Great week!", c.Summary(ctx, ride.CoachStats{}, profile.Default()))

	c, m := newCoach(&fakeAssistant{err: errors.New("boom")}, time.Second)
	assert.Equal(t, MsgSummaryOffline, c.Summary(ctx, ride.CoachStats{}, profile.Default()))
	assert.Contains(t, scrape(t, m), `ridermate_coach_fallbacks_total{operation="summary"} 1`)

	c, _ = newCoach(&fakeAssistant{reply: "  "}, time.Second)
	assert.Equal(t, MsgSummaryEmpty, c.Summary(ctx, ride.CoachStats{}, profile.Default()))
}

func TestChatReplies(t *testing.T) {
	ctx := context.Background()
	history := []ChatMessage{
		{Sender: SenderAI, Text: "Hello! I am RiderMate."},
		{Sender: SenderUser, Text: "How do I corner?"},
	}

	fake := &fakeAssistant{reply: "Look through the turn."}
	c, _ := newCoach(fake, time.Second)
	assert.Equal(t, "Look through the turn.", c.Chat(ctx, "And braking?", ride.CoachStats{}, profile.Default(), history))
	assert.Equal(t, "And braking?", fake.message)
	assert.Equal(t, []string{"Coach: Hello! I am RiderMate.", "Rider: How do I corner?"}, fake.history)

	c, _ = newCoach(&fakeAssistant{err: errors.New("boom")}, time.Second)
	assert.Equal(t, MsgChatOffline, c.Chat(ctx, "hi", ride.CoachStats{}, profile.Default(), nil))

	c, _ = newCoach(&fakeAssistant{}, time.Second)
	assert.Equal(t, MsgChatEmpty, c.Chat(ctx, "hi", ride.CoachStats{}, profile.Default(), nil))
}

func TestTimeoutFallsBack(t *testing.T) {
	c, _ := newCoach(&fakeAssistant{block: true}, 20*time.Millisecond)

	start := time.Now()
	assert.Equal(t, MsgChatOffline, c.Chat(context.Background(), "hi", ride.CoachStats{}, profile.Default(), nil))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSummaryTaskWait(t *testing.T) {
	c, _ := newCoach(&fakeAssistant{reply: "Nice riding."}, time.Second)
	task := c.StartSummary(context.Background(), ride.CoachStats{}, profile.Default())
	assert.Equal(t, "Nice riding.", task.Wait())
}

func TestSummaryTaskCancel(t *testing.T) {
	c, _ := newCoach(&fakeAssistant{block: true}, 0)
	task := c.StartSummary(context.Background(), ride.CoachStats{}, profile.Default())
	task.Cancel()

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("summary task did not stop after cancel")
	}
	assert.Equal(t, MsgSummaryOffline, task.Wait())
}

func TestSummaryPrompt(t *testing.T) {
	stats := ride.CoachStats{TotalKmWeek: 42.35, TotalRidesWeek: 3, AvgSafetyScore: 80}
	p := profile.Profile{Name: "Asha", City: "Pune", VehicleType: "Scooter"}

	prompt := summaryPrompt(stats, p)
	assert.Contains(t, prompt, "Name: Asha")
	assert.Contains(t, prompt, "Total Distance: 42.4 km")
	assert.Contains(t, prompt, "No rides recorded yet.")

	stats.LastRide = &ride.LastRide{DistanceKm: 12.5, DurationMinutes: 30, AvgSpeed: 41.26, Overspeeds: 2, Score: 80}
	prompt = summaryPrompt(stats, p)
	assert.Contains(t, prompt, "- Distance: 12.5 km")
	assert.Contains(t, prompt, "- Average Speed: 41.3 km/h")
	assert.Contains(t, prompt, "Overspeed Events (>60km/h): 2")
	assert.NotContains(t, prompt, "No rides recorded yet.")
}

func TestChatInstruction(t *testing.T) {
	p := profile.Profile{Name: "Asha", City: "Pune"}
	require.Contains(t, chatInstruction(ride.CoachStats{}, p), "Last Ride Score: N/A")
	require.Contains(t, chatInstruction(ride.CoachStats{LastRide: &ride.LastRide{Score: 90}}, p), "Last Ride Score: 90")
	assert.Equal(t, "Previous conversation:\nRider: a\n\nUser: b", chatPrompt("b", []string{"Rider: a"}))
}
