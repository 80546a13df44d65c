package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backend-ridermate/internal/auth"
	"backend-ridermate/internal/coach"
	"backend-ridermate/internal/config"
	"backend-ridermate/internal/leaderboard"
	"backend-ridermate/internal/logging"
	"backend-ridermate/internal/profile"
	"backend-ridermate/internal/ride"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const testSecret = "secret"

func newTestServer(t *testing.T, rdb *redis.Client) *Server {
	t.Helper()
	s := NewServer(config.Config{JWTSecret: testSecret, ServerPort: ":0", MediaBaseURL: "https://media.test"}, nil, rdb, logging.Discard())
	t.Cleanup(s.Close)
	return s
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func do(t *testing.T, s *Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := s.App.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 status")
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/rides/", "/profile/", "/memories/", "/leaderboard/", "/coach/summary", "/tracking/rides/current"} {
		resp := do(t, s, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestRegisterWithoutDatabase(t *testing.T) {
	s := newTestServer(t, nil)

	resp := do(t, s, http.MethodPost, "/auth/register", "", auth.RegisterRequest{Email: "a@b.c", Password: "pw123456", Name: "A"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestRideFlow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := newTestServer(t, rdb)
	token := bearer(t, "rider-1")

	resp := do(t, s, http.MethodPost, "/tracking/rides", token, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", resp.StatusCode)
	}

	speed := 10.0
	for _, lat := range []float64{12.9716, 12.9816, 12.9916} {
		resp = do(t, s, http.MethodPost, "/tracking/rides/current/samples", token, map[string]any{
			"latitude": lat, "longitude": 77.5946, "speed": speed,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("sample: expected 200, got %d", resp.StatusCode)
		}
	}

	resp = do(t, s, http.MethodPost, "/tracking/rides/current/stop", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", resp.StatusCode)
	}
	var finished ride.Ride
	if err := json.NewDecoder(resp.Body).Decode(&finished); err != nil {
		t.Fatalf("decode ride: %v", err)
	}
	if finished.Points != 22 || finished.SafetyScore != 100 || len(finished.Path) != 3 {
		t.Fatalf("unexpected ride %+v", finished)
	}

	resp = do(t, s, http.MethodGet, "/rides/", token, nil)
	var rides []ride.Ride
	if err := json.NewDecoder(resp.Body).Decode(&rides); err != nil {
		t.Fatalf("decode rides: %v", err)
	}
	if len(rides) != 1 || rides[0].ID != finished.ID {
		t.Fatalf("unexpected history %+v", rides)
	}

	resp = do(t, s, http.MethodGet, "/leaderboard/", token, nil)
	var entries []leaderboard.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "rider-1" || entries[0].Points != 22 {
		t.Fatalf("unexpected leaderboard %+v", entries)
	}

	resp = do(t, s, http.MethodGet, "/profile/", token, nil)
	var p profile.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p != profile.Default() {
		t.Fatalf("expected default profile, got %+v", p)
	}

	resp = do(t, s, http.MethodGet, "/coach/summary", token, nil)
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), coach.MsgMissingKey) {
		t.Fatalf("unexpected summary %d %s", resp.StatusCode, raw)
	}

	resp = do(t, s, http.MethodGet, "/metrics", "", nil)
	raw, _ = io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "ridermate_rides_finished_total 1") {
		t.Fatalf("metrics missing finished ride:\n%s", raw)
	}
}
