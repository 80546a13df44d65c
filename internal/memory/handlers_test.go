package memory

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-ridermate/internal/store"

	"github.com/gofiber/fiber/v2"
)

func testApp() *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/memories"), NewService(store.NewMemory()), func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	})
	return app
}

func TestMemoryHandlersCreateListNearby(t *testing.T) {
	app := testApp()

	body, _ := json.Marshal(Memory{Note: "Sunrise at Nandi Hills", Privacy: Public, Latitude: 13.3702, Longitude: 77.6835})
	req := httptest.NewRequest(http.MethodPost, "/memories/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %v", err)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/memories/", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %v", err)
	}
	var list []Memory
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil || len(list) != 1 {
		t.Fatalf("unexpected list %+v (%v)", list, err)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/memories/nearby?lat=13.37&lng=77.68", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("nearby status: %v", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil || len(list) != 1 {
		t.Fatalf("unexpected nearby %+v (%v)", list, err)
	}
}

func TestMemoryHandlersBadRequests(t *testing.T) {
	app := testApp()

	req := httptest.NewRequest(http.MethodPost, "/memories/", bytes.NewReader([]byte(`{"note":""}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for empty note")
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/memories/nearby?lat=abc", nil))
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for bad coordinates")
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/memories/nearby?lat=1&lng=2&radius_km=-1", nil))
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for bad radius")
	}
}
