package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mascota/mascota/internal/config"
	"github.com/mascota/mascota/internal/domain/models"
)

func seededServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	restore := config.SetJWTSecret([]byte("test-secret"))
	t.Cleanup(restore)

	world := NewWorld()
	world.Seed(
		models.User{ID: "u1", Username: "ana", Email: "ana@example.com", Coins: 20},
		"secret",
		[]models.Pet{
			{ID: "p1", Name: "Rex", Type: "dog", Health: 50, Happiness: 50, Energy: 50, Status: models.StatusAlive},
			{ID: "p2", Name: "Tired", Type: "cat", Health: 50, Happiness: 50, Energy: 10, Status: models.StatusAlive},
			{ID: "p3", Name: "Gone", Type: "cat", Health: 0, Status: models.StatusDead},
		},
		[]models.Hero{{ID: "h1", Name: "Bolt"}},
	)

	s := NewServer(world, opts)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func doJSON(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	return resp
}

func login(t *testing.T, baseURL string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, baseURL+"/api/auth/login", "", `{"username":"ana","password":"secret"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected login status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var body models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	if body.User.ID != "u1" || body.Token == "" {
		t.Fatalf("Unexpected login response %+v", body)
	}
	return body.Token
}

func TestServer(t *testing.T) {
	s, ts := seededServer(t, Options{})
	token := login(t, ts.URL)

	t.Run("health", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/health", "", "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", `{"username":"ana","password":"nope"}`)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, resp.StatusCode)
		}
	})

	t.Run("profile requires token", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/users/me", "", "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, resp.StatusCode)
		}
	})

	t.Run("profile rejects forged token", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/users/me", token+"x", "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, resp.StatusCode)
		}
	})

	t.Run("profile", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/users/me", token, "")
		defer resp.Body.Close()

		var user models.User
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			t.Fatalf("Failed to decode user: %v", err)
		}
		if user.ID != "u1" || user.Coins != 20 {
			t.Errorf("Unexpected user %+v", user)
		}
	})

	t.Run("pets", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/pets", token, "")
		defer resp.Body.Close()

		var pets []models.Pet
		if err := json.NewDecoder(resp.Body).Decode(&pets); err != nil {
			t.Fatalf("Failed to decode pets: %v", err)
		}
		if len(pets) != 3 || pets[0].ID != "p1" {
			t.Errorf("Unexpected pets %+v", pets)
		}
	})

	t.Run("care", func(t *testing.T) {
		tests := []struct {
			name           string
			path           string
			expectedStatus int
		}{
			{"feed", "/api/pet-care/p1/feed", http.StatusOK},
			{"unknown action", "/api/pet-care/p1/dance", http.StatusBadRequest},
			{"unknown pet", "/api/pet-care/zz/feed", http.StatusNotFound},
			{"too tired to play", "/api/pet-care/p2/play", http.StatusBadRequest},
			{"dead pet", "/api/pet-care/p3/feed", http.StatusBadRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				resp := doJSON(t, http.MethodPost, ts.URL+tt.path, token, "{}")
				defer resp.Body.Close()
				if resp.StatusCode != tt.expectedStatus {
					t.Errorf("Expected status code %d, got %d", tt.expectedStatus, resp.StatusCode)
				}
			})
		}
	})

	t.Run("feed raises health by ten", func(t *testing.T) {
		pets, _ := s.World().Pets("u1")
		before := pets[0].Health

		resp := doJSON(t, http.MethodPost, ts.URL+"/api/pet-care/p1/feed", token, "{}")
		defer resp.Body.Close()

		var result models.CareResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode care result: %v", err)
		}
		if result.Pet == nil || result.Pet.Health != before+10 {
			t.Errorf("Expected health %v, got %+v", before+10, result.Pet)
		}
		if result.Consequences == nil || result.Consequences.Health != 10 {
			t.Errorf("Expected +10 health consequence, got %+v", result.Consequences)
		}
	})

	t.Run("coins", func(t *testing.T) {
		resp := doJSON(t, http.MethodPut, ts.URL+"/api/users/u1/coins", token, `{"coins":55}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
		}
		if user, _ := s.World().User("u1"); user.Coins != 55 {
			t.Errorf("Expected coins 55, got %d", user.Coins)
		}

		resp = doJSON(t, http.MethodPut, ts.URL+"/api/users/someone-else/coins", token, `{"coins":1}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("Expected status code %d, got %d", http.StatusForbidden, resp.StatusCode)
		}
	})

	t.Run("register", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", `{"username":"leo","email":"leo@example.com","password":"pw"}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("Expected status code %d, got %d", http.StatusCreated, resp.StatusCode)
		}

		resp = doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", `{"username":"leo","email":"leo@example.com","password":"pw"}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("Expected status code %d, got %d", http.StatusConflict, resp.StatusCode)
		}
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/invalid", "", "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status code %d, got %d", http.StatusNotFound, resp.StatusCode)
		}
	})
}

func TestFaultInjection(t *testing.T) {
	s, ts := seededServer(t, Options{})
	token := login(t, ts.URL)

	s.Fail(RoutePets, http.StatusInternalServerError)
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/pets", token, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, resp.StatusCode)
	}

	s.Heal(RoutePets)
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/pets", token, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}

	if got := s.Calls(RoutePets); got != 2 {
		t.Errorf("Expected 2 pets calls, got %d", got)
	}
}

func TestTokenExpiry(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Now())
	_, ts := seededServer(t, Options{Clock: mock, TokenLifetime: time.Hour})
	token := login(t, ts.URL)

	mock.Add(2 * time.Hour)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/users/me", token, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestLoginRateLimit(t *testing.T) {
	_, ts := seededServer(t, Options{LoginLimit: 2, LoginWindow: time.Minute})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", `{"username":"ana","password":"secret"}`)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("Expected first two logins to succeed, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("Expected third login to be limited, got %d", statuses[2])
	}
}
