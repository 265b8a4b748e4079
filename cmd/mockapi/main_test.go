package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mascota/mascota/internal/domain/models"
	"github.com/mascota/mascota/internal/fakeapi"
)

func TestMainServer(t *testing.T) {
	server := httptest.NewServer(setupRouter(fakeapi.Options{}))
	defer server.Close()

	t.Run("health endpoint", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/health")
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
		}
	})

	t.Run("demo login and pets", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/auth/login", "application/json", strings.NewReader(`{
			"username": "demo",
			"password": "demo123"
		}`))
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		var login models.LoginResponse
		if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
			t.Fatalf("Failed to decode login response: %v", err)
		}
		resp.Body.Close()

		req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/pets", nil)
		req.Header.Add("Authorization", "Bearer "+login.Token)
		resp, err = http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		var pets []models.Pet
		if err := json.NewDecoder(resp.Body).Decode(&pets); err != nil {
			t.Fatalf("Failed to decode pets: %v", err)
		}
		if len(pets) != 2 {
			t.Errorf("Expected 2 demo pets, got %d", len(pets))
		}
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/invalid")
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status code %d, got %d", http.StatusNotFound, resp.StatusCode)
		}
	})
}
