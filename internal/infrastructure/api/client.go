package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mascota/mascota/internal/domain/care"
	"github.com/mascota/mascota/internal/domain/models"
	"github.com/mascota/mascota/internal/logger"
)

const maxErrorBody = 512

type Client struct {
	client    *http.Client
	baseURL   string
	healthURL string
}

// NewClient builds a client for the REST API under baseURL. The timeout
// bounds every call, including the liveness probe.
func NewClient(baseURL, healthURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")

	l := logger.For(logger.API)
	l.Info().
		Str("base_url", baseURL).
		Str("health_url", healthURL).
		Dur("timeout", timeout).
		Msg("API client initialized")

	return &Client{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		healthURL: healthURL,
	}
}

// Health probes the liveness endpoint. Any transport error or non-2xx
// status means the backend is unreachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, "health", nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	body := models.LoginRequest{Username: username, Password: password}
	if err := c.call(ctx, http.MethodPost, "/auth/login", "", body, &resp, "login"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*models.RegisterResponse, error) {
	var resp models.RegisterResponse
	body := models.RegisterRequest{Username: username, Email: email, Password: password}
	if err := c.call(ctx, http.MethodPost, "/auth/register", "", body, &resp, "register"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetProfile(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.call(ctx, http.MethodGet, "/users/me", token, nil, &user, "get profile"); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetPets(ctx context.Context, token string) ([]models.Pet, error) {
	var pets []models.Pet
	if err := c.call(ctx, http.MethodGet, "/pets", token, nil, &pets, "get pets"); err != nil {
		return nil, err
	}
	return pets, nil
}

func (c *Client) GetHeroes(ctx context.Context, token string) ([]models.Hero, error) {
	var heroes []models.Hero
	if err := c.call(ctx, http.MethodGet, "/heroes", token, nil, &heroes, "get heroes"); err != nil {
		return nil, err
	}
	return heroes, nil
}

func (c *Client) Care(ctx context.Context, token, petID string, action care.Action) (*models.CareResult, error) {
	var result models.CareResult
	path := fmt.Sprintf("/pet-care/%s/%s", url.PathEscape(petID), action)
	if err := c.call(ctx, http.MethodPost, path, token, struct{}{}, &result, "pet care"); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateCoins(ctx context.Context, token, userID string, coins int) error {
	path := fmt.Sprintf("/users/%s/coins", url.PathEscape(userID))
	return c.call(ctx, http.MethodPut, path, token, models.CoinsUpdate{Coins: coins}, nil, "update coins")
}

func (c *Client) call(ctx context.Context, method, path, token string, body, out interface{}, op string) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out interface{}) error {
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	l := logger.For(logger.API)
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		l.Warn().
			Err(err).
			Str("op", op).
			Str("request_id", requestID).
			Msg("API request failed")
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	l.Debug().
		Str("op", op).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("API request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}
