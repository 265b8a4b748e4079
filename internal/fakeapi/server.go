// Package fakeapi serves the pet REST API from memory. It backs the
// mockapi binary and the end-to-end tests of the session layer.
package fakeapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/mux"
	"github.com/mascota/mascota/internal/domain/care"
	"github.com/mascota/mascota/internal/domain/models"
	"github.com/mascota/mascota/internal/logger"
	"github.com/mascota/mascota/pkg/httpext"
	"github.com/mascota/mascota/pkg/ratelimit"
)

// Route names used for call counting and fault injection.
const (
	RouteHealth   = "health"
	RouteLogin    = "login"
	RouteRegister = "register"
	RouteProfile  = "profile"
	RoutePets     = "pets"
	RouteHeroes   = "heroes"
	RouteCare     = "care"
	RouteCoins    = "coins"
)

type Options struct {
	Clock         clock.Clock
	TokenLifetime time.Duration
	// LoginLimit caps login attempts per client per LoginWindow. Zero
	// disables the limit.
	LoginLimit  int
	LoginWindow time.Duration
}

type Server struct {
	world         *World
	clock         clock.Clock
	tokenLifetime time.Duration
	loginLimiter  *ratelimit.Limiter

	mu     sync.Mutex
	calls  map[string]int
	faults map[string]int
}

func NewServer(world *World, opts Options) *Server {
	if world == nil {
		world = NewWorld()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.TokenLifetime <= 0 {
		opts.TokenLifetime = DefaultTokenLifetime
	}

	s := &Server{
		world:         world,
		clock:         opts.Clock,
		tokenLifetime: opts.TokenLifetime,
		calls:         make(map[string]int),
		faults:        make(map[string]int),
	}
	if opts.LoginLimit > 0 {
		window := opts.LoginWindow
		if window <= 0 {
			window = time.Minute
		}
		s.loginLimiter = ratelimit.NewLimiter(opts.Clock, window, opts.LoginLimit)
	}
	return s
}

func (s *Server) World() *World {
	return s.world
}

// Fail makes every later call to route answer with status until Heal.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = status
}

func (s *Server) Heal(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, route)
}

// Calls returns how many requests reached route, including failed ones.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Router mounts the API under /api and the liveness probe at /health.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger)

	r.Handle("/health", s.route(RouteHealth, http.HandlerFunc(s.handleHealth))).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	login := http.Handler(http.HandlerFunc(s.handleLogin))
	if s.loginLimiter != nil {
		login = RateLimit(s.loginLimiter, RouteLogin)(login)
	}
	api.Handle("/auth/login", s.route(RouteLogin, login)).Methods(http.MethodPost)
	api.Handle("/auth/register", s.route(RouteRegister, http.HandlerFunc(s.handleRegister))).Methods(http.MethodPost)

	api.Handle("/users/me", s.route(RouteProfile, s.RequireAuth(http.HandlerFunc(s.handleProfile)))).Methods(http.MethodGet)
	api.Handle("/users/{id}/coins", s.route(RouteCoins, s.RequireAuth(http.HandlerFunc(s.handleCoins)))).Methods(http.MethodPut)
	api.Handle("/pets", s.route(RoutePets, s.RequireAuth(http.HandlerFunc(s.handlePets)))).Methods(http.MethodGet)
	api.Handle("/heroes", s.route(RouteHeroes, s.RequireAuth(http.HandlerFunc(s.handleHeroes)))).Methods(http.MethodGet)
	api.Handle("/pet-care/{petId}/{action}", s.route(RouteCare, s.RequireAuth(http.HandlerFunc(s.handleCare)))).Methods(http.MethodPost)

	return r
}

// route counts calls and applies injected faults before next runs.
func (s *Server) route(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[name]++
		status, failing := s.faults[name]
		s.mu.Unlock()

		if failing {
			httpext.JsonError(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			w.Header().Set("X-Request-ID", id)
		}

		l := logger.For(logger.MOCKAPI)
		l.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Msg("Request received")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpext.JsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.world.Authenticate(req.Username, req.Password)
	if err != nil {
		httpext.JsonError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		l := logger.For(logger.MOCKAPI)
		l.Error().Err(err).Msg("Failed to issue token")
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httpext.JsonResponse(w, http.StatusOK, models.LoginResponse{
		Message: "Login successful",
		Token:   token,
		User:    user,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		httpext.JsonError(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := s.world.Register(req.Username, req.Email, req.Password)
	if err != nil {
		httpext.JsonError(w, err.Error(), http.StatusConflict)
		return
	}

	httpext.JsonResponse(w, http.StatusCreated, models.RegisterResponse{
		Message: "User registered",
		User:    user,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.world.User(userIDFrom(r))
	if err != nil {
		httpext.JsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, user)
}

func (s *Server) handlePets(w http.ResponseWriter, r *http.Request) {
	pets, err := s.world.Pets(userIDFrom(r))
	if err != nil {
		httpext.JsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, pets)
}

func (s *Server) handleHeroes(w http.ResponseWriter, r *http.Request) {
	heroes, err := s.world.Heroes(userIDFrom(r))
	if err != nil {
		httpext.JsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, heroes)
}

func (s *Server) handleCare(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	action, err := care.Parse(vars["action"])
	if err != nil {
		httpext.JsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.world.Care(userIDFrom(r), vars["petId"], action)
	switch {
	case err == nil:
		httpext.JsonResponse(w, http.StatusOK, result)
	case errors.Is(err, ErrUnknownPet):
		httpext.JsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, care.ErrNotPermitted):
		httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{
			Error:   "not_permitted",
			Message: err.Error(),
		})
	default:
		httpext.JsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleCoins(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id != userIDFrom(r) {
		httpext.JsonError(w, "Cannot update another user", http.StatusForbidden)
		return
	}

	var req models.CoinsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Coins < 0 {
		httpext.JsonError(w, "Coins must not be negative", http.StatusBadRequest)
		return
	}

	user, err := s.world.SetCoins(id, req.Coins)
	if err != nil {
		httpext.JsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, user)
}
