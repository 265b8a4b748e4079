package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mascota/mascota/internal/logger"
)

type Kind string

const (
	BackendUnavailable Kind = "backend_unavailable"
	SessionExpired     Kind = "session_expired"
	Error              Kind = "error"
	Info               Kind = "info"
)

const subscriberBuffer = 16

// Notification is an advisory message for the UI layer.
type Notification struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Service fans notifications out to subscribers. It does nothing until
// Init and nothing after Dispose.
type Service struct {
	mu          sync.Mutex
	active      bool
	subscribers map[string]chan Notification
}

func NewService() *Service {
	return &Service{
		subscribers: make(map[string]chan Notification),
	}
}

func (s *Service) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true

	l := logger.For(logger.NOTIFY)
	l.Debug().Msg("Notification service initialised")
}

// Dispose closes every subscriber channel and stops delivery.
func (s *Service) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

func (s *Service) Subscribe() (<-chan Notification, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan Notification, subscriberBuffer)
	if !s.active {
		close(ch)
		return ch, func() {}
	}
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			close(c)
			delete(s.subscribers, id)
		}
	}
}

// Publish delivers without blocking; a full subscriber misses the message.
func (s *Service) Publish(kind Kind, message string) {
	n := Notification{
		ID:      uuid.New().String(),
		Kind:    kind,
		Message: message,
		At:      time.Now(),
	}

	l := logger.For(logger.NOTIFY)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		l.Debug().Str("kind", string(kind)).Msg("Notification dropped - service not active")
		return
	}

	l.Info().Str("kind", string(kind)).Str("message", message).Msg("Notification published")
	for id, ch := range s.subscribers {
		select {
		case ch <- n:
		default:
			l.Warn().Str("subscriber", id).Msg("Subscriber full, dropping notification")
		}
	}
}
