package fakeapi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mascota/mascota/internal/domain/care"
	"github.com/mascota/mascota/internal/domain/models"
)

var (
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnknownUser        = errors.New("unknown user")
	ErrUnknownPet         = errors.New("pet not found")
)

// StartingCoins is the balance of a freshly registered account.
const StartingCoins = 100

type account struct {
	user     models.User
	password string
	pets     []models.Pet
	heroes   []models.Hero
}

// World is the in-memory data behind the fake API.
type World struct {
	mu         sync.RWMutex
	byID       map[string]*account
	byUsername map[string]*account
}

func NewWorld() *World {
	return &World{
		byID:       make(map[string]*account),
		byUsername: make(map[string]*account),
	}
}

func (w *World) Register(username, email, password string) (models.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.byUsername[username]; ok {
		return models.User{}, ErrUserExists
	}
	acc := &account{
		user: models.User{
			ID:       uuid.New().String(),
			Username: username,
			Email:    email,
			Coins:    StartingCoins,
		},
		password: password,
	}
	w.byID[acc.user.ID] = acc
	w.byUsername[username] = acc
	return acc.user, nil
}

// Seed installs a fixed account with the given collections, replacing
// any account with the same id or username.
func (w *World) Seed(user models.User, password string, pets []models.Pet, heroes []models.Hero) {
	w.mu.Lock()
	defer w.mu.Unlock()

	acc := &account{user: user, password: password}
	for _, p := range pets {
		acc.pets = append(acc.pets, p.Clone())
	}
	for _, h := range heroes {
		acc.heroes = append(acc.heroes, h.Clone())
	}
	w.byID[user.ID] = acc
	w.byUsername[user.Username] = acc
}

func (w *World) Authenticate(username, password string) (models.User, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	acc, ok := w.byUsername[username]
	if !ok || acc.password != password {
		return models.User{}, ErrInvalidCredentials
	}
	return acc.user, nil
}

func (w *World) User(id string) (models.User, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	acc, ok := w.byID[id]
	if !ok {
		return models.User{}, ErrUnknownUser
	}
	return acc.user, nil
}

func (w *World) Pets(userID string) ([]models.Pet, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	acc, ok := w.byID[userID]
	if !ok {
		return nil, ErrUnknownUser
	}
	out := make([]models.Pet, 0, len(acc.pets))
	for _, p := range acc.pets {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (w *World) Heroes(userID string) ([]models.Hero, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	acc, ok := w.byID[userID]
	if !ok {
		return nil, ErrUnknownUser
	}
	out := make([]models.Hero, 0, len(acc.heroes))
	for _, h := range acc.heroes {
		out = append(out, h.Clone())
	}
	return out, nil
}

func (w *World) SetCoins(userID string, coins int) (models.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	acc, ok := w.byID[userID]
	if !ok {
		return models.User{}, ErrUnknownUser
	}
	acc.user.Coins = coins
	return acc.user, nil
}

// effect is the stat change one care action applies.
type effect struct {
	health, happiness, energy float64
	sleep                     bool
	cures                     []string
}

var effects = map[care.Action]effect{
	care.Feed:  {health: 10, energy: 5},
	care.Bath:  {health: 5, happiness: 5},
	care.Sleep: {energy: 30, sleep: true},
	care.Heal:  {health: 25, cures: []string{"illness"}},
	care.Walk:  {happiness: 10, energy: -10},
	care.Play:  {happiness: 15, energy: -15},
}

// Care applies action to one of the user's pets and returns the server
// view of the result.
func (w *World) Care(userID, petID string, action care.Action) (*models.CareResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	acc, ok := w.byID[userID]
	if !ok {
		return nil, ErrUnknownUser
	}
	idx := -1
	for i := range acc.pets {
		if acc.pets[i].ID == petID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrUnknownPet
	}

	pet := &acc.pets[idx]
	if err := care.Permit(*pet, action); err != nil {
		return nil, err
	}

	e := effects[action]
	before := *pet
	pet.Health = models.ClampStat(pet.Health + e.health)
	pet.Happiness = models.ClampStat(pet.Happiness + e.happiness)
	pet.Energy = models.ClampStat(pet.Energy + e.energy)
	pet.IsSleeping = e.sleep
	if pet.Status == "" {
		pet.Status = models.StatusAlive
	}

	updated := pet.Clone()
	return &models.CareResult{
		Message: fmt.Sprintf("%s: %s done", pet.Name, action),
		Pet:     &updated,
		Consequences: &models.Consequences{
			Health:    updated.Health - before.Health,
			Happiness: updated.Happiness - before.Happiness,
			Energy:    updated.Energy - before.Energy,
			Cured:     e.cures,
		},
	}, nil
}
