package state

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mascota/mascota/internal/domain/models"
	"github.com/mascota/mascota/internal/logger"
)

// Snapshot is an immutable copy of the session handed to readers and
// subscribers.
type Snapshot struct {
	SessionID   string
	Epoch       uint64
	Token       string
	User        *models.User
	Pets        []models.Pet
	Heroes      []models.Hero
	Hero        *models.Hero
	ActivePetID string
	ActivePet   *models.Pet
	Coins       int
}

// LoggedIn reports whether the snapshot carries a token.
func (s Snapshot) LoggedIn() bool {
	return s.Token != ""
}

// Listener receives a snapshot after every effective mutation.
type Listener func(Snapshot)

// State is the single in-memory record of the session. The epoch
// increases on every Begin and Reset; work started under an older
// epoch must not write into the current session.
type State struct {
	mu          sync.RWMutex
	sessionID   string
	epoch       uint64
	token       string
	user        *models.User
	pets        []models.Pet
	heroes      []models.Hero
	heroID      string
	activePetID string
	coins       int

	listenersMu sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64
}

func New() *State {
	return &State{
		listeners: make(map[uint64]Listener),
	}
}

// Subscribe registers fn for change notifications and returns a
// function that removes it.
func (s *State) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *State) notify() {
	snap := s.Snapshot()

	s.listenersMu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *State) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SessionID:   s.sessionID,
		Epoch:       s.epoch,
		Token:       s.token,
		Pets:        make([]models.Pet, 0, len(s.pets)),
		Heroes:      make([]models.Hero, 0, len(s.heroes)),
		ActivePetID: s.activePetID,
		Coins:       s.coins,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	for _, p := range s.pets {
		snap.Pets = append(snap.Pets, p.Clone())
		if p.ID == s.activePetID {
			active := p.Clone()
			snap.ActivePet = &active
		}
	}
	for _, h := range s.heroes {
		snap.Heroes = append(snap.Heroes, h.Clone())
		if h.ID == s.heroID {
			hero := h.Clone()
			snap.Hero = &hero
		}
	}
	return snap
}

// Begin starts a new session for token. user may be nil when the
// session is restored from a persisted token.
func (s *State) Begin(token string, user *models.User) uint64 {
	s.mu.Lock()
	s.resetLocked()
	s.sessionID = uuid.New().String()
	s.token = token
	if user != nil {
		s.setUserLocked(*user)
	}
	epoch := s.epoch
	sessionID := s.sessionID
	s.mu.Unlock()

	l := logger.For(logger.STATE)
	l.Info().Str("session_id", sessionID).Uint64("epoch", epoch).Msg("Session started")
	s.notify()
	return epoch
}

// Reset tears the session down and invalidates in-flight work.
func (s *State) Reset() {
	s.mu.Lock()
	s.resetLocked()
	epoch := s.epoch
	s.mu.Unlock()

	l := logger.For(logger.STATE)
	l.Info().Uint64("epoch", epoch).Msg("Session cleared")
	s.notify()
}

func (s *State) resetLocked() {
	s.epoch++
	s.sessionID = ""
	s.token = ""
	s.user = nil
	s.pets = nil
	s.heroes = nil
	s.heroID = ""
	s.activePetID = ""
	s.coins = 0
}

// Update applies fn only while the session is still at epoch. It
// returns false, without calling fn, when the session has moved on.
func (s *State) Update(epoch uint64, fn func(tx *Tx)) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		current := s.epoch
		s.mu.Unlock()

		l := logger.For(logger.STATE)
		l.Debug().Uint64("epoch", epoch).Uint64("current", current).Msg("Dropping stale update")
		return false
	}
	fn(&Tx{s: s})
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *State) SetUser(user models.User) {
	s.mu.Lock()
	s.setUserLocked(user)
	s.mu.Unlock()
	s.notify()
}

func (s *State) SetPets(pets []models.Pet) {
	s.mu.Lock()
	s.setPetsLocked(pets)
	s.mu.Unlock()
	s.notify()
}

func (s *State) SetHeroes(heroes []models.Hero) {
	s.mu.Lock()
	s.setHeroesLocked(heroes)
	s.mu.Unlock()
	s.notify()
}

func (s *State) SetCoins(coins int) {
	s.mu.Lock()
	s.setCoinsLocked(coins)
	s.mu.Unlock()
	s.notify()
}

// SetActivePet selects petID for display. Unknown ids leave the
// selection unchanged.
func (s *State) SetActivePet(petID string) bool {
	s.mu.Lock()
	if indexOfPet(s.pets, petID) < 0 {
		s.mu.Unlock()

		l := logger.For(logger.STATE)
		l.Warn().Str("pet_id", petID).Msg("Ignoring selection of unknown pet")
		return false
	}
	s.activePetID = petID
	s.mu.Unlock()

	s.notify()
	return true
}

// MergePetUpdate replaces the stored pet with the same id. The active
// pet is tracked by id, so it follows the merge automatically.
func (s *State) MergePetUpdate(pet models.Pet) bool {
	s.mu.Lock()
	ok := s.mergePetLocked(pet)
	s.mu.Unlock()

	if !ok {
		l := logger.For(logger.STATE)
		l.Warn().Str("pet_id", pet.ID).Msg("Ignoring update for unknown pet")
		return false
	}
	s.notify()
	return true
}

func (s *State) setUserLocked(user models.User) {
	u := user
	s.user = &u
	s.coins = user.Coins
}

func (s *State) setCoinsLocked(coins int) {
	s.coins = coins
	if s.user != nil {
		s.user.Coins = coins
	}
}

func (s *State) setPetsLocked(pets []models.Pet) {
	s.pets = dedupePets(pets)

	if indexOfPet(s.pets, s.activePetID) >= 0 {
		return
	}
	if len(s.pets) > 0 {
		s.activePetID = s.pets[0].ID
	} else {
		s.activePetID = ""
	}
}

func (s *State) setHeroesLocked(heroes []models.Hero) {
	s.heroes = dedupeHeroes(heroes)
	if len(s.heroes) > 0 {
		s.heroID = s.heroes[0].ID
	} else {
		s.heroID = ""
	}
}

func (s *State) mergePetLocked(pet models.Pet) bool {
	i := indexOfPet(s.pets, pet.ID)
	if i < 0 {
		return false
	}
	s.pets[i] = pet.Clone()
	return true
}

func indexOfPet(pets []models.Pet, id string) int {
	if id == "" {
		return -1
	}
	for i := range pets {
		if pets[i].ID == id {
			return i
		}
	}
	return -1
}

// dedupePets keeps the first position of each id and the last value
// seen for it.
func dedupePets(pets []models.Pet) []models.Pet {
	out := make([]models.Pet, 0, len(pets))
	pos := make(map[string]int, len(pets))
	for _, p := range pets {
		if i, ok := pos[p.ID]; ok {
			out[i] = p.Clone()
			continue
		}
		pos[p.ID] = len(out)
		out = append(out, p.Clone())
	}
	return out
}

func dedupeHeroes(heroes []models.Hero) []models.Hero {
	out := make([]models.Hero, 0, len(heroes))
	pos := make(map[string]int, len(heroes))
	for _, h := range heroes {
		if i, ok := pos[h.ID]; ok {
			out[i] = h.Clone()
			continue
		}
		pos[h.ID] = len(out)
		out = append(out, h.Clone())
	}
	return out
}

// Tx exposes mutations inside Update. It is only valid during the call.
type Tx struct {
	s *State
}

func (tx *Tx) SetUser(user models.User) { tx.s.setUserLocked(user) }
func (tx *Tx) SetPets(pets []models.Pet) { tx.s.setPetsLocked(pets) }
func (tx *Tx) SetHeroes(heroes []models.Hero) { tx.s.setHeroesLocked(heroes) }
func (tx *Tx) SetCoins(coins int) { tx.s.setCoinsLocked(coins) }
func (tx *Tx) MergePetUpdate(pet models.Pet) bool { return tx.s.mergePetLocked(pet) }

// Token returns the session token seen by the transaction.
func (tx *Tx) Token() string { return tx.s.token }

// User returns a copy of the current user, or nil.
func (tx *Tx) User() *models.User {
	if tx.s.user == nil {
		return nil
	}
	u := *tx.s.user
	return &u
}
