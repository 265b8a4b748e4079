package state

import (
	"sync"
	"testing"

	"github.com/mascota/mascota/internal/domain/models"
)

func pets(ids ...string) []models.Pet {
	out := make([]models.Pet, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Pet{ID: id, Name: "pet-" + id, Health: 50, Happiness: 50, Energy: 50, Status: models.StatusAlive})
	}
	return out
}

func TestBeginAndReset(t *testing.T) {
	s := New()
	user := &models.User{ID: "u1", Username: "ana", Coins: 40}

	epoch := s.Begin("tok", user)
	snap := s.Snapshot()

	if !snap.LoggedIn() || snap.Token != "tok" {
		t.Fatalf("Expected logged in snapshot, got %+v", snap)
	}
	if snap.User == nil || snap.User.ID != "u1" {
		t.Errorf("Expected user u1, got %+v", snap.User)
	}
	if snap.Coins != 40 {
		t.Errorf("Got coins %d, want 40", snap.Coins)
	}
	if snap.SessionID == "" {
		t.Error("Expected session ID to be set")
	}
	if snap.Epoch != epoch {
		t.Errorf("Got epoch %d, want %d", snap.Epoch, epoch)
	}

	s.SetPets(pets("p1"))
	s.Reset()
	snap = s.Snapshot()

	if snap.LoggedIn() || snap.User != nil || len(snap.Pets) != 0 || len(snap.Heroes) != 0 {
		t.Errorf("Expected empty session after reset, got %+v", snap)
	}
	if snap.ActivePetID != "" || snap.Coins != 0 {
		t.Errorf("Expected no active pet and no coins, got %+v", snap)
	}
	if snap.Epoch == epoch {
		t.Error("Expected reset to advance the epoch")
	}
}

func TestSetPetsDefaultSelection(t *testing.T) {
	t.Run("first pet wins when nothing is active", func(t *testing.T) {
		s := New()
		s.SetPets(pets("p1", "p2"))
		if got := s.Snapshot().ActivePetID; got != "p1" {
			t.Errorf("Got active %q, want p1", got)
		}
	})

	t.Run("existing selection survives replacement", func(t *testing.T) {
		s := New()
		s.SetPets(pets("p1", "p2"))
		s.SetActivePet("p2")
		s.SetPets(pets("p3", "p2"))
		if got := s.Snapshot().ActivePetID; got != "p2" {
			t.Errorf("Got active %q, want p2", got)
		}
	})

	t.Run("vanished selection falls back to first", func(t *testing.T) {
		s := New()
		s.SetPets(pets("p1", "p2"))
		s.SetActivePet("p2")
		s.SetPets(pets("p3"))
		if got := s.Snapshot().ActivePetID; got != "p3" {
			t.Errorf("Got active %q, want p3", got)
		}
	})

	t.Run("empty list clears selection", func(t *testing.T) {
		s := New()
		s.SetPets(pets("p1"))
		s.SetPets(nil)
		snap := s.Snapshot()
		if snap.ActivePetID != "" || snap.ActivePet != nil {
			t.Errorf("Expected no active pet, got %+v", snap)
		}
		if snap.Pets == nil || len(snap.Pets) != 0 {
			t.Errorf("Expected empty non-nil pets, got %#v", snap.Pets)
		}
	})

	t.Run("duplicate ids collapse", func(t *testing.T) {
		s := New()
		list := pets("p1", "p2", "p1")
		list[2].Name = "renamed"
		s.SetPets(list)
		snap := s.Snapshot()
		if len(snap.Pets) != 2 {
			t.Fatalf("Got %d pets, want 2", len(snap.Pets))
		}
		if snap.Pets[0].ID != "p1" || snap.Pets[0].Name != "renamed" {
			t.Errorf("Expected p1 in first position with latest value, got %+v", snap.Pets[0])
		}
	})
}

func TestSetActivePet(t *testing.T) {
	s := New()
	s.SetPets(pets("p1", "p2"))

	if !s.SetActivePet("p2") {
		t.Fatal("Expected selection of known pet to succeed")
	}

	before := s.Snapshot()
	if s.SetActivePet("missing") {
		t.Error("Expected selection of unknown pet to fail")
	}
	after := s.Snapshot()

	if after.ActivePetID != before.ActivePetID || !after.ActivePet.Equal(*before.ActivePet) {
		t.Errorf("State changed on unknown selection: before %+v after %+v", before.ActivePet, after.ActivePet)
	}
}

func TestMergePetUpdate(t *testing.T) {
	s := New()
	s.SetPets(pets("p1", "p2"))

	updated := models.Pet{ID: "p1", Name: "Rex", Type: "dog", Health: 60, Happiness: 55, Energy: 40, Status: models.StatusAlive, Accessories: []string{"hat"}}
	if !s.MergePetUpdate(updated) {
		t.Fatal("Expected merge to succeed")
	}

	snap := s.Snapshot()
	if snap.ActivePetID != "p1" {
		t.Errorf("Got active %q, want p1", snap.ActivePetID)
	}
	if snap.ActivePet == nil || !snap.ActivePet.Equal(updated) {
		t.Errorf("Active pet %+v does not equal merged %+v", snap.ActivePet, updated)
	}
	if !snap.Pets[0].Equal(updated) {
		t.Errorf("Pet list entry %+v does not equal merged %+v", snap.Pets[0], updated)
	}

	t.Run("merging a non-active pet leaves the active one alone", func(t *testing.T) {
		other := pets("p2")[0]
		other.Health = 99
		s.MergePetUpdate(other)
		snap := s.Snapshot()
		if snap.ActivePetID != "p1" || !snap.ActivePet.Equal(updated) {
			t.Errorf("Active pet changed: %+v", snap.ActivePet)
		}
		if snap.Pets[1].Health != 99 {
			t.Errorf("Got p2 health %v, want 99", snap.Pets[1].Health)
		}
	})

	t.Run("unknown pet is ignored", func(t *testing.T) {
		if s.MergePetUpdate(models.Pet{ID: "ghost"}) {
			t.Error("Expected merge of unknown pet to fail")
		}
		if len(s.Snapshot().Pets) != 2 {
			t.Error("Unknown pet was added")
		}
	})

	t.Run("merge is idempotent", func(t *testing.T) {
		s.MergePetUpdate(updated)
		first := s.Snapshot()
		s.MergePetUpdate(updated)
		second := s.Snapshot()
		if !first.ActivePet.Equal(*second.ActivePet) {
			t.Error("Repeated merge changed the active pet")
		}
	})

	t.Run("snapshot does not alias state", func(t *testing.T) {
		snap := s.Snapshot()
		snap.ActivePet.Accessories[0] = "mutated"
		if s.Snapshot().ActivePet.Accessories[0] != "hat" {
			t.Error("Snapshot mutation leaked into state")
		}
	})
}

func TestSetHeroesAndCoins(t *testing.T) {
	s := New()
	s.Begin("tok", &models.User{ID: "u1", Coins: 5})

	s.SetHeroes([]models.Hero{{ID: "h1", Name: "Bolt"}, {ID: "h2", Name: "Nova"}})
	snap := s.Snapshot()
	if snap.Hero == nil || snap.Hero.ID != "h1" {
		t.Errorf("Expected first hero displayed, got %+v", snap.Hero)
	}

	s.SetHeroes(nil)
	if s.Snapshot().Hero != nil {
		t.Error("Expected no hero after empty list")
	}

	s.SetCoins(75)
	snap = s.Snapshot()
	if snap.Coins != 75 || snap.User.Coins != 75 {
		t.Errorf("Expected coins 75 on session and user, got %d / %d", snap.Coins, snap.User.Coins)
	}
}

func TestUpdate(t *testing.T) {
	s := New()
	epoch := s.Begin("tok", nil)

	ok := s.Update(epoch, func(tx *Tx) {
		if tx.Token() != "tok" {
			t.Errorf("Got token %q inside tx", tx.Token())
		}
		tx.SetUser(models.User{ID: "u1", Coins: 9})
		tx.SetPets(pets("p1"))
	})
	if !ok {
		t.Fatal("Expected update at current epoch to apply")
	}
	if snap := s.Snapshot(); snap.User == nil || snap.ActivePetID != "p1" {
		t.Errorf("Update not applied: %+v", snap)
	}

	s.Reset()
	called := false
	if s.Update(epoch, func(tx *Tx) { called = true }) {
		t.Error("Expected stale update to be rejected")
	}
	if called {
		t.Error("Stale update function was called")
	}
	if snap := s.Snapshot(); snap.User != nil || len(snap.Pets) != 0 {
		t.Errorf("Stale update leaked into state: %+v", snap)
	}
}

func TestSubscribe(t *testing.T) {
	s := New()

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})

	s.SetPets(pets("p1"))
	s.SetActivePet("missing")
	s.SetCoins(3)

	mu.Lock()
	count := len(seen)
	last := seen[len(seen)-1]
	mu.Unlock()

	if count != 2 {
		t.Errorf("Got %d notifications, want 2 (no-op selection must not notify)", count)
	}
	if last.Coins != 3 {
		t.Errorf("Last snapshot coins %d, want 3", last.Coins)
	}

	unsubscribe()
	unsubscribe()
	s.SetCoins(4)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != count {
		t.Error("Listener called after unsubscribe")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	epoch := s.Begin("tok", &models.User{ID: "u1"})
	s.SetPets(pets("p1", "p2"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := pets("p1")[0]
			p.Health = float64(i)
			s.MergePetUpdate(p)
			s.Update(epoch, func(tx *Tx) { tx.SetCoins(i) })
			s.SetActivePet("p2")
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	if got := s.Snapshot().ActivePetID; got != "p2" {
		t.Errorf("Got active %q, want p2", got)
	}
}
