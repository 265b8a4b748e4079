package care

import (
	"errors"
	"fmt"

	"github.com/mascota/mascota/internal/domain/models"
)

type Action string

const (
	Feed  Action = "feed"
	Bath  Action = "bath"
	Sleep Action = "sleep"
	Heal  Action = "heal"
	Walk  Action = "walk"
	Play  Action = "play"
)

// MinActiveEnergy is the energy a pet needs to walk or play.
const MinActiveEnergy = 15

var (
	ErrUnknownAction = errors.New("unknown care action")
	ErrNotPermitted  = errors.New("care action not permitted")
)

// Actions lists every action the pet-care endpoint accepts.
var Actions = []Action{Feed, Bath, Sleep, Heal, Walk, Play}

func Parse(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Permit reports whether the pet's current state allows the action. The
// server has the final say; this only avoids requests that cannot succeed.
func Permit(pet models.Pet, action Action) error {
	if _, err := Parse(string(action)); err != nil {
		return err
	}
	if pet.IsDead() {
		return fmt.Errorf("%w: %s is dead", ErrNotPermitted, pet.Name)
	}

	switch action {
	case Walk, Play:
		if pet.Energy < MinActiveEnergy {
			return fmt.Errorf("%w: %s is too tired to %s", ErrNotPermitted, pet.Name, action)
		}
	case Sleep:
		if pet.IsSleeping {
			return fmt.Errorf("%w: %s is already asleep", ErrNotPermitted, pet.Name)
		}
	}
	return nil
}
