package mood

import "github.com/mascota/mascota/internal/domain/models"

type Mood string

const (
	Dead   Mood = "dead"
	Sick   Mood = "sick"
	Happy  Mood = "happy"
	Sad    Mood = "sad"
	Sleepy Mood = "sleepy"
	Normal Mood = "normal"
)

// Classify maps pet stats to a mood. Checks run in a fixed order and the
// first match wins, so a pet at health 20 is sick however happy it is.
func Classify(pet models.Pet) Mood {
	switch {
	case pet.IsDead():
		return Dead
	case pet.Health < 30:
		return Sick
	case pet.Happiness > 80 && pet.Health > 80:
		return Happy
	case pet.Happiness < 30:
		return Sad
	case pet.Energy < 30:
		return Sleepy
	default:
		return Normal
	}
}

type Level string

const (
	Excellent Level = "excellent"
	Good      Level = "good"
	Fair      Level = "fair"
	Low       Level = "low"
	Critical  Level = "critical"
)

// StatLevel buckets a single stat for status text and bar colors.
func StatLevel(value float64) Level {
	switch {
	case value >= 80:
		return Excellent
	case value >= 60:
		return Good
	case value >= 40:
		return Fair
	case value >= 20:
		return Low
	default:
		return Critical
	}
}
