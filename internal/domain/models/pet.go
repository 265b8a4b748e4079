package models

// Life states as the backend reports them.
const (
	StatusAlive = "Viva"
	StatusDead  = "Muerta"
)

// Pet stats are percentages the server keeps in [0,100]; they are
// decoded as-is and never assumed to be clamped.
type Pet struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Color       string   `json:"color,omitempty"`
	Accessories []string `json:"accessories,omitempty"`
	Health      float64  `json:"health"`
	Happiness   float64  `json:"happiness"`
	Energy      float64  `json:"energy"`
	Status      string   `json:"status,omitempty"`
	IsSleeping  bool     `json:"isSleeping,omitempty"`
}

// IsDead reports whether the pet can no longer receive care.
func (p Pet) IsDead() bool {
	return p.Status == StatusDead || p.Health <= 0
}

// Equal compares pets field by field.
func (p Pet) Equal(o Pet) bool {
	if p.ID != o.ID || p.Name != o.Name || p.Type != o.Type || p.Color != o.Color ||
		p.Health != o.Health || p.Happiness != o.Happiness || p.Energy != o.Energy ||
		p.Status != o.Status || p.IsSleeping != o.IsSleeping {
		return false
	}
	if len(p.Accessories) != len(o.Accessories) {
		return false
	}
	for i := range p.Accessories {
		if p.Accessories[i] != o.Accessories[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares no slices with p.
func (p Pet) Clone() Pet {
	if p.Accessories != nil {
		p.Accessories = append([]string(nil), p.Accessories...)
	}
	return p
}

// ClampStat bounds a stat to [0,100] for display.
func ClampStat(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
