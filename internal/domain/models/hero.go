package models

type Hero struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Alias       string   `json:"alias,omitempty"`
	City        string   `json:"city,omitempty"`
	Team        string   `json:"team,omitempty"`
	Color       string   `json:"color,omitempty"`
	Accessories []string `json:"accessories,omitempty"`
}

// Clone returns a copy that shares no slices with h.
func (h Hero) Clone() Hero {
	if h.Accessories != nil {
		h.Accessories = append([]string(nil), h.Accessories...)
	}
	return h
}
