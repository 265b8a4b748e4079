package models

// Consequences carries the signed stat deltas of a care action.
type Consequences struct {
	Health    float64  `json:"health,omitempty"`
	Happiness float64  `json:"happiness,omitempty"`
	Energy    float64  `json:"energy,omitempty"`
	Cured     []string `json:"cured,omitempty"`
}

// CareResult is the response body of POST /pet-care/{petId}/{action}.
type CareResult struct {
	Message      string        `json:"message"`
	Pet          *Pet          `json:"pet,omitempty"`
	Consequences *Consequences `json:"consequences,omitempty"`
}
