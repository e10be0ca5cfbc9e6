// Package communication defines the JSON messages exchanged between the
// agent server and its clients.
package communication

import "othello/game"

// SearchRequest asks for a search from a position. Omitted parameters take
// the server's defaults.
type SearchRequest struct {
	Position    game.Position `json:"position"`
	Simulations *int          `json:"simulations,omitempty"`
	Exploration *float64      `json:"exploration,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type ValidMovesResponse struct {
	Mask    []bool `json:"mask"`
	Actions []int  `json:"actions"`
}

type ProbabilitiesResponse struct {
	Probabilities []float64 `json:"probabilities"`
	Playouts      int       `json:"playouts"`
	Cancelled     bool      `json:"cancelled"`
}

// MoveResponse reports the chosen action and the position it leads to.
type MoveResponse struct {
	Action   int           `json:"action"`
	Pass     bool          `json:"pass"`
	Row      int           `json:"row"`
	Col      int           `json:"col"`
	Position game.Position `json:"position"`
	Outcome  string        `json:"outcome"` // For the player who moved
	Score    int           `json:"score"`   // Disc differential for the player who moved
}

type ErrorResponse struct {
	Error string `json:"error"`
}
