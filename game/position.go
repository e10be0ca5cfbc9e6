package game

import (
	"encoding/json"
	"fmt"
)

// Position pairs a board with the player to move. Positions are values:
// rules operations return new positions and never modify their inputs.
type Position struct {
	Board  Board
	Player Player
}

func (p Position) Size() int {
	return p.Board.size
}

// Key returns the exact identity of the position.
func (p Position) Key() Key {
	buf := make([]byte, 0, len(p.Board.cells)+2)
	buf = append(buf, byte(p.Board.size), byte(p.Player))
	for _, cell := range p.Board.cells {
		buf = append(buf, byte(cell))
	}
	return Key(buf)
}

// Canonical returns the position as seen by the player to move, who always
// reads as White.
func (p Position) Canonical() Position {
	return Position{Board: Canonicalize(p), Player: White}
}

type positionJSON struct {
	Board  [][]int `json:"board"`
	Player int     `json:"player"`
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(positionJSON{Board: p.Board.Rows(), Player: int(p.Player)})
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var raw positionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	board, err := NewBoard(raw.Board)
	if err != nil {
		return fmt.Errorf("invalid board: %w", err)
	}
	player := Player(raw.Player)
	if !player.Valid() {
		return fmt.Errorf("invalid player %d", raw.Player)
	}
	p.Board = board
	p.Player = player
	return nil
}
