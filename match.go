// Matchbox Tic-Tac-Toe
//
// Each room hosts exactly one match between two players. The creator
// always plays "X" and always moves first; whoever joins plays "O".
// Symbols are positional, not chosen.
//
// Lifecycle: waiting, then active, then finished, with abandoned reachable from
// waiting and active. Terminal matches can be reset in place by a
// rematch, which keeps the room and the players but nothing else.

package main

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	StatusWaiting   MatchStatus = "waiting"
	StatusActive    MatchStatus = "active"
	StatusFinished  MatchStatus = "finished"
	StatusAbandoned MatchStatus = "abandoned"
)

const (
	SymbolX = "X"
	SymbolO = "O"
)

// Move is one accepted board mutation. The move log is append-only;
// entries are never edited after the fact.
type Move struct {
	Player    uuid.UUID `json:"playerId"`
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Timestamp time.Time `json:"timestamp"`
}

// Match is the authoritative per-room state. While a room hub holds a
// Match in memory it is the only writer; the store is a write-through
// mirror, never a second author.
type Match struct {
	RoomID        string       `json:"roomId"`
	Player1       uuid.UUID    `json:"player1Id"`
	Player2       *uuid.UUID   `json:"player2Id"`
	CurrentPlayer *uuid.UUID   `json:"currentPlayerId"`
	Board         [3][3]string `json:"board"`
	Status        MatchStatus  `json:"status"`
	Winner        *uuid.UUID   `json:"winnerId"`
	Moves         []Move       `json:"moves"`
	StartTime     time.Time    `json:"startTime"`
	EndTime       *time.Time   `json:"endTime"`
	Duration      int          `json:"durationSeconds"`
}

// NewMatch creates a match in the waiting state. The current player is
// pre-set to the creator; the turn only becomes meaningful once the
// match is active.
func NewMatch(roomID string, creator uuid.UUID) *Match {
	first := creator
	return &Match{
		RoomID:        roomID,
		Player1:       creator,
		CurrentPlayer: &first,
		Status:        StatusWaiting,
		StartTime:     time.Now(),
	}
}

// Join fills the second player slot and activates the match. The
// creator always takes the first turn.
func (m *Match) Join(joining uuid.UUID) error {
	if m.Player2 != nil {
		return ErrAlreadyFull
	}
	if joining == m.Player1 {
		return ErrSelfJoin
	}
	if m.Status != StatusWaiting {
		return ErrWrongStatus
	}

	second := joining
	first := m.Player1
	m.Player2 = &second
	m.Status = StatusActive
	m.CurrentPlayer = &first

	return nil
}

// ApplyMove validates and applies one move by actor. On success it
// writes the actor's symbol, appends to the move log, and hands the
// turn to the other player. If the move completes a line or fills the
// board, the match transitions to finished.
func (m *Match) ApplyMove(actor uuid.UUID, row, col int) (*Move, error) {
	if row < 0 || row > 2 || col < 0 || col > 2 {
		return nil, ErrOutOfRange
	}
	if m.Board[row][col] != "" {
		return nil, ErrCellOccupied
	}
	if m.CurrentPlayer == nil || *m.CurrentPlayer != actor {
		return nil, ErrNotYourTurn
	}
	if m.Status != StatusActive {
		return nil, ErrNotActive
	}

	m.Board[row][col] = m.symbolFor(actor)

	move := Move{
		Player:    actor,
		Row:       row,
		Col:       col,
		Timestamp: time.Now(),
	}
	m.Moves = append(m.Moves, move)

	other := m.opponentOf(actor)
	m.CurrentPlayer = &other

	if winner := m.CheckWinner(); winner != nil {
		m.finish(winner)
	} else if m.IsBoardFull() {
		m.finish(nil)
	}

	return &move, nil
}

// CheckWinner scans rows, then columns, then the two diagonals for
// three equal non-empty symbols, and returns the identity owning the
// completed line. A single move can only ever complete one line.
func (m *Match) CheckWinner() *uuid.UUID {
	b := &m.Board

	for i := 0; i < 3; i++ {
		if b[i][0] != "" && b[i][0] == b[i][1] && b[i][1] == b[i][2] {
			return m.ownerOf(b[i][0])
		}
	}

	for i := 0; i < 3; i++ {
		if b[0][i] != "" && b[0][i] == b[1][i] && b[1][i] == b[2][i] {
			return m.ownerOf(b[0][i])
		}
	}

	if b[0][0] != "" && b[0][0] == b[1][1] && b[1][1] == b[2][2] {
		return m.ownerOf(b[0][0])
	}
	if b[0][2] != "" && b[0][2] == b[1][1] && b[1][1] == b[2][0] {
		return m.ownerOf(b[0][2])
	}

	return nil
}

// IsBoardFull reports whether no empty cells remain.
func (m *Match) IsBoardFull() bool {
	for i := range m.Board {
		for j := range m.Board[i] {
			if m.Board[i][j] == "" {
				return false
			}
		}
	}
	return true
}

// ResetForRematch reinitializes a terminal match in place. Room and
// players survive; everything else starts over with the creator to move.
func (m *Match) ResetForRematch() error {
	if m.Status != StatusFinished && m.Status != StatusAbandoned {
		return ErrWrongStatus
	}

	first := m.Player1
	m.Board = [3][3]string{}
	m.Moves = nil
	m.Winner = nil
	m.EndTime = nil
	m.Duration = 0
	m.Status = StatusActive
	m.CurrentPlayer = &first
	m.StartTime = time.Now()

	return nil
}

// Abandon marks the match abandoned and stamps the end time so the
// retention sweep can age it out. Finished matches are left alone.
func (m *Match) Abandon() {
	if m.Status == StatusFinished || m.Status == StatusAbandoned {
		return
	}
	m.Status = StatusAbandoned
	now := time.Now()
	m.EndTime = &now
	m.Duration = int(now.Sub(m.StartTime).Seconds())
}

// IsPlayer reports whether id occupies either player slot.
func (m *Match) IsPlayer(id uuid.UUID) bool {
	return id == m.Player1 || (m.Player2 != nil && id == *m.Player2)
}

// Terminal reports whether the match can no longer be played.
func (m *Match) Terminal() bool {
	return m.Status == StatusFinished || m.Status == StatusAbandoned
}

// Clone returns a deep copy. Room hubs mutate a clone and only swap it
// in once the store write succeeds, so a failed write never leaves the
// in-memory match ahead of the persisted one.
func (m *Match) Clone() *Match {
	out := *m
	if m.Player2 != nil {
		p2 := *m.Player2
		out.Player2 = &p2
	}
	if m.CurrentPlayer != nil {
		cp := *m.CurrentPlayer
		out.CurrentPlayer = &cp
	}
	if m.Winner != nil {
		w := *m.Winner
		out.Winner = &w
	}
	if m.EndTime != nil {
		et := *m.EndTime
		out.EndTime = &et
	}
	if m.Moves != nil {
		out.Moves = make([]Move, len(m.Moves))
		copy(out.Moves, m.Moves)
	}
	return &out
}

func (m *Match) finish(winner *uuid.UUID) {
	m.Status = StatusFinished
	m.Winner = winner
	now := time.Now()
	m.EndTime = &now
	m.Duration = int(now.Sub(m.StartTime).Seconds())
}

func (m *Match) symbolFor(id uuid.UUID) string {
	if id == m.Player1 {
		return SymbolX
	}
	return SymbolO
}

func (m *Match) ownerOf(symbol string) *uuid.UUID {
	if symbol == SymbolX {
		p1 := m.Player1
		return &p1
	}
	if m.Player2 == nil {
		return nil
	}
	p2 := *m.Player2
	return &p2
}

func (m *Match) opponentOf(id uuid.UUID) uuid.UUID {
	if id == m.Player1 && m.Player2 != nil {
		return *m.Player2
	}
	return m.Player1
}
