package game

import (
	"encoding/binary"
	"hash/fnv"

	"golang.org/x/exp/rand"
)

// StateHash identifies a post-spawn board. The searcher matches chance-node
// outcomes and reused subtrees by hash rather than by comparing boards.
type StateHash uint64

// State is the searcher's view of the game. Play takes the caller's RNG so
// every simulation worker can run its own stream.
type State interface {
	LegalMoves() []Move
	Play(move Move, rng *rand.Rand) State
	Terminal() bool
	Score() int
	Hash() StateHash
}

// GameState is a board together with its accumulated score. It is an
// immutable value: Play returns a new state and never mutates the receiver.
type GameState struct {
	board Board
	score int
}

// NewState builds a state from a board and score. An invalid board is a
// contract violation by the caller.
func NewState(b Board, score int) GameState {
	if err := Validate(b); err != nil {
		panic(err)
	}
	if score < 0 {
		panic("score cannot be negative")
	}
	return GameState{board: b, score: score}
}

func (s GameState) Board() Board {
	return s.board
}

func (s GameState) Score() int {
	return s.score
}

func (s GameState) LegalMoves() []Move {
	return LegalMoves(s.board)
}

func (s GameState) Terminal() bool {
	return Terminal(s.board)
}

// Play applies a move and spawns a tile drawn from rng. A move that changes
// nothing returns the state unchanged with no spawn.
func (s GameState) Play(move Move, rng *rand.Rand) State {
	result := Apply(s.board, move)
	if !result.Moved {
		return s
	}
	board, _ := Spawn(result.Board, rng)
	return GameState{board: board, score: s.score + result.Score}
}

// Hash returns an FNV-1a digest of the board cells.
func (s GameState) Hash() StateHash {
	h := fnv.New64a()
	var buf [8]byte
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			binary.LittleEndian.PutUint64(buf[:], uint64(s.board[r][c]))
			h.Write(buf[:])
		}
	}
	return StateHash(h.Sum64())
}
