package searcher

import (
	"twenty48/game"

	"golang.org/x/exp/rand"
)

// mockState scripts the searcher's view of the game so node behavior can be
// tested without real board mechanics.
type mockState struct {
	moves  []game.Move
	score  int
	hash   game.StateHash
	played []game.Move
	// playNext, when set, is returned by Play instead of the receiver.
	playNext *mockState
	// playPanics marks states that must never be simulated from.
	playPanics bool
}

func (m mockState) LegalMoves() []game.Move {
	return m.moves
}

func (m mockState) Play(move game.Move, rng *rand.Rand) game.State {
	if m.playPanics {
		panic("Play called on a state that must not be simulated")
	}
	if m.playNext != nil {
		next := *m.playNext
		next.played = append(append([]game.Move{}, m.played...), move)
		return next
	}
	next := m
	next.played = append(append([]game.Move{}, m.played...), move)
	return next
}

func (m mockState) Terminal() bool {
	return len(m.moves) == 0
}

func (m mockState) Score() int {
	return m.score
}

func (m mockState) Hash() game.StateHash {
	return m.hash
}
