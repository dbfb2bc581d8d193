// Package agent defines the policy interface the episode loop drives, so
// search-based and other bots are interchangeable behind the environment
// contract.
package agent

import (
	"time"

	"twenty48/experiments/metrics"
	"twenty48/game"
	"twenty48/searcher"

	"golang.org/x/exp/rand"
)

type Agent interface {
	// FindMove returns the agent's move for the given state, plus search
	// metrics if the agent collects them. Updates carry the real moves
	// committed since the last call, for agents that retain state between
	// decisions.
	FindMove(state game.GameState, updates []searcher.Segment) (game.Move, metrics.SearchMetric, error)
}

// MCTSAgent adapts a searcher.MCTS to the Agent interface.
type MCTSAgent struct {
	search *searcher.MCTS
}

func NewMCTSAgent(search *searcher.MCTS) *MCTSAgent {
	return &MCTSAgent{search: search}
}

func (a *MCTSAgent) FindMove(state game.GameState, updates []searcher.Segment) (game.Move, metrics.SearchMetric, error) {
	return a.search.FindMove(state, updates)
}

// RandomAgent plays a uniform-random legal move. It doubles as the baseline
// for search evaluation and as a sanity check on the rollout policy.
type RandomAgent struct {
	rng *rand.Rand
}

func NewRandomAgent(seed uint64) *RandomAgent {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomAgent{rng: rand.New(rand.NewSource(seed))}
}

func (a *RandomAgent) FindMove(state game.GameState, updates []searcher.Segment) (game.Move, metrics.SearchMetric, error) {
	moves := state.LegalMoves()
	if len(moves) == 0 {
		return 0, metrics.SearchMetric{}, searcher.ErrNoMove
	}
	return moves[a.rng.Intn(len(moves))], metrics.SearchMetric{}, nil
}
