// Package env wraps the pure game mechanics in a stateful episode with a
// reset/step contract, so search bots and future learning bots can drive the
// game through the same interface.
package env

import (
	"math"
	"time"

	"twenty48/game"

	"golang.org/x/exp/rand"
)

// RewardPolicy selects how Step turns a merge score delta into a reward.
// One Environment uses exactly one policy for its whole lifetime.
type RewardPolicy int

const (
	// RewardScoreDelta returns the raw merge score of the step, so the
	// cumulative reward of an episode equals its final score.
	RewardScoreDelta RewardPolicy = iota
	// RewardLogMerge returns log2 of the step's merge score (0 for a
	// merge-free move), a gentler scale for learning agents.
	RewardLogMerge
)

// Info is the diagnostic payload returned by Step and Reset.
type Info struct {
	Score   int
	Highest int
	Steps   int
	Moved   bool
}

type Option func(e *Environment)

// WithSeed fixes the RNG seed. The stream is reseeded on every Reset so
// evaluation runs are reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Environment) {
		e.seed = seed
		e.seeded = true
	}
}

func WithReward(policy RewardPolicy) Option {
	return func(e *Environment) {
		e.policy = policy
	}
}

// WithIllegalPenalty sets the reward for a move that changes nothing.
func WithIllegalPenalty(penalty float64) Option {
	return func(e *Environment) {
		e.penalty = penalty
	}
}

// Environment owns one live game state and one RNG stream. The action space
// is the four moves in game.Moves order.
type Environment struct {
	state   game.GameState
	rng     *rand.Rand
	seed    uint64
	seeded  bool
	policy  RewardPolicy
	penalty float64
	steps   int
}

func New(options ...Option) *Environment {
	e := &Environment{}
	for _, option := range options {
		option(e)
	}
	if !e.seeded {
		e.seed = uint64(time.Now().UnixNano())
	}
	e.rng = rand.New(rand.NewSource(e.seed))
	return e
}

// Reset reinitializes the episode: an empty board with two spawned tiles and
// a zero score. When a seed was configured the RNG is reseeded first.
func (e *Environment) Reset() game.Board {
	if e.seeded {
		e.rng = rand.New(rand.NewSource(e.seed))
	}

	var board game.Board
	board, _ = game.Spawn(board, e.rng)
	board, _ = game.Spawn(board, e.rng)

	e.state = game.NewState(board, 0)
	e.steps = 0
	return board
}

// Step applies a move to the live state. An illegal move (one that changes
// nothing, which includes any move on a terminal board) is a no-op: the
// observation is unchanged, the reward is the configured penalty, and no
// tile spawns. A legal move slides/merges, accumulates the score delta,
// spawns one tile from the owned RNG, and recomputes the terminal flag.
func (e *Environment) Step(move game.Move) (game.Board, float64, bool, Info) {
	e.steps++

	board := e.state.Board()
	result := game.Apply(board, move)
	if !result.Moved {
		return board, e.penalty, e.state.Terminal(), e.info(false)
	}

	next, _ := game.Spawn(result.Board, e.rng)
	e.state = game.NewState(next, e.state.Score()+result.Score)
	return next, e.reward(result.Score), e.state.Terminal(), e.info(true)
}

func (e *Environment) reward(delta int) float64 {
	switch e.policy {
	case RewardLogMerge:
		if delta == 0 {
			return 0
		}
		return math.Log2(float64(delta))
	default:
		return float64(delta)
	}
}

func (e *Environment) info(moved bool) Info {
	return Info{
		Score:   e.state.Score(),
		Highest: game.Highest(e.state.Board()),
		Steps:   e.steps,
		Moved:   moved,
	}
}

// State returns a copy of the live game state.
func (e *Environment) State() game.GameState {
	return e.state
}

func (e *Environment) Score() int {
	return e.state.Score()
}

func (e *Environment) Done() bool {
	return e.state.Terminal()
}

func (e *Environment) LegalMoves() []game.Move {
	return e.state.LegalMoves()
}

// Seed returns the seed the RNG stream started from.
func (e *Environment) Seed() uint64 {
	return e.seed
}
