package searcher

import (
	"math"

	"twenty48/game"

	"golang.org/x/exp/rand"
)

// Node is one tree node, either a decision node (a post-spawn board) or a
// chance node (a chosen move awaiting its spawn outcome).
type Node interface {
	// SelectOrExpand descends one level: it returns the chosen or newly
	// created child, the game state carried down to it, and whether the
	// child was created by this call. A terminal node returns itself.
	SelectOrExpand(state game.State, rng *rand.Rand, c2 float64) (child Node, childState game.State, expanded bool)
	// Backup records a rollout return and returns the parent, so callers
	// can walk the path back to the root.
	Backup(ret float64) Node
	Visits() float64

	applyLoss()
	score(normalizer float64) float64
}

// Virtual loss: a selected child is pre-charged with a reward-free visit,
// reversed during backup, so concurrent workers spread across siblings.
const loss = 0.0

// ucb1 scores a child for selection. normalizer is c^2 * ln(parent visits);
// the full term is rewards/visits + sqrt(c^2 * ln(N) / visits). An unvisited
// child has unbounded priority.
func ucb1(rewards, visits, normalizer float64) float64 {
	if visits == 0 {
		return math.Inf(1)
	}
	return rewards/visits + math.Sqrt(normalizer/visits)
}
