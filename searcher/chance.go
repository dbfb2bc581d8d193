package searcher

import (
	"sync"

	"twenty48/game"

	"golang.org/x/exp/rand"
)

// chance represents a chosen move whose spawn outcome is not yet resolved.
// Its children are decision nodes, one per observed post-spawn board,
// matched by board hash. Repeated descents sample fresh outcomes, so the
// children's visit counts approximate the spawn distribution.
type chance struct {
	sync.RWMutex
	parent   *decision
	move     game.Move
	children []*decision
	rewards  float64
	visits   float64
}

func newChance(parent *decision, move game.Move) *chance {
	return &chance{
		parent: parent,
		move:   move,
	}
}

// SelectOrExpand receives the already-sampled post-spawn state and either
// selects the matching outcome child or expands a new one.
func (c *chance) SelectOrExpand(state game.State, rng *rand.Rand, c2 float64) (Node, game.State, bool) {
	c.Lock()
	defer c.Unlock()

	expanded := false
	child := c.selects(state.Hash())
	if child == nil { // Unexplored outcome
		child = c.expands(state)
		expanded = true
	}

	child.applyLoss()
	return child, state, expanded
}

func (c *chance) selects(hash game.StateHash) *decision {
	for _, child := range c.children {
		if child.hash == hash {
			return child
		}
	}
	return nil
}

func (c *chance) expands(state game.State) *decision {
	child := newDecision(c, state)
	c.children = append(c.children, child)
	return child
}

func (c *chance) applyLoss() {
	c.Lock()
	defer c.Unlock()

	c.rewards += loss
	c.visits++
}

func (c *chance) reverseLoss() {
	c.rewards -= loss
	c.visits--
}

func (c *chance) score(normalizer float64) float64 {
	c.RLock()
	defer c.RUnlock()

	return ucb1(c.rewards, c.visits, normalizer)
}

func (c *chance) Backup(ret float64) Node {
	c.Lock()
	defer c.Unlock()

	c.reverseLoss()

	c.rewards += ret
	c.visits++

	if c.parent == nil {
		return nil
	}
	return c.parent
}

func (c *chance) Visits() float64 {
	c.RLock()
	defer c.RUnlock()

	return c.visits
}

func (c *chance) stats() (visits float64, mean float64) {
	c.RLock()
	defer c.RUnlock()

	if c.visits == 0 {
		return 0, 0
	}
	return c.visits, c.rewards / c.visits
}
