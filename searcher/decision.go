package searcher

import (
	"math"
	"sync"

	"twenty48/game"

	"golang.org/x/exp/rand"
)

// decision represents a post-spawn board the player must move from. Its
// children are chance nodes, one per explored move.
type decision struct {
	sync.RWMutex
	parent     Node
	hash       game.StateHash
	unexplored []game.Move
	explored   []game.Move
	children   []*chance
	rewards    float64
	visits     float64
}

func newDecision(parent Node, state game.State) *decision {
	moves := state.LegalMoves()
	return &decision{
		parent:     parent,
		hash:       state.Hash(),
		unexplored: moves,
		explored:   make([]game.Move, 0, len(moves)),
		children:   make([]*chance, 0, len(moves)),
	}
}

func (d *decision) SelectOrExpand(state game.State, rng *rand.Rand, c2 float64) (Node, game.State, bool) {
	d.Lock()
	defer d.Unlock()

	if len(d.unexplored) == 0 && len(d.children) == 0 { // Terminal node
		return d, state, false
	}

	var child *chance
	if len(d.unexplored) > 0 { // Expandable node
		child = d.addChild()
	} else { // Fully expanded node
		child = d.children[d.pickChild(c2)]
	}
	child.applyLoss()

	// Playing the move samples a fresh spawn from this simulation's stream;
	// the chance child routes the sampled outcome on the next descent.
	return child, state.Play(child.move, rng), false
}

// addChild explores the next untried move in the fixed move order.
func (d *decision) addChild() *chance {
	move := d.unexplored[0]
	d.unexplored = d.unexplored[1:]
	d.explored = append(d.explored, move)

	child := newChance(d, move)
	d.children = append(d.children, child)
	return child
}

func (d *decision) pickChild(c2 float64) int {
	if d.visits == 0 {
		panic("node has children but no visits")
	}

	normalizer := c2 * math.Log(d.visits)

	maxIndex := -1
	maxScore := math.Inf(-1)
	for i, child := range d.children {
		score := child.score(normalizer)
		if math.IsInf(score, 1) {
			return i
		}
		if score > maxScore {
			maxScore = score
			maxIndex = i
		}
	}
	return maxIndex
}

func (d *decision) applyLoss() {
	d.Lock()
	defer d.Unlock()

	d.rewards += loss
	d.visits++
}

func (d *decision) reverseLoss() {
	d.rewards -= loss
	d.visits--
}

func (d *decision) score(normalizer float64) float64 {
	d.RLock()
	defer d.RUnlock()

	return ucb1(d.rewards, d.visits, normalizer)
}

func (d *decision) Backup(ret float64) Node {
	d.Lock()
	defer d.Unlock()

	if d.parent != nil { // The root never carried a virtual loss
		d.reverseLoss()
	}

	d.rewards += ret
	d.visits++

	return d.parent
}

func (d *decision) Visits() float64 {
	d.RLock()
	defer d.RUnlock()

	return d.visits
}

// bestMove returns the most visited move; ties fall to the higher average
// reward, then to the earlier move in the fixed order.
func (d *decision) bestMove() game.Move {
	d.RLock()
	defer d.RUnlock()

	if len(d.children) == 0 {
		panic("node has no children")
	}

	best := 0
	bestVisits, bestMean := d.children[0].stats()
	for i, child := range d.children[1:] {
		visits, mean := child.stats()
		if visits > bestVisits || (visits == bestVisits && mean > bestMean) {
			best = i + 1
			bestVisits = visits
			bestMean = mean
		}
	}
	return d.explored[best]
}

// policy returns the root's visit distribution over explored moves.
func (d *decision) policy() map[game.Move]float64 {
	d.RLock()
	defer d.RUnlock()

	total := 0.0
	for _, child := range d.children {
		visits, _ := child.stats()
		total += visits
	}
	if total == 0 {
		return nil
	}

	policy := make(map[game.Move]float64, len(d.children))
	for i, child := range d.children {
		visits, _ := child.stats()
		policy[d.explored[i]] = visits / total
	}
	return policy
}

// findChance returns the chance child for an explored move, or nil.
func (d *decision) findChance(move game.Move) *chance {
	d.RLock()
	defer d.RUnlock()

	for i, m := range d.explored {
		if m == move {
			return d.children[i]
		}
	}
	return nil
}
