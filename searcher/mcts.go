// Package searcher implements Monte Carlo Tree Search over the game's
// stochastic transitions. Decision nodes hold post-spawn boards; chance
// nodes sit between a chosen move and its sampled spawn outcomes. The live
// environment is never touched: searches run on private state copies.
package searcher

import (
	"errors"
	"sync"
	"time"

	"twenty48/experiments/metrics"
	"twenty48/game"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// ErrNoMove is returned when the root board is terminal.
var ErrNoMove = errors.New("no legal move: board is terminal")

// Hyperparameters

// DefaultExploration is tuned to raw-score rollout returns: with default
// cutoff rollouts returning a few hundred points, the exploration term stays
// comparable to the exploitation term.
const DefaultExploration = 250.0

// DefaultCutoff bounds rollout length; a full game from the opening runs to
// roughly a thousand moves, far more than a value estimate needs.
const DefaultCutoff = 200

type Option func(m *MCTS)

// Segment is one committed real move and the hash of the post-spawn board it
// produced, used to find the retained subtree for tree reuse.
type Segment struct {
	Move game.Move
	Hash game.StateHash
}

type MCTS struct {
	goroutines int
	episodes   int
	duration   time.Duration
	cutoff     int
	c2         float64
	seed       uint64
	searches   uint64
	root       *decision
	metrics    metrics.Collector
}

func WithEpisodes(episodes int) Option {
	return func(m *MCTS) {
		if episodes > 0 {
			m.episodes = episodes
		}
	}
}

func WithDuration(duration time.Duration) Option {
	return func(m *MCTS) {
		if duration > 0 {
			m.duration = duration
		}
	}
}

// WithCutoff caps the rollout depth.
func WithCutoff(depth int) Option {
	return func(m *MCTS) {
		if depth > 0 {
			m.cutoff = depth
		}
	}
}

// WithExploration sets the UCT exploration constant C.
func WithExploration(c float64) Option {
	return func(m *MCTS) {
		if c > 0 {
			m.c2 = c * c
		}
	}
}

// WithSeed fixes the base seed for the per-worker RNG streams.
func WithSeed(seed uint64) Option {
	return func(m *MCTS) {
		m.seed = seed
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

func NewMCTS(goroutines int, options ...Option) *MCTS {
	if goroutines <= 0 {
		goroutines = 1
	}
	m := &MCTS{ // Default values
		goroutines: goroutines,
		cutoff:     DefaultCutoff,
		c2:         DefaultExploration * DefaultExploration,
		seed:       uint64(time.Now().UnixNano()),
		metrics:    metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if m.episodes <= 0 && m.duration <= 0 {
		panic("Must specify search episodes or duration")
	}
	return m
}

// FindMove searches from the given state and returns the best move. A
// terminal state returns ErrNoMove; a state with a single legal move returns
// it immediately without simulating.
func (m *MCTS) FindMove(state game.State, updates []Segment) (game.Move, metrics.SearchMetric, error) {
	moves := state.LegalMoves()
	if len(moves) == 0 {
		return 0, metrics.SearchMetric{}, ErrNoMove
	}
	if len(moves) == 1 {
		return moves[0], metrics.SearchMetric{}, nil
	}

	m.findRoot(state, updates)
	m.searches++

	m.metrics.Start(m.goroutines, m.cutoff)
	if m.episodes > 0 {
		m.iterate(state)
	} else {
		m.countdown(state)
	}
	if m.root.Visits() == 0 {
		// A short duration budget can elapse before any worker finishes a
		// simulation; run one synchronously so the root has a child to pick.
		m.simulate(state, rand.New(rand.NewSource(m.streamSeed(uint64(m.goroutines)))))
		m.metrics.AddEpisode()
	}
	metric := m.metrics.Complete()

	return m.root.bestMove(), metric, nil
}

// Policy returns the most recent search's visit distribution over root
// moves, for callers that want a soft target rather than a single move.
func (m *MCTS) Policy() map[game.Move]float64 {
	if m.root == nil {
		return nil
	}
	return m.root.policy()
}

// findRoot reuses the subtree reached by the committed updates when the
// prior tree retained it, and rebuilds the root otherwise.
func (m *MCTS) findRoot(state game.State, updates []Segment) {
	root := traverse(m.root, updates)
	if root == nil || root.hash != state.Hash() {
		if root != nil {
			log.Warn().Uint64("want", uint64(state.Hash())).Uint64("got", uint64(root.hash)).
				Msg("retained subtree does not match live state, rebuilding tree")
		}
		m.root = newDecision(nil, state)
		m.metrics.SetTreeReset(true)
		return
	}

	root.parent = nil
	m.root = root
	m.metrics.SetTreeReset(false)
}

func traverse(root *decision, updates []Segment) *decision {
	if root == nil {
		return nil
	}

	node := root
	for _, segment := range updates {
		child := node.findChance(segment.Move)
		if child == nil { // Move was never expanded
			return nil
		}
		outcome := child.selects(segment.Hash)
		if outcome == nil { // Spawn outcome was never sampled
			return nil
		}
		node = outcome
	}
	return node
}

// streamSeed derives the RNG seed for one simulation stream of the current
// search. Consecutive searches draw from disjoint seed ranges, so a worker
// never replays the rollouts it ran for an earlier decision; stream
// m.goroutines is reserved for the synchronous fallback simulation.
func (m *MCTS) streamSeed(stream uint64) uint64 {
	return m.seed + m.searches*uint64(m.goroutines+1) + stream
}

func (m *MCTS) iterate(state game.State) {
	task := make(chan any, m.episodes)
	for i := 0; i < m.episodes; i++ {
		task <- nil
	}
	close(task)

	var wg sync.WaitGroup
	for i := 0; i < m.goroutines; i++ {
		wg.Add(1)
		go func(stream uint64) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(m.streamSeed(stream)))
			for range task {
				m.simulate(state, rng)
				m.metrics.AddEpisode()
			}
		}(uint64(i))
	}

	wg.Wait()
}

func (m *MCTS) countdown(state game.State) {
	start := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < m.goroutines; i++ {
		wg.Add(1)
		go func(stream uint64) {
			defer wg.Done()

			// The budget is checked between rollouts, never mid-rollout
			rng := rand.New(rand.NewSource(m.streamSeed(stream)))
			for time.Since(start) < m.duration {
				m.simulate(state, rng)
				m.metrics.AddEpisode()
			}
		}(uint64(i))
	}

	wg.Wait()
}

func (m *MCTS) simulate(state game.State, rng *rand.Rand) {
	newNode, newState := selectThenExpand(m.root, state, rng, m.c2)
	ret := rollout(newState, m.cutoff, rng, m.metrics)
	backup(newNode, ret)
}

func selectThenExpand(root Node, state game.State, rng *rand.Rand, c2 float64) (Node, game.State) {
	parent := root
	child, state, expanded := parent.SelectOrExpand(state, rng, c2)
	for !expanded && child != parent {
		parent = child
		child, state, expanded = parent.SelectOrExpand(state, rng, c2)
	}
	return child, state
}

// rollout plays uniform-random legal moves until the game ends or the depth
// cutoff is hit, and returns the score gained along the way.
func rollout(state game.State, cutoff int, rng *rand.Rand, metrics metrics.Collector) float64 {
	start := state.Score()
	depth := 0
	moves := state.LegalMoves()
	for len(moves) > 0 && depth < cutoff {
		move := moves[rng.Intn(len(moves))]
		state = state.Play(move, rng)
		moves = state.LegalMoves()
		depth++
	}

	if len(moves) == 0 { // Game over before cutoff
		metrics.AddFullPlayout()
	}

	return float64(state.Score() - start)
}

func backup(newNode Node, ret float64) {
	node := newNode
	for node != nil {
		node = node.Backup(ret)
	}
}
