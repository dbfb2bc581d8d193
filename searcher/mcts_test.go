package searcher

import (
	"testing"
	"time"

	"twenty48/experiments/metrics"
	"twenty48/game"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func terminalState() game.GameState {
	return game.NewState(game.Board{
		{2, 4, 2, 4},
		{4, 2, 4, 2},
		{2, 4, 2, 4},
		{4, 2, 4, 2},
	}, 1000)
}

// openingState returns a fresh two-tile opening with at least three legal
// moves, so searches never hit the single-move shortcut.
func openingState(t *testing.T) game.GameState {
	t.Helper()
	for seed := uint64(1); seed < 100; seed++ {
		rng := rand.New(rand.NewSource(seed))
		board, _ := game.Spawn(game.Board{}, rng)
		board, _ = game.Spawn(board, rng)
		state := game.NewState(board, 0)
		if len(state.LegalMoves()) >= 3 {
			return state
		}
	}
	t.Fatal("no opening with three legal moves found")
	return game.GameState{}
}

func TestNewMCTS(t *testing.T) {
	t.Run("panics without a budget", func(t *testing.T) {
		require.Panics(t, func() { NewMCTS(1) }, "a search needs an episode or time budget")
	})

	t.Run("accepts either budget kind", func(t *testing.T) {
		require.NotPanics(t, func() { NewMCTS(1, WithEpisodes(10)) })
		require.NotPanics(t, func() { NewMCTS(1, WithDuration(time.Millisecond)) })
	})
}

func TestFindMove(t *testing.T) {
	t.Run("a terminal root reports no legal move", func(t *testing.T) {
		m := NewMCTS(1, WithEpisodes(10))

		_, _, err := m.FindMove(terminalState(), nil)

		require.ErrorIs(t, err, ErrNoMove)
	})

	t.Run("a single legal move short-circuits without simulating", func(t *testing.T) {
		m := NewMCTS(1, WithEpisodes(100))
		state := mockState{moves: []game.Move{game.Right}, playPanics: true}

		move, _, err := m.FindMove(state, nil)

		require.NoError(t, err)
		require.Equal(t, game.Right, move, "the only legal move must come back untouched")
	})

	t.Run("returns a legal move from the opening", func(t *testing.T) {
		state := openingState(t)
		m := NewMCTS(1, WithEpisodes(200), WithSeed(1))

		move, metric, err := m.FindMove(state, nil)

		require.NoError(t, err)
		require.Contains(t, state.LegalMoves(), move)
		require.Zero(t, metric.Episodes, "metrics are off unless WithMetrics is set")

		total := 0.0
		for _, p := range m.Policy() {
			total += p
		}
		require.InDelta(t, 1.0, total, 1e-9, "the visit policy is a distribution")
	})

	t.Run("a fixed seed and one worker make the search reproducible", func(t *testing.T) {
		state := openingState(t)

		a, _, err := NewMCTS(1, WithEpisodes(300), WithSeed(7)).FindMove(state, nil)
		require.NoError(t, err)
		b, _, err := NewMCTS(1, WithEpisodes(300), WithSeed(7)).FindMove(state, nil)
		require.NoError(t, err)

		require.Equal(t, a, b)
	})

	t.Run("an expired duration budget still yields a searched move", func(t *testing.T) {
		state := openingState(t)
		m := NewMCTS(1, WithDuration(time.Nanosecond), WithSeed(7), WithMetrics())

		move, metric, err := m.FindMove(state, nil)

		require.NoError(t, err)
		require.Contains(t, state.LegalMoves(), move)
		require.GreaterOrEqual(t, metric.Episodes, 1, "at least one simulation must run even when the clock beats the workers")
		require.GreaterOrEqual(t, m.root.Visits(), 1.0)
	})

	t.Run("worker streams differ across consecutive searches", func(t *testing.T) {
		m := NewMCTS(2, WithEpisodes(1), WithSeed(3))

		m.searches++
		first := []uint64{m.streamSeed(0), m.streamSeed(1)}
		m.searches++
		second := []uint64{m.streamSeed(0), m.streamSeed(1)}

		seen := map[uint64]bool{}
		for _, seed := range append(first, second...) {
			require.False(t, seen[seed], "no worker may replay an earlier decision's rollout stream")
			seen[seed] = true
		}
	})

	t.Run("parallel search keeps the root statistics consistent", func(t *testing.T) {
		state := openingState(t)
		m := NewMCTS(8, WithEpisodes(400), WithSeed(7), WithMetrics())

		_, metric, err := m.FindMove(state, nil)

		require.NoError(t, err)
		require.Equal(t, 400, metric.Episodes, "every queued episode must run")
		require.Equal(t, 400.0, m.root.Visits(), "every episode backs up through the root exactly once")

		children := 0.0
		for _, child := range m.root.children {
			children += child.Visits()
		}
		require.Equal(t, m.root.Visits(), children, "virtual losses must all be reversed")
	})
}

func TestTreeReuse(t *testing.T) {
	t.Run("reuses the subtree reached by the committed move", func(t *testing.T) {
		state := openingState(t)
		m := NewMCTS(1, WithEpisodes(300), WithSeed(7), WithMetrics())

		move, metric, err := m.FindMove(state, nil)
		require.NoError(t, err)
		require.True(t, metric.IsTreeReset, "the first search builds a fresh tree")

		// Commit the move the way the environment would
		rng := rand.New(rand.NewSource(99))
		next := state.Play(move, rng).(game.GameState)
		if len(next.LegalMoves()) < 2 {
			t.Skip("opening collapsed to a forced line")
		}

		// The search sampled many outcomes of this move, so the committed
		// outcome is either reused or, if never sampled, rebuilt.
		updates := []Segment{{Move: move, Hash: next.Hash()}}
		_, metric, err = m.FindMove(next, updates)
		require.NoError(t, err)
		require.Equal(t, next.Hash(), m.root.hash, "the new root must match the live state either way")
	})

	t.Run("an unknown lineage rebuilds the tree", func(t *testing.T) {
		state := openingState(t)
		m := NewMCTS(1, WithEpisodes(50), WithSeed(7), WithMetrics())

		_, _, err := m.FindMove(state, nil)
		require.NoError(t, err)

		updates := []Segment{{Move: game.Up, Hash: 12345}}
		_, metric, err := m.FindMove(state, updates)

		require.NoError(t, err)
		require.True(t, metric.IsTreeReset)
		require.Equal(t, state.Hash(), m.root.hash)
	})
}

func TestRollout(t *testing.T) {
	t.Run("returns the score gained from the start state", func(t *testing.T) {
		ret := rollout(openingState(t), 50, testRNG(), metrics.NewDummyCollector())

		require.GreaterOrEqual(t, ret, 0.0, "score deltas are non-negative")
	})

	t.Run("a terminal state returns zero", func(t *testing.T) {
		ret := rollout(terminalState(), 50, testRNG(), metrics.NewDummyCollector())

		require.Equal(t, 0.0, ret)
	})

	t.Run("stops at the depth cutoff", func(t *testing.T) {
		calls := 0
		looping := loopingState{counter: &calls}

		rollout(looping, 10, testRNG(), metrics.NewDummyCollector())

		require.Equal(t, 10, calls, "scripted states never terminate, so only the cutoff can stop the rollout")
	})
}

// loopingState never terminates; Play counts how many moves were simulated.
type loopingState struct {
	counter *int
}

func (s loopingState) LegalMoves() []game.Move { return []game.Move{game.Up} }
func (s loopingState) Terminal() bool          { return false }
func (s loopingState) Score() int              { return 0 }
func (s loopingState) Hash() game.StateHash    { return 0 }

func (s loopingState) Play(move game.Move, rng *rand.Rand) game.State {
	*s.counter++
	return s
}
