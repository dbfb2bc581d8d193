package engine

import (
	"errors"
	"fmt"
	"time"

	"twenty48/agent"
	"twenty48/env"
	"twenty48/experiments/metrics"
	"twenty48/game"
	"twenty48/searcher"

	"github.com/rs/zerolog/log"
)

// Local runs one agent against one in-process environment until the game is
// over.
type Local struct {
	Env   *env.Environment
	Agent agent.Agent
}

func LocalEngine(environment *env.Environment, a agent.Agent) *Local {
	if environment == nil || a == nil {
		panic("engine needs an environment and an agent")
	}
	return &Local{Env: environment, Agent: a}
}

// Run resets the environment and loops agent decision / environment step
// until the game reports done. Each committed move and the hash of the board
// it produced are handed back to the agent, so a tree-reusing searcher can
// descend into its retained subtree.
func (e *Local) Run() (metrics.GameMetric, []metrics.MoveMetric, error) {
	startTime := time.Now()
	e.Env.Reset()

	log.Info().Uint64("seed", e.Env.Seed()).Msg("episode started")

	var moveMetrics []metrics.MoveMetric
	var updates []searcher.Segment
	step := 0
	for !e.Env.Done() && step < MaxMoves {
		move, searchMetric, err := e.Agent.FindMove(e.Env.State(), updates)
		if err != nil {
			if errors.Is(err, searcher.ErrNoMove) {
				break
			}
			return metrics.GameMetric{}, moveMetrics, fmt.Errorf("agent failed to find a move: %w", err)
		}

		_, reward, done, info := e.Env.Step(move)
		step++

		updates = []searcher.Segment{{Move: move, Hash: e.Env.State().Hash()}}
		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         step,
			Move:         move.String(),
			Reward:       reward,
			SearchMetric: searchMetric,
		})

		log.Debug().
			Int("step", step).
			Stringer("move", move).
			Float64("reward", reward).
			Int("score", info.Score).
			Int("highest", info.Highest).
			Bool("done", done).
			Msg("step committed")
	}

	endTime := time.Now()
	final := e.Env.State()
	gameMetric := metrics.GameMetric{
		Seed:       e.Env.Seed(),
		Score:      final.Score(),
		Highest:    game.Highest(final.Board()),
		TotalMoves: step,
		StartTime:  startTime,
		EndTime:    endTime,
		Duration:   endTime.Sub(startTime),
	}

	log.Info().
		Int("score", gameMetric.Score).
		Int("highest", gameMetric.Highest).
		Int("moves", gameMetric.TotalMoves).
		Dur("duration", gameMetric.Duration).
		Msg("episode over")

	return gameMetric, moveMetrics, nil
}
