// Package experiments plays batches of games across search configurations
// and records the outcomes, so changes to the searcher can be judged on
// aggregate score rather than single lucky games.
package experiments

import (
	"fmt"
	"time"

	"twenty48/agent"
	"twenty48/engine"
	"twenty48/env"
	"twenty48/experiments/metrics"
	"twenty48/searcher"

	"github.com/rs/zerolog/log"
)

const (
	NumGames = 30 // Per configuration
	BaseSeed = 20480
)

// Larger episode budgets should score no worse on average; this ladder makes
// that measurable.
var budgetConfigs = []metrics.AgentConfig{
	{ID: 1, Goroutines: 1, Episodes: 50},
	{ID: 2, Goroutines: 1, Episodes: 100},
	{ID: 3, Goroutines: 1, Episodes: 200},
	{ID: 4, Goroutines: 1, Episodes: 400},
	{ID: 5, Goroutines: 1, Episodes: 800},
}

var parallelConfigs = []metrics.AgentConfig{
	{ID: 1, Goroutines: 1, Duration: 20 * time.Millisecond},
	{ID: 2, Goroutines: 2, Duration: 20 * time.Millisecond},
	{ID: 3, Goroutines: 4, Duration: 20 * time.Millisecond},
	{ID: 4, Goroutines: 8, Duration: 20 * time.Millisecond},
	{ID: 5, Goroutines: 16, Duration: 20 * time.Millisecond},
}

// RunBudgetExperiment plays the episode-budget ladder. Each configuration
// sees the same environment seeds, so score differences come from search
// strength, not from spawn luck.
func RunBudgetExperiment() error {
	return runExperiment("budget_to_score", budgetConfigs)
}

// RunParallelizationExperiment holds the time budget fixed and scales the
// number of simulation workers.
func RunParallelizationExperiment() error {
	return runExperiment("parallelization_to_score", parallelConfigs)
}

func runExperiment(name string, configs []metrics.AgentConfig) error {
	writer, err := metrics.NewWriter(name)
	if err != nil {
		return fmt.Errorf("failed to create experiment writer: %w", err)
	}

	log.Info().Str("experiment", name).Msgf("starting experiment with %d configs", len(configs))

	var gameRecords []metrics.GameRecord
	var moveRecords []metrics.MoveRecord

	count := 0
	for ci, config := range configs {
		log.Info().Str("experiment", name).Msgf("starting config %d of %d: %+v", ci+1, len(configs), config)

		for i := 0; i < NumGames; i++ {
			count++
			seed := uint64(BaseSeed + i)
			environment := env.New(env.WithSeed(seed))
			search := newSearch(config)
			eng := engine.LocalEngine(environment, agent.NewMCTSAgent(search))

			gameMetric, moveMetrics, err := eng.Run()
			if err != nil {
				return fmt.Errorf("game %d of config %d failed: %w", i+1, config.ID, err)
			}

			gameRecords = append(gameRecords, metrics.GameRecord{
				ID:         count,
				Agent:      config.ID,
				GameMetric: gameMetric,
			})
			for _, moveMetric := range moveMetrics {
				moveRecords = append(moveRecords, metrics.MoveRecord{
					Game:       count,
					MoveMetric: moveMetric,
				})
			}
		}
	}

	if err := writer.WriteAgentConfigs(configs); err != nil {
		return err
	}
	if err := writer.WriteGameRecords(gameRecords); err != nil {
		return err
	}
	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return err
	}

	log.Info().Str("experiment", name).Str("dir", writer.BaseDir()).Msg("experiment finished")
	return nil
}

func newSearch(config metrics.AgentConfig) *searcher.MCTS {
	options := []searcher.Option{searcher.WithMetrics()}

	if config.Episodes > 0 {
		options = append(options, searcher.WithEpisodes(config.Episodes))
	}
	if config.Duration > 0 {
		options = append(options, searcher.WithDuration(config.Duration))
	}
	if config.Cutoff > 0 {
		options = append(options, searcher.WithCutoff(config.Cutoff))
	}
	if config.Exploration > 0 {
		options = append(options, searcher.WithExploration(config.Exploration))
	}

	return searcher.NewMCTS(config.Goroutines, options...)
}
