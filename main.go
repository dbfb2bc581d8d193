package main

import (
	"twenty48/experiments"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := experiments.RunBudgetExperiment(); err != nil {
		log.Fatal().Err(err).Msg("budget experiment failed")
	}
	if err := experiments.RunParallelizationExperiment(); err != nil {
		log.Fatal().Err(err).Msg("parallelization experiment failed")
	}
}
