package engine

import "twenty48/experiments/metrics"

// MaxMoves caps an episode so a misbehaving agent cannot loop forever on
// no-op moves.
const MaxMoves = 10000

type Engine interface {
	// Run plays one episode to completion and returns its metrics.
	Run() (gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric, err error)
}
