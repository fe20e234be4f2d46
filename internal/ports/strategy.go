package ports

import (
	"context"

	"paperTradingBot/internal/domain"
)

// Evaluator turns a tick into a buy/sell intent. Implementations must not mutate
// any state and must tolerate ticks carrying neutral or missing indicators.
type Evaluator interface {
	// Evaluate returns the aggregated intent for the tick.
	Evaluate(ctx context.Context, tick domain.Tick) domain.Intent

	// Name returns the name of the evaluator.
	Name() string
}
