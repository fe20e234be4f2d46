package domain

// OrderSide represents the side of a simulated trade (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Reason tags why a trade was applied to the ledger.
type Reason string

const (
	ReasonSignal     Reason = "signal"
	ReasonStopLoss   Reason = "stop-loss"
	ReasonTakeProfit Reason = "take-profit"
	ReasonTimeExit   Reason = "time-exit"
	ReasonGrid       Reason = "grid"
	ReasonUnknown    Reason = "unknown"
)

// ExitDecision is the outcome of a risk evaluation on an open position.
type ExitDecision int

const (
	ExitNone ExitDecision = iota
	ExitStopLoss
	ExitTakeProfit
	ExitTimeExit
)

// String returns the string representation of the ExitDecision.
func (d ExitDecision) String() string {
	switch d {
	case ExitStopLoss:
		return "StopLoss"
	case ExitTakeProfit:
		return "TakeProfit"
	case ExitTimeExit:
		return "TimeExit"
	default:
		return "None"
	}
}

// Reason maps a forced exit to the reason tag recorded in the journal.
func (d ExitDecision) Reason() Reason {
	switch d {
	case ExitStopLoss:
		return ReasonStopLoss
	case ExitTakeProfit:
		return ReasonTakeProfit
	case ExitTimeExit:
		return ReasonTimeExit
	default:
		return ReasonUnknown
	}
}
