package indicators

// MACDReading holds the current and previous MACD and signal values.
type MACDReading struct {
	MACD       float64
	Signal     float64
	Histogram  float64
	PrevMACD   float64
	PrevSignal float64
}

// MACD computes EMA(fast)-EMA(slow) and its EMA(signal) over closes.
// At least slow+signal closes are required so that a previous reading exists.
func MACD(closes []float64, fast, slow, signal int) (MACDReading, error) {
	need := slow + signal
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < need {
		return MACDReading{}, notEnough("MACD", len(closes), need)
	}

	fastSeries, err := EMASeries(closes, fast)
	if err != nil {
		return MACDReading{}, err
	}
	slowSeries, err := EMASeries(closes, slow)
	if err != nil {
		return MACDReading{}, err
	}

	// Align both series on the close index where the slow EMA starts.
	offset := slow - fast
	line := make([]float64, len(slowSeries))
	for i := range slowSeries {
		line[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries, err := EMASeries(line, signal)
	if err != nil {
		return MACDReading{}, err
	}

	n, m := len(line), len(signalSeries)
	return MACDReading{
		MACD:       line[n-1],
		Signal:     signalSeries[m-1],
		Histogram:  line[n-1] - signalSeries[m-1],
		PrevMACD:   line[n-2],
		PrevSignal: signalSeries[m-2],
	}, nil
}
