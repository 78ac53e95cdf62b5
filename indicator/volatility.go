package indicator

import "math"

// BollingerResult groups the three Bollinger band lines.
type BollingerResult struct {
	Upper  Result
	Middle Result
	Lower  Result
}

// BollingerBands computes the middle band as SMA(period) and the outer
// bands at multiplier population standard deviations from it.
func BollingerBands(values []float64, period int, multiplier float64) BollingerResult {
	if multiplier <= 0 {
		multiplier = 2
	}
	middle := SMA(values, period)
	if !middle.OK() {
		return BollingerResult{Upper: Insufficient(), Middle: Insufficient(), Lower: Insufficient()}
	}

	mid := middle.Values()
	upper := make([]float64, len(mid))
	lower := make([]float64, len(mid))
	for i := range mid {
		window := values[i : i+period]
		stdDev := windowStdDev(window, mid[i])
		upper[i] = mid[i] + stdDev*multiplier
		lower[i] = mid[i] - stdDev*multiplier
	}
	return BollingerResult{
		Upper:  Ok(upper, period-1),
		Middle: middle,
		Lower:  Ok(lower, period-1),
	}
}

// ATR computes the average true range as an SMA over true ranges. True
// range uses the previous close, so the result holds len(close)-period
// points.
func ATR(high, low, close []float64, period int) Result {
	if period <= 0 || len(high) != len(low) || len(high) != len(close) ||
		!sanitize(high) || !sanitize(low) || !sanitize(close) || len(close) < period+1 {
		return Insufficient()
	}

	tr := make([]float64, len(close)-1)
	for i := 1; i < len(close); i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i-1] = math.Max(hl, math.Max(hc, lc))
	}

	sma := SMA(tr, period)
	if !sma.OK() {
		return Insufficient()
	}
	return Ok(sma.Values(), period)
}
