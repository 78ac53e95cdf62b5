package indicator

import "math"

// Neutral values used when a window has no directional movement.
const (
	neutralRSI      = 50.0
	neutralStoch    = 50.0
	neutralWilliams = -50.0
)

// RSI computes the relative strength index over simple averages of trailing
// gains and losses. The result holds len(values)-period points. A window
// with zero losses maps to 100; a window with no movement at all maps to
// the neutral 50.
func RSI(values []float64, period int) Result {
	if period <= 0 {
		period = 14
	}
	if !sanitize(values) || len(values) < period+1 {
		return Insufficient()
	}

	gains := make([]float64, len(values)-1)
	losses := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	avgGains := SMA(gains, period).Values()
	avgLosses := SMA(losses, period).Values()

	out := make([]float64, len(avgGains))
	for i := range out {
		switch {
		case avgGains[i] == 0 && avgLosses[i] == 0:
			out[i] = neutralRSI
		case avgLosses[i] == 0:
			out[i] = 100
		default:
			rs := avgGains[i] / avgLosses[i]
			out[i] = 100 - 100/(1+rs)
		}
	}
	return Ok(out, period)
}

// StochasticResult groups the %K and %D lines.
type StochasticResult struct {
	K Result
	D Result
}

// Stochastic computes the stochastic oscillator: %K locates the close
// within the trailing kPeriod high/low range, %D smooths %K with an SMA of
// dPeriod. A degenerate range maps to the neutral 50.
func Stochastic(high, low, close []float64, kPeriod, dPeriod int) StochasticResult {
	if kPeriod <= 0 || dPeriod <= 0 ||
		len(high) != len(low) || len(high) != len(close) ||
		!sanitize(high) || !sanitize(low) || !sanitize(close) || len(close) < kPeriod {
		return StochasticResult{K: Insufficient(), D: Insufficient()}
	}

	k := make([]float64, 0, len(close)-kPeriod+1)
	for i := kPeriod - 1; i < len(close); i++ {
		hh, ll := high[i], low[i]
		for j := i - kPeriod + 1; j < i; j++ {
			hh = math.Max(hh, high[j])
			ll = math.Min(ll, low[j])
		}
		if hh == ll {
			k = append(k, neutralStoch)
			continue
		}
		k = append(k, 100*(close[i]-ll)/(hh-ll))
	}

	result := StochasticResult{K: Ok(k, kPeriod-1)}
	d := SMA(k, dPeriod)
	if !d.OK() {
		result.D = Insufficient()
		return result
	}
	result.D = Ok(d.Values(), kPeriod-1+dPeriod-1)
	return result
}

// WilliamsR computes Williams %R on a -100..0 scale. A degenerate range
// maps to the neutral -50.
func WilliamsR(high, low, close []float64, period int) Result {
	if period <= 0 || len(high) != len(low) || len(high) != len(close) ||
		!sanitize(high) || !sanitize(low) || !sanitize(close) || len(close) < period {
		return Insufficient()
	}

	out := make([]float64, 0, len(close)-period+1)
	for i := period - 1; i < len(close); i++ {
		hh, ll := high[i], low[i]
		for j := i - period + 1; j < i; j++ {
			hh = math.Max(hh, high[j])
			ll = math.Min(ll, low[j])
		}
		if hh == ll {
			out = append(out, neutralWilliams)
			continue
		}
		out = append(out, -100*(hh-close[i])/(hh-ll))
	}
	return Ok(out, period-1)
}

// CCI computes the commodity channel index over typical prices. A window
// with zero mean deviation maps to 0.
func CCI(high, low, close []float64, period int) Result {
	if period <= 0 || len(high) != len(low) || len(high) != len(close) ||
		!sanitize(high) || !sanitize(low) || !sanitize(close) || len(close) < period {
		return Insufficient()
	}

	tp := make([]float64, len(close))
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}

	out := make([]float64, 0, len(tp)-period+1)
	for i := period - 1; i < len(tp); i++ {
		window := tp[i-period+1 : i+1]
		mean := windowMean(window)
		var dev float64
		for _, v := range window {
			dev += math.Abs(v - mean)
		}
		dev /= float64(period)
		if dev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (tp[i]-mean)/(0.015*dev))
	}
	return Ok(out, period-1)
}

// MFI computes the money flow index. A window without negative flow maps to
// 100, a window without any flow to the neutral 50.
func MFI(high, low, close, volume []float64, period int) Result {
	if period <= 0 || len(high) != len(low) || len(high) != len(close) || len(high) != len(volume) ||
		!sanitize(high) || !sanitize(low) || !sanitize(close) || !sanitize(volume) ||
		len(close) < period+1 {
		return Insufficient()
	}

	positive := make([]float64, len(close)-1)
	negative := make([]float64, len(close)-1)
	prevTP := (high[0] + low[0] + close[0]) / 3
	for i := 1; i < len(close); i++ {
		tp := (high[i] + low[i] + close[i]) / 3
		flow := tp * volume[i]
		if tp > prevTP {
			positive[i-1] = flow
		} else if tp < prevTP {
			negative[i-1] = flow
		}
		prevTP = tp
	}

	out := make([]float64, 0, len(positive)-period+1)
	for i := period - 1; i < len(positive); i++ {
		var pos, neg float64
		for j := i - period + 1; j <= i; j++ {
			pos += positive[j]
			neg += negative[j]
		}
		switch {
		case pos == 0 && neg == 0:
			out = append(out, neutralRSI)
		case neg == 0:
			out = append(out, 100)
		default:
			out = append(out, 100-100/(1+pos/neg))
		}
	}
	return Ok(out, period)
}
