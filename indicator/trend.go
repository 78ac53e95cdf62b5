package indicator

import "math"

// SMA computes the simple moving average. The result holds
// len(values)-period+1 points, each averaging the trailing period values.
func SMA(values []float64, period int) Result {
	if period <= 0 || !sanitize(values) || len(values) < period {
		return Insufficient()
	}

	out := make([]float64, 0, len(values)-period+1)
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return Ok(out, period-1)
}

// EMA computes the exponential moving average with k = 2/(period+1). The
// recurrence is seeded with values[0]; the warm-up segment before
// period-1 is discarded so the length contract matches SMA.
func EMA(values []float64, period int) Result {
	if period <= 0 || !sanitize(values) || len(values) < period {
		return Insufficient()
	}

	k := 2.0 / float64(period+1)
	ema := values[0]
	out := make([]float64, 0, len(values)-period+1)
	for i, v := range values {
		if i > 0 {
			ema = v*k + ema*(1-k)
		}
		if i >= period-1 {
			out = append(out, ema)
		}
	}
	return Ok(out, period-1)
}

// emaFull runs the EMA recurrence over the whole input, seeded with the
// first value. Used by MACD, which aligns on the raw recurrence.
func emaFull(values []float64, period int) []float64 {
	k := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = v*k + out[i-1]*(1-k)
	}
	return out
}

// MACDResult groups the three aligned MACD series.
type MACDResult struct {
	MACD      Result
	Signal    Result
	Histogram Result
}

// MACD computes the moving average convergence divergence. The MACD line is
// EMA(fast)-EMA(slow) aligned on the slow tail; the signal line is an EMA of
// the MACD line and the histogram their difference, both aligned to the
// signal start. Everything is empty when len(values) < slow.
func MACD(values []float64, fast, slow, signal int) MACDResult {
	if fast <= 0 || slow <= 0 || signal <= 0 || !sanitize(values) || len(values) < slow {
		return MACDResult{MACD: Insufficient(), Signal: Insufficient(), Histogram: Insufficient()}
	}

	emaFast := emaFull(values, fast)
	emaSlow := emaFull(values, slow)

	macd := make([]float64, len(values)-slow+1)
	for i := range macd {
		macd[i] = emaFast[i+slow-1] - emaSlow[i+slow-1]
	}
	result := MACDResult{MACD: Ok(macd, slow-1)}

	if len(macd) < signal {
		result.Signal = Insufficient()
		result.Histogram = Insufficient()
		return result
	}

	signalLine := emaFull(macd, signal)[signal-1:]
	histogram := make([]float64, len(signalLine))
	for i := range signalLine {
		histogram[i] = macd[i+signal-1] - signalLine[i]
	}
	result.Signal = Ok(signalLine, slow-1+signal-1)
	result.Histogram = Ok(histogram, slow-1+signal-1)
	return result
}

// ParabolicSAR computes the parabolic stop-and-reverse with the given
// acceleration step and cap. Output starts at the second candle.
func ParabolicSAR(high, low []float64, step, maxStep float64) Result {
	if len(high) != len(low) || len(high) < 2 || !sanitize(high) || !sanitize(low) {
		return Insufficient()
	}
	if step <= 0 {
		step = 0.02
	}
	if maxStep <= 0 {
		maxStep = 0.2
	}

	out := make([]float64, len(high)-1)
	uptrend := high[1] >= high[0]
	af := step
	sar := low[0]
	ep := high[0]
	if !uptrend {
		sar = high[0]
		ep = low[0]
	}

	for i := 1; i < len(high); i++ {
		sar += af * (ep - sar)

		if uptrend {
			if low[i] < sar {
				uptrend = false
				sar = ep
				ep = low[i]
				af = step
			} else if high[i] > ep {
				ep = high[i]
				af = math.Min(af+step, maxStep)
			}
		} else {
			if high[i] > sar {
				uptrend = true
				sar = ep
				ep = high[i]
				af = step
			} else if low[i] < ep {
				ep = low[i]
				af = math.Min(af+step, maxStep)
			}
		}
		out[i-1] = sar
	}
	return Ok(out, 1)
}

// IchimokuResult groups the five Ichimoku lines. SenkouA and SenkouB are
// returned at their computation index; the renderer is responsible for the
// customary forward displacement. Chikou is the close displaced backwards.
type IchimokuResult struct {
	Tenkan  Result
	Kijun   Result
	SenkouA Result
	SenkouB Result
	Chikou  Result
}

// Ichimoku computes the Ichimoku Kinko Hyo lines with the standard 9/26/52
// periods.
func Ichimoku(high, low, close []float64) IchimokuResult {
	const (
		tenkanPeriod = 9
		kijunPeriod  = 26
		senkouPeriod = 52
	)
	empty := IchimokuResult{
		Tenkan: Insufficient(), Kijun: Insufficient(),
		SenkouA: Insufficient(), SenkouB: Insufficient(), Chikou: Insufficient(),
	}
	if len(high) != len(low) || len(high) != len(close) {
		return empty
	}
	if !sanitize(high) || !sanitize(low) || !sanitize(close) || len(close) < senkouPeriod {
		return empty
	}

	tenkan := midpointLine(high, low, tenkanPeriod)
	kijun := midpointLine(high, low, kijunPeriod)

	// Senkou A averages tenkan and kijun where both exist.
	senkouA := make([]float64, len(close)-kijunPeriod+1)
	for i := range senkouA {
		t := tenkan[i+kijunPeriod-tenkanPeriod]
		senkouA[i] = (t + kijun[i]) / 2
	}

	chikou := make([]float64, len(close)-kijunPeriod)
	copy(chikou, close[kijunPeriod:])

	return IchimokuResult{
		Tenkan:  Ok(tenkan, tenkanPeriod-1),
		Kijun:   Ok(kijun, kijunPeriod-1),
		SenkouA: Ok(senkouA, kijunPeriod-1),
		SenkouB: Ok(midpointLine(high, low, senkouPeriod), senkouPeriod-1),
		Chikou:  Ok(chikou, 0),
	}
}

// midpointLine is (highest high + lowest low)/2 over a trailing window.
func midpointLine(high, low []float64, period int) []float64 {
	out := make([]float64, 0, len(high)-period+1)
	for i := period - 1; i < len(high); i++ {
		hh := high[i]
		ll := low[i]
		for j := i - period + 1; j < i; j++ {
			hh = math.Max(hh, high[j])
			ll = math.Min(ll, low[j])
		}
		out = append(out, (hh+ll)/2)
	}
	return out
}
