package indicator

// OBV computes on-balance volume: a cumulative sum of volume signed by the
// close-to-close direction. The result is full length with no warm-up.
func OBV(close, volume []float64) Result {
	if len(close) != len(volume) || !sanitize(close) || !sanitize(volume) {
		return Insufficient()
	}

	out := make([]float64, len(close))
	out[0] = volume[0]
	for i := 1; i < len(close); i++ {
		switch {
		case close[i] > close[i-1]:
			out[i] = out[i-1] + volume[i]
		case close[i] < close[i-1]:
			out[i] = out[i-1] - volume[i]
		default:
			out[i] = out[i-1]
		}
	}
	return Ok(out, 0)
}

// VWAP computes the cumulative volume weighted average price over typical
// prices. While no volume has traded the typical price itself is used.
func VWAP(high, low, close, volume []float64) Result {
	if len(high) != len(low) || len(high) != len(close) || len(high) != len(volume) ||
		!sanitize(high) || !sanitize(low) || !sanitize(close) || !sanitize(volume) {
		return Insufficient()
	}

	out := make([]float64, len(close))
	var cumPV, cumVolume float64
	for i := range close {
		tp := (high[i] + low[i] + close[i]) / 3
		cumPV += tp * volume[i]
		cumVolume += volume[i]
		if cumVolume == 0 {
			out[i] = tp
			continue
		}
		out[i] = cumPV / cumVolume
	}
	return Ok(out, 0)
}
