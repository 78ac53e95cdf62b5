package chart

// Theme is the minimal color palette of the renderer. Values are hex
// strings as accepted by the drawing context.
type Theme struct {
	Background string
	Grid       string
	Bullish    string
	Bearish    string
	Volume     string
	Axis       string
	Crosshair  string
	NoData     string
	// BandFill shades the area between the outer lines of a band
	// indicator, hex with alpha.
	BandFill string

	// Line colors assigned to indicator series in draw order.
	IndicatorLines []string
}

// DefaultTheme is a dark palette in the style of common trading UIs.
func DefaultTheme() Theme {
	return Theme{
		Background: "#131722",
		Grid:       "#1e222d",
		Bullish:    "#26a69a",
		Bearish:    "#ef5350",
		Volume:     "#3a4250",
		Axis:       "#787b86",
		Crosshair:  "#9598a1",
		NoData:     "#787b86",
		BandFill:   "#2962ff22",
		IndicatorLines: []string{
			"#2962ff", "#ff6d00", "#d500f9", "#00bfa5", "#ffd600", "#64dd17",
		},
	}
}
