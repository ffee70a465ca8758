package stats

// Rating classifies a profitability percentage for display
type Rating string

const (
	Unrated      Rating = "n/a"
	BelowAverage Rating = "below_average"
	Neutral      Rating = "neutral"
	AboveAverage Rating = "above_average"
)

// Thresholds in percent; the neutral band is inclusive on both ends
const (
	NeutralFloor   = 86.0
	NeutralCeiling = 90.0
)

// Rate labels a profitability value. nil means the figure is undefined.
func Rate(profitability *float64) Rating {
	if profitability == nil {
		return Unrated
	}
	switch p := *profitability; {
	case p < NeutralFloor:
		return BelowAverage
	case p <= NeutralCeiling:
		return Neutral
	default:
		return AboveAverage
	}
}
