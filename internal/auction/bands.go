package auction

// Band is a discrete classification of a metric value against fixed
// thresholds. Bands drive display colors only; no computation reads them.
type Band int

const (
	BandPoor Band = iota
	BandAverage
	BandGood
	BandExcellent
)

// String returns the display label for the band.
func (b Band) String() string {
	switch b {
	case BandExcellent:
		return "Excellent"
	case BandGood:
		return "Good"
	case BandAverage:
		return "Average"
	default:
		return "Poor"
	}
}

// Colors returns the fill and text hex colors used for table rows in this
// band. The palette comes from the dashboard's conditional formatting.
func (b Band) Colors() (fill, text string) {
	switch b {
	case BandExcellent:
		return "#c3e6cb", "#155724"
	case BandGood:
		return "#d4edda", "#155724"
	case BandAverage:
		return "#fff3cd", "#856404"
	default:
		return "#f8d7da", "#721c24"
	}
}

// Threshold is one (lower bound, band) pair.
type Threshold struct {
	Lower float64 `yaml:"lower" json:"lower"`
	Band  Band    `yaml:"band" json:"band"`
}

// ThresholdTable is an ordered list of thresholds, highest band first.
// A value is classified into the first band whose lower bound it meets
// (inclusive); values below every bound fall into the last entry's band.
type ThresholdTable []Threshold

// Classify returns the band for a metric value.
func (t ThresholdTable) Classify(value float64) Band {
	for _, th := range t {
		if value >= th.Lower {
			return th.Band
		}
	}
	if len(t) == 0 {
		return BandPoor
	}
	return t[len(t)-1].Band
}

// Valid reports whether the table is ordered by strictly descending lower
// bounds. An unordered table would break classification monotonicity.
func (t ThresholdTable) Valid() bool {
	for i := 1; i < len(t); i++ {
		if t[i].Lower >= t[i-1].Lower {
			return false
		}
	}
	return true
}

// DefaultSellThroughThresholds is the standard table for sell-through
// percentages (0-100 scale). The 70/50 boundaries match the dashboard's
// green/yellow/red color coding.
func DefaultSellThroughThresholds() ThresholdTable {
	return ThresholdTable{
		{Lower: 85, Band: BandExcellent},
		{Lower: 70, Band: BandGood},
		{Lower: 50, Band: BandAverage},
		{Lower: 0, Band: BandPoor},
	}
}
