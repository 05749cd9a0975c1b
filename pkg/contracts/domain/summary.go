package domain

import (
	"encoding/json"
	"math"
)

// Metric is a float64 that may be undefined. An undefined metric renders as
// "N/A" and serializes as JSON null; it is never reported as zero because a
// zero would read as "0% performance" on the dashboard.
type Metric struct {
	Value float64
	Valid bool
}

// NewMetric returns a defined metric.
func NewMetric(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

// NAMetric returns the undefined sentinel.
func NAMetric() Metric {
	return Metric{}
}

// Ratio returns num/den as a defined metric, or the N/A sentinel when the
// denominator is zero or either operand is not finite.
func Ratio(num, den float64) Metric {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) || math.IsInf(num, 0) || math.IsInf(den, 0) {
		return NAMetric()
	}
	return NewMetric(num / den)
}

// MarshalJSON writes null for undefined metrics.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON reads null as the undefined sentinel.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = NAMetric()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = NewMetric(v)
	return nil
}

// CategorySummary holds aggregates for one grouping key (a grade or an
// elevation) within a broker summary. Same shape as the broker totals but
// without further nesting.
type CategorySummary struct {
	Key             string  `json:"key"`
	LotsOffered     int     `json:"lots_offered"`
	LotsSold        int     `json:"lots_sold"`
	QuantityOffered float64 `json:"quantity_offered"`
	QuantitySold    float64 `json:"quantity_sold"`
	QuantityUnsold  float64 `json:"quantity_unsold"`
	QuantityOutsold float64 `json:"quantity_outsold"`
	TotalValue      float64 `json:"total_value"`
	AveragePrice    Metric  `json:"average_price"`
	SellThrough     Metric  `json:"sell_through"`
}

// BrokerSummary is the derived per-broker aggregate for one sale.
// Grade and elevation breakdowns are computed independently: every lot
// contributes to both.
type BrokerSummary struct {
	Broker          string            `json:"broker"`
	SaleNo          int               `json:"sale_no,omitempty"`
	LotsOffered     int               `json:"lots_offered"`
	LotsSold        int               `json:"lots_sold"`
	QuantityOffered float64           `json:"quantity_offered"`
	QuantitySold    float64           `json:"quantity_sold"`
	QuantityUnsold  float64           `json:"quantity_unsold"`
	QuantityOutsold float64           `json:"quantity_outsold"`
	TotalValue      float64           `json:"total_value"`
	AveragePrice    Metric            `json:"average_price"`
	SellThrough     Metric            `json:"sell_through"`
	MarketShare     Metric            `json:"market_share"`
	PriceDelta      Metric            `json:"price_delta"`
	ByGrade         []CategorySummary `json:"by_grade"`
	ByElevation     []CategorySummary `json:"by_elevation"`
}

// IsEmpty reports whether the summary is the zero-lot sentinel.
func (s BrokerSummary) IsEmpty() bool {
	return s.LotsOffered == 0
}

// SoldSideQuantity returns the quantity counted as sold for sell-through
// purposes (sold plus outsold).
func (s BrokerSummary) SoldSideQuantity() float64 {
	return s.QuantitySold + s.QuantityOutsold
}

// MarketSummary aggregates the whole sale across brokers.
type MarketSummary struct {
	SaleNo       int             `json:"sale_no"`
	TotalLots    int             `json:"total_lots"`
	TotalValue   float64         `json:"total_value"`
	TotalWeight  float64         `json:"total_weight"`
	SellThrough  Metric          `json:"sell_through"`
	AveragePrice Metric          `json:"average_price"`
	Brokers      []BrokerSummary `json:"brokers"`
}
