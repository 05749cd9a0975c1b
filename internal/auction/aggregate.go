package auction

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"teapulse/pkg/contracts/domain"
)

// Aggregator computes broker summaries from immutable lot sets.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator. A nil logger falls back to the
// default slog logger.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// accumulator collects running totals for one grouping key.
type accumulator struct {
	lotsOffered int
	lotsSold    int
	qtyOffered  float64
	qtySold     float64
	qtyUnsold   float64
	qtyOutsold  float64
	totalValue  float64
	soldRevenue float64 // sum(price*qty) over sold lots
	soldQty     float64 // sum(qty) over sold lots, weighted-average denominator
}

func (a *accumulator) add(lot domain.AuctionLot) {
	a.lotsOffered++
	a.qtyOffered += lot.Quantity
	a.totalValue += lot.Value()

	switch lot.Status {
	case domain.StatusSold:
		a.lotsSold++
		a.qtySold += lot.Quantity
		a.soldRevenue += lot.Value()
		a.soldQty += lot.Quantity
	case domain.StatusUnsold:
		a.qtyUnsold += lot.Quantity
	case domain.StatusOutsold:
		a.qtyOutsold += lot.Quantity
	}
}

// averagePrice is the quantity-weighted average over sold lots, or N/A when
// nothing sold.
func (a *accumulator) averagePrice() domain.Metric {
	return domain.Ratio(a.soldRevenue, a.soldQty)
}

// sellThrough is (sold+outsold)/offered on a 0-1 scale, or N/A when nothing
// was offered.
func (a *accumulator) sellThrough() domain.Metric {
	return domain.Ratio(a.qtySold+a.qtyOutsold, a.qtyOffered)
}

// BrokerSummary aggregates all lots belonging to the given broker into one
// summary. Broker matching is case-insensitive on the trimmed name. A broker
// with no lots yields the empty-summary sentinel, never an error.
func (a *Aggregator) BrokerSummary(ctx context.Context, lots []domain.AuctionLot, broker string) domain.BrokerSummary {
	target := strings.ToLower(strings.TrimSpace(broker))

	var total accumulator
	byGrade := make(map[string]*accumulator)
	byElevation := make(map[string]*accumulator)
	saleNo := 0

	for _, lot := range lots {
		if strings.ToLower(strings.TrimSpace(lot.Broker)) != target {
			continue
		}
		total.add(lot)
		groupAdd(byGrade, lot.Grade, lot)
		groupAdd(byElevation, lot.Elevation, lot)
		if lot.SaleNo > saleNo {
			saleNo = lot.SaleNo
		}
	}

	if total.lotsOffered == 0 {
		a.logger.WarnContext(ctx, "no lots for broker, returning empty summary",
			slog.String("broker", broker))
		return emptySummary(broker)
	}

	summary := domain.BrokerSummary{
		Broker:          strings.TrimSpace(broker),
		SaleNo:          saleNo,
		LotsOffered:     total.lotsOffered,
		LotsSold:        total.lotsSold,
		QuantityOffered: total.qtyOffered,
		QuantitySold:    total.qtySold,
		QuantityUnsold:  total.qtyUnsold,
		QuantityOutsold: total.qtyOutsold,
		TotalValue:      total.totalValue,
		AveragePrice:    total.averagePrice(),
		SellThrough:     total.sellThrough(),
		MarketShare:     domain.NAMetric(),
		PriceDelta:      domain.NAMetric(),
		ByGrade:         flatten(byGrade),
		ByElevation:     flatten(byElevation),
	}

	a.logger.DebugContext(ctx, "aggregated broker summary",
		slog.String("broker", summary.Broker),
		slog.Int("lots", summary.LotsOffered),
		slog.Float64("quantity_offered", summary.QuantityOffered))

	return summary
}

// Market aggregates the whole lot set: one summary per broker plus
// market-wide totals and per-broker market share by value. Brokers are
// sorted by name for stable output.
func (a *Aggregator) Market(ctx context.Context, lots []domain.AuctionLot) domain.MarketSummary {
	names := brokerNames(lots)

	market := domain.MarketSummary{
		Brokers: make([]domain.BrokerSummary, 0, len(names)),
	}

	var marketTotal accumulator
	for _, lot := range lots {
		marketTotal.add(lot)
		if lot.SaleNo > market.SaleNo {
			market.SaleNo = lot.SaleNo
		}
	}
	market.TotalLots = marketTotal.lotsOffered
	market.TotalValue = marketTotal.totalValue
	market.TotalWeight = marketTotal.qtyOffered
	market.SellThrough = marketTotal.sellThrough()
	market.AveragePrice = marketTotal.averagePrice()

	for _, name := range names {
		summary := a.BrokerSummary(ctx, lots, name)
		summary.MarketShare = domain.Ratio(summary.TotalValue, market.TotalValue)
		market.Brokers = append(market.Brokers, summary)
	}

	return market
}

// BrokerNames returns the distinct trimmed broker names in the lot set,
// sorted ascending.
func (a *Aggregator) BrokerNames(lots []domain.AuctionLot) []string {
	return brokerNames(lots)
}

func brokerNames(lots []domain.AuctionLot) []string {
	seen := make(map[string]string)
	for _, lot := range lots {
		name := strings.TrimSpace(lot.Broker)
		if name == "" {
			continue
		}
		seen[strings.ToLower(name)] = name
	}
	names := make([]string, 0, len(seen))
	for _, name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func groupAdd(groups map[string]*accumulator, key string, lot domain.AuctionLot) {
	key = strings.TrimSpace(key)
	acc, ok := groups[key]
	if !ok {
		acc = &accumulator{}
		groups[key] = acc
	}
	acc.add(lot)
}

// flatten converts grouped accumulators into sorted category summaries.
// Order is quantity offered descending with key name as tie-break, matching
// how report tables list grades.
func flatten(groups map[string]*accumulator) []domain.CategorySummary {
	out := make([]domain.CategorySummary, 0, len(groups))
	for key, acc := range groups {
		out = append(out, domain.CategorySummary{
			Key:             key,
			LotsOffered:     acc.lotsOffered,
			LotsSold:        acc.lotsSold,
			QuantityOffered: acc.qtyOffered,
			QuantitySold:    acc.qtySold,
			QuantityUnsold:  acc.qtyUnsold,
			QuantityOutsold: acc.qtyOutsold,
			TotalValue:      acc.totalValue,
			AveragePrice:    acc.averagePrice(),
			SellThrough:     acc.sellThrough(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuantityOffered != out[j].QuantityOffered {
			return out[i].QuantityOffered > out[j].QuantityOffered
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func emptySummary(broker string) domain.BrokerSummary {
	return domain.BrokerSummary{
		Broker:       strings.TrimSpace(broker),
		AveragePrice: domain.NAMetric(),
		SellThrough:  domain.NAMetric(),
		MarketShare:  domain.NAMetric(),
		PriceDelta:   domain.NAMetric(),
		ByGrade:      []domain.CategorySummary{},
		ByElevation:  []domain.CategorySummary{},
	}
}
