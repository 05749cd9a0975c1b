package auction

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"teapulse/pkg/contracts/domain"
)

// PriceDelta computes, per broker, the change in quantity-weighted average
// price between the latest sale and the one before it. Brokers that did not
// sell in both sales get the N/A sentinel.
func (a *Aggregator) PriceDelta(ctx context.Context, lots []domain.AuctionLot) map[string]domain.Metric {
	sales := saleNumbers(lots)
	deltas := make(map[string]domain.Metric)
	if len(sales) < 2 {
		for _, name := range brokerNames(lots) {
			deltas[name] = domain.NAMetric()
		}
		return deltas
	}

	latest, previous := sales[len(sales)-1], sales[len(sales)-2]
	latestAvg := avgPriceBySale(lots, latest)
	previousAvg := avgPriceBySale(lots, previous)

	for _, name := range brokerNames(lots) {
		key := strings.ToLower(name)
		cur, curOK := latestAvg[key]
		prev, prevOK := previousAvg[key]
		if !curOK || !prevOK || !cur.Valid || !prev.Valid {
			deltas[name] = domain.NAMetric()
			continue
		}
		deltas[name] = domain.NewMetric(cur.Value - prev.Value)
	}

	a.logger.DebugContext(ctx, "computed price deltas",
		slog.Int("latest_sale", latest),
		slog.Int("previous_sale", previous),
		slog.Int("brokers", len(deltas)))

	return deltas
}

// LatestSale filters the lot set down to the highest sale number present.
// Summaries and reports always describe the latest sale; earlier sales feed
// trend deltas only.
func LatestSale(lots []domain.AuctionLot) []domain.AuctionLot {
	sales := saleNumbers(lots)
	if len(sales) == 0 {
		return nil
	}
	latest := sales[len(sales)-1]
	out := make([]domain.AuctionLot, 0, len(lots))
	for _, lot := range lots {
		if lot.SaleNo == latest {
			out = append(out, lot)
		}
	}
	return out
}

func saleNumbers(lots []domain.AuctionLot) []int {
	seen := make(map[int]struct{})
	for _, lot := range lots {
		if lot.SaleNo > 0 {
			seen[lot.SaleNo] = struct{}{}
		}
	}
	sales := make([]int, 0, len(seen))
	for n := range seen {
		sales = append(sales, n)
	}
	sort.Ints(sales)
	return sales
}

// avgPriceBySale returns the quantity-weighted average sold price per broker
// (lower-cased key) for one sale.
func avgPriceBySale(lots []domain.AuctionLot, saleNo int) map[string]domain.Metric {
	accs := make(map[string]*accumulator)
	for _, lot := range lots {
		if lot.SaleNo != saleNo {
			continue
		}
		groupAdd(accs, strings.ToLower(strings.TrimSpace(lot.Broker)), lot)
	}
	out := make(map[string]domain.Metric, len(accs))
	for key, acc := range accs {
		out[key] = acc.averagePrice()
	}
	return out
}
