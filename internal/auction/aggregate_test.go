package auction

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teapulse/pkg/contracts/domain"
)

func testLots() []domain.AuctionLot {
	return []domain.AuctionLot{
		{SaleNo: 42, Broker: "MPB", Grade: "BOPF", Elevation: "High Grown", Price: 10, Quantity: 2, Status: domain.StatusSold},
		{SaleNo: 42, Broker: "MPB", Grade: "BOP", Elevation: "High Grown", Price: 20, Quantity: 1, Status: domain.StatusSold},
		{SaleNo: 42, Broker: "MPB", Grade: "BOPF", Elevation: "Low Grown", Price: 15, Quantity: 3, Status: domain.StatusUnsold},
		{SaleNo: 42, Broker: "MPB", Grade: "DUST", Elevation: "Low Grown", Price: 12, Quantity: 2, Status: domain.StatusOutsold},
		{SaleNo: 42, Broker: "Forbes", Grade: "BOPF", Elevation: "High Grown", Price: 25, Quantity: 4, Status: domain.StatusSold},
		{SaleNo: 42, Broker: "Forbes", Grade: "PEKOE", Elevation: "Mid Grown", Price: 8, Quantity: 5, Status: domain.StatusUnsold},
	}
}

func TestBrokerSummary(t *testing.T) {
	agg := NewAggregator(slog.Default())
	ctx := context.Background()

	t.Run("weighted average price", func(t *testing.T) {
		// Two sold lots (price=10, qty=2) and (price=20, qty=1):
		// weighted mean is (10*2+20*1)/3 = 13.33, not the row mean 15.
		summary := agg.BrokerSummary(ctx, testLots(), "MPB")

		require.True(t, summary.AveragePrice.Valid)
		assert.InDelta(t, 40.0/3.0, summary.AveragePrice.Value, 1e-9)
	})

	t.Run("totals and sold side", func(t *testing.T) {
		summary := agg.BrokerSummary(ctx, testLots(), "MPB")

		assert.Equal(t, 4, summary.LotsOffered)
		assert.Equal(t, 2, summary.LotsSold)
		assert.InDelta(t, 8.0, summary.QuantityOffered, 1e-9)
		assert.InDelta(t, 3.0, summary.QuantitySold, 1e-9)
		assert.InDelta(t, 3.0, summary.QuantityUnsold, 1e-9)
		assert.InDelta(t, 2.0, summary.QuantityOutsold, 1e-9)
		assert.InDelta(t, 5.0, summary.SoldSideQuantity(), 1e-9)

		// Sell-through counts outsold quantity: (3+2)/8.
		require.True(t, summary.SellThrough.Valid)
		assert.InDelta(t, 5.0/8.0, summary.SellThrough.Value, 1e-9)
	})

	t.Run("sell through within unit interval", func(t *testing.T) {
		for _, broker := range []string{"MPB", "Forbes"} {
			summary := agg.BrokerSummary(ctx, testLots(), broker)
			require.True(t, summary.SellThrough.Valid, broker)
			assert.GreaterOrEqual(t, summary.SellThrough.Value, 0.0, broker)
			assert.LessOrEqual(t, summary.SellThrough.Value, 1.0, broker)
		}
	})

	t.Run("partition invariant by grade", func(t *testing.T) {
		summary := agg.BrokerSummary(ctx, testLots(), "MPB")

		var soldByGrade, offeredByGrade float64
		for _, g := range summary.ByGrade {
			soldByGrade += g.QuantitySold
			offeredByGrade += g.QuantityOffered
		}
		assert.InDelta(t, summary.QuantitySold, soldByGrade, 1e-9)
		assert.InDelta(t, summary.QuantityOffered, offeredByGrade, 1e-9)
	})

	t.Run("partition invariant by elevation", func(t *testing.T) {
		summary := agg.BrokerSummary(ctx, testLots(), "MPB")

		var soldByElev float64
		for _, e := range summary.ByElevation {
			soldByElev += e.QuantitySold
		}
		assert.InDelta(t, summary.QuantitySold, soldByElev, 1e-9)
	})

	t.Run("lot contributes to both breakdowns", func(t *testing.T) {
		summary := agg.BrokerSummary(ctx, testLots(), "MPB")

		assert.Len(t, summary.ByGrade, 3)
		assert.Len(t, summary.ByElevation, 2)
	})

	t.Run("unknown broker yields empty sentinel", func(t *testing.T) {
		summary := agg.BrokerSummary(ctx, testLots(), "Nobody")

		assert.True(t, summary.IsEmpty())
		assert.Equal(t, 0, summary.LotsOffered)
		assert.False(t, summary.AveragePrice.Valid, "average price must be N/A, not zero")
		assert.False(t, summary.SellThrough.Valid, "sell-through must be N/A, not zero")
	})

	t.Run("broker matching is case insensitive", func(t *testing.T) {
		summary := agg.BrokerSummary(ctx, testLots(), "  mpb ")
		assert.Equal(t, 4, summary.LotsOffered)
	})

	t.Run("nothing sold means NA average price", func(t *testing.T) {
		lots := []domain.AuctionLot{
			{SaleNo: 1, Broker: "X", Grade: "BOP", Elevation: "High Grown", Price: 10, Quantity: 5, Status: domain.StatusUnsold},
		}
		summary := agg.BrokerSummary(ctx, lots, "X")

		assert.False(t, summary.AveragePrice.Valid)
		require.True(t, summary.SellThrough.Valid)
		assert.Zero(t, summary.SellThrough.Value)
	})

	t.Run("breakdowns sorted by offered quantity", func(t *testing.T) {
		summary := agg.BrokerSummary(ctx, testLots(), "MPB")

		require.NotEmpty(t, summary.ByGrade)
		for i := 1; i < len(summary.ByGrade); i++ {
			assert.GreaterOrEqual(t,
				summary.ByGrade[i-1].QuantityOffered,
				summary.ByGrade[i].QuantityOffered)
		}
	})
}

func TestMarket(t *testing.T) {
	agg := NewAggregator(slog.Default())
	market := agg.Market(context.Background(), testLots())

	assert.Equal(t, 42, market.SaleNo)
	assert.Equal(t, 6, market.TotalLots)
	assert.Len(t, market.Brokers, 2)

	// Brokers sorted by name.
	assert.Equal(t, "Forbes", market.Brokers[0].Broker)
	assert.Equal(t, "MPB", market.Brokers[1].Broker)

	// Market shares are value fractions and sum to 1 over all brokers.
	var shareSum float64
	for _, b := range market.Brokers {
		require.True(t, b.MarketShare.Valid)
		shareSum += b.MarketShare.Value
	}
	assert.InDelta(t, 1.0, shareSum, 1e-9)
}

func TestMarketEmpty(t *testing.T) {
	agg := NewAggregator(slog.Default())
	market := agg.Market(context.Background(), nil)

	assert.Zero(t, market.TotalLots)
	assert.False(t, market.SellThrough.Valid)
	assert.Empty(t, market.Brokers)
}

func TestBrokerNames(t *testing.T) {
	agg := NewAggregator(slog.Default())
	lots := []domain.AuctionLot{
		{Broker: "MPB"},
		{Broker: " mpb "},
		{Broker: "Forbes"},
		{Broker: ""},
	}
	names := agg.BrokerNames(lots)
	assert.Len(t, names, 2)
	assert.Equal(t, "Forbes", names[0])
}
