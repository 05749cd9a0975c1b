package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"teapulse/internal/auction"
	"teapulse/internal/dataprocessing"
	apierrors "teapulse/internal/errors"
	"teapulse/pkg/contracts/domain"
)

// DataService exposes catalogue data and derived summaries. Every call
// reloads from disk so that newly dropped sale files show up without a
// restart; the catalogue is small enough that this stays cheap.
type DataService struct {
	loader     *dataprocessing.Loader
	aggregator *auction.Aggregator
	notifier   Notifier
	logger     *slog.Logger

	mu         sync.Mutex
	latestSeen int
}

// NewDataService creates a data service reading through the given loader.
func NewDataService(loader *dataprocessing.Loader, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		loader:     loader,
		aggregator: auction.NewAggregator(logger),
		logger:     logger.With(slog.String("service", "data")),
	}
}

// WithNotifier attaches a notifier that receives a data_refreshed event
// when a load observes a sale number newer than any seen before.
func (s *DataService) WithNotifier(n Notifier) *DataService {
	s.notifier = n
	return s
}

// Load reads every catalogue file from the data directory.
func (s *DataService) Load(ctx context.Context) (*dataprocessing.LoadResult, error) {
	result, err := s.loader.LoadAll(ctx)
	if err != nil {
		return nil, apierrors.DataLoadError(err)
	}
	s.observeLatest(ctx, result.Lots)
	return result, nil
}

func (s *DataService) observeLatest(ctx context.Context, lots []domain.AuctionLot) {
	latest := 0
	for _, lot := range lots {
		if lot.SaleNo > latest {
			latest = lot.SaleNo
		}
	}

	s.mu.Lock()
	previous := s.latestSeen
	if latest > s.latestSeen {
		s.latestSeen = latest
	}
	s.mu.Unlock()

	if s.notifier != nil && previous != 0 && latest > previous {
		s.logger.InfoContext(ctx, "new sale detected",
			slog.Int("sale_no", latest))
		s.notifier.Broadcast("data_refreshed", map[string]int{"sale_no": latest})
	}
}

// ListSales returns the sale numbers present in the data directory.
func (s *DataService) ListSales(ctx context.Context) ([]int, error) {
	files, err := s.loader.ListSaleFiles()
	if err != nil {
		return nil, apierrors.DataLoadError(err)
	}
	sales := make([]int, 0, len(files))
	for _, f := range files {
		sales = append(sales, f.SaleNo)
	}
	return sales, nil
}

// ListBrokers returns the distinct broker names across all catalogue files.
func (s *DataService) ListBrokers(ctx context.Context) ([]string, error) {
	result, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.aggregator.BrokerNames(result.Lots), nil
}

// SaleLots returns the lots for one sale. saleNo 0 means the latest sale.
func (s *DataService) SaleLots(ctx context.Context, saleNo int) ([]domain.AuctionLot, error) {
	if saleNo == 0 {
		result, err := s.Load(ctx)
		if err != nil {
			return nil, err
		}
		return auction.LatestSale(result.Lots), nil
	}
	result, err := s.loader.LoadSale(ctx, saleNo)
	if err != nil {
		return nil, apierrors.DataLoadError(err)
	}
	return result.Lots, nil
}

// BrokerSummary aggregates one broker's performance in one sale, including
// market share within the sale and the price delta against the previous
// sale. An unknown broker yields the empty-summary sentinel; callers decide
// whether that is an error.
func (s *DataService) BrokerSummary(ctx context.Context, broker string, saleNo int) (domain.BrokerSummary, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return domain.BrokerSummary{}, err
	}

	saleLots, err := s.filterSale(all.Lots, saleNo)
	if err != nil {
		return domain.BrokerSummary{}, err
	}

	market := s.aggregator.Market(ctx, saleLots)
	summary := s.findBroker(market, broker)
	if summary.IsEmpty() {
		summary.SaleNo = market.SaleNo
		return summary, nil
	}

	if delta, ok := s.aggregator.PriceDelta(ctx, all.Lots)[summary.Broker]; ok {
		summary.PriceDelta = delta
	}
	return summary, nil
}

// MarketSummary aggregates the whole sale across brokers. saleNo 0 means
// the latest sale.
func (s *DataService) MarketSummary(ctx context.Context, saleNo int) (domain.MarketSummary, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return domain.MarketSummary{}, err
	}

	saleLots, err := s.filterSale(all.Lots, saleNo)
	if err != nil {
		return domain.MarketSummary{}, err
	}

	market := s.aggregator.Market(ctx, saleLots)
	deltas := s.aggregator.PriceDelta(ctx, all.Lots)
	for i := range market.Brokers {
		if delta, ok := deltas[market.Brokers[i].Broker]; ok {
			market.Brokers[i].PriceDelta = delta
		}
	}
	return market, nil
}

func (s *DataService) filterSale(lots []domain.AuctionLot, saleNo int) ([]domain.AuctionLot, error) {
	if saleNo == 0 {
		return auction.LatestSale(lots), nil
	}
	out := make([]domain.AuctionLot, 0, len(lots))
	for _, lot := range lots {
		if lot.SaleNo == saleNo {
			out = append(out, lot)
		}
	}
	if len(out) == 0 {
		return nil, apierrors.NotFoundError("sale")
	}
	return out, nil
}

func (s *DataService) findBroker(market domain.MarketSummary, broker string) domain.BrokerSummary {
	target := strings.ToLower(strings.TrimSpace(broker))
	for _, b := range market.Brokers {
		if strings.ToLower(b.Broker) == target {
			return b
		}
	}
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
