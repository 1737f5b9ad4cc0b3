// Package rfm scores customers on recency, frequency and monetary value and
// maps the scores onto named segments.
package rfm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/model"
)

// Scorer computes CustomerRFM rows from cleaned records.
type Scorer struct {
	recency   Bins
	frequency Bins
	monetary  Bins
	rules     []SegmentRule
}

// NewScorer creates a scorer with the standard bins and segment rules.
func NewScorer() *Scorer {
	return &Scorer{
		recency:   RecencyBins(),
		frequency: FrequencyBins(),
		monetary:  MonetaryBins(),
		rules:     DefaultSegmentRules(),
	}
}

type purchase struct {
	date       time.Time
	total      decimal.Decimal
	customerID int64
}

// Score aggregates records per customer and scores them. Records without a
// customer id or invoice date are ignored; callers are expected to have
// removed cancelled orders. Customers are returned by ascending id.
func (s *Scorer) Score(ctx context.Context, records []model.CleanRecord) ([]model.CustomerRFM, error) {
	purchases := make([]purchase, 0, len(records))
	var maxDate time.Time
	for i := range records {
		r := &records[i]
		date, ok := r.PurchaseDate()
		if !ok || r.CustomerID == nil {
			continue
		}
		if date.After(maxDate) {
			maxDate = date
		}
		purchases = append(purchases, purchase{
			customerID: *r.CustomerID,
			date:       date,
			total:      r.TotalPrice(),
		})
	}
	if len(purchases) == 0 {
		return nil, fmt.Errorf("rfm: %w", common.ErrNoRecords)
	}

	var (
		recency   map[int64]int
		frequency map[int64]int
		monetary  map[int64]decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recency = daysSinceLastPurchase(purchases, maxDate)
		return gctx.Err()
	})
	g.Go(func() error {
		frequency = distinctPurchaseDays(purchases)
		return gctx.Err()
	})
	g.Go(func() error {
		monetary = totalSpent(purchases)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(recency))
	for id := range recency {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	customers := make([]model.CustomerRFM, 0, len(ids))
	for _, id := range ids {
		c, err := s.customer(id, recency[id], frequency[id], monetary[id])
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	slog.Info("Scored customers", "customers", len(customers), "max_date", maxDate.Format(model.DateLayout))
	return customers, nil
}

func (s *Scorer) customer(id int64, days, orders int, spent decimal.Decimal) (model.CustomerRFM, error) {
	code := strconv.FormatInt(id, 10)

	r, ok := s.recency.ScoreInt(days)
	if !ok {
		return model.CustomerRFM{}, common.NewIntegrityError(common.KindOutOfRange, "",
			fmt.Sprintf("customer %s: days since last purchase outside recency bins", code), strconv.Itoa(days))
	}
	f, ok := s.frequency.ScoreInt(orders)
	if !ok {
		return model.CustomerRFM{}, common.NewIntegrityError(common.KindOutOfRange, "",
			fmt.Sprintf("customer %s: order count outside frequency bins", code), strconv.Itoa(orders))
	}
	m, ok := s.monetary.Score(spent)
	if !ok {
		return model.CustomerRFM{}, common.NewIntegrityError(common.KindOutOfRange, "",
			fmt.Sprintf("customer %s: total spent outside monetary bins", code), spent.String())
	}

	return model.CustomerRFM{
		CustomerID:            id,
		DaysSinceLastPurchase: days,
		NumberOfOrders:        orders,
		TotalSpent:            spent,
		Recency:               r,
		Frequency:             f,
		Monetary:              m,
		RFMScore:              model.CompositeScore(r, f, m),
		Segment:               Assign(s.rules, r, f, m),
	}, nil
}

func daysSinceLastPurchase(purchases []purchase, maxDate time.Time) map[int64]int {
	last := make(map[int64]time.Time)
	for _, p := range purchases {
		if d, ok := last[p.customerID]; !ok || p.date.After(d) {
			last[p.customerID] = p.date
		}
	}
	out := make(map[int64]int, len(last))
	for id, d := range last {
		out[id] = int(maxDate.Sub(d).Hours() / 24)
	}
	return out
}

func distinctPurchaseDays(purchases []purchase) map[int64]int {
	days := make(map[int64]map[time.Time]struct{})
	for _, p := range purchases {
		set, ok := days[p.customerID]
		if !ok {
			set = make(map[time.Time]struct{})
			days[p.customerID] = set
		}
		set[p.date] = struct{}{}
	}
	out := make(map[int64]int, len(days))
	for id, set := range days {
		out[id] = len(set)
	}
	return out
}

func totalSpent(purchases []purchase) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal)
	for _, p := range purchases {
		out[p.customerID] = out[p.customerID].Add(p.total)
	}
	return out
}
