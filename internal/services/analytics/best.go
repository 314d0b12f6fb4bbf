package analytics

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"RatePull/internal/domain/models"
)

// bankExtremes is the per-bank min/max over one day, nulls ignored.
type bankExtremes struct {
	minSell        *float64
	maxBuyCash     *float64
	maxBuyTransfer *float64
}

// BestOfDay ranks banks for one code over one civil day: the globally
// cheapest sell and the highest buy_cash/buy_transfer, independently per
// field. Ties break to the lexicographically smallest bank id, so the
// result is deterministic regardless of scan order. Each winner carries
// the latest in-window timestamp at which its value was observed.
func (e *Engine) BestOfDay(ctx context.Context, code string, day time.Time) (models.BestOfDay, error) {
	from, to := e.DayWindow(day)
	out := models.BestOfDay{Code: code, Date: e.civilDate(from)}

	snaps, err := e.store.FindAllInWindow(ctx, code, from, to)
	if err != nil {
		return out, err
	}
	perBank := groupExtremes(snaps)

	var bestSell, bestBuyCash, bestBuyTransfer *models.BestQuote
	for _, bank := range sortedBanks(perBank) {
		ex := perBank[bank]
		if ex.minSell != nil && (bestSell == nil || *ex.minSell < bestSell.Value) {
			bestSell = &models.BestQuote{Bank: bank, Value: *ex.minSell}
		}
		if ex.maxBuyCash != nil && (bestBuyCash == nil || *ex.maxBuyCash > bestBuyCash.Value) {
			bestBuyCash = &models.BestQuote{Bank: bank, Value: *ex.maxBuyCash}
		}
		if ex.maxBuyTransfer != nil && (bestBuyTransfer == nil || *ex.maxBuyTransfer > bestBuyTransfer.Value) {
			bestBuyTransfer = &models.BestQuote{Bank: bank, Value: *ex.maxBuyTransfer}
		}
	}

	// the three as-of lookups are independent; run them concurrently
	g, gctx := errgroup.WithContext(ctx)
	resolve := func(q *models.BestQuote, field models.Field) {
		if q == nil {
			return
		}
		g.Go(func() error {
			snap, err := e.store.FindLatestWithValue(gctx, q.Bank, code, from, to, field, q.Value)
			if err != nil {
				return err
			}
			if snap != nil {
				at := snap.ObservedAt
				q.At = &at
			}
			return nil
		})
	}
	resolve(bestSell, models.FieldSell)
	resolve(bestBuyCash, models.FieldBuyCash)
	resolve(bestBuyTransfer, models.FieldBuyTransfer)
	if err := g.Wait(); err != nil {
		return out, err
	}

	out.BestSell = bestSell
	out.BestBuyCash = bestBuyCash
	out.BestBuyTransfer = bestBuyTransfer
	return out, nil
}

func groupExtremes(snaps []models.Snapshot) map[string]*bankExtremes {
	perBank := make(map[string]*bankExtremes)
	for i := range snaps {
		s := &snaps[i]
		ex := perBank[s.Bank]
		if ex == nil {
			ex = &bankExtremes{}
			perBank[s.Bank] = ex
		}
		if s.Sell != nil && (ex.minSell == nil || *s.Sell < *ex.minSell) {
			ex.minSell = s.Sell
		}
		if s.BuyCash != nil && (ex.maxBuyCash == nil || *s.BuyCash > *ex.maxBuyCash) {
			ex.maxBuyCash = s.BuyCash
		}
		if s.BuyTransfer != nil && (ex.maxBuyTransfer == nil || *s.BuyTransfer > *ex.maxBuyTransfer) {
			ex.maxBuyTransfer = s.BuyTransfer
		}
	}
	return perBank
}

func sortedBanks(perBank map[string]*bankExtremes) []string {
	banks := make([]string, 0, len(perBank))
	for b := range perBank {
		banks = append(banks, b)
	}
	sort.Strings(banks)
	return banks
}
