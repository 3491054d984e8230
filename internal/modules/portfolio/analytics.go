package portfolio

import (
	"context"
	"fmt"

	"github.com/aristath/paper-trader/pkg/formulas"
)

// Analytics summarizes performance over the snapshot history
type Analytics struct {
	PortfolioID          int64    `json:"portfolio_id"`
	SnapshotCount        int      `json:"snapshot_count"`
	FirstDate            string   `json:"first_date,omitempty"`
	LastDate             string   `json:"last_date,omitempty"`
	CumulativeReturn     *float64 `json:"cumulative_return,omitempty"`
	AnnualizedVolatility *float64 `json:"annualized_volatility,omitempty"`
	MaxDrawdown          *float64 `json:"max_drawdown,omitempty"`
}

// ComputeAnalytics derives return and risk statistics from the recorded
// snapshot series. With fewer than two snapshots only the count is reported.
func (s *Service) ComputeAnalytics(ctx context.Context) (*Analytics, error) {
	snapshots, err := s.snapshots.GetAll(ctx, s.portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}

	a := &Analytics{
		PortfolioID:   s.portfolioID,
		SnapshotCount: len(snapshots),
	}
	if len(snapshots) == 0 {
		return a, nil
	}

	a.FirstDate = snapshots[0].Date
	a.LastDate = snapshots[len(snapshots)-1].Date
	if len(snapshots) < 2 {
		return a, nil
	}

	values := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		values[i] = snap.TotalValue.InexactFloat64()
	}

	cum := formulas.CumulativeReturn(values)
	a.CumulativeReturn = &cum

	dd := formulas.MaxDrawdown(values)
	a.MaxDrawdown = &dd

	returns := formulas.DailyReturns(values)
	if len(returns) >= 2 {
		vol := formulas.AnnualizedVolatility(returns)
		a.AnnualizedVolatility = &vol
	}

	return a, nil
}
