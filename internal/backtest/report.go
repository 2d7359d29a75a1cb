package backtest

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// WriteReport renders the results as text tables.
func (r *Results) WriteReport(w io.Writer) {
	fmt.Fprintf(w, "\nBACKTEST RESULTS\n\n")

	summary := tablewriter.NewWriter(w)
	summary.Header("Metric", "Value")
	summary.Append("Starting Capital", "$"+r.StartingCapital.StringFixed(2))
	summary.Append("Ending Capital", "$"+r.EndingCapital.StringFixed(2))
	summary.Append("Total PnL", "$"+r.TotalPnL.StringFixed(2))
	summary.Append("ROI", fmt.Sprintf("%.2f%%", r.ROIPct))
	summary.Append("Total Trades", fmt.Sprintf("%d", r.TotalTrades))
	summary.Append("Win Rate", fmt.Sprintf("%.1f%% (%d/%d)", r.WinRatePct, r.WinningTrades, r.TotalTrades))
	summary.Append("Average Win", "$"+r.AvgWin.StringFixed(2))
	summary.Append("Average Loss", "$"+r.AvgLoss.StringFixed(2))
	summary.Append("Biggest Win", "$"+r.BiggestWin.StringFixed(2))
	summary.Append("Biggest Loss", "$"+r.BiggestLoss.StringFixed(2))
	summary.Append("Profit Factor", fmt.Sprintf("%.2f", r.ProfitFactor))
	summary.Append("Max Drawdown", fmt.Sprintf("%.2f%%", r.MaxDrawdownPct))
	summary.Append("Sharpe Ratio", fmt.Sprintf("%.2f", r.SharpeRatio))
	summary.Append("Avg Hold Time", fmt.Sprintf("%d min", r.AvgHoldMinutes))
	summary.Render()

	stars := strings.Repeat("*", max(r.StrategyRating(), 1))
	fmt.Fprintf(w, "\nSTRATEGY RATING: %s %s\n\n", stars, r.RatingLabel())

	if len(r.Trades) == 0 {
		return
	}

	fmt.Fprintf(w, "TRADES\n\n")
	trades := tablewriter.NewWriter(w)
	trades.Header("Symbol", "Entry", "Exit", "PnL", "PnL %", "Hold", "Result")
	for i := range r.Trades {
		tr := &r.Trades[i]
		result := "LOSS"
		if tr.IsWin {
			result = "WIN"
		}
		trades.Append(
			tr.Symbol,
			tr.EntryPrice.String(),
			tr.ExitPrice.String(),
			"$"+tr.PnL.StringFixed(2),
			fmt.Sprintf("%.1f%%", tr.PnLPct),
			fmt.Sprintf("%d min", tr.HoldMinutes),
			result,
		)
	}
	trades.Render()
}
