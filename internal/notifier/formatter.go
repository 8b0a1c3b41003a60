package notifier

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"stockdash/internal/model"
	"stockdash/internal/recorder"
)

func num(v float64, format string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}

func numPtr(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return num(*v, format)
}

// FormatReport formats one analysis report as a Telegram HTML message.
func FormatReport(r *model.Report) string {
	var b strings.Builder
	req := r.Request
	s := r.Summary
	ticker := html.EscapeString(req.Ticker)

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s → %s\n\n", ticker,
		req.Start.Format(model.DateLayout), req.End.Format(model.DateLayout)))

	b.WriteString(fmt.Sprintf("%s Last Price: %.2f USD\n", ticker, s.LastClose))
	b.WriteString(fmt.Sprintf("Change: %+.2f USD (%s%%)\n", s.Change, num(s.PercentChange, "%+.2f")))
	b.WriteString(fmt.Sprintf("High: %.2f USD | Low: %.2f USD\n", s.PeriodHigh, s.PeriodLow))
	b.WriteString(fmt.Sprintf("Volume: %s\n", humanize.Comma(s.TotalVolume)))

	if r.Returns == nil {
		b.WriteString("\nNot enough data for return statistics.\n")
		return b.String()
	}
	ret := r.Returns
	b.WriteString("\n📈 <b>Price Movements</b>\n")
	b.WriteString(fmt.Sprintf("Annual Return: %s%%\n", num(ret.AnnualizedReturnPct, "%.2f")))
	b.WriteString(fmt.Sprintf("Standard Deviation: %s%%\n", num(ret.AnnualizedStdDevPct, "%.2f")))
	b.WriteString(fmt.Sprintf("Risk-Adjusted Return: %s\n", num(ret.RiskAdjustedReturn, "%.2f")))
	return b.String()
}

// FormatNoData formats the reply for a range the provider had no bars for.
func FormatNoData(err error) string {
	return "⚠️ " + html.EscapeString(err.Error())
}

// FormatError formats a failure reply. The error text may carry provider
// response bodies, so it is escaped.
func FormatError(prefix string, err error) string {
	return fmt.Sprintf("❌ %s: %s", prefix, html.EscapeString(err.Error()))
}

// FormatDigest formats one line per ticker for the scheduled watchlist refresh.
// Failed tickers are listed with their error, ordered by ticker.
func FormatDigest(reports []*model.Report, failures map[string]error) string {
	var b strings.Builder
	b.WriteString("🗒 <b>Watchlist</b>\n\n")
	for _, r := range reports {
		line := fmt.Sprintf("%s  %.2f  %s%%", html.EscapeString(r.Request.Ticker), r.Summary.LastClose, num(r.Summary.PercentChange, "%+.2f"))
		if r.Returns != nil {
			line += fmt.Sprintf("  ann %s%% / σ %s%%",
				num(r.Returns.AnnualizedReturnPct, "%.1f"), num(r.Returns.AnnualizedStdDevPct, "%.1f"))
		}
		b.WriteString(line + "\n")
	}
	failed := make([]string, 0, len(failures))
	for ticker := range failures {
		failed = append(failed, ticker)
	}
	sort.Strings(failed)
	for _, ticker := range failed {
		b.WriteString(fmt.Sprintf("%s  ❌ %s\n", html.EscapeString(ticker), html.EscapeString(failures[ticker].Error())))
	}
	return b.String()
}

// FormatHistory lists recorded runs for a ticker, newest first.
func FormatHistory(ticker string, snaps []recorder.Snapshot) string {
	ticker = html.EscapeString(ticker)
	if len(snaps) == 0 {
		return fmt.Sprintf("No recorded analyses for %s.", ticker)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🕘 <b>%s history</b>\n\n", ticker))
	for _, s := range snaps {
		b.WriteString(fmt.Sprintf("%s  %.2f USD  %s%%  risk-adj %s\n",
			s.RecordedAt.Format("2006-01-02 15:04"), s.LastClose,
			numPtr(s.PercentChange, "%+.2f"), numPtr(s.RiskAdjustedReturn, "%.2f")))
	}
	return b.String()
}
