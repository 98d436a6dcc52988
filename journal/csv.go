package journal

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rustyeddy/propdesk/history"
)

var historyHeader = []string{
	"trade_id", "instrument", "side", "status", "opened_at", "closed_at",
	"open_price", "open_units", "remaining_units", "closes", "realized_pl", "unrealized_pl", "duration_ms",
}

// WriteHistoryCSV writes one row per trade. Unknown values are empty cells.
func WriteHistoryCSV(w io.Writer, trades []history.LogicalTrade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return err
	}

	for _, t := range trades {
		v := history.View(t)
		row := []string{
			v.TradeID,
			v.Instrument,
			string(v.Side),
			string(v.Status),
			str(v.OpenedAt),
			str(v.ClosedAt),
			f(v.OpenPrice),
			num(v.OpenUnits),
			num(v.RemainingUnits),
			strconv.Itoa(len(v.Closes)),
			strconv.FormatFloat(v.RealizedPL, 'f', 2, 64),
			f(v.UnrealizedPL),
			"",
		}
		if v.DurationMs != nil {
			row[12] = strconv.FormatInt(*v.DurationMs, 10)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func f(p *float64) string {
	if p == nil {
		return ""
	}
	return num(*p)
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
