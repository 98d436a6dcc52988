package journal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rustyeddy/propdesk/history"
)

// FormatTradeOrg renders a reconstructed trade as an Org-mode block for a
// trading journal. Facts go in the PROPERTIES drawer; each closing leg is a
// list item under Closes.
func FormatTradeOrg(t history.LogicalTrade) string {
	v := history.View(t)
	heading := fmt.Sprintf("** Trade: %s %s (%s)", v.Instrument, orNone(string(v.Side)), shortID(v.TradeID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", v.TradeID))
	b.WriteString(fmt.Sprintf(":INSTRUMENT: %s\n", v.Instrument))
	b.WriteString(fmt.Sprintf(":STATUS: %s\n", v.Status))
	b.WriteString(fmt.Sprintf(":OPEN_UNITS: %s\n", num(v.OpenUnits)))
	b.WriteString(fmt.Sprintf(":REMAINING_UNITS: %s\n", num(v.RemainingUnits)))
	b.WriteString(fmt.Sprintf(":OPEN_PRICE: %s\n", optNum(v.OpenPrice)))
	b.WriteString(fmt.Sprintf(":OPEN_TIME: %s\n", optStr(v.OpenedAt)))
	b.WriteString(fmt.Sprintf(":CLOSE_TIME: %s\n", optStr(v.ClosedAt)))
	b.WriteString(fmt.Sprintf(":REALIZED_PL: %.2f\n", v.RealizedPL))
	if v.UnrealizedPL != nil {
		b.WriteString(fmt.Sprintf(":UNREALIZED_PL: %.2f\n", *v.UnrealizedPL))
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")

	if len(v.Closes) > 0 {
		b.WriteString("*** Closes\n")
		for _, c := range v.Closes {
			b.WriteString(fmt.Sprintf("- %s :: %s units @ %s, P&L %s\n",
				optStr(c.Time), optNum(c.Units), optNum(c.Price), optNum(c.RealizedPL)))
		}
		b.WriteString("\n")
	}
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []history.LogicalTrade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}

func num(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func optNum(p *float64) string {
	if p == nil {
		return "unknown"
	}
	return num(*p)
}

func optStr(p *string) string {
	if p == nil {
		return "unknown"
	}
	return *p
}

func orNone(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
