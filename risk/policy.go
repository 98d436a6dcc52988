package risk

// Policy holds the desk's pre-trade limits. A zero limit disables its check.
type Policy struct {
	MaxRiskPct    float64 // 0.005
	MinRR         float64 // 1.5
	MaxOpenTrades int     // 3
	AllowApprox   bool    // accept cross-pair sizing without a conversion rate
}

type AccountSnapshot struct {
	Equity     float64
	OpenTrades int
}

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRiskUSD float64
	PlannedRiskPct float64
	PlannedRR      float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Codes lists the violation codes in order.
func (d Decision) Codes() []string {
	out := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		out = append(out, v.Code)
	}
	return out
}
