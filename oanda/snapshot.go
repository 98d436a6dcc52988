package oanda

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rustyeddy/propdesk/history"
)

// Snapshot is a saved set of OANDA responses: the transaction log, open
// trades and closed-trade summaries, each in the broker's JSON shape.
type Snapshot struct {
	Transactions []Transaction `json:"transactions"`
	OpenTrades   []Trade       `json:"openTrades"`
	ClosedTrades []Trade       `json:"closedTrades"`
}

func LoadSnapshot(path string) (Snapshot, error) {
	var s Snapshot
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return s, nil
}

// Input converts the snapshot for history.Build. Summaries count as
// available when the snapshot carries any.
func (s Snapshot) Input() history.Input {
	in := history.Input{
		Transactions:       rawTransactions(s.Transactions),
		SummariesAvailable: len(s.ClosedTrades) > 0,
	}
	for _, t := range s.OpenTrades {
		in.OpenTrades = append(in.OpenTrades, t.open())
	}
	for _, t := range s.ClosedTrades {
		in.ClosedTrades = append(in.ClosedTrades, t.closed())
	}
	return in
}
