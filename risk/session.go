package risk

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrSessionLimit = errors.New("one trade per session")

// Session is a named UTC trading window. EndHour < StartHour wraps midnight.
type Session struct {
	Name      string
	StartHour int
	EndHour   int
}

// Sessions are checked in order; the first containing the hour wins.
var Sessions = []Session{
	{Name: "New York", StartHour: 12, EndHour: 21},
	{Name: "London", StartHour: 7, EndHour: 16},
	{Name: "Tokyo", StartHour: 23, EndHour: 8},
	{Name: "Sydney", StartHour: 22, EndHour: 7},
}

type Window struct {
	Name  string
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func at(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)
}

// CurrentSession returns the window containing now. Hours no session covers
// get an "Unknown" window of one hour either side.
func CurrentSession(now time.Time) Window {
	now = now.UTC()
	h := now.Hour()

	for _, s := range Sessions {
		if s.StartHour < s.EndHour {
			if h >= s.StartHour && h < s.EndHour {
				return Window{Name: s.Name, Start: at(now, s.StartHour), End: at(now, s.EndHour)}
			}
			continue
		}
		if h >= s.StartHour {
			return Window{Name: s.Name, Start: at(now, s.StartHour), End: at(now.AddDate(0, 0, 1), s.EndHour)}
		}
		if h < s.EndHour {
			return Window{Name: s.Name, Start: at(now.AddDate(0, 0, -1), s.StartHour), End: at(now, s.EndHour)}
		}
	}

	return Window{Name: "Unknown", Start: now.Add(-time.Hour), End: now.Add(time.Hour)}
}

// TradeLog answers whether an account already traded inside a window.
type TradeLog interface {
	FirstTradeBetween(ctx context.Context, accountID string, start, end time.Time) (time.Time, bool, error)
}

// Guard enforces one placed trade per account per session window.
type Guard struct {
	Log     TradeLog
	Enforce bool
}

func (g Guard) Check(ctx context.Context, accountID string, now time.Time) error {
	if !g.Enforce || g.Log == nil {
		return nil
	}

	w := CurrentSession(now)
	prev, found, err := g.Log.FirstTradeBetween(ctx, accountID, w.Start, w.End)
	if err != nil {
		return fmt.Errorf("session lookup: %w", err)
	}
	if found {
		return fmt.Errorf("%w: already traded in the %s session at %s; wait until %s",
			ErrSessionLimit, w.Name, prev.UTC().Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}
