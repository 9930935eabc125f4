// Package holidays provides per-jurisdiction holiday calendars used by the
// business-day deadline walk.
package holidays

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"

	"github.com/liamcoop/labourcompliance/jurisdiction"
)

// Holiday is a single non-working day in a jurisdiction.
type Holiday struct {
	Date         civil.Date                `json:"date"`
	Name         string                    `json:"name"`
	Jurisdiction jurisdiction.Jurisdiction `json:"jurisdiction"`
}

// Source supplies holidays for a jurisdiction within [from, to] inclusive.
type Source interface {
	Holidays(ctx context.Context, j jurisdiction.Jurisdiction, from, to civil.Date) ([]Holiday, error)
}

// Calendar is an immutable date -> holiday name lookup. The zero value is an
// empty calendar.
type Calendar struct {
	days map[civil.Date]string
}

// NewCalendar builds a calendar. When two holidays share a date the names are
// joined in input order.
func NewCalendar(hs ...Holiday) Calendar {
	days := make(map[civil.Date]string, len(hs))
	for _, h := range hs {
		if existing, ok := days[h.Date]; ok {
			if existing != h.Name {
				days[h.Date] = existing + " / " + h.Name
			}
			continue
		}
		days[h.Date] = h.Name
	}
	return Calendar{days: days}
}

// Lookup returns the holiday name for d.
func (c Calendar) Lookup(d civil.Date) (string, bool) {
	name, ok := c.days[d]
	return name, ok
}

// Len returns the number of distinct holiday dates.
func (c Calendar) Len() int {
	return len(c.days)
}

// Dates returns the holiday dates in ascending order.
func (c Calendar) Dates() []civil.Date {
	out := make([]civil.Date, 0, len(c.days))
	for d := range c.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Before(out[k]) })
	return out
}

// Load fetches holidays from src and builds a calendar.
func Load(ctx context.Context, src Source, j jurisdiction.Jurisdiction, from, to civil.Date) (Calendar, error) {
	hs, err := src.Holidays(ctx, j, from, to)
	if err != nil {
		return Calendar{}, fmt.Errorf("failed to load holidays for %s: %w", j, err)
	}
	return NewCalendar(hs...), nil
}

type merged []Source

// Merge combines several sources; the first failing source aborts the lookup.
func Merge(sources ...Source) Source {
	return merged(sources)
}

func (m merged) Holidays(ctx context.Context, j jurisdiction.Jurisdiction, from, to civil.Date) ([]Holiday, error) {
	var out []Holiday
	for _, src := range m {
		hs, err := src.Holidays(ctx, j, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, hs...)
	}
	return out, nil
}
