// Package deadline computes statutory deadlines from a start date, counting
// either calendar days or business days that skip weekends and holidays.
package deadline

import (
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/liamcoop/labourcompliance/holidays"
	"github.com/liamcoop/labourcompliance/internal/dates"
	"github.com/liamcoop/labourcompliance/rules"
)

// maxWalkDays bounds the business-day walk.
const maxWalkDays = 1000

var (
	// ErrWalkLimit is returned when a business-day walk would exceed maxWalkDays.
	ErrWalkLimit = errors.New("deadline exceeds the business-day walk limit")

	// ErrNotExtendable is returned when extending a deadline whose rule does
	// not allow extensions.
	ErrNotExtendable = errors.New("deadline cannot be extended")

	// ErrTooManyExtensions is returned when more extensions are requested than
	// the rule allows.
	ErrTooManyExtensions = errors.New("too many extensions")
)

// Day is one entry of a deadline breakdown.
type Day struct {
	Date          civil.Date
	IsBusinessDay bool
	IsHoliday     bool
	HolidayName   string
}

// Result is a computed deadline.
type Result struct {
	StartDate     civil.Date
	DeadlineDate  civil.Date
	DeadlineDays  int
	DeadlineType  string
	RuleName      string
	CanExtend     bool
	MaxExtensions int

	// ExtensionsApplied counts the extensions folded into DeadlineDate.
	ExtensionsApplied int

	// Set for business-day deadlines only.
	BusinessDaysCalculated *int
	HolidaysExcluded       *int
	WeekendsExcluded       *int

	// Breakdown runs from StartDate through DeadlineDate inclusive. It is
	// only filled when details were requested.
	Breakdown []Day

	// Source records where the governing rule came from. Not serialized.
	Source Source
}

// Source identifies how a deadline was resolved.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceLocal    Source = "local"
	SourceTable    Source = "table"
	SourceProvided Source = "provided"
)

// Calculate computes the deadline for terms from start. cal supplies the
// holidays for business-day walks and for tagging breakdown entries.
func Calculate(terms rules.DeadlineTerms, ruleName string, start civil.Date, cal holidays.Calendar, includeDetails bool) (Result, error) {
	if terms.Days < 0 {
		return Result{}, fmt.Errorf("%w: negative deadline days", rules.ErrInvalidParameters)
	}

	res := Result{
		StartDate:     start,
		DeadlineDays:  terms.Days,
		DeadlineType:  terms.Type,
		RuleName:      ruleName,
		CanExtend:     terms.CanExtend,
		MaxExtensions: terms.MaxExtensions,
	}

	switch terms.Type {
	case rules.DeadlineCalendar, "":
		if terms.Days > maxWalkDays {
			return Result{}, fmt.Errorf("%w: %d calendar days from %s", ErrWalkLimit, terms.Days, start)
		}
		res.DeadlineType = rules.DeadlineCalendar
		res.DeadlineDate = start.AddDays(terms.Days)
		if includeDetails {
			res.Breakdown = span(start, res.DeadlineDate, cal)
		}
		return res, nil

	case rules.DeadlineBusiness:
		return walk(res, terms.Days, cal, includeDetails)

	default:
		return Result{}, fmt.Errorf("%w: unknown deadline type %q", rules.ErrInvalidParameters, terms.Type)
	}
}

// walk counts business days forward from the day after the start date.
func walk(res Result, days int, cal holidays.Calendar, includeDetails bool) (Result, error) {
	var (
		counted   int
		weekends  int
		holidayed int
		current   = res.StartDate
	)
	if includeDetails {
		res.Breakdown = append(res.Breakdown, tag(current, cal))
	}

	for steps := 0; counted < days; steps++ {
		if steps >= maxWalkDays {
			return Result{}, fmt.Errorf("%w: %d business days from %s", ErrWalkLimit, days, res.StartDate)
		}
		current = current.AddDays(1)
		d := tag(current, cal)
		switch {
		case d.IsHoliday:
			holidayed++
		case dates.IsWeekend(current):
			weekends++
		default:
			counted++
		}
		if includeDetails {
			res.Breakdown = append(res.Breakdown, d)
		}
	}

	res.DeadlineDate = current
	res.BusinessDaysCalculated = &counted
	res.WeekendsExcluded = &weekends
	res.HolidaysExcluded = &holidayed
	return res, nil
}

// span tags every day from start through end inclusive.
func span(start, end civil.Date, cal holidays.Calendar) []Day {
	out := make([]Day, 0, end.DaysSince(start)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		out = append(out, tag(d, cal))
	}
	return out
}

func tag(d civil.Date, cal holidays.Calendar) Day {
	name, isHoliday := cal.Lookup(d)
	return Day{
		Date:          d,
		IsBusinessDay: !isHoliday && !dates.IsWeekend(d),
		IsHoliday:     isHoliday,
		HolidayName:   name,
	}
}

// Extend pushes a deadline out by the given number of extensions, each one a
// further period of the original length counted the same way. The result is
// recomputed from the original start date.
func Extend(res Result, extensions int, cal holidays.Calendar) (Result, error) {
	if extensions < 0 {
		return Result{}, fmt.Errorf("%w: negative extension count", ErrTooManyExtensions)
	}
	if extensions == 0 {
		return res, nil
	}
	if !res.CanExtend {
		return Result{}, fmt.Errorf("%w: %s", ErrNotExtendable, res.RuleName)
	}
	if extensions > res.MaxExtensions-res.ExtensionsApplied {
		return Result{}, fmt.Errorf("%w: %d requested, %d allowed", ErrTooManyExtensions,
			res.ExtensionsApplied+extensions, res.MaxExtensions)
	}
	total := res.ExtensionsApplied + extensions
	if res.DeadlineDays > 0 && total >= maxWalkDays/res.DeadlineDays {
		return Result{}, fmt.Errorf("%w: %d days extended %d times", ErrWalkLimit, res.DeadlineDays, total)
	}

	terms := rules.DeadlineTerms{
		Days:          res.DeadlineDays * (total + 1),
		Type:          res.DeadlineType,
		CanExtend:     res.CanExtend,
		MaxExtensions: res.MaxExtensions,
	}
	extended, err := Calculate(terms, res.RuleName, res.StartDate, cal, res.Breakdown != nil)
	if err != nil {
		return Result{}, err
	}
	extended.DeadlineDays = res.DeadlineDays
	extended.ExtensionsApplied = total
	extended.Source = res.Source
	return extended, nil
}

type dayJSON struct {
	Date          string `json:"date"`
	IsBusinessDay bool   `json:"isBusinessDay"`
	IsHoliday     bool   `json:"isHoliday"`
	HolidayName   string `json:"holidayName,omitempty"`
}

type resultJSON struct {
	StartDate              string    `json:"startDate,omitempty"`
	DeadlineDate           string    `json:"deadlineDate"`
	DeadlineDays           int       `json:"deadlineDays"`
	DeadlineType           string    `json:"deadlineType"`
	RuleName               string    `json:"ruleName"`
	CanExtend              bool      `json:"canExtend"`
	MaxExtensions          int       `json:"maxExtensions"`
	ExtensionsApplied      int       `json:"extensionsApplied,omitempty"`
	BusinessDaysCalculated *int      `json:"businessDaysCalculated,omitempty"`
	HolidaysExcluded       *int      `json:"holidaysExcluded,omitempty"`
	WeekendsExcluded       *int      `json:"weekendsExcluded,omitempty"`
	Breakdown              []dayJSON `json:"breakdown,omitempty"`
}

// MarshalJSON encodes dates as RFC 3339 date-times at UTC midnight.
func (r Result) MarshalJSON() ([]byte, error) {
	w := resultJSON{
		DeadlineDate:           dates.Format(r.DeadlineDate),
		DeadlineDays:           r.DeadlineDays,
		DeadlineType:           r.DeadlineType,
		RuleName:               r.RuleName,
		CanExtend:              r.CanExtend,
		MaxExtensions:          r.MaxExtensions,
		ExtensionsApplied:      r.ExtensionsApplied,
		BusinessDaysCalculated: r.BusinessDaysCalculated,
		HolidaysExcluded:       r.HolidaysExcluded,
		WeekendsExcluded:       r.WeekendsExcluded,
	}
	if r.StartDate.IsValid() {
		w.StartDate = dates.Format(r.StartDate)
	}
	for _, d := range r.Breakdown {
		w.Breakdown = append(w.Breakdown, dayJSON{
			Date:          dates.Format(d.Date),
			IsBusinessDay: d.IsBusinessDay,
			IsHoliday:     d.IsHoliday,
			HolidayName:   d.HolidayName,
		})
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts date-time or plain date strings.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	deadline, err := dates.Parse(w.DeadlineDate)
	if err != nil {
		return fmt.Errorf("deadlineDate: %w", err)
	}
	var start civil.Date
	if w.StartDate != "" {
		if start, err = dates.Parse(w.StartDate); err != nil {
			return fmt.Errorf("startDate: %w", err)
		}
	}

	out := Result{
		StartDate:              start,
		DeadlineDate:           deadline,
		DeadlineDays:           w.DeadlineDays,
		DeadlineType:           w.DeadlineType,
		RuleName:               w.RuleName,
		CanExtend:              w.CanExtend,
		MaxExtensions:          w.MaxExtensions,
		ExtensionsApplied:      w.ExtensionsApplied,
		BusinessDaysCalculated: w.BusinessDaysCalculated,
		HolidaysExcluded:       w.HolidaysExcluded,
		WeekendsExcluded:       w.WeekendsExcluded,
	}
	for i, d := range w.Breakdown {
		day, err := dates.Parse(d.Date)
		if err != nil {
			return fmt.Errorf("breakdown[%d]: %w", i, err)
		}
		out.Breakdown = append(out.Breakdown, Day{
			Date:          day,
			IsBusinessDay: d.IsBusinessDay,
			IsHoliday:     d.IsHoliday,
			HolidayName:   d.HolidayName,
		})
	}
	*r = out
	return nil
}
