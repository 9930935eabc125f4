package holidays

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/liamcoop/labourcompliance/internal/dates"
	"github.com/liamcoop/labourcompliance/jurisdiction"
)

// statutoryRule computes the date of one holiday in a given year.
type statutoryRule struct {
	name string
	date func(year int) civil.Date

	// fixed holidays falling on a weekend are also observed on the next
	// free weekday.
	fixed bool

	// since is the first year the holiday applies (0 = always).
	since int
}

var (
	newYear        = statutoryRule{name: "New Year's Day", date: fixedDate(time.January, 1), fixed: true}
	familyDay      = statutoryRule{name: "Family Day", date: nthWeekday(time.February, time.Monday, 3)}
	bcFamilyDay    = statutoryRule{name: "Family Day", date: nthWeekday(time.February, time.Monday, 3), since: 2019}
	louisRielDay   = statutoryRule{name: "Louis Riel Day", date: nthWeekday(time.February, time.Monday, 3)}
	heritageDay    = statutoryRule{name: "Heritage Day", date: nthWeekday(time.February, time.Monday, 3), since: 2015}
	goodFriday     = statutoryRule{name: "Good Friday", date: easterOffset(-2)}
	easterMonday   = statutoryRule{name: "Easter Monday", date: easterOffset(1)}
	victoriaDay    = statutoryRule{name: "Victoria Day", date: mondayBefore(time.May, 25)}
	patriotsDay    = statutoryRule{name: "National Patriots' Day", date: mondayBefore(time.May, 25)}
	stJeanBaptiste = statutoryRule{name: "Saint-Jean-Baptiste Day", date: fixedDate(time.June, 24), fixed: true}
	canadaDay      = statutoryRule{name: "Canada Day", date: fixedDate(time.July, 1), fixed: true}
	bcDay          = statutoryRule{name: "British Columbia Day", date: nthWeekday(time.August, time.Monday, 1)}
	skDay          = statutoryRule{name: "Saskatchewan Day", date: nthWeekday(time.August, time.Monday, 1)}
	labourDay      = statutoryRule{name: "Labour Day", date: nthWeekday(time.September, time.Monday, 1)}
	truthDay       = statutoryRule{name: "National Day for Truth and Reconciliation", date: fixedDate(time.September, 30), fixed: true, since: 2021}
	truthDayProv   = statutoryRule{name: "National Day for Truth and Reconciliation", date: fixedDate(time.September, 30), fixed: true, since: 2023}
	thanksgiving   = statutoryRule{name: "Thanksgiving", date: nthWeekday(time.October, time.Monday, 2)}
	remembrance    = statutoryRule{name: "Remembrance Day", date: fixedDate(time.November, 11), fixed: true}
	christmas      = statutoryRule{name: "Christmas Day", date: fixedDate(time.December, 25), fixed: true}
	boxingDay      = statutoryRule{name: "Boxing Day", date: fixedDate(time.December, 26), fixed: true}
)

var statutory = map[jurisdiction.Jurisdiction][]statutoryRule{
	jurisdiction.Federal: {
		newYear, goodFriday, easterMonday, victoriaDay, canadaDay, labourDay,
		truthDay, thanksgiving, remembrance, christmas, boxingDay,
	},
	jurisdiction.Ontario: {
		newYear, familyDay, goodFriday, victoriaDay, canadaDay, labourDay,
		thanksgiving, christmas, boxingDay,
	},
	jurisdiction.BritishColumbia: {
		newYear, bcFamilyDay, goodFriday, victoriaDay, canadaDay, bcDay, labourDay,
		truthDayProv, thanksgiving, remembrance, christmas,
	},
	jurisdiction.Quebec: {
		newYear, goodFriday, patriotsDay, stJeanBaptiste, canadaDay, labourDay,
		thanksgiving, christmas,
	},
	jurisdiction.Alberta: {
		newYear, familyDay, goodFriday, victoriaDay, canadaDay, labourDay,
		thanksgiving, remembrance, christmas,
	},
	jurisdiction.Manitoba: {
		newYear, louisRielDay, goodFriday, victoriaDay, canadaDay, labourDay,
		truthDayProv, thanksgiving, christmas,
	},
	jurisdiction.Saskatchewan: {
		newYear, familyDay, goodFriday, victoriaDay, canadaDay, skDay, labourDay,
		thanksgiving, remembrance, christmas,
	},
	jurisdiction.NovaScotia: {
		newYear, heritageDay, goodFriday, canadaDay, labourDay, christmas,
	},
}

// Statutory generates the statutory holidays of each jurisdiction. It never
// fails and is the calendar used when the holiday store is unreachable.
type Statutory struct{}

// Holidays implements Source.
func (Statutory) Holidays(_ context.Context, j jurisdiction.Jurisdiction, from, to civil.Date) ([]Holiday, error) {
	var out []Holiday
	for year := from.Year; year <= to.Year; year++ {
		for _, h := range ForYear(j, year) {
			if h.Date.Before(from) || h.Date.After(to) {
				continue
			}
			out = append(out, h)
		}
	}
	return out, nil
}

// ForYear returns the statutory holidays of j in year, including observed
// weekday substitutes for fixed-date holidays that fall on a weekend.
// Unknown jurisdictions have no holidays.
func ForYear(j jurisdiction.Jurisdiction, year int) []Holiday {
	rules := statutory[j]
	out := make([]Holiday, 0, len(rules)+2)
	taken := make(map[civil.Date]bool, len(rules))

	for _, r := range rules {
		if r.since > year {
			continue
		}
		d := r.date(year)
		out = append(out, Holiday{Date: d, Name: r.name, Jurisdiction: j})
		taken[d] = true
	}

	// Substitute days are assigned after all actual dates are known so that
	// Christmas on a Saturday and Boxing Day on a Sunday resolve to Monday
	// and Tuesday.
	for _, r := range rules {
		if !r.fixed || r.since > year {
			continue
		}
		d := r.date(year)
		if !dates.IsWeekend(d) {
			continue
		}
		obs := d.AddDays(1)
		for dates.IsWeekend(obs) || taken[obs] {
			obs = obs.AddDays(1)
		}
		taken[obs] = true
		out = append(out, Holiday{Date: obs, Name: r.name + " (observed)", Jurisdiction: j})
	}
	return out
}

func fixedDate(month time.Month, day int) func(int) civil.Date {
	return func(year int) civil.Date {
		return civil.Date{Year: year, Month: month, Day: day}
	}
}

// nthWeekday returns the n-th occurrence of wd in month.
func nthWeekday(month time.Month, wd time.Weekday, n int) func(int) civil.Date {
	return func(year int) civil.Date {
		first := civil.Date{Year: year, Month: month, Day: 1}
		offset := (int(wd) - int(dates.Weekday(first)) + 7) % 7
		return first.AddDays(offset + 7*(n-1))
	}
}

// mondayBefore returns the last Monday strictly before the given day.
func mondayBefore(month time.Month, day int) func(int) civil.Date {
	return func(year int) civil.Date {
		d := civil.Date{Year: year, Month: month, Day: day}.AddDays(-1)
		for dates.Weekday(d) != time.Monday {
			d = d.AddDays(-1)
		}
		return d
	}
}

func easterOffset(days int) func(int) civil.Date {
	return func(year int) civil.Date {
		return easterSunday(year).AddDays(days)
	}
}

// easterSunday uses the anonymous Gregorian algorithm.
func easterSunday(year int) civil.Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return civil.Date{Year: year, Month: time.Month(month), Day: day}
}
