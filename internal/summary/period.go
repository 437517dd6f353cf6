package summary

import (
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// Period is the resolved reporting interval.
type Period struct {
	Start time.Time
	End   time.Time
	Label string
}

// CalendarPeriod returns Jan 1 - Dec 31 of year. A non-positive year falls back
// to the year of now.
func CalendarPeriod(year int, now time.Time) Period {
	if year <= 0 {
		year = now.Year()
	}
	return Period{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		Label: strconv.Itoa(year),
	}
}

// Info converts the period into its wire representation.
func (p Period) Info() PeriodInfo {
	return PeriodInfo{
		Label:     p.Label,
		StartDate: p.Start.Format(dateLayout),
		EndDate:   p.End.Format(dateLayout),
	}
}

func (p Period) valid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !p.End.Before(p.Start)
}
