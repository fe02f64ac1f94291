package schedule

import (
	"fmt"
	"time"

	"github.com/reportmill/internal/models"
)

var ErrInvalidFrequency = fmt.Errorf("invalid frequency")

// Resolver maps a recurrence frequency to the next run instant. All results
// land on Hour:00:00 in Loc, strictly after the instant they were computed
// from.
type Resolver struct {
	Hour int
	Loc  *time.Location
}

func NewResolver(hour int, loc *time.Location) Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return Resolver{Hour: hour, Loc: loc}
}

func (r Resolver) Next(from time.Time, f models.Frequency) (time.Time, error) {
	from = from.In(r.Loc)
	y, m, d := from.Date()

	switch f {
	case models.FrequencyDaily:
		return r.at(y, m, d+1), nil
	case models.FrequencyWeekly:
		return r.at(y, m, d+7), nil
	case models.FrequencyMonthly:
		return r.at(y, m+1, 1), nil
	case models.FrequencyQuarterly:
		return r.at(y, m+3, 1), nil
	case models.FrequencySemester:
		return r.at(y, m+6, 1), nil
	case models.FrequencyAnnual:
		return r.at(y+1, time.January, 1), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, f)
	}
}

func (r Resolver) at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, r.Hour, 0, 0, 0, r.Loc)
}
