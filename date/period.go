package date

import (
	"fmt"
	"strings"
)

// Period is a calendar period used to bucket days.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

var (
	periodNames = [...]string{
		Daily:     "daily",
		Weekly:    "weekly",
		Monthly:   "monthly",
		Quarterly: "quarterly",
		Yearly:    "yearly",
	}
	periodNouns = [...]string{
		Daily:     "day",
		Weekly:    "week",
		Monthly:   "month",
		Quarterly: "quarter",
		Yearly:    "year",
	}
)

func (p Period) String() string {
	if p < Daily || p > Yearly {
		return fmt.Sprintf("period(%d)", int(p))
	}
	return periodNames[p]
}

// ParsePeriod parses a period from its adjective ("quarterly") or noun
// ("quarter") form, ignoring case and surrounding spaces.
func ParsePeriod(s string) (Period, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p := Daily; p <= Yearly; p++ {
		if name == periodNames[p] || name == periodNouns[p] {
			return p, nil
		}
	}
	return Daily, fmt.Errorf("unknown period %q", s)
}
