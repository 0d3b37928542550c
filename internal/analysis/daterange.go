package analysis

import (
	"fmt"
	"time"

	"github.com/wonny/frontier/internal/contracts"
	"github.com/wonny/frontier/pkg/config"
)

// DateBounds limits the user-selectable analysis window
type DateBounds struct {
	Earliest            time.Time     // 두 자산 모두 가격이 있는 첫 날짜
	Today               time.Time
	MinSpanFromEarliest time.Duration // end >= Earliest + 90일
	MinSpanBeforeToday  time.Duration // start <= Today - 30일
}

// BoundsFromConfig builds bounds for the given day
func BoundsFromConfig(cfg config.AnalysisConfig, today time.Time) DateBounds {
	return DateBounds{
		Earliest:            contracts.TruncateDay(cfg.EarliestDate),
		Today:               contracts.TruncateDay(today),
		MinSpanFromEarliest: cfg.MinSpanFromEarliest,
		MinSpanBeforeToday:  cfg.MinSpanBeforeToday,
	}
}

// LatestStart returns the last allowed start date
func (b DateBounds) LatestStart() time.Time {
	return b.Today.Add(-b.MinSpanBeforeToday)
}

// EarliestEnd returns the first allowed end date
func (b DateBounds) EarliestEnd() time.Time {
	return b.Earliest.Add(b.MinSpanFromEarliest)
}

// ValidateDateRange checks a user-chosen [start, end] window
// ⭐ SSOT: 분석 기간 제약은 여기서만 검사 (CLI/API 공통)
func ValidateDateRange(start, end time.Time, b DateBounds) error {
	start = contracts.TruncateDay(start)
	end = contracts.TruncateDay(end)

	switch {
	case start.Before(b.Earliest):
		return fmt.Errorf("%w: start %s is before earliest available date %s",
			contracts.ErrInvalidDateRange, start.Format(contracts.DateLayout), b.Earliest.Format(contracts.DateLayout))
	case start.After(b.LatestStart()):
		return fmt.Errorf("%w: start %s is after %s (must be at least %d days before today)",
			contracts.ErrInvalidDateRange, start.Format(contracts.DateLayout),
			b.LatestStart().Format(contracts.DateLayout), days(b.MinSpanBeforeToday))
	case end.Before(b.EarliestEnd()):
		return fmt.Errorf("%w: end %s is before %s (must be at least %d days after earliest date)",
			contracts.ErrInvalidDateRange, end.Format(contracts.DateLayout),
			b.EarliestEnd().Format(contracts.DateLayout), days(b.MinSpanFromEarliest))
	case end.After(b.Today):
		return fmt.Errorf("%w: end %s is after today %s",
			contracts.ErrInvalidDateRange, end.Format(contracts.DateLayout), b.Today.Format(contracts.DateLayout))
	case !start.Before(end):
		return fmt.Errorf("%w: start %s must be before end %s",
			contracts.ErrInvalidDateRange, start.Format(contracts.DateLayout), end.Format(contracts.DateLayout))
	}

	return nil
}

func days(d time.Duration) int {
	return int(d.Hours() / 24)
}
