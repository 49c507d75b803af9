package service

import (
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NextSendTime returns the earliest moment the mailer may send a message created at now.
// Grouped messages wait for the end of the current interval, daily messages for the next
// DailyTime. A result falling inside the silence window moves to its end. The window only
// applies on weekends when ApplyWeekend is set.
func NextSendTime(now time.Time, rule *domain.FrequencyRule) time.Time {
	if rule == nil {
		return now
	}
	at := now
	switch rule.Mode {
	case domain.FrequencyGrouped:
		if rule.GroupIntervalMinutes > 0 {
			interval := time.Duration(rule.GroupIntervalMinutes) * time.Minute
			at = now.Truncate(interval).Add(interval)
		}
	case domain.FrequencyDaily:
		if h, m, err := parseClock(rule.DailyTime); err == nil {
			at = atClock(now, h, m)
			if !at.After(now) {
				at = at.AddDate(0, 0, 1)
			}
		}
	}
	return applySilence(at, rule)
}

func applySilence(at time.Time, rule *domain.FrequencyRule) time.Time {
	fh, fm, err := parseClock(rule.SilenceFrom)
	if err != nil {
		return at
	}
	th, tm, err := parseClock(rule.SilenceTo)
	if err != nil {
		return at
	}
	weekend := at.Weekday() == time.Saturday || at.Weekday() == time.Sunday
	if weekend && !rule.ApplyWeekend {
		return at
	}

	from := fh*60 + fm
	to := th*60 + tm
	minute := at.Hour()*60 + at.Minute()
	switch {
	case from == to:
		return at
	case from < to:
		if minute >= from && minute < to {
			return atClock(at, th, tm)
		}
	default:
		// window wraps midnight, e.g. 18:00 to 09:00
		if minute >= from {
			return atClock(at.AddDate(0, 0, 1), th, tm)
		}
		if minute < to {
			return atClock(at, th, tm)
		}
	}
	return at
}

func parseClock(v string) (int, int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, 0, fmt.Errorf("parse clock %q: %w", v, err)
	}
	return t.Hour(), t.Minute(), nil
}

func atClock(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
