package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule yields the next activation strictly after a given time.
type Schedule = cron.Schedule

type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.every)
}

// Every returns a schedule firing at a fixed interval from the previous slot.
func Every(d time.Duration) Schedule {
	if d <= 0 {
		d = time.Minute
	}
	return intervalSchedule{every: d}
}

// DailyAt returns a schedule firing once a day at hour:minute UTC.
func DailyAt(hour, minute int) (Schedule, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid daily time %02d:%02d", hour, minute)
	}
	sched, err := cron.ParseStandard(fmt.Sprintf("CRON_TZ=UTC %d %d * * *", minute, hour))
	if err != nil {
		return nil, fmt.Errorf("parse daily schedule: %w", err)
	}
	return sched, nil
}

// nextSlot decides what to do when the slot due at due is noticed at now.
// Within the grace window the slot runs and the following slot is computed
// from due; otherwise the slot is dropped and scheduling resumes from now.
func nextSlot(s Schedule, due, now time.Time, grace time.Duration) (run bool, next time.Time) {
	if now.Sub(due) > grace {
		return false, s.Next(now)
	}
	return true, s.Next(due)
}
