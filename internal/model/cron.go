package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseCron parses a cron expression that have 5 fields or a @macro
// and returns the interval between two consecutive activations.
func ParseCron(expr string) (time.Duration, error) {
	e := strings.TrimSpace(expr)
	if e == "" {
		return 0, fmt.Errorf("empty cron expression")
	}

	// Macros / @every handled by ParseStandard (it also supports plain 5-field specs).
	var schedule cron.Schedule
	var err error
	if strings.HasPrefix(e, "@") {
		schedule, err = cron.ParseStandard(e)
	} else {
		parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		schedule, err = parser5.Parse(e)
	}
	if err != nil {
		return 0, err
	}
	next1 := schedule.Next(time.Now())
	next2 := schedule.Next(next1)
	interval := next2.Sub(next1)
	return interval, nil
}
