package lines

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leonardcser/linhas-cache/internal/logger"
)

// DefaultPrewarmSchedule fires at 00:00:00 and 12:00:00 every day.
const DefaultPrewarmSchedule = "0 0 0,12 * * *"

// Six-field expressions with a leading seconds field, plus @descriptors.
var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule validates a prewarm cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	s, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("prewarm schedule %q: %w", expr, err)
	}
	return s, nil
}

// NewScheduler returns a cron runner, not yet started, that prewarms c on
// expr evaluated in loc (time.Local when nil). A run that is still going
// when the next one is due causes that next run to be skipped.
func NewScheduler(c *Controller, expr string, loc *time.Location) (*cron.Cron, error) {
	if loc == nil {
		loc = time.Local
	}
	if _, err := ParseSchedule(expr); err != nil {
		return nil, err
	}
	l := cron.PrintfLogger(logger.Prefixed("cron: "))
	cr := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithLocation(loc),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	if _, err := cr.AddFunc(expr, c.scheduledPrewarm); err != nil {
		return nil, fmt.Errorf("prewarm schedule %q: %w", expr, err)
	}
	return cr, nil
}
