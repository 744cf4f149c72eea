// Package schedule implements the two schedule-expression dialects the
// engine accepts (repeat intervals and cron expressions) and computes
// next-fire instants from them.
package schedule

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/minisource/httpscheduler/internal/models"
	"github.com/robfig/cron/v3"
)

// maxIntervalMillis bounds the millisecond count parseRepeat will accept
// before handing it to time.Duration, whose own unit is nanoseconds: a
// value any larger would overflow the final ×time.Millisecond multiply.
const maxIntervalMillis = math.MaxInt64 / int64(time.Millisecond)

var repeatPattern = regexp.MustCompile(`(?i)^([1-9][0-9]*)(s|m|h|d)$`)

var unitMillis = map[string]int64{
	"s": 1000,
	"m": 60000,
	"h": 3600000,
	"d": 86400000,
}

// standardParser accepts the documented 5-field dialect (minute hour dom
// month dow).
var standardParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// secondsParser accepts the 6-field compatibility form (seconds precision),
// per spec.md §9's Open Question: both are accepted, 5-field is preferred.
var secondsParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Schedule is the tagged-union, pre-compiled representation of a schedule
// expression, computed once at registration per spec.md §9's design hint.
type Schedule struct {
	Type     models.ScheduleType
	Interval time.Duration // valid when Type == ScheduleTypeRepeat
	Cron     cron.Schedule // valid when Type == ScheduleTypeCron
	raw      string
}

// InvalidScheduleError is the structured error spec.md §7 names
// "InvalidSchedule", carrying a human-readable message.
type InvalidScheduleError struct {
	Message string
}

func (e *InvalidScheduleError) Error() string { return e.Message }

func invalid(format string, args ...interface{}) error {
	return &InvalidScheduleError{Message: fmt.Sprintf(format, args...)}
}

// Parse validates expr against dialect and returns the compiled Schedule.
func Parse(expr string, dialect models.ScheduleType) (Schedule, error) {
	switch dialect {
	case models.ScheduleTypeRepeat:
		d, err := parseRepeat(expr)
		if err != nil {
			return Schedule{}, err
		}
		return Schedule{Type: dialect, Interval: d, raw: expr}, nil
	case models.ScheduleTypeCron:
		cs, err := parseCron(expr)
		if err != nil {
			return Schedule{}, err
		}
		return Schedule{Type: dialect, Cron: cs, raw: expr}, nil
	default:
		return Schedule{}, invalid("unknown schedule type: %q", dialect)
	}
}

func parseRepeat(expr string) (time.Duration, error) {
	m := repeatPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return 0, invalid("invalid repeat schedule %q: expected <positive integer><s|m|h|d>", expr)
	}

	value, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, invalid("invalid repeat schedule %q: %v", expr, err)
	}
	unit := strings.ToLower(m[2])

	if value <= 0 {
		return 0, invalid("repeat interval must be positive")
	}
	if unit == "s" && value < 5 {
		return 0, invalid("invalid repeat schedule %q: Minimum interval is 5 seconds", expr)
	}
	if unit == "d" && value > 30 {
		return 0, invalid("invalid repeat schedule %q: maximum interval is 30 days", expr)
	}

	unitMs := unitMillis[unit]
	if value > math.MaxInt64/unitMs {
		return 0, invalid("invalid repeat schedule %q: interval is too large", expr)
	}
	ms := value * unitMs
	if ms > maxIntervalMillis {
		return 0, invalid("invalid repeat schedule %q: interval is too large", expr)
	}

	return time.Duration(ms) * time.Millisecond, nil
}

func parseCron(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, invalid("cron schedule must not be empty")
	}

	fields := len(strings.Fields(expr))
	switch fields {
	case 5:
		cs, err := standardParser.Parse(expr)
		if err != nil {
			return nil, invalid("invalid cron expression %q: %v", expr, err)
		}
		return cs, nil
	case 6:
		cs, err := secondsParser.Parse(expr)
		if err != nil {
			return nil, invalid("invalid cron expression %q: %v", expr, err)
		}
		return cs, nil
	default:
		// Fall back to trying both parsers in case of unusual spacing,
		// before giving up.
		if cs, err := standardParser.Parse(expr); err == nil {
			return cs, nil
		}
		if cs, err := secondsParser.Parse(expr); err == nil {
			return cs, nil
		}
		return nil, invalid("invalid cron expression %q: expected 5 or 6 space-separated fields", expr)
	}
}

// Validate is the pure, non-erroring form spec.md §4.1 describes:
// validate(schedule, type) → {valid, message?}.
func Validate(expr string, dialect models.ScheduleType) (bool, string) {
	if _, err := Parse(expr, dialect); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// NextAfter computes the first fire instant strictly after from.
func NextAfter(s Schedule, from time.Time) time.Time {
	switch s.Type {
	case models.ScheduleTypeRepeat:
		return from.Add(s.Interval)
	case models.ScheduleTypeCron:
		return s.Cron.Next(from)
	default:
		return from
	}
}

// Upcoming returns the first count fire instants strictly after from.
func Upcoming(s Schedule, from time.Time, count int) []time.Time {
	if count <= 0 {
		return nil
	}
	out := make([]time.Time, 0, count)
	cursor := from
	for i := 0; i < count; i++ {
		cursor = NextAfter(s, cursor)
		out = append(out, cursor)
	}
	return out
}

// intervalSchedule adapts a fixed repeat interval to robfig/cron's
// cron.Schedule interface, so the Scheduler Core can register both
// dialects on the same *cron.Cron instance.
type intervalSchedule struct {
	interval time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.interval)
}

// AsCronSchedule returns a cron.Schedule computing the same next-fire
// instants as s, regardless of dialect.
func (s Schedule) AsCronSchedule() cron.Schedule {
	if s.Type == models.ScheduleTypeRepeat {
		return intervalSchedule{interval: s.Interval}
	}
	return s.Cron
}

// Describe returns a best-effort human description of the schedule.
func Describe(s Schedule) string {
	switch s.Type {
	case models.ScheduleTypeRepeat:
		return fmt.Sprintf("every %s", s.Interval)
	case models.ScheduleTypeCron:
		return "cron: " + s.raw
	default:
		return s.raw
	}
}
