// Package calendar converts working-time durations into calendar instants.
//
// Instants are elapsed wall-clock hours from the start of the run: day index
// t/24 (0-based) and hour-of-day t%24. Each non-rest day offers a working
// window of [0, HoursPerDay) hours. End instants are exclusive bounds.
package calendar

import (
	"fmt"
)

// HoursPerCalendarDay is the wall-clock length of one day.
const HoursPerCalendarDay = 24

// Config configures working hours and calendar rules.
type Config struct {
	// HoursPerDay is the length of the working window (1..24).
	HoursPerDay int

	// RestDayCycle makes every Nth day non-working; 0 disables rest days.
	RestDayCycle int

	// ShortTestThreshold: items with duration ≤ threshold never cross a day
	// boundary. 0 disables the rule.
	ShortTestThreshold int

	// ForbidRestDaySpan rejects placements whose span contains a rest day.
	ForbidRestDaySpan bool

	// DayStartHour is the clock hour at which the working window opens.
	// Used only for labels.
	DayStartHour int
}

// DefaultConfig returns an 8-hour day with every 7th day off.
func DefaultConfig() Config {
	return Config{
		HoursPerDay:        8,
		RestDayCycle:       7,
		ShortTestThreshold: 8,
		ForbidRestDaySpan:  true,
		DayStartHour:       8,
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.HoursPerDay < 1 || c.HoursPerDay > HoursPerCalendarDay {
		return fmt.Errorf("hours_per_day must be in 1..24, got %d", c.HoursPerDay)
	}
	if c.RestDayCycle < 0 || c.RestDayCycle == 1 {
		return fmt.Errorf("rest_day_cycle must be 0 or at least 2, got %d", c.RestDayCycle)
	}
	if c.ShortTestThreshold < 0 {
		return fmt.Errorf("short_test_threshold must not be negative, got %d", c.ShortTestThreshold)
	}
	if c.DayStartHour < 0 || c.DayStartHour > 23 {
		return fmt.Errorf("day_start_hour must be in 0..23, got %d", c.DayStartHour)
	}
	return nil
}

// Violation names a calendar rule a candidate placement breaks.
type Violation string

const (
	// NoViolation means the placement satisfies every calendar rule.
	NoViolation Violation = ""

	// OutsideWorkingTime means the start instant is not a working hour.
	OutsideWorkingTime Violation = "outside_working_time"

	// CrossesDay means a short item would continue on a later day.
	CrossesDay Violation = "crosses_day"

	// SpansRestDay means the placement contains a rest day.
	SpansRestDay Violation = "spans_rest_day"

	// NeverFits means no start instant can satisfy the rules for this duration.
	NeverFits Violation = "never_fits"
)

// Manager performs working-time arithmetic. It is immutable and safe for
// concurrent use.
type Manager struct {
	cfg Config
}

// New creates a Manager after validating cfg.
func New(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg}, nil
}

// Config returns the manager's configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Day returns the 0-based day index of t.
func Day(t int) int {
	return t / HoursPerCalendarDay
}

// HourOfDay returns the hour within the day of t.
func HourOfDay(t int) int {
	return t % HoursPerCalendarDay
}

// DayStart returns the first instant of day.
func DayStart(day int) int {
	return day * HoursPerCalendarDay
}

// IsRestDay reports whether the 0-based day is a rest day.
func (m *Manager) IsRestDay(day int) bool {
	return m.cfg.RestDayCycle > 0 && (day+1)%m.cfg.RestDayCycle == 0
}

// IsWorkingTime reports whether the hour starting at t is a working hour.
func (m *Manager) IsWorkingTime(t int) bool {
	if t < 0 {
		return false
	}
	return !m.IsRestDay(Day(t)) && HourOfDay(t) < m.cfg.HoursPerDay
}

// EndsInWorkingTime reports whether an exclusive end instant closes on a
// working hour, i.e. the last hour it covers is working time.
func (m *Manager) EndsInWorkingTime(end int) bool {
	return m.IsWorkingTime(end - 1)
}

// NextAvailable returns the first working instant at or after t.
// It never moves backward.
func (m *Manager) NextAvailable(t int) int {
	if t < 0 {
		t = 0
	}
	for !m.IsWorkingTime(t) {
		t = DayStart(Day(t) + 1)
	}
	return t
}

// AddWorkingDuration advances start by duration working hours, skipping
// non-working intervals, and returns the exclusive end instant.
// A start outside working time is first moved to the next working instant.
func (m *Manager) AddWorkingDuration(start, duration int) int {
	t := m.NextAvailable(start)
	remaining := duration
	for {
		windowEnd := DayStart(Day(t)) + m.cfg.HoursPerDay
		available := windowEnd - t
		if remaining <= available {
			return t + remaining
		}
		remaining -= available
		t = m.NextAvailable(windowEnd)
	}
}

// WorkingHoursBetween counts working hours in [from, to).
func (m *Manager) WorkingHoursBetween(from, to int) int {
	if to <= from {
		return 0
	}
	if from < 0 {
		from = 0
	}
	total := 0
	for day := Day(from); day <= Day(to-1); day++ {
		if m.IsRestDay(day) {
			continue
		}
		lo := max(DayStart(day), from)
		hi := min(DayStart(day)+m.cfg.HoursPerDay, to)
		if hi > lo {
			total += hi - lo
		}
	}
	return total
}

// Feasible reports whether any start instant could satisfy the calendar rules
// for an item of the given duration.
func (m *Manager) Feasible(duration int) Violation {
	if m.isShort(duration) && duration > m.cfg.HoursPerDay {
		return NeverFits
	}
	if m.cfg.ForbidRestDaySpan && m.cfg.RestDayCycle > 0 {
		if duration > m.cfg.HoursPerDay*(m.cfg.RestDayCycle-1) {
			return NeverFits
		}
	}
	return NoViolation
}

// Fits checks the calendar rules for an item of the given duration starting at start.
func (m *Manager) Fits(start, duration int) Violation {
	if v := m.Feasible(duration); v != NoViolation {
		return v
	}
	if !m.IsWorkingTime(start) {
		return OutsideWorkingTime
	}
	end := m.AddWorkingDuration(start, duration)
	first, last := Day(start), Day(end-1)
	if m.isShort(duration) && first != last {
		return CrossesDay
	}
	if m.cfg.ForbidRestDaySpan {
		for day := first; day <= last; day++ {
			if m.IsRestDay(day) {
				return SpansRestDay
			}
		}
	}
	return NoViolation
}

// EarliestFit returns the first start instant in [from, limit) at which an
// item of the given duration satisfies every calendar rule.
func (m *Manager) EarliestFit(from, duration, limit int) (int, bool) {
	if m.Feasible(duration) != NoViolation {
		return 0, false
	}
	t := m.NextAvailable(from)
	for t < limit {
		switch m.Fits(t, duration) {
		case NoViolation:
			return t, true
		case CrossesDay, SpansRestDay:
			t = m.NextAvailable(DayStart(Day(t) + 1))
		default:
			t = m.NextAvailable(t + 1)
		}
	}
	return 0, false
}

// Format renders t as "第{day}天{hour}点" with a 1-based day.
func (m *Manager) Format(t int) string {
	return fmt.Sprintf("第%d天%d点", Day(t)+1, m.cfg.DayStartHour+HourOfDay(t))
}

func (m *Manager) isShort(duration int) bool {
	return m.cfg.ShortTestThreshold > 0 && duration <= m.cfg.ShortTestThreshold
}
