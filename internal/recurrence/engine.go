// Package recurrence expands a SessionTemplate's weekly time slot into
// concrete Occurrences across a generation window, generalizing the
// teacher's single-timezone weekly/daily Engine into the weekly, biweekly
// and monthly policies, exclusion dates and special weeks the timetable
// engine needs.
package recurrence

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
)

// ErrInvalidWindow indicates the generation window has no upper bound or is
// inverted.
var ErrInvalidWindow = errors.New("recurrence: generation window requires start before end")

// ErrInvalidDuration indicates the template's time slot has a non-positive
// duration.
var ErrInvalidDuration = errors.New("recurrence: time slot duration must be positive")

// Engine expands recurrence rules into Occurrences, normalizing every
// timestamp to a single location the way the teacher's Engine normalizes to
// a configured timezone.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that normalizes results to loc. A nil loc
// defaults to UTC, since academic calendars in this domain carry no
// timezone of their own.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Expand produces the occurrences of tmpl's weekly slot within cfg's
// generation window, bounded by course's total required hours, and the
// warning conflicts discovered along the way (the total_hours/hours_per_week
// cross-check of spec §4.3). The result is pure in (tmpl, slot, cfg, course):
// calling Expand twice with identical arguments yields an identical slice,
// which is what lets the generator re-run expansion idempotently during
// partial regeneration.
func (e *Engine) Expand(tmpl domain.SessionTemplate, slot domain.TimeSlot, cfg domain.GenerationConfig, course domain.Course) ([]domain.Occurrence, []domain.Conflict, error) {
	loc := e.location

	duration := slot.Duration()
	if duration <= 0 {
		return nil, nil, ErrInvalidDuration
	}

	start := dateOnly(cfg.StartDate, loc)
	end := dateOnly(cfg.EndDate, loc)
	if !end.After(start) && !end.Equal(start) {
		return nil, nil, ErrInvalidWindow
	}

	warnings := make([]domain.Conflict, 0)
	if w := crossCheckVolume(course, start, end); w != nil {
		warnings = append(warnings, *w)
	}

	excluded := make(map[string]struct{}, len(cfg.ExcludedDates))
	for _, d := range cfg.ExcludedDates {
		excluded[dateKey(d, loc)] = struct{}{}
	}

	allowedWeekdays := cfg.Weekdays
	if len(allowedWeekdays) == 0 {
		allowedWeekdays = domain.DefaultGenerationConfig().Weekdays
	}
	if !allowedWeekdays[slot.Weekday] {
		return nil, warnings, nil
	}

	first := firstMatchingWeekday(start, slot.Weekday, loc)
	if first.After(end) {
		return nil, warnings, nil
	}

	maxOccurrences := hourCap(course, duration)

	occurrences := make([]domain.Occurrence, 0)
	current := first

	for !current.After(end) {
		if maxOccurrences > 0 && len(occurrences) >= maxOccurrences {
			break
		}
		if _, isExcluded := excluded[dateKey(current, loc)]; !isExcluded && !suspendedBySpecialWeek(current, cfg.SpecialWeeks) {
			sessionStart := combineDateTime(current, slot.Start, loc)
			occurrences = append(occurrences, domain.Occurrence{
				TemplateID:   tmpl.ID,
				CourseID:     tmpl.CourseID,
				SessionType:  tmpl.SessionType,
				ActualDate:   current,
				Start:        sessionStart,
				End:          sessionStart.Add(duration),
				RoomID:       tmpl.RoomID,
				InstructorID: tmpl.InstructorID,
				Status:       domain.OccurrenceScheduled,
			})
		}

		next, err := step(current, cfg)
		if err != nil {
			return nil, warnings, err
		}
		if !next.After(current) {
			// Defensive: a misconfigured step must not spin forever.
			break
		}
		current = next
	}

	return occurrences, warnings, nil
}

// hourCap computes the maximum number of occurrences a single template may
// emit, per spec §4.3 step 3: the course's total required hours divided by
// the session duration, ceiling. A course with no declared total_hours is
// bounded only by the window (hourCap returns 0, meaning unbounded).
func hourCap(course domain.Course, duration time.Duration) int {
	if course.TotalHours <= 0 {
		return 0
	}
	hours := duration.Hours()
	if hours <= 0 {
		return 0
	}
	return int(math.Ceil(course.TotalHours / hours))
}

// crossCheckVolume implements the §4.3 cross-check: if a course defines both
// total_hours and hours_per_week, the expected number of weeks implied by
// that ratio should roughly match the number of weeks in the generation
// window. A discrepancy greater than 10% is recorded as a warning conflict;
// it never aborts expansion.
func crossCheckVolume(course domain.Course, start, end time.Time) *domain.Conflict {
	if course.TotalHours <= 0 || course.DefaultWeeklyHours <= 0 {
		return nil
	}
	windowWeeks := end.Sub(start).Hours() / (24 * 7)
	if windowWeeks <= 0 {
		return nil
	}
	expectedWeeks := course.TotalHours / course.DefaultWeeklyHours
	discrepancy := math.Abs(expectedWeeks-windowWeeks) / windowWeeks
	if discrepancy <= 0.1 {
		return nil
	}
	return &domain.Conflict{
		Type:     domain.ConflictVolumeInconsistency,
		Severity: domain.SeverityLow,
		Courses:  []string{course.ID},
		Message: fmt.Sprintf("course %s: total_hours/hours_per_week implies %.1f weeks but the generation window spans %.1f weeks",
			course.Code, expectedWeeks, windowWeeks),
	}
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func dateKey(t time.Time, loc *time.Location) string {
	return dateOnly(t, loc).Format("2006-01-02")
}

func combineDateTime(date, template time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, template.Hour(), template.Minute(), template.Second(), 0, loc)
}

func firstMatchingWeekday(from time.Time, weekday time.Weekday, loc *time.Location) time.Time {
	candidate := dateOnly(from, loc)
	for candidate.Weekday() != weekday {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// suspendedBySpecialWeek reports whether date falls within a SpecialWeek
// that suspends regular scheduling.
func suspendedBySpecialWeek(date time.Time, weeks []domain.SpecialWeek) bool {
	for _, w := range weeks {
		if !w.SuspendRegular {
			continue
		}
		if !date.Before(w.Start) && !date.After(w.End) {
			return true
		}
	}
	return false
}

// step advances current to the next candidate date under cfg's recurrence
// policy. Weekly advances seven days; biweekly fourteen; monthly advances by
// calendar month (preserving weekday-of-month) or by a fixed thirty days,
// per cfg.MonthlyStepMode.
func step(current time.Time, cfg domain.GenerationConfig) (time.Time, error) {
	switch cfg.Recurrence {
	case domain.RecurrenceWeekly, "":
		return current.AddDate(0, 0, 7), nil
	case domain.RecurrenceBiweekly:
		return current.AddDate(0, 0, 14), nil
	case domain.RecurrenceMonthly:
		switch cfg.MonthlyStepMode {
		case domain.MonthlyStep30Day:
			return current.AddDate(0, 0, 30), nil
		case domain.MonthlyStepCalendar, "":
			return nextCalendarMonthSameWeekday(current), nil
		default:
			return time.Time{}, errors.New("recurrence: unknown monthly step mode")
		}
	default:
		return time.Time{}, errors.New("recurrence: unknown recurrence policy")
	}
}

// nextCalendarMonthSameWeekday returns the date in the following calendar
// month that occupies the same ordinal weekday-of-month slot as current
// (e.g. the 2nd Tuesday of the next month, if current is the 2nd Tuesday of
// this month).
func nextCalendarMonthSameWeekday(current time.Time) time.Time {
	ordinal := (current.Day()-1)/7 + 1
	weekday := current.Weekday()

	y, m, _ := current.Date()
	nextMonth := time.Date(y, m+1, 1, 0, 0, 0, 0, current.Location())

	candidate := firstMatchingWeekday(nextMonth, weekday, current.Location())
	candidate = candidate.AddDate(0, 0, 7*(ordinal-1))

	if candidate.Month() != nextMonth.Month() {
		// The ordinal-th weekday doesn't exist in the shorter month; fall
		// back to the last matching weekday of that month.
		candidate = candidate.AddDate(0, 0, -7)
	}
	return candidate
}
