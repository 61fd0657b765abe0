// Package evaluator implements the pure, read-only scoring function of spec
// §4.6: it consumes a finalised Schedule and its occurrences and produces a
// structured report, grouping sessions by date/room/instructor the way the
// teacher's schedule_service groups schedules by period (computePeriodRange,
// startOfDay, startOfWeek) — but never mutates or persists anything, so it
// is safe to call concurrently over distinct schedules (spec §5).
package evaluator

import (
	"math"
	"sort"

	"github.com/flashcoder237/campus-timetable-engine/internal/conflict"
	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/sequencer"
)

// Weights holds the per-component multipliers of spec §4.6's default
// weighting. They are distinct from domain.ScoreWeights (which tunes the
// generator's placement heuristic, not the evaluator's report).
type Weights struct {
	PedagogicalQuality     float64
	InstructorSatisfaction float64
	RoomUtilisation        float64
	StudentLoadBalance     float64
	InstructorLoadBalance  float64
}

// DefaultWeights mirrors the spec's documented defaults.
func DefaultWeights() Weights {
	return Weights{
		PedagogicalQuality:     100,
		InstructorSatisfaction: 50,
		RoomUtilisation:        30,
		StudentLoadBalance:     40,
		InstructorLoadBalance:  45,
	}
}

// Grade buckets a GlobalScore into the spec's letter grades.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// ScoreReport is the structured output of Evaluate.
type ScoreReport struct {
	GlobalScore float64
	Grade       Grade

	HardViolations         int
	RoomConflicts          int
	InstructorConflicts    int
	MissingCourseHours     int

	PedagogicalQuality     float64
	InstructorSatisfaction float64
	RoomUtilisation        float64
	StudentLoadBalance     float64
	InstructorLoadBalance  float64
}

// Input bundles the read-only data Evaluate needs.
type Input struct {
	Occurrences    []domain.Occurrence
	Rooms          map[string]domain.Room
	Instructors    map[string]domain.Instructor
	Courses        map[string]domain.Course
	ClassSize      int
	TargetUtilRate float64 // default 0.70 when zero
	Weights        Weights
}

// Evaluator scores finalised schedules. It holds a Sequencer so that
// pedagogical_quality reuses the exact same timeScore/dayScore functions
// the generator used to place sessions, per spec §4.6.
type Evaluator struct {
	sequencer *sequencer.Sequencer
}

// New constructs an Evaluator.
func New() *Evaluator {
	return &Evaluator{sequencer: sequencer.New()}
}

// Evaluate computes the ScoreReport for in. It is a pure function of its
// input: calling it twice on an unchanged Input returns an identical report
// (spec property P7).
func (e *Evaluator) Evaluate(in Input) ScoreReport {
	weights := in.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	targetUtil := in.TargetUtilRate
	if targetUtil == 0 {
		targetUtil = 0.70
	}

	active := activeOccurrences(in.Occurrences)

	audit := conflict.Audit(conflict.AuditInput{
		Occurrences: in.Occurrences,
		Rooms:       in.Rooms,
		Instructors: in.Instructors,
		Courses:     in.Courses,
		ClassSize:   in.ClassSize,
	})

	report := ScoreReport{}
	for _, c := range audit {
		switch c.Type {
		case domain.ConflictRoomDoubleBooking:
			report.RoomConflicts++
		case domain.ConflictInstructorDoubleBooking:
			report.InstructorConflicts++
		case domain.ConflictMissingCourseHours:
			report.MissingCourseHours++
		}
	}
	report.HardViolations = report.RoomConflicts + report.InstructorConflicts + report.MissingCourseHours

	if report.HardViolations > 0 {
		report.GlobalScore = math.Inf(-1)
		report.Grade = GradeF
		return report
	}

	report.PedagogicalQuality = e.pedagogicalQuality(active)
	report.InstructorSatisfaction = instructorSatisfaction(active)
	report.RoomUtilisation = roomUtilisation(active, in.Rooms, targetUtil)
	report.StudentLoadBalance = studentLoadBalance(active)
	report.InstructorLoadBalance = instructorLoadBalance(active)

	report.GlobalScore = weights.PedagogicalQuality*normalize100(report.PedagogicalQuality) +
		weights.InstructorSatisfaction*report.InstructorSatisfaction +
		weights.RoomUtilisation*report.RoomUtilisation +
		weights.StudentLoadBalance*report.StudentLoadBalance +
		weights.InstructorLoadBalance*report.InstructorLoadBalance

	report.Grade = gradeFor(report.GlobalScore)
	return report
}

func activeOccurrences(occurrences []domain.Occurrence) []domain.Occurrence {
	active := make([]domain.Occurrence, 0, len(occurrences))
	for _, o := range occurrences {
		if !o.Superseded() {
			active = append(active, o)
		}
	}
	return active
}

func normalize100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func gradeFor(score float64) Grade {
	switch {
	case score > 800:
		return GradeA
	case score > 600:
		return GradeB
	case score > 400:
		return GradeC
	case score > 200:
		return GradeD
	default:
		return GradeF
	}
}

// pedagogicalQuality is the mean of timeScore+dayScore over all sessions,
// normalised to [0, 100] (each component contributes 0..100, so their sum
// is halved).
func (e *Evaluator) pedagogicalQuality(occurrences []domain.Occurrence) float64 {
	if len(occurrences) == 0 {
		return 0
	}
	total := 0.0
	for _, o := range occurrences {
		ts := e.sequencer.TimeScore(o.SessionType, o.Start)
		ds := e.sequencer.DayScore(o.SessionType, o.Start.Weekday())
		total += float64(ts+ds) / 2
	}
	return total / float64(len(occurrences))
}

// instructorSatisfaction penalises intra-day gaps over one hour in an
// instructor's schedule: -10 per such gap.
func instructorSatisfaction(occurrences []domain.Occurrence) float64 {
	byInstructorDay := make(map[string][]domain.Occurrence)
	for _, o := range occurrences {
		if o.InstructorID == "" {
			continue
		}
		key := o.InstructorID + "|" + o.ActualDate.Format("2006-01-02")
		byInstructorDay[key] = append(byInstructorDay[key], o)
	}

	gaps := 0
	for _, sessions := range byInstructorDay {
		sort.Slice(sessions, func(i, j int) bool { return sessions[i].Start.Before(sessions[j].Start) })
		for i := 1; i < len(sessions); i++ {
			gap := sessions[i].Start.Sub(sessions[i-1].End)
			if gap.Hours() > 1 {
				gaps++
			}
		}
	}
	return -10 * float64(gaps)
}

// roomUtilisation penalises rooms whose usage rate deviates from
// targetUtil: -100 * sum(|usage_rate - target|) across rooms with any
// booking.
func roomUtilisation(occurrences []domain.Occurrence, rooms map[string]domain.Room, targetUtil float64) float64 {
	bookedHours := make(map[string]float64)
	slotsUsed := make(map[string]map[string]struct{})
	for _, o := range occurrences {
		if o.RoomID == "" {
			continue
		}
		bookedHours[o.RoomID] += o.Duration().Hours()
		if slotsUsed[o.RoomID] == nil {
			slotsUsed[o.RoomID] = make(map[string]struct{})
		}
		slotsUsed[o.RoomID][o.ActualDate.Format("2006-01-02")+"|"+o.Start.Format("15:04")] = struct{}{}
	}

	if len(bookedHours) == 0 {
		return 0
	}

	maxSlots := 0
	for _, set := range slotsUsed {
		if len(set) > maxSlots {
			maxSlots = len(set)
		}
	}
	if maxSlots == 0 {
		return 0
	}

	deviationSum := 0.0
	for roomID := range bookedHours {
		used := len(slotsUsed[roomID])
		usageRate := float64(used) / float64(maxSlots)
		deviationSum += math.Abs(usageRate - targetUtil)
	}
	return -100 * deviationSum
}

// studentLoadBalance scores each calendar day of the class: +50 if daily
// hours fall in [4,6], -50*(h-6) if above, -30*(4-h) if below.
func studentLoadBalance(occurrences []domain.Occurrence) float64 {
	byDay := make(map[string]float64)
	for _, o := range occurrences {
		byDay[o.ActualDate.Format("2006-01-02")] += o.Duration().Hours()
	}
	if len(byDay) == 0 {
		return 0
	}

	total := 0.0
	for _, hours := range byDay {
		switch {
		case hours >= 4 && hours <= 6:
			total += 50
		case hours > 6:
			total -= 50 * (hours - 6)
		default:
			total -= 30 * (4 - hours)
		}
	}
	return total / float64(len(byDay))
}

// instructorLoadBalance scores each (instructor, ISO week): +50 if weekly
// hours fall in [12,18], -100*(h-20) if above 20.
func instructorLoadBalance(occurrences []domain.Occurrence) float64 {
	type weekKey struct {
		instructorID string
		year, week   int
	}
	byWeek := make(map[weekKey]float64)
	for _, o := range occurrences {
		if o.InstructorID == "" {
			continue
		}
		y, w := o.ActualDate.ISOWeek()
		byWeek[weekKey{instructorID: o.InstructorID, year: y, week: w}] += o.Duration().Hours()
	}
	if len(byWeek) == 0 {
		return 0
	}

	total := 0.0
	for _, hours := range byWeek {
		switch {
		case hours >= 12 && hours <= 18:
			total += 50
		case hours > 20:
			total -= 100 * (hours - 20)
		}
	}
	return total / float64(len(byWeek))
}
