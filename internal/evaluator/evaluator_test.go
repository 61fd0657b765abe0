package evaluator

import (
	"math"
	"testing"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
)

func occ(courseID, roomID, instructorID string, start time.Time, sessionType domain.SessionType) domain.Occurrence {
	return domain.Occurrence{
		CourseID:     courseID,
		SessionType:  sessionType,
		ActualDate:   time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		Start:        start,
		End:          start.Add(90 * time.Minute),
		RoomID:       roomID,
		InstructorID: instructorID,
		Status:       domain.OccurrenceScheduled,
	}
}

func TestEvaluate_HardViolationYieldsNegativeInfinity(t *testing.T) {
	e := New()
	occurrences := []domain.Occurrence{
		occ("c1", "room-1", "instr-1", time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC), domain.SessionCM),
		occ("c2", "room-1", "instr-2", time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC), domain.SessionCM),
	}

	report := e.Evaluate(Input{Occurrences: occurrences})
	if !math.IsInf(report.GlobalScore, -1) {
		t.Errorf("GlobalScore = %v, want -Inf on a room double-booking", report.GlobalScore)
	}
	if report.Grade != GradeF {
		t.Errorf("Grade = %v, want F", report.Grade)
	}
	if report.HardViolations == 0 {
		t.Error("expected HardViolations > 0")
	}
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	e := New()
	occurrences := []domain.Occurrence{
		occ("c1", "room-1", "instr-1", time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC), domain.SessionCM),
		occ("c1", "room-1", "instr-1", time.Date(2025, 9, 3, 10, 15, 0, 0, time.UTC), domain.SessionTD),
	}
	in := Input{Occurrences: occurrences}

	first := e.Evaluate(in)
	second := e.Evaluate(in)
	if first.GlobalScore != second.GlobalScore {
		t.Errorf("Evaluate not deterministic: %v vs %v", first.GlobalScore, second.GlobalScore)
	}
}

func TestEvaluate_NoViolationsProducesFiniteScore(t *testing.T) {
	e := New()
	occurrences := []domain.Occurrence{
		occ("c1", "room-1", "instr-1", time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC), domain.SessionCM),
	}
	report := e.Evaluate(Input{Occurrences: occurrences})
	if math.IsInf(report.GlobalScore, -1) {
		t.Fatal("did not expect -Inf for a conflict-free schedule")
	}
	if report.HardViolations != 0 {
		t.Errorf("HardViolations = %d, want 0", report.HardViolations)
	}
}

func TestEvaluate_MonotonicityAfterResolvingDoubleBooking(t *testing.T) {
	e := New()
	conflicted := []domain.Occurrence{
		occ("c1", "room-1", "instr-1", time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC), domain.SessionCM),
		occ("c2", "room-1", "instr-2", time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC), domain.SessionCM),
	}
	resolved := []domain.Occurrence{
		occ("c1", "room-1", "instr-1", time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC), domain.SessionCM),
		occ("c2", "room-2", "instr-2", time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC), domain.SessionCM),
	}

	before := e.Evaluate(Input{Occurrences: conflicted})
	after := e.Evaluate(Input{Occurrences: resolved})

	if !(after.GlobalScore > before.GlobalScore) {
		t.Errorf("expected resolving the double-booking to strictly improve the score: before=%v after=%v", before.GlobalScore, after.GlobalScore)
	}
}

func TestEvaluate_GradeBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  Grade
	}{
		{900, GradeA},
		{700, GradeB},
		{500, GradeC},
		{300, GradeD},
		{50, GradeF},
	}
	for _, c := range cases {
		if got := gradeFor(c.score); got != c.want {
			t.Errorf("gradeFor(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}
