// Package conflict generalizes the teacher's scheduler.DetectConflicts
// overlap check into the three conflict-checking modes the timetable engine
// needs: cheap pruning during placement, soft warnings during recurrence
// expansion, and a full post-hoc audit over a committed schedule.
package conflict

import (
	"fmt"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/allocation"
	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
)

// CanPlace performs the pruning check of the generator's placement loop: it
// reports whether a candidate (room, instructor, date, start) is free and
// within the instructor's weekly-hours budget, without allocating anything.
// This mirrors scheduler.overlaps reduced to an O(1) index lookup instead of
// an O(n) scan of existing schedules.
func CanPlace(idx *allocation.Index, room domain.Room, instructor domain.Instructor, date, start time.Time, durationHours float64) (bool, string) {
	if !idx.IsRoomFree(date, start, room.ID) {
		return false, fmt.Sprintf("room %s already booked at this time", room.Code)
	}
	if !idx.IsInstrFree(date, start, instructor.ID) {
		return false, fmt.Sprintf("instructor %s already booked at this time", instructor.DisplayName)
	}
	if instructor.MaxHoursPerWeek > 0 {
		projected := idx.InstrWeekHours(instructor.ID, date) + durationHours
		if projected > instructor.MaxHoursPerWeek {
			return false, fmt.Sprintf("instructor %s would exceed weekly hour limit", instructor.DisplayName)
		}
	}
	return true, ""
}

// VolumeWarning checks the recurrence expansion of one course against its
// declared HoursByType, flagging an under- or over-count of generated
// occurrences for a session type. It returns a domain.Conflict of medium
// severity rather than halting generation, since volume drift is expected
// to be corrected by a later regeneration pass rather than blocking this one.
func VolumeWarning(course domain.Course, sessionType domain.SessionType, generatedHours float64) *domain.Conflict {
	target, ok := course.HoursByType[sessionType]
	if !ok || target <= 0 {
		return nil
	}
	if generatedHours == target {
		return nil
	}
	return &domain.Conflict{
		Type:     domain.ConflictVolumeInconsistency,
		Severity: domain.SeverityMedium,
		Courses:  []string{course.ID},
		Message: fmt.Sprintf("course %s: generated %.1fh of %s, expected %.1fh",
			course.Code, generatedHours, sessionType, target),
	}
}

// AuditInput bundles the lookups Audit needs to classify occurrences against
// the entities they reference.
type AuditInput struct {
	Occurrences []domain.Occurrence
	Rooms       map[string]domain.Room
	Instructors map[string]domain.Instructor
	Courses     map[string]domain.Course
	ClassSize   int
}

// Audit performs the full post-hoc check over a committed set of
// occurrences: room and instructor double-booking, instructor overload,
// equipment mismatch, room overcapacity, and missing course hours. Unlike
// CanPlace it does not assume occurrences were placed through the
// allocation index, so it re-derives conflicts by direct pairwise
// comparison the way scheduler.DetectConflicts does.
func Audit(in AuditInput) []domain.Conflict {
	conflicts := make([]domain.Conflict, 0)

	conflicts = append(conflicts, detectDoubleBookings(in.Occurrences)...)
	conflicts = append(conflicts, detectOverload(in.Occurrences, in.Instructors)...)
	conflicts = append(conflicts, detectEquipmentAndCapacity(in.Occurrences, in.Rooms, in.Courses, in.ClassSize)...)
	conflicts = append(conflicts, detectMissingHours(in.Occurrences, in.Courses)...)

	return conflicts
}

func overlaps(a, b domain.Occurrence) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func detectDoubleBookings(occurrences []domain.Occurrence) []domain.Conflict {
	conflicts := make([]domain.Conflict, 0)

	for i := 0; i < len(occurrences); i++ {
		for j := i + 1; j < len(occurrences); j++ {
			a, b := occurrences[i], occurrences[j]
			if a.Superseded() || b.Superseded() {
				continue
			}
			if !overlaps(a, b) {
				continue
			}

			if a.RoomID != "" && a.RoomID == b.RoomID {
				conflicts = append(conflicts, domain.Conflict{
					Type:     domain.ConflictRoomDoubleBooking,
					Severity: domain.SeverityCritical,
					Date:     a.ActualDate,
					Time:     a.Start.Format("15:04"),
					Resource: a.RoomID,
					Courses:  []string{a.CourseID, b.CourseID},
					Message:  fmt.Sprintf("room %s double-booked at %s", a.RoomID, a.Start.Format("15:04")),
				})
			}

			if a.InstructorID != "" && a.InstructorID == b.InstructorID {
				conflicts = append(conflicts, domain.Conflict{
					Type:     domain.ConflictInstructorDoubleBooking,
					Severity: domain.SeverityCritical,
					Date:     a.ActualDate,
					Time:     a.Start.Format("15:04"),
					Resource: a.InstructorID,
					Courses:  []string{a.CourseID, b.CourseID},
					Message:  fmt.Sprintf("instructor %s double-booked at %s", a.InstructorID, a.Start.Format("15:04")),
				})
			}
		}
	}

	return conflicts
}

func detectOverload(occurrences []domain.Occurrence, instructors map[string]domain.Instructor) []domain.Conflict {
	conflicts := make([]domain.Conflict, 0)

	type weekKey struct {
		instructorID string
		year, week   int
	}
	hours := make(map[weekKey]float64)
	for _, o := range occurrences {
		if o.Superseded() || o.InstructorID == "" {
			continue
		}
		y, w := o.ActualDate.ISOWeek()
		hours[weekKey{instructorID: o.InstructorID, year: y, week: w}] += o.Duration().Hours()
	}

	for k, total := range hours {
		instr, ok := instructors[k.instructorID]
		if !ok || instr.MaxHoursPerWeek <= 0 {
			continue
		}
		if total > instr.MaxHoursPerWeek {
			conflicts = append(conflicts, domain.Conflict{
				Type:     domain.ConflictInstructorOverload,
				Severity: domain.SeverityHigh,
				Resource: k.instructorID,
				Message:  fmt.Sprintf("instructor %s booked for %.1fh in ISO week %d-%d (limit %.1fh)", instr.DisplayName, total, k.year, k.week, instr.MaxHoursPerWeek),
			})
		}
	}

	return conflicts
}

func detectEquipmentAndCapacity(occurrences []domain.Occurrence, rooms map[string]domain.Room, courses map[string]domain.Course, classSize int) []domain.Conflict {
	conflicts := make([]domain.Conflict, 0)

	for _, o := range occurrences {
		if o.Superseded() || o.RoomID == "" {
			continue
		}
		room, ok := rooms[o.RoomID]
		if !ok {
			continue
		}
		course, ok := courses[o.CourseID]
		if !ok {
			continue
		}

		if missing := equipmentMismatch(course.Equipment, room); missing != "" {
			conflicts = append(conflicts, domain.Conflict{
				Type:     domain.ConflictEquipmentMismatch,
				Severity: domain.SeverityHigh,
				Date:     o.ActualDate,
				Time:     o.Start.Format("15:04"),
				Resource: room.Code,
				Courses:  []string{course.ID},
				Message:  fmt.Sprintf("room %s lacks required %s for course %s", room.Code, missing, course.Code),
			})
		}

		if classSize > 0 && room.Capacity < classSize {
			conflicts = append(conflicts, domain.Conflict{
				Type:     domain.ConflictRoomOvercapacity,
				Severity: domain.SeverityMedium,
				Date:     o.ActualDate,
				Time:     o.Start.Format("15:04"),
				Resource: room.Code,
				Courses:  []string{course.ID},
				Message:  fmt.Sprintf("room %s capacity %d below class size %d", room.Code, room.Capacity, classSize),
			})
		}
	}

	return conflicts
}

func equipmentMismatch(req domain.EquipmentRequirements, room domain.Room) string {
	switch {
	case req.RequiresLaboratory && !room.IsLaboratory:
		return "laboratory"
	case req.RequiresProjector && !room.HasProjector:
		return "projector"
	case req.RequiresComputer && !room.HasComputer:
		return "computer"
	default:
		return ""
	}
}

func detectMissingHours(occurrences []domain.Occurrence, courses map[string]domain.Course) []domain.Conflict {
	conflicts := make([]domain.Conflict, 0)

	generated := make(map[string]map[domain.SessionType]float64)
	for _, o := range occurrences {
		if o.Superseded() {
			continue
		}
		byType, ok := generated[o.CourseID]
		if !ok {
			byType = make(map[domain.SessionType]float64)
			generated[o.CourseID] = byType
		}
		byType[o.SessionType] += o.Duration().Hours()
	}

	for courseID, course := range courses {
		got := generated[courseID]
		for sessionType, target := range course.HoursByType {
			if target <= 0 {
				continue
			}
			// I4: a shortfall within 10% of the required hours is tolerated.
			if target-got[sessionType] <= 0.1*target {
				continue
			}
			conflicts = append(conflicts, domain.Conflict{
				Type:     domain.ConflictMissingCourseHours,
				Severity: domain.SeverityHigh,
				Courses:  []string{courseID},
				Message:  fmt.Sprintf("course %s: only %.1fh of %s generated, expected %.1fh", course.Code, got[sessionType], sessionType, target),
			})
		}
	}

	return conflicts
}

// RiskScore implements spec §4.4's weighted severity sum: critical=50,
// high=30, medium=15, low=5, capped at 100. It summarizes a schedule's
// conflict set into a single number a dashboard or gate can threshold on.
func RiskScore(conflicts []domain.Conflict) int {
	total := 0
	for _, c := range conflicts {
		switch c.Severity {
		case domain.SeverityCritical:
			total += 50
		case domain.SeverityHigh:
			total += 30
		case domain.SeverityMedium:
			total += 15
		case domain.SeverityLow:
			total += 5
		}
	}
	if total > 100 {
		total = 100
	}
	return total
}
