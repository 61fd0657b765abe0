package generator

import (
	"context"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/allocation"
	"github.com/flashcoder237/campus-timetable-engine/internal/conflict"
	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/sequencer"
)

// candidate pairs a time slot with a room and an instructor, scored for a
// specific session type.
type candidate struct {
	slot       domain.TimeSlot
	room       domain.Room
	instructor domain.Instructor
	date       time.Time
	score      float64
}

// placeCourse runs the placement loop of spec §4.5 for a single course: for
// each session it asks bestCandidate for the highest-priority-scoring
// (slot, room, instructor) triple that satisfies CanPlace and the pedagogical
// sequence rules, starting in the window's first week and moving one week
// later per failed attempt, up to maxAttemptsForFlexibility(cfg.Flexibility)
// attempts (1 rigid, 8 balanced, 20 flexible). A session type that finds no
// placement within those attempts is dropped and its hours are reported as
// leftover, even if later weeks of the window are still free. The loop ends
// when the course's remaining hours are exhausted.
func (g *Generator) placeCourse(
	ctx context.Context,
	w *courseWork,
	class domain.Class,
	rooms []domain.Room,
	instructors []domain.Instructor,
	timeSlots []domain.TimeSlot,
	idx *allocation.Index,
	cfg domain.GenerationConfig,
) ([]domain.SessionTemplate, []domain.Occurrence, map[domain.SessionType]float64) {
	var templates []domain.SessionTemplate
	var occurrences []domain.Occurrence

	history := make([]sequencer.SessionRecord, 0)
	delays := sequencer.MinDelays{CMToTD: 1, CMToTP: 2, TDToTP: 1, CMToTPE: 3}

	maxAttempts := maxAttemptsForFlexibility(cfg.Flexibility)

	for w.totalRemaining() > 0 {
		sessionType := sequencer.NextSessionType(history)
		remaining, wants := w.remaining[sessionType]
		if !wants || remaining <= 0 {
			sessionType = pickAnyRemainingType(w)
			if sessionType == "" {
				break
			}
		}

		placed := false
		for attempt := 0; attempt < maxAttempts; attempt++ {
			best, ok := g.bestCandidate(w, sessionType, class, rooms, instructors, timeSlots, idx, cfg, history, delays, attempt)
			if !ok {
				break
			}

			durationHours := best.slot.Duration().Hours()
			idx.MarkUsed(best.date, best.slot.Start, best.room.ID, best.instructor.ID, durationHours)

			templateID := g.idGenerator()
			templates = append(templates, domain.SessionTemplate{
				ID:           templateID,
				CourseID:     w.course.ID,
				RoomID:       best.room.ID,
				InstructorID: best.instructor.ID,
				TimeSlotID:   best.slot.ID,
				SessionType:  sessionType,
			})

			start := time.Date(best.date.Year(), best.date.Month(), best.date.Day(), best.slot.Start.Hour(), best.slot.Start.Minute(), 0, 0, best.date.Location())
			occ := domain.Occurrence{
				ID:           g.idGenerator(),
				TemplateID:   templateID,
				CourseID:     w.course.ID,
				SessionType:  sessionType,
				ActualDate:   best.date,
				Start:        start,
				End:          start.Add(best.slot.Duration()),
				RoomID:       best.room.ID,
				InstructorID: best.instructor.ID,
				Status:       domain.OccurrenceScheduled,
			}
			occurrences = append(occurrences, occ)
			history = append(history, sequencer.SessionRecord{Type: sessionType, Date: best.date})

			w.remaining[sessionType] -= durationHours
			placed = true
			break
		}

		if !placed {
			// Cannot place another session of this type in the window;
			// zero it out so the loop terminates rather than spinning.
			w.remaining[sessionType] = 0
		}

		if allRemainingExhausted(w) {
			break
		}
	}

	leftover := make(map[domain.SessionType]float64, len(w.remaining))
	for t, h := range w.remaining {
		if h > 0 {
			leftover[t] = h
		}
	}

	return templates, occurrences, leftover
}

func pickAnyRemainingType(w *courseWork) domain.SessionType {
	for t, h := range w.remaining {
		if h > 0 {
			return t
		}
	}
	return ""
}

func allRemainingExhausted(w *courseWork) bool {
	return w.totalRemaining() <= 0
}

func maxAttemptsForFlexibility(level domain.FlexibilityLevel) int {
	switch level {
	case domain.FlexibilityRigid:
		return 1
	case domain.FlexibilityFlexible:
		return 20
	default:
		return 8
	}
}

// bestCandidate looks for the highest-scoring placement of sessionType in a
// single week: for each active slot it examines only the first date on or
// after cfg.StartDate plus attempt weeks that falls on the slot's weekday.
// Other weeks of the window are not searched by one call; the caller moves
// forward by passing a larger attempt. The overall score
// combines the weighted placement formula of spec §4.5 Phase 3 (pedagogical
// priority, coverage of the course's remaining hours, and even distribution
// across session types) with a room-selection penalty that favors the
// closest-capacity, least-reused eligible room.
func (g *Generator) bestCandidate(
	w *courseWork,
	sessionType domain.SessionType,
	class domain.Class,
	rooms []domain.Room,
	instructors []domain.Instructor,
	timeSlots []domain.TimeSlot,
	idx *allocation.Index,
	cfg domain.GenerationConfig,
	history []sequencer.SessionRecord,
	delays sequencer.MinDelays,
	attempt int,
) (candidate, bool) {
	course := w.course
	searchStart := cfg.StartDate.AddDate(0, 0, 7*attempt)
	if searchStart.After(cfg.EndDate) {
		return candidate{}, false
	}

	eligibleRooms := make([]domain.Room, 0)
	for _, r := range rooms {
		if roomSatisfiesCourse(course, r) && r.Capacity >= class.StudentCount {
			eligibleRooms = append(eligibleRooms, r)
		}
	}

	weights := cfg.Weights
	if weights == (domain.ScoreWeights{}) {
		weights = domain.DefaultScoreWeights()
	}

	var best candidate
	found := false

	for _, slot := range timeSlots {
		if !slot.Active {
			continue
		}
		if !cfg.Weekdays[slot.Weekday] {
			continue
		}

		date := nextDateForWeekday(searchStart, slot.Weekday)
		if date.After(cfg.EndDate) {
			continue
		}

		if ok, _ := sequencer.IsValidSequence(history, date, sessionType, delays); !ok {
			continue
		}

		priorityScore := g.sequencer.PriorityScore(sessionType, slot.Start, slot.Weekday, history, date, delays)
		placementScore := weightedPlacementScore(weights, w, sessionType, history, priorityScore)

		for _, room := range eligibleRooms {
			for _, instructor := range instructors {
				if instructorUnavailable(instructor, date, slot) {
					continue
				}
				durationHours := slot.Duration().Hours()
				if ok, _ := conflict.CanPlace(idx, room, instructor, date, slot.Start, durationHours); !ok {
					continue
				}

				roomPenalty := roomSelectionPenalty(room, class.StudentCount, idx.RoomUseCount(room.ID))
				score := placementScore - roomPenalty
				if !found || score > best.score {
					best = candidate{slot: slot, room: room, instructor: instructor, date: date, score: score}
					found = true
				}
			}
		}
	}

	return best, found
}

// weightedPlacementScore implements spec §4.5 Phase 3's candidate score:
// w_ped*priorityScore + w_cov*min(coverage_bonus,30) + w_dist*min(distribution_bonus,100).
// coverage_bonus rewards courses that still have most of their hours
// unscheduled; distribution_bonus rewards session types that are
// under-represented relative to the course's other session types so far.
func weightedPlacementScore(weights domain.ScoreWeights, w *courseWork, sessionType domain.SessionType, history []sequencer.SessionRecord, priorityScore int) float64 {
	coverageBonus := 0.0
	if w.course.TotalHours > 0 {
		hoursScheduled := w.course.TotalHours - w.totalRemaining()
		coverageBonus = (1 - hoursScheduled/w.course.TotalHours) * 30
		coverageBonus = clamp(coverageBonus, 0, 30)
	}

	numTypes := len(w.course.HoursByType)
	if numTypes == 0 {
		numTypes = 1
	}
	avgSessions := float64(len(history)) / float64(numTypes)
	sessionsOfType := 0
	for _, rec := range history {
		if rec.Type == sessionType {
			sessionsOfType++
		}
	}
	distributionBonus := clamp((avgSessions-float64(sessionsOfType))*50, 0, 100)

	return weights.Pedagogical*float64(priorityScore) + weights.Coverage*coverageBonus + weights.Distribution*distributionBonus
}

// roomSelectionPenalty implements spec §4.5 Phase 3's room score:
// |capacity-student_count| + 100*prior_use_count. Lower is better; the
// caller subtracts it from the placement score so rooms sized close to the
// class and not yet overused are preferred.
func roomSelectionPenalty(room domain.Room, studentCount, priorUseCount int) float64 {
	diff := room.Capacity - studentCount
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) + 100*float64(priorUseCount)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nextDateForWeekday(from time.Time, weekday time.Weekday) time.Time {
	date := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for date.Weekday() != weekday {
		date = date.AddDate(0, 0, 1)
	}
	return date
}

func instructorUnavailable(instructor domain.Instructor, date time.Time, slot domain.TimeSlot) bool {
	for _, u := range instructor.Unavailabilities {
		if u.Weekday != nil && *u.Weekday != slot.Weekday {
			continue
		}
		if u.RangeFrom != nil && date.Before(*u.RangeFrom) {
			continue
		}
		if u.RangeTo != nil && date.After(*u.RangeTo) {
			continue
		}
		if timeOverlaps(slot.Start, slot.End, u.Start, u.End) {
			return true
		}
	}
	return false
}

func timeOverlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	at := func(t time.Time) time.Time { return time.Date(0, 1, 1, t.Hour(), t.Minute(), 0, 0, time.UTC) }
	as, ae, bs, be := at(aStart), at(aEnd), at(bStart), at(bEnd)
	return as.Before(be) && bs.Before(ae)
}
