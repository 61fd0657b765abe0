// Package sequencer implements the pedagogical sequencer of spec §4.1: four
// pure, deterministic scoring/validation functions over session types and
// proposed placements. TimeScore and DayScore are memoised by argument tuple;
// NextSessionType, IsValidSequence and the delay part of PriorityScore are
// computed on every call.
package sequencer

import (
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

const cacheSize = 4096

// SessionRecord is the minimal summary of one already-placed session that
// the sequencer needs: its type and the date it was placed on.
type SessionRecord struct {
	Type domain.SessionType
	Date time.Time
}

// Sequencer caches the pure functions of spec §4.1 behind bounded LRUs keyed
// on the argument tuple, mirroring the teacher's preference for an
// in-process cache (application.warningCache) over recomputation, sized for
// the much larger key space that (type, time-of-day) scoring produces.
type Sequencer struct {
	timeScoreCache *lru.Cache[timeScoreKey, int]
	dayScoreCache  *lru.Cache[dayScoreKey, int]
}

// New constructs a Sequencer with bounded LRU caches for each pure function.
// PriorityScore's delay component depends on a per-course history slice and
// is therefore computed directly rather than cached.
func New() *Sequencer {
	ts, _ := lru.New[timeScoreKey, int](cacheSize)
	ds, _ := lru.New[dayScoreKey, int](cacheSize)
	return &Sequencer{timeScoreCache: ts, dayScoreCache: ds}
}

type timeScoreKey struct {
	sessionType domain.SessionType
	hour        int
	minute      int
}

type dayScoreKey struct {
	sessionType domain.SessionType
	weekday     time.Weekday
}

type timeBand struct {
	start time.Time
	end   time.Time
}

func band(startHH, startMM, endHH, endMM int) timeBand {
	return timeBand{
		start: time.Date(0, 1, 1, startHH, startMM, 0, 0, time.UTC),
		end:   time.Date(0, 1, 1, endHH, endMM, 0, 0, time.UTC),
	}
}

func (b timeBand) contains(t time.Time) bool {
	tod := time.Date(0, 1, 1, t.Hour(), t.Minute(), 0, 0, time.UTC)
	return !tod.Before(b.start) && tod.Before(b.end)
}

// preferred/acceptable/avoid bands per session type, spec §4.1.
var preferredBands = map[domain.SessionType][]timeBand{
	domain.SessionCM:  {band(8, 0, 9, 0), band(10, 15, 11, 15)},
	domain.SessionTD:  {band(10, 15, 14, 0)},
	domain.SessionTP:  {band(14, 0, 16, 0)},
	domain.SessionTPE: {band(14, 0, 16, 0)},
}

var acceptableBands = map[domain.SessionType][]timeBand{
	domain.SessionTD: {band(8, 0, 10, 15), band(14, 0, 16, 0)},
}

var avoidBands = map[domain.SessionType][]timeBand{
	domain.SessionCM:  {band(14, 0, 18, 0)},
	domain.SessionTP:  {band(8, 0, 9, 0)},
	domain.SessionTPE: {band(8, 0, 9, 0)},
}

// TimeScore returns 0..100 for how well sessionType fits starting at start,
// per the static preferred(100)/acceptable(60)/avoid(10)/unlisted(40) table
// of spec §4.1.
func (s *Sequencer) TimeScore(sessionType domain.SessionType, start time.Time) int {
	key := timeScoreKey{sessionType: sessionType, hour: start.Hour(), minute: start.Minute()}
	if v, ok := s.timeScoreCache.Get(key); ok {
		return v
	}
	score := computeTimeScore(sessionType, start)
	s.timeScoreCache.Add(key, score)
	return score
}

func computeTimeScore(sessionType domain.SessionType, start time.Time) int {
	for _, b := range preferredBands[sessionType] {
		if b.contains(start) {
			return 100
		}
	}
	for _, b := range avoidBands[sessionType] {
		if b.contains(start) {
			return 10
		}
	}
	for _, b := range acceptableBands[sessionType] {
		if b.contains(start) {
			return 60
		}
	}
	return 40
}

var dayPreferred = map[domain.SessionType]map[time.Weekday]bool{
	domain.SessionCM:  {time.Monday: true, time.Tuesday: true},
	domain.SessionTD:  {time.Tuesday: true, time.Wednesday: true},
	domain.SessionTP:  {time.Wednesday: true, time.Thursday: true},
	domain.SessionTPE: {time.Thursday: true, time.Friday: true},
}

var dayPenalized = map[domain.SessionType]map[time.Weekday]bool{
	domain.SessionCM: {time.Friday: true},
}

// DayScore returns 0..100 for how well sessionType fits on weekday, per
// spec §4.1: CM favours Mon/Tue (100), penalises Friday (20); TD favours
// Tue/Wed; TP favours Wed/Thu; TPE favours Thu/Fri.
func (s *Sequencer) DayScore(sessionType domain.SessionType, weekday time.Weekday) int {
	key := dayScoreKey{sessionType: sessionType, weekday: weekday}
	if v, ok := s.dayScoreCache.Get(key); ok {
		return v
	}
	score := computeDayScore(sessionType, weekday)
	s.dayScoreCache.Add(key, score)
	return score
}

func computeDayScore(sessionType domain.SessionType, weekday time.Weekday) int {
	if dayPreferred[sessionType][weekday] {
		return 100
	}
	if dayPenalized[sessionType][weekday] {
		return 20
	}
	return 60
}

// typeCounts tallies how many sessions of each type already exist.
func typeCounts(history []SessionRecord) map[domain.SessionType]int {
	counts := make(map[domain.SessionType]int, 4)
	for _, h := range history {
		counts[h.Type]++
	}
	return counts
}

// targetRatio is the CM:TD:TP:TPE = 2:3:3:2 target share from spec §4.1.
var targetRatio = map[domain.SessionType]float64{
	domain.SessionCM:  2,
	domain.SessionTD:  3,
	domain.SessionTP:  3,
	domain.SessionTPE: 2,
}

// NextSessionType follows the rule cascade of spec §4.1. It is pure over its
// inputs and therefore not cached (the history slice is not a stable cache
// key without copying it, and the computation itself is O(len(history))).
func NextSessionType(history []SessionRecord) domain.SessionType {
	counts := typeCounts(history)
	if counts[domain.SessionCM] == 0 {
		return domain.SessionCM
	}
	if counts[domain.SessionCM] >= 1 && counts[domain.SessionTD] == 0 {
		return domain.SessionTD
	}
	if counts[domain.SessionTD] >= 1 && counts[domain.SessionTP] == 0 {
		return domain.SessionTP
	}

	total := 0
	for _, t := range domain.SessionTypes {
		total += counts[t]
	}
	if total == 0 {
		return domain.SessionCM
	}

	var worst domain.SessionType
	worstDeviation := -1.0
	ratioSum := 0.0
	for _, r := range targetRatio {
		ratioSum += r
	}
	for _, t := range domain.SessionTypes {
		targetShare := targetRatio[t] / ratioSum
		currentShare := float64(counts[t]) / float64(total)
		deviation := targetShare - currentShare
		if deviation > worstDeviation {
			worstDeviation = deviation
			worst = t
		}
	}
	return worst
}

// MinDelays are the minimum inter-session delays of invariant I6, in days.
type MinDelays struct {
	CMToTD  int
	CMToTP  int
	TDToTP  int
	CMToTPE int
}

// DefaultMinDelays mirrors the spec's documented values.
func DefaultMinDelays() MinDelays {
	return MinDelays{CMToTD: 1, CMToTP: 2, TDToTP: 1, CMToTPE: 3}
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func firstOf(history []SessionRecord, t domain.SessionType) (time.Time, bool) {
	for _, h := range history {
		if h.Type == t {
			return h.Date, true
		}
	}
	return time.Time{}, false
}

// IsValidSequence enforces only the minimum delays of invariant I6; it does
// not enforce maximums (those are left to scoring via PriorityScore).
func IsValidSequence(history []SessionRecord, proposedDate time.Time, proposedType domain.SessionType, delays MinDelays) (bool, string) {
	firstCM, hasCM := firstOf(history, domain.SessionCM)
	firstTD, hasTD := firstOf(history, domain.SessionTD)

	switch proposedType {
	case domain.SessionCM:
		return true, ""
	case domain.SessionTD:
		if !hasCM {
			return true, ""
		}
		if d := daysBetween(firstCM, proposedDate); d < delays.CMToTD {
			return false, "TD must occur at least the configured delay after the first CM"
		}
		return true, ""
	case domain.SessionTP:
		if hasCM {
			if d := daysBetween(firstCM, proposedDate); d < delays.CMToTP {
				return false, "TP must occur at least the configured delay after the first CM"
			}
		}
		if hasTD {
			if d := daysBetween(firstTD, proposedDate); d < delays.TDToTP {
				return false, "TP must occur at least the configured delay after the first TD"
			}
		}
		return true, ""
	case domain.SessionTPE:
		if hasCM {
			if d := daysBetween(firstCM, proposedDate); d < delays.CMToTPE {
				return false, "TPE must occur at least the configured delay after the first CM"
			}
		}
		return true, ""
	default:
		return false, "unknown session type"
	}
}

// delayScore is 100 inside the optimal delay window, decaying linearly by 10
// points per day outside, floored at 30.
func delayScore(history []SessionRecord, proposedDate time.Time, proposedType domain.SessionType, delays MinDelays) int {
	var anchor time.Time
	var hasAnchor bool
	var optimal int

	switch proposedType {
	case domain.SessionTD:
		anchor, hasAnchor = firstOf(history, domain.SessionCM)
		optimal = delays.CMToTD
	case domain.SessionTP:
		if a, ok := firstOf(history, domain.SessionTD); ok {
			anchor, hasAnchor, optimal = a, true, delays.TDToTP
		} else if a, ok := firstOf(history, domain.SessionCM); ok {
			anchor, hasAnchor, optimal = a, true, delays.CMToTP
		}
	case domain.SessionTPE:
		anchor, hasAnchor = firstOf(history, domain.SessionCM)
		optimal = delays.CMToTPE
	}

	if !hasAnchor {
		return 100
	}

	d := daysBetween(anchor, proposedDate)
	diff := d - optimal
	if diff < 0 {
		diff = -diff
	}
	score := 100 - diff*10
	if score < 30 {
		score = 30
	}
	return score
}

// PriorityScore sums timeScore + dayScore + delayScore for a candidate
// placement, per spec §4.1.
func (s *Sequencer) PriorityScore(sessionType domain.SessionType, start time.Time, weekday time.Weekday, history []SessionRecord, proposedDate time.Time, delays MinDelays) int {
	return s.TimeScore(sessionType, start) + s.DayScore(sessionType, weekday) + delayScore(history, proposedDate, sessionType, delays)
}
