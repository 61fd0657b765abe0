package sequencer

import (
	"testing"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
)

func at(hh, mm int) time.Time { return time.Date(2025, 9, 1, hh, mm, 0, 0, time.UTC) }

func TestTimeScore_PreferredBand(t *testing.T) {
	s := New()
	if got := s.TimeScore(domain.SessionCM, at(8, 0)); got != 100 {
		t.Errorf("TimeScore(CM, 08:00) = %d, want 100", got)
	}
}

func TestTimeScore_AvoidBand(t *testing.T) {
	s := New()
	if got := s.TimeScore(domain.SessionCM, at(15, 0)); got != 10 {
		t.Errorf("TimeScore(CM, 15:00) = %d, want 10", got)
	}
}

func TestTimeScore_IsCachedAndDeterministic(t *testing.T) {
	s := New()
	first := s.TimeScore(domain.SessionTP, at(14, 30))
	second := s.TimeScore(domain.SessionTP, at(14, 30))
	if first != second {
		t.Errorf("TimeScore not deterministic across calls: %d vs %d", first, second)
	}
}

func TestDayScore_PreferredAndPenalized(t *testing.T) {
	s := New()
	if got := s.DayScore(domain.SessionCM, time.Monday); got != 100 {
		t.Errorf("DayScore(CM, Monday) = %d, want 100", got)
	}
	if got := s.DayScore(domain.SessionCM, time.Friday); got != 20 {
		t.Errorf("DayScore(CM, Friday) = %d, want 20", got)
	}
}

func TestNextSessionType_StartsWithCM(t *testing.T) {
	if got := NextSessionType(nil); got != domain.SessionCM {
		t.Errorf("NextSessionType(empty) = %s, want CM", got)
	}
}

func TestNextSessionType_RequiresCMBeforeTD(t *testing.T) {
	history := []SessionRecord{{Type: domain.SessionCM, Date: at(0, 0)}}
	if got := NextSessionType(history); got != domain.SessionTD {
		t.Errorf("NextSessionType([CM]) = %s, want TD", got)
	}
}

func TestNextSessionType_RequiresTDBeforeTP(t *testing.T) {
	history := []SessionRecord{
		{Type: domain.SessionCM, Date: at(0, 0)},
		{Type: domain.SessionTD, Date: at(0, 0)},
	}
	if got := NextSessionType(history); got != domain.SessionTP {
		t.Errorf("NextSessionType([CM,TD]) = %s, want TP", got)
	}
}

func TestIsValidSequence_RejectsTDTooSoonAfterCM(t *testing.T) {
	cmDate := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	history := []SessionRecord{{Type: domain.SessionCM, Date: cmDate}}
	delays := DefaultMinDelays()

	ok, reason := IsValidSequence(history, cmDate, domain.SessionTD, delays)
	if ok {
		t.Fatal("expected TD on the same day as CM to be invalid")
	}
	if reason == "" {
		t.Error("expected a non-empty rejection reason")
	}

	later := cmDate.AddDate(0, 0, delays.CMToTD)
	ok, _ = IsValidSequence(history, later, domain.SessionTD, delays)
	if !ok {
		t.Error("expected TD at the minimum delay to be valid")
	}
}

func TestIsValidSequence_CMAlwaysValid(t *testing.T) {
	ok, _ := IsValidSequence(nil, time.Now(), domain.SessionCM, DefaultMinDelays())
	if !ok {
		t.Error("CM should always be a valid first placement")
	}
}

func TestPriorityScore_IsWithinExpectedRange(t *testing.T) {
	s := New()
	cmDate := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	history := []SessionRecord{{Type: domain.SessionCM, Date: cmDate}}
	proposed := cmDate.AddDate(0, 0, 1)

	score := s.PriorityScore(domain.SessionTD, at(11, 0), time.Tuesday, history, proposed, DefaultMinDelays())
	if score < 0 || score > 300 {
		t.Errorf("PriorityScore = %d, out of expected 0..300 range", score)
	}
}
