package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/flashcoder237/campus-timetable-engine/internal/apperrors"
	"github.com/flashcoder237/campus-timetable-engine/internal/conflict"
	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/evaluator"
	"github.com/flashcoder237/campus-timetable-engine/internal/generator"
	"github.com/flashcoder237/campus-timetable-engine/internal/occurrences"
	"github.com/flashcoder237/campus-timetable-engine/internal/store"
)

// requestValidator runs struct-tag validation on decoded request bodies, the
// way noah-isme-sma-adp-api's handlers validate DTOs before touching a
// service. A single *validator.Validate is safe for concurrent use, so one
// instance is shared across every handler on the struct.
var requestValidator = validator.New()

// generatorService is the subset of *generator.Generator the HTTP layer needs.
type generatorService interface {
	Generate(ctx context.Context, classID string, cfg domain.GenerationConfig) (generator.Result, error)
}

// occurrenceService is the subset of *occurrences.Manager the HTTP layer needs.
type occurrenceService interface {
	Cancel(ctx context.Context, occurrenceID, reason string) (domain.Occurrence, error)
	Reschedule(ctx context.Context, occurrenceID string, newDate, newStart, newEnd time.Time, newRoomID, newInstructorID *string) (domain.Occurrence, error)
	Modify(ctx context.Context, occurrenceID string, mod occurrences.Modification) (domain.Occurrence, error)
}

// EngineHandler exposes the six external operations of spec §6 over HTTP:
// generate, evaluate, detectConflicts, cancelOccurrence, rescheduleOccurrence
// and modifyOccurrence. It follows the teacher's service-interface-plus-
// Handler-struct shape (schedule_handler.ScheduleHandler) generalized to the
// timetabling domain's read stores, needed to assemble evaluator.Input and
// conflict.AuditInput from a bare schedule id.
type EngineHandler struct {
	generate    generatorService
	evaluate    *evaluator.Evaluator
	occurrences occurrenceService

	schedules       store.ScheduleStore
	occurrenceStore store.OccurrenceStore
	rooms           store.RoomStore
	instructors     store.InstructorStore
	courses         store.CourseStore
	classes         store.ClassStore

	responder responder
}

// NewEngineHandler wires dependencies for the engine endpoints.
func NewEngineHandler(
	gen generatorService,
	eval *evaluator.Evaluator,
	occ occurrenceService,
	schedules store.ScheduleStore,
	occurrenceStore store.OccurrenceStore,
	rooms store.RoomStore,
	instructors store.InstructorStore,
	courses store.CourseStore,
	classes store.ClassStore,
) *EngineHandler {
	return &EngineHandler{
		generate:        gen,
		evaluate:        eval,
		occurrences:     occ,
		schedules:       schedules,
		occurrenceStore: occurrenceStore,
		rooms:           rooms,
		instructors:     instructors,
		courses:         courses,
		classes:         classes,
		responder:       newResponder(nil),
	}
}

// Generate handles POST /classes/{class_id}/generate.
func (h *EngineHandler) Generate(w http.ResponseWriter, r *http.Request) {
	classID, ok := ClassIDFromContext(r.Context())
	if !ok || strings.TrimSpace(classID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("missing class id"))
		return
	}

	var req generationConfigRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
			return
		}
	}
	if err := requestValidator.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, validationToPrecondition(err))
		return
	}

	start := time.Now()
	result, err := h.generate.Generate(r.Context(), classID, req.toConfig())
	elapsed := time.Since(start)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toGenerationResultDTO(result, elapsed))
}

// Evaluate handles GET /schedules/{schedule_id}/evaluate.
func (h *EngineHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("missing schedule id"))
		return
	}

	in, err := h.loadEvaluationInput(r.Context(), scheduleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	report := h.evaluate.Evaluate(in)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toScoreReportDTO(report))
}

// DetectConflicts handles GET /schedules/{schedule_id}/conflicts.
func (h *EngineHandler) DetectConflicts(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("missing schedule id"))
		return
	}

	in, err := h.loadEvaluationInput(r.Context(), scheduleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	conflicts := conflict.Audit(conflict.AuditInput{
		Occurrences: in.Occurrences,
		Rooms:       in.Rooms,
		Instructors: in.Instructors,
		Courses:     in.Courses,
		ClassSize:   in.ClassSize,
	})
	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictsResponseDTO{
		Conflicts: toConflictDTOs(conflicts),
		RiskScore: conflict.RiskScore(conflicts),
	})
}

type conflictsResponseDTO struct {
	Conflicts []conflictDTO `json:"conflicts"`
	RiskScore int           `json:"risk_score"`
}

// Cancel handles POST /occurrences/{occurrence_id}/cancel.
func (h *EngineHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	occID, ok := OccurrenceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(occID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("missing occurrence id"))
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	occ, err := h.occurrences.Cancel(r.Context(), occID, req.Reason)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toOccurrenceDTO(occ))
}

// Reschedule handles POST /occurrences/{occurrence_id}/reschedule.
func (h *EngineHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	occID, ok := OccurrenceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(occID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("missing occurrence id"))
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	newDate, err := time.Parse(time.RFC3339, req.NewDate)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid new_date"))
		return
	}
	newStart, err := time.Parse(time.RFC3339, req.NewStart)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid new_start"))
		return
	}
	newEnd, err := time.Parse(time.RFC3339, req.NewEnd)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid new_end"))
		return
	}

	occ, err := h.occurrences.Reschedule(r.Context(), occID, newDate, newStart, newEnd, req.NewRoom, req.NewInstructor)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toOccurrenceDTO(occ))
}

// Modify handles PATCH /occurrences/{occurrence_id}.
func (h *EngineHandler) Modify(w http.ResponseWriter, r *http.Request) {
	occID, ok := OccurrenceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(occID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("missing occurrence id"))
		return
	}

	var req modifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	mod := occurrences.Modification{RoomID: req.Room, InstructorID: req.Instructor}
	if req.Start != "" {
		ts, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid start"))
			return
		}
		mod.Start = &ts
	}
	if req.End != "" {
		ts, err := time.Parse(time.RFC3339, req.End)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid end"))
			return
		}
		mod.End = &ts
	}
	if req.Notes != "" {
		h.responder.loggerFor(r.Context()).InfoContext(r.Context(), "occurrence modification note", "occurrence_id", occID, "note", req.Notes)
	}

	occ, err := h.occurrences.Modify(r.Context(), occID, mod)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toOccurrenceDTO(occ))
}

// loadEvaluationInput assembles an evaluator.Input (and the data
// conflict.Audit also needs) for a committed schedule, the way
// schedule_service's internal grouping helpers gather period data before
// building a response.
func (h *EngineHandler) loadEvaluationInput(ctx context.Context, scheduleID string) (evaluator.Input, error) {
	schedule, err := h.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return evaluator.Input{}, fmt.Errorf("%w: loading schedule %s: %v", apperrors.ErrNotFound, scheduleID, err)
	}
	class, err := h.classes.GetClass(ctx, schedule.ClassID)
	if err != nil {
		return evaluator.Input{}, fmt.Errorf("%w: loading class %s: %v", apperrors.ErrNotFound, schedule.ClassID, err)
	}
	occs, err := h.occurrenceStore.ListOccurrencesForSchedule(ctx, scheduleID)
	if err != nil {
		return evaluator.Input{}, fmt.Errorf("loading occurrences: %w", err)
	}
	rooms, err := h.rooms.ListRooms(ctx)
	if err != nil {
		return evaluator.Input{}, fmt.Errorf("loading rooms: %w", err)
	}
	instructors, err := h.instructors.ListInstructors(ctx)
	if err != nil {
		return evaluator.Input{}, fmt.Errorf("loading instructors: %w", err)
	}
	courses, err := h.courses.ListCoursesForClass(ctx, schedule.ClassID)
	if err != nil {
		return evaluator.Input{}, fmt.Errorf("loading courses: %w", err)
	}

	roomByID := make(map[string]domain.Room, len(rooms))
	for _, r := range rooms {
		roomByID[r.ID] = r
	}
	instructorByID := make(map[string]domain.Instructor, len(instructors))
	for _, i := range instructors {
		instructorByID[i.ID] = i
	}
	courseByID := make(map[string]domain.Course, len(courses))
	for _, c := range courses {
		courseByID[c.ID] = c
	}

	return evaluator.Input{
		Occurrences: occs,
		Rooms:       roomByID,
		Instructors: instructorByID,
		Courses:     courseByID,
		ClassSize:   class.StudentCount,
	}, nil
}

type generationConfigRequest struct {
	StartDate                    string   `json:"start_date" validate:"required"`
	EndDate                      string   `json:"end_date" validate:"required"`
	Recurrence                   string   `json:"recurrence" validate:"omitempty,oneof=weekly biweekly monthly"`
	Flexibility                  string   `json:"flexibility" validate:"omitempty,oneof=rigid balanced flexible"`
	AllowConflicts               bool     `json:"allow_conflicts"`
	MaxSessionsPerDay            int      `json:"max_sessions_per_day" validate:"omitempty,min=1,max=12"`
	RespectRoomPreferences       bool     `json:"respect_room_preferences"`
	RespectInstructorPreferences bool     `json:"respect_instructor_preferences"`
	ExcludedDates                []string `json:"excluded_dates"`
	PreviewMode                  bool     `json:"preview_mode"`
	ForceRegenerate              bool     `json:"force_regenerate"`
	PreserveModifications        bool     `json:"preserve_modifications"`
}

// validationToPrecondition translates validator.ValidationErrors into the
// PreconditionError shape the responder already knows how to map to a 4xx,
// so a bad request body and a bad business-rule precondition render the same
// way to the client.
func validationToPrecondition(err error) error {
	perr := &apperrors.PreconditionError{}
	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) {
		perr.Add("request", err.Error())
		return perr
	}
	for _, fe := range verrs {
		perr.Add(fe.Field(), fmt.Sprintf("failed %s validation", fe.Tag()))
	}
	return perr
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*target = verrs
	return true
}

func (r generationConfigRequest) toConfig() domain.GenerationConfig {
	cfg := domain.DefaultGenerationConfig()
	if ts, err := time.Parse(time.RFC3339, r.StartDate); err == nil {
		cfg.StartDate = ts
	}
	if ts, err := time.Parse(time.RFC3339, r.EndDate); err == nil {
		cfg.EndDate = ts
	}
	if r.Recurrence != "" {
		cfg.Recurrence = domain.RecurrencePolicy(r.Recurrence)
	}
	if r.Flexibility != "" {
		cfg.Flexibility = domain.FlexibilityLevel(r.Flexibility)
	}
	cfg.AllowConflicts = r.AllowConflicts
	if r.MaxSessionsPerDay > 0 {
		cfg.MaxSessionsPerDay = r.MaxSessionsPerDay
	}
	cfg.RespectRoomPreferences = r.RespectRoomPreferences
	cfg.RespectInstructorPreferences = r.RespectInstructorPreferences
	for _, d := range r.ExcludedDates {
		if ts, err := time.Parse(time.RFC3339, d); err == nil {
			cfg.ExcludedDates = append(cfg.ExcludedDates, ts)
		}
	}
	cfg.PreviewMode = r.PreviewMode
	cfg.ForceRegenerate = r.ForceRegenerate
	cfg.PreserveModifications = r.PreserveModifications
	return cfg
}

type generationResultDTO struct {
	Success            bool          `json:"success"`
	Message            string        `json:"message"`
	OccurrencesCreated  int           `json:"occurrences_created"`
	ConflictsDetected   int           `json:"conflicts_detected"`
	Conflicts           []conflictDTO `json:"conflicts"`
	RiskScore           int           `json:"risk_score"`
	ElapsedSeconds      float64       `json:"elapsed_seconds"`
	ScheduleID          string        `json:"schedule_id,omitempty"`
}

func toGenerationResultDTO(result generator.Result, elapsed time.Duration) generationResultDTO {
	hardConflicts := 0
	for _, c := range result.Conflicts {
		if c.IsCritical() {
			hardConflicts++
		}
	}
	message := "generation completed"
	if len(result.Unplaced) > 0 {
		message = fmt.Sprintf("generation completed with %d unplaced requirement(s)", len(result.Unplaced))
	}
	return generationResultDTO{
		Success:            hardConflicts == 0 && len(result.Unplaced) == 0,
		Message:            message,
		OccurrencesCreated: len(result.Schedule.Templates),
		ConflictsDetected:  len(result.Conflicts),
		Conflicts:          toConflictDTOs(result.Conflicts),
		RiskScore:          conflict.RiskScore(result.Conflicts),
		ElapsedSeconds:     elapsed.Seconds(),
		ScheduleID:         result.Schedule.ID,
	}
}

type conflictDTO struct {
	Type     string   `json:"type"`
	Severity string   `json:"severity"`
	Date     string   `json:"date,omitempty"`
	Time     string   `json:"time,omitempty"`
	Resource string   `json:"resource,omitempty"`
	Courses  []string `json:"courses,omitempty"`
	Message  string   `json:"message"`
}

func toConflictDTOs(conflicts []domain.Conflict) []conflictDTO {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		dto := conflictDTO{
			Type:     string(c.Type),
			Severity: string(c.Severity),
			Time:     c.Time,
			Resource: c.Resource,
			Courses:  c.Courses,
			Message:  c.Message,
		}
		if !c.Date.IsZero() {
			dto.Date = c.Date.Format("2006-01-02")
		}
		out = append(out, dto)
	}
	return out
}

type scoreReportDTO struct {
	GlobalScore            float64 `json:"global_score"`
	Grade                  string  `json:"grade"`
	HardViolations         int     `json:"hard_violations"`
	RoomConflicts          int     `json:"room_conflicts"`
	InstructorConflicts    int     `json:"instructor_conflicts"`
	MissingCourseHours     int     `json:"missing_course_hours"`
	PedagogicalQuality     float64 `json:"pedagogical_quality"`
	InstructorSatisfaction float64 `json:"instructor_satisfaction"`
	RoomUtilisation        float64 `json:"room_utilisation"`
	StudentLoadBalance     float64 `json:"student_load_balance"`
	InstructorLoadBalance  float64 `json:"instructor_load_balance"`
}

func toScoreReportDTO(report evaluator.ScoreReport) scoreReportDTO {
	return scoreReportDTO{
		GlobalScore:            report.GlobalScore,
		Grade:                  string(report.Grade),
		HardViolations:         report.HardViolations,
		RoomConflicts:          report.RoomConflicts,
		InstructorConflicts:    report.InstructorConflicts,
		MissingCourseHours:     report.MissingCourseHours,
		PedagogicalQuality:     report.PedagogicalQuality,
		InstructorSatisfaction: report.InstructorSatisfaction,
		RoomUtilisation:        report.RoomUtilisation,
		StudentLoadBalance:     report.StudentLoadBalance,
		InstructorLoadBalance:  report.InstructorLoadBalance,
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type rescheduleRequest struct {
	NewDate       string  `json:"new_date"`
	NewStart      string  `json:"new_start"`
	NewEnd        string  `json:"new_end"`
	NewRoom       *string `json:"new_room,omitempty"`
	NewInstructor *string `json:"new_instructor,omitempty"`
}

type modifyRequest struct {
	Room       *string `json:"room,omitempty"`
	Instructor *string `json:"instructor,omitempty"`
	Start      string  `json:"start,omitempty"`
	End        string  `json:"end,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

type occurrenceDTO struct {
	ID              string              `json:"id"`
	TemplateID      string              `json:"template_id"`
	CourseID        string              `json:"course_id"`
	SessionType     string              `json:"session_type"`
	ActualDate      string              `json:"actual_date"`
	Start           string              `json:"start"`
	End             string              `json:"end"`
	RoomID          string              `json:"room_id"`
	InstructorID    string              `json:"instructor_id"`
	Status          string              `json:"status"`
	Modifications   modificationFlagsDTO `json:"modifications"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	RescheduledFrom *string             `json:"rescheduled_from,omitempty"`
}

type modificationFlagsDTO struct {
	RoomModified       bool `json:"room_modified"`
	InstructorModified bool `json:"instructor_modified"`
	TimeModified       bool `json:"time_modified"`
	Cancelled          bool `json:"cancelled"`
}

func toOccurrenceDTO(occ domain.Occurrence) occurrenceDTO {
	return occurrenceDTO{
		ID:           occ.ID,
		TemplateID:   occ.TemplateID,
		CourseID:     occ.CourseID,
		SessionType:  string(occ.SessionType),
		ActualDate:   occ.ActualDate.Format(time.RFC3339),
		Start:        occ.Start.Format(time.RFC3339),
		End:          occ.End.Format(time.RFC3339),
		RoomID:       occ.RoomID,
		InstructorID: occ.InstructorID,
		Status:       string(occ.Status),
		Modifications: modificationFlagsDTO{
			RoomModified:       occ.Modifications.RoomModified,
			InstructorModified: occ.Modifications.InstructorModified,
			TimeModified:       occ.Modifications.TimeModified,
			Cancelled:          occ.Modifications.Cancelled,
		},
		CancelReason:    occ.CancelReason,
		RescheduledFrom: occ.RescheduledFrom,
	}
}
