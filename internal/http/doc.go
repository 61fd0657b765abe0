// Package http exposes the timetabling engine's six operations over HTTP.
//
// The router recognizes the following endpoints:
//   - POST /classes/{class_id}/generate: runs the generator against the
//     class's course requirements. Body: a generationConfigRequest. Response:
//     a generationResultDTO (success, message, occurrences_created,
//     conflicts_detected, conflicts, elapsed_seconds).
//   - GET /schedules/{schedule_id}/evaluate: scores a committed schedule.
//     Response: a scoreReportDTO.
//   - GET /schedules/{schedule_id}/conflicts: runs a full post-hoc conflict
//     audit over a committed schedule. Response: a conflictsResponseDTO
//     (conflicts, a list of conflictDTO, and risk_score).
//   - POST /occurrences/{occurrence_id}/cancel: marks an occurrence
//     cancelled. Body: a cancelRequest ({"reason"}). Response: the updated
//     occurrenceDTO.
//   - POST /occurrences/{occurrence_id}/reschedule: marks the occurrence
//     rescheduled and creates a replacement occurrence at the new slot.
//     Body: a rescheduleRequest. Response: the new occurrenceDTO.
//   - PATCH /occurrences/{occurrence_id}: applies an in-place modification
//     (room, instructor, start/end). Body: a modifyRequest. Response: the
//     updated occurrenceDTO.
//
// Request/response DTOs live alongside their handler in engine_handler.go so
// tests and documentation share the same ground truth.
package http
