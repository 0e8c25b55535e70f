// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClientMeta carries client network metadata into the sync log.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// ProcessUpload handles a batch of client-local forms. Each form is processed
// in its own transaction: a failure rolls back only that form's work and the
// batch continues. Replays of an already-committed (user, device, tempId) are
// short-circuited through the identity mapper and return the recorded server
// id, so retry after an unknown outcome is safe.
func (s *SyncService) ProcessUpload(ctx context.Context, userID string, req *UploadRequest, meta ClientMeta) (*UploadResponse, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if err := validateUploadRequest(req); err != nil {
		return nil, err
	}

	s.logger.Info("Processing upload batch",
		"user_id", userID, "device_id", req.DeviceID, "forms", len(req.Forms))

	response := &UploadResponse{
		Total:   len(req.Forms),
		Results: make([]FormUploadStatus, 0, len(req.Forms)),
	}

	for i := range req.Forms {
		status := s.processFormUpload(ctx, userID, req.DeviceID, &req.Forms[i], meta)
		if status.Status == StFormSuccess {
			response.SuccessCount++
			response.TotalVisits += status.VisitCount
		} else {
			response.FailureCount++
		}
		response.Results = append(response.Results, status)
	}

	s.logger.Info("Upload batch processed",
		"user_id", userID, "device_id", req.DeviceID,
		"success", response.SuccessCount, "failed", response.FailureCount,
		"visits", response.TotalVisits)

	return response, nil
}

// processFormUpload runs one form end to end: semantic validation, the
// idempotency gate, then the transactional insert with one retry for
// transient transaction errors.
func (s *SyncService) processFormUpload(ctx context.Context, userID, deviceID string, form *FormUpload, meta ClientMeta) FormUploadStatus {
	if err := validateFormUpload(form); err != nil {
		reason := ReasonBadPayload
		if errors.Is(err, ErrDuplicateVisit) {
			reason = ReasonDuplicateVisit
		}
		s.logger.Warn("Form upload validation failed",
			"user_id", userID, "device_id", deviceID, "temp_id", form.TempID, "error", err)
		s.logFormOutcome(ctx, userID, deviceID, form.TempID, nil, err, meta)
		return statusFormError(form.TempID, reason, err)
	}

	// Idempotency gate: a prior successful upload of this key means the form
	// already exists; return its identity without touching the store.
	if formID, ok, err := s.identity.Lookup(ctx, userID, deviceID, form.TempID); err != nil {
		s.logFormOutcome(ctx, userID, deviceID, form.TempID, nil, err, meta)
		return statusFormError(form.TempID, ReasonInternalError, err)
	} else if ok {
		visitCount, countErr := s.countVisits(ctx, formID)
		if countErr != nil {
			return statusFormError(form.TempID, ReasonInternalError, countErr)
		}
		s.logger.Info("Form upload short-circuited by idempotency gate",
			"user_id", userID, "device_id", deviceID, "temp_id", form.TempID, "form_id", formID)
		return statusFormAlreadySynced(form.TempID, formID, visitCount)
	}

	status, err := s.uploadFormTx(ctx, userID, deviceID, form, meta)
	if err != nil && isRetryablePGTxError(err) {
		if sleepErr := sleepWithContext(ctx, 50*time.Millisecond); sleepErr == nil {
			status, err = s.uploadFormTx(ctx, userID, deviceID, form, meta)
		}
	}
	if err != nil {
		// A concurrent replay of the same tempId committed first: the gate
		// index rejected our success log row. Resolve to the winner.
		if isUniqueViolation(err, "sl_upload_gate_idx") {
			if formID, ok, lookErr := s.identity.Lookup(ctx, userID, deviceID, form.TempID); lookErr == nil && ok {
				visitCount, _ := s.countVisits(ctx, formID)
				return statusFormAlreadySynced(form.TempID, formID, visitCount)
			}
		}

		reason := ReasonStoreError
		if isUniqueViolation(err, "") {
			reason = ReasonDuplicateVisit
		}
		s.logger.Error("Form upload transaction failed",
			"user_id", userID, "device_id", deviceID, "temp_id", form.TempID, "error", err)
		s.logFormOutcome(ctx, userID, deviceID, form.TempID, nil, err, meta)
		return statusFormError(form.TempID, reason, err)
	}

	return status
}

// uploadFormTx writes one form aggregate atomically: the form row, the staff
// training row if present, every visit and its section rows, and finally the
// success log row that arms the idempotency gate. Write order matters: later
// rows reference earlier rows' generated ids.
func (s *SyncService) uploadFormTx(ctx context.Context, userID, deviceID string, form *FormUpload, meta ClientMeta) (FormUploadStatus, error) {
	formID := uuid.New()
	visitCount := 0

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO supervision_forms (id, user_id, health_facility_name, province, district, sync_status)
			VALUES (@id, @user_id, @health_facility_name, @province, @district, @sync_status)`,
			pgx.NamedArgs{
				"id":                   formID,
				"user_id":              userID,
				"health_facility_name": form.HealthFacilityName,
				"province":             form.Province,
				"district":             form.District,
				"sync_status":          SyncStatusSynced,
			}); err != nil {
			return fmt.Errorf("insert form: %w", err)
		}

		if form.StaffTraining != nil {
			if err := insertStaffTraining(ctx, tx, formID, form.StaffTraining); err != nil {
				return err
			}
		}

		for i := range form.Visits {
			if err := s.insertVisit(ctx, tx, formID, &form.Visits[i]); err != nil {
				return err
			}
			visitCount++
		}

		// Success log row committed atomically with the form: the identity
		// mapping exists exactly when the data does.
		return recordSyncLog(ctx, tx, &SyncLogEntity{
			UserID:    userID,
			DeviceID:  deviceID,
			FormID:    &formID,
			TempID:    &form.TempID,
			Direction: DirectionUpload,
			Outcome:   OutcomeCompleted,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
	})
	if err != nil {
		return FormUploadStatus{}, err
	}

	s.logger.Info("Form uploaded",
		"user_id", userID, "device_id", deviceID, "temp_id", form.TempID,
		"form_id", formID, "visits", visitCount)

	return statusFormSuccess(form.TempID, formID, visitCount), nil
}

// insertVisit writes one visit row and its present section payloads.
func (s *SyncService) insertVisit(ctx context.Context, tx pgx.Tx, formID uuid.UUID, visit *VisitUpload) error {
	visitID := uuid.New()

	if _, err := tx.Exec(ctx, `
		INSERT INTO supervision_visits
			(id, form_id, visit_number, visit_date, recommendations,
			 supervisor_signature, facility_representative_signature, sync_status)
		VALUES
			(@id, @form_id, @visit_number, @visit_date, @recommendations,
			 @supervisor_signature, @facility_representative_signature, @sync_status)`,
		pgx.NamedArgs{
			"id":                                visitID,
			"form_id":                           formID,
			"visit_number":                      visit.VisitNumber,
			"visit_date":                        parseVisitDate(visit.VisitDate),
			"recommendations":                   visit.Recommendations,
			"supervisor_signature":              visit.SupervisorSignature,
			"facility_representative_signature": visit.FacilityRepresentativeSignature,
			"sync_status":                       SyncStatusSynced,
		}); err != nil {
		return fmt.Errorf("insert visit %d: %w", visit.VisitNumber, err)
	}

	for _, payload := range visit.sectionPayloads() {
		if err := writeSection(ctx, tx, visitID, payload); err != nil {
			return err
		}
	}

	return nil
}

// insertStaffTraining writes the form-level per-cadre training counts.
func insertStaffTraining(ctx context.Context, tx pgx.Tx, formID uuid.UUID, st *StaffTrainingPayload) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO form_staff_training
			(form_id, medical_officers_trained, health_assistants_trained,
			 staff_nurses_trained, ahw_trained, anm_trained, others_trained)
		VALUES
			(@form_id, @medical_officers_trained, @health_assistants_trained,
			 @staff_nurses_trained, @ahw_trained, @anm_trained, @others_trained)`,
		pgx.NamedArgs{
			"form_id":                   formID,
			"medical_officers_trained":  st.MedicalOfficersTrained,
			"health_assistants_trained": st.HealthAssistantsTrained,
			"staff_nurses_trained":      st.StaffNursesTrained,
			"ahw_trained":               st.AhwTrained,
			"anm_trained":               st.AnmTrained,
			"others_trained":            st.OthersTrained,
		}); err != nil {
		return fmt.Errorf("insert staff training: %w", err)
	}
	return nil
}

// countVisits returns the number of visits persisted under a form.
func (s *SyncService) countVisits(ctx context.Context, formID uuid.UUID) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM supervision_visits WHERE form_id = $1`, formID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count visits for form %s: %w", formID, err)
	}
	return count, nil
}

// logFormOutcome records a failed upload attempt. Written outside the form
// transaction so the audit trail survives the rollback.
func (s *SyncService) logFormOutcome(ctx context.Context, userID, deviceID, tempID string, formID *uuid.UUID, cause error, meta ClientMeta) {
	var errDetail *string
	if cause != nil {
		msg := cause.Error()
		errDetail = &msg
	}
	s.recordSyncLogBestEffort(ctx, &SyncLogEntity{
		UserID:    userID,
		DeviceID:  deviceID,
		FormID:    formID,
		TempID:    &tempID,
		Direction: DirectionUpload,
		Outcome:   OutcomeFailed,
		Error:     errDetail,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
}
