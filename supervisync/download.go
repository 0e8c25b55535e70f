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

// ProcessDownload returns every form owned by the user that changed after the
// cursor, including forms whose only change is on a child visit, because the
// client's local model is form-centric and needs the whole aggregate. Pages
// are ordered by (effective change time, form id) ascending so a client that
// advances its cursor to the returned (syncTime, syncId) drains the backlog
// without skipping forms, even when several forms share one change timestamp.
// Delivery is at-least-once, never exactly-once.
func (s *SyncService) ProcessDownload(ctx context.Context, userID, deviceID string, lastSync time.Time, lastID uuid.UUID, meta ClientMeta) (*DownloadResponse, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	response, err := s.fetchDownloadPage(ctx, userID, lastSync, lastID)

	logEntry := &SyncLogEntity{
		UserID:    userID,
		DeviceID:  deviceID,
		Direction: DirectionDownload,
		Outcome:   OutcomeCompleted,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err != nil {
		msg := err.Error()
		logEntry.Outcome = OutcomeFailed
		logEntry.Error = &msg
	}
	// Zero returned forms is a valid, loggable outcome.
	s.recordSyncLogBestEffort(ctx, logEntry)

	if err != nil {
		s.logger.Error("Download failed",
			"error", err, "user_id", userID, "device_id", deviceID, "last_sync", lastSync)
		return nil, err
	}

	s.logger.Info("Download processed",
		"user_id", userID, "device_id", deviceID, "last_sync", lastSync,
		"forms", len(response.Forms), "has_more", response.HasMore)

	return response, nil
}

// fetchDownloadPage selects the page of changed forms and hydrates each
// aggregate. The effective change time of a form is the greatest updated_at
// across the form and its visits; the cursor is (change time, form id) so a
// page boundary falling inside a group of forms with identical change times
// resumes at the next id instead of skipping the rest of the group. hasMore
// is computed with LIMIT pageSize+1 so the flag is exact.
func (s *SyncService) fetchDownloadPage(ctx context.Context, userID string, lastSync time.Time, lastID uuid.UUID) (*DownloadResponse, error) {
	pageSize := s.config.DownloadPageSize

	rows, err := s.pool.Query(ctx, `
		SELECT f.id, f.health_facility_name, f.province, f.district,
		       f.sync_status, f.created_at, f.updated_at,
		       GREATEST(f.updated_at, COALESCE(v.max_updated, f.updated_at)) AS changed_at
		FROM supervision_forms f
		LEFT JOIN (
			SELECT form_id, MAX(updated_at) AS max_updated
			FROM supervision_visits
			GROUP BY form_id
		) v ON v.form_id = f.id
		WHERE f.user_id = @user_id
		  AND (GREATEST(f.updated_at, COALESCE(v.max_updated, f.updated_at)), f.id) > (@last_sync, @last_id)
		ORDER BY changed_at, f.id
		LIMIT @limit`,
		pgx.NamedArgs{
			"user_id":   userID,
			"last_sync": lastSync,
			"last_id":   lastID,
			"limit":     pageSize + 1,
		})
	if err != nil {
		return nil, fmt.Errorf("fetch changed forms: %w", err)
	}
	defer rows.Close()

	var (
		entities   []FormEntity
		changedAts []time.Time
	)
	for rows.Next() {
		var (
			f         FormEntity
			changedAt time.Time
		)
		if err := rows.Scan(&f.ID, &f.HealthFacilityName, &f.Province, &f.District,
			&f.SyncStatus, &f.CreatedAt, &f.UpdatedAt, &changedAt); err != nil {
			return nil, fmt.Errorf("scan form row: %w", err)
		}
		entities = append(entities, f)
		changedAts = append(changedAts, changedAt)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("fetch changed forms: %w", rows.Err())
	}

	hasMore := len(entities) > pageSize
	if hasMore {
		entities = entities[:pageSize]
		changedAts = changedAts[:pageSize]
	}

	// An empty page echoes the cursor unchanged so nothing committed after
	// this query can fall behind it.
	syncTime := lastSync
	syncID := ""
	if lastID != uuid.Nil {
		syncID = lastID.String()
	}
	if len(changedAts) > 0 {
		syncTime = changedAts[len(changedAts)-1]
		syncID = entities[len(entities)-1].ID.String()
	}

	forms := make([]FormDownload, 0, len(entities))
	for i := range entities {
		form, err := s.hydrateForm(ctx, &entities[i])
		if err != nil {
			return nil, err
		}
		forms = append(forms, *form)
	}

	return &DownloadResponse{
		Forms:    forms,
		SyncTime: syncTime,
		SyncID:   syncID,
		HasMore:  hasMore,
	}, nil
}

// hydrateForm reconstitutes one full aggregate: staff training, all visits,
// and every present section payload.
func (s *SyncService) hydrateForm(ctx context.Context, entity *FormEntity) (*FormDownload, error) {
	form := &FormDownload{
		ID:                 entity.ID.String(),
		HealthFacilityName: entity.HealthFacilityName,
		Province:           entity.Province,
		District:           entity.District,
		SyncStatus:         entity.SyncStatus,
		CreatedAt:          entity.CreatedAt,
		UpdatedAt:          entity.UpdatedAt,
		Visits:             []VisitDownload{},
	}

	staffTraining, err := s.readStaffTraining(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	form.StaffTraining = staffTraining

	rows, err := s.pool.Query(ctx, `
		SELECT id, visit_number, visit_date, recommendations,
		       supervisor_signature, facility_representative_signature,
		       sync_status, updated_at
		FROM supervision_visits
		WHERE form_id = $1
		ORDER BY visit_number`, entity.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch visits for form %s: %w", entity.ID, err)
	}
	defer rows.Close()

	var visitEntities []VisitEntity
	for rows.Next() {
		var v VisitEntity
		if err := rows.Scan(&v.ID, &v.VisitNumber, &v.VisitDate, &v.Recommendations,
			&v.SupervisorSignature, &v.FacilityRepresentativeSignature,
			&v.SyncStatus, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan visit row: %w", err)
		}
		visitEntities = append(visitEntities, v)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("fetch visits for form %s: %w", entity.ID, rows.Err())
	}

	for i := range visitEntities {
		visit, err := s.hydrateVisit(ctx, &visitEntities[i])
		if err != nil {
			return nil, err
		}
		form.Visits = append(form.Visits, *visit)
	}

	return form, nil
}

// hydrateVisit attaches every present section payload to a visit. Sections
// with no row stay nil: absence and an all-"N" response must be
// distinguishable to the consumer.
func (s *SyncService) hydrateVisit(ctx context.Context, entity *VisitEntity) (*VisitDownload, error) {
	visit := &VisitDownload{
		ID:                              entity.ID.String(),
		VisitNumber:                     entity.VisitNumber,
		Recommendations:                 entity.Recommendations,
		SupervisorSignature:             entity.SupervisorSignature,
		FacilityRepresentativeSignature: entity.FacilityRepresentativeSignature,
		SyncStatus:                      entity.SyncStatus,
		UpdatedAt:                       entity.UpdatedAt,
	}
	if entity.VisitDate != nil {
		visit.VisitDate = entity.VisitDate.Format(visitDateLayout)
	}

	for _, kind := range []SectionKind{
		SectionAdminManagement,
		SectionLogistics,
		SectionEquipment,
		SectionMhdcManagement,
		SectionServiceStandards,
		SectionHealthInformation,
		SectionIntegration,
	} {
		payload, err := readSection(ctx, s.pool, entity.ID, kind)
		if err != nil {
			return nil, err
		}
		if payload == nil {
			continue
		}
		switch p := payload.(type) {
		case *AdminManagementPayload:
			visit.AdminManagement = p
		case *LogisticsPayload:
			visit.Logistics = p
		case *EquipmentPayload:
			visit.Equipment = p
		case *MhdcManagementPayload:
			visit.MhdcManagement = p
		case *ServiceStandardsPayload:
			visit.ServiceStandards = p
		case *HealthInformationPayload:
			visit.HealthInformation = p
		case *IntegrationPayload:
			visit.Integration = p
		}
	}

	return visit, nil
}

// readStaffTraining loads the form-level training counts, nil when absent.
func (s *SyncService) readStaffTraining(ctx context.Context, formID uuid.UUID) (*StaffTrainingPayload, error) {
	var st StaffTrainingPayload
	err := s.pool.QueryRow(ctx, `
		SELECT medical_officers_trained, health_assistants_trained,
		       staff_nurses_trained, ahw_trained, anm_trained, others_trained
		FROM form_staff_training
		WHERE form_id = $1`, formID,
	).Scan(&st.MedicalOfficersTrained, &st.HealthAssistantsTrained,
		&st.StaffNursesTrained, &st.AhwTrained, &st.AnmTrained, &st.OthersTrained)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read staff training for form %s: %w", formID, err)
	}
	return &st, nil
}
