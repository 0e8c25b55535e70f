// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

import (
	"time"
)

// REST/JSON models for HTTP API requests and responses

// UploadRequest is a batch of client-local forms from one device.
type UploadRequest struct {
	DeviceID string       `json:"deviceId"` // Device identifier for the whole batch
	Forms    []FormUpload `json:"forms"`    // Client-local forms to create
}

// FormUpload is one client-local form with its nested visits. TempID is the
// client-generated identity used for idempotent creation; replaying the same
// (user, device, tempId) never creates a second form.
type FormUpload struct {
	TempID             string                `json:"tempId"`
	HealthFacilityName string                `json:"healthFacilityName"`
	Province           string                `json:"province"`
	District           string                `json:"district"`
	Visits             []VisitUpload         `json:"visits,omitempty"`
	StaffTraining      *StaffTrainingPayload `json:"staffTraining,omitempty"`
}

// VisitUpload is one numbered supervision occasion with its optional section
// payloads. Absent sections are skipped, not zero-filled.
type VisitUpload struct {
	VisitNumber                     int                       `json:"visitNumber"` // 1..4, unique within a form
	VisitDate                       string                    `json:"visitDate,omitempty"` // ISO date (2006-01-02)
	Recommendations                 string                    `json:"recommendations,omitempty"`
	SupervisorSignature             string                    `json:"supervisorSignature,omitempty"`
	FacilityRepresentativeSignature string                    `json:"facilityRepresentativeSignature,omitempty"`
	AdminManagement                 *AdminManagementPayload   `json:"adminManagement,omitempty"`
	Logistics                       *LogisticsPayload         `json:"logistics,omitempty"`
	Equipment                       *EquipmentPayload         `json:"equipment,omitempty"`
	MhdcManagement                  *MhdcManagementPayload    `json:"mhdcManagement,omitempty"`
	ServiceStandards                *ServiceStandardsPayload  `json:"serviceStandards,omitempty"`
	HealthInformation               *HealthInformationPayload `json:"healthInformation,omitempty"`
	Integration                     *IntegrationPayload       `json:"integration,omitempty"`
}

// sectionPayloads returns the present section payloads in write order.
func (v *VisitUpload) sectionPayloads() []SectionPayload {
	all := []SectionPayload{}
	if v.AdminManagement != nil {
		all = append(all, v.AdminManagement)
	}
	if v.Logistics != nil {
		all = append(all, v.Logistics)
	}
	if v.Equipment != nil {
		all = append(all, v.Equipment)
	}
	if v.MhdcManagement != nil {
		all = append(all, v.MhdcManagement)
	}
	if v.ServiceStandards != nil {
		all = append(all, v.ServiceStandards)
	}
	if v.HealthInformation != nil {
		all = append(all, v.HealthInformation)
	}
	if v.Integration != nil {
		all = append(all, v.Integration)
	}
	return all
}

// UploadResponse aggregates per-form results. HTTP status is 200 even when
// some forms failed; clients must inspect the per-form statuses.
type UploadResponse struct {
	Total        int                `json:"total"`
	SuccessCount int                `json:"successCount"`
	FailureCount int                `json:"failureCount"`
	TotalVisits  int                `json:"totalVisits"`
	Results      []FormUploadStatus `json:"results"`
}

// FormUploadStatus is the outcome for one submitted form.
type FormUploadStatus struct {
	TempID     string `json:"tempId"`
	Status     string `json:"status"`               // "success" or "error"
	ServerID   string `json:"serverId,omitempty"`   // Assigned form id on success
	VisitCount int    `json:"visitCount,omitempty"` // Visits persisted for this form
	Reason     string `json:"reason,omitempty"`     // Machine-readable failure reason
	Error      string `json:"error,omitempty"`      // Human-readable failure detail
}

// DownloadResponse returns fully hydrated form aggregates changed since the
// client's cursor, oldest change first. HasMore signals the client to
// re-request with lastSync set to SyncTime and lastId set to SyncID; the id
// component breaks ties when several forms share one change timestamp, so a
// page boundary inside such a group cannot skip the rest of it. Delivery is
// at-least-once: a form updated again after being fetched will reappear.
type DownloadResponse struct {
	Forms    []FormDownload `json:"forms"`
	SyncTime time.Time      `json:"syncTime"`
	SyncID   string         `json:"syncId,omitempty"` // Form id of the last delivered row
	HasMore  bool           `json:"hasMore"`
}

// FormDownload is one hydrated form aggregate.
type FormDownload struct {
	ID                 string                `json:"id"`
	HealthFacilityName string                `json:"healthFacilityName"`
	Province           string                `json:"province"`
	District           string                `json:"district"`
	SyncStatus         string                `json:"syncStatus"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
	StaffTraining      *StaffTrainingPayload `json:"staffTraining,omitempty"`
	Visits             []VisitDownload       `json:"visits"`
}

// VisitDownload is one hydrated visit with every present section payload.
// Sections with no row are null so consumers can tell absence from all-"N".
type VisitDownload struct {
	ID                              string                    `json:"id"`
	VisitNumber                     int                       `json:"visitNumber"`
	VisitDate                       string                    `json:"visitDate,omitempty"`
	Recommendations                 string                    `json:"recommendations,omitempty"`
	SupervisorSignature             string                    `json:"supervisorSignature,omitempty"`
	FacilityRepresentativeSignature string                    `json:"facilityRepresentativeSignature,omitempty"`
	SyncStatus                      string                    `json:"syncStatus"`
	UpdatedAt                       time.Time                 `json:"updatedAt"`
	AdminManagement                 *AdminManagementPayload   `json:"adminManagement,omitempty"`
	Logistics                       *LogisticsPayload         `json:"logistics,omitempty"`
	Equipment                       *EquipmentPayload         `json:"equipment,omitempty"`
	MhdcManagement                  *MhdcManagementPayload    `json:"mhdcManagement,omitempty"`
	ServiceStandards                *ServiceStandardsPayload  `json:"serviceStandards,omitempty"`
	HealthInformation               *HealthInformationPayload `json:"healthInformation,omitempty"`
	Integration                     *IntegrationPayload       `json:"integration,omitempty"`
}

// VerifyResponse confirms a verify operation.
type VerifyResponse struct {
	FormID          string `json:"formId"`
	SyncStatus      string `json:"syncStatus"`
	VisitsVerified  int    `json:"visitsVerified"`
	AlreadyVerified bool   `json:"alreadyVerified"`
}

// SyncStatusResponse is the admin view of the sync log.
type SyncStatusResponse struct {
	Logs     []SyncLogEntry `json:"logs"`
	Stats    SyncStats      `json:"stats"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
	Total    int64          `json:"total"`
}

// SyncLogEntry is the JSON view of one sync log row.
type SyncLogEntry struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"userId"`
	DeviceID      string    `json:"deviceId"`
	FormID        string    `json:"formId,omitempty"`
	VisitID       string    `json:"visitId,omitempty"`
	TempID        string    `json:"tempId,omitempty"`
	Direction     string    `json:"direction"`
	Outcome       string    `json:"outcome"`
	Error         string    `json:"error,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	SyncTimestamp time.Time `json:"syncTimestamp"`
}

// SyncStats aggregates sync log counts.
type SyncStats struct {
	Uploads    int64 `json:"uploads"`
	Downloads  int64 `json:"downloads"`
	Verifies   int64 `json:"verifies"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// ErrorResponse is the standardized non-200 error body.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"` // Per-field validation details
}
