// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

import (
	"time"

	"github.com/google/uuid"
)

// Database entity models for the PostgreSQL tables

// UserEntity represents a row in users. Users are deactivated, never deleted.
type UserEntity struct {
	ID        string    `db:"id"`         // JWT sub
	Login     string    `db:"login"`      // Unique login identity
	Role      string    `db:"role"`       // "admin" or "user"
	Active    bool      `db:"active"`     // Deactivation flag
	CreatedAt time.Time `db:"created_at"` //
}

// FormEntity represents a row in supervision_forms.
type FormEntity struct {
	ID                 uuid.UUID `db:"id"`
	UserID             string    `db:"user_id"`
	HealthFacilityName string    `db:"health_facility_name"`
	Province           string    `db:"province"`
	District           string    `db:"district"`
	SyncStatus         string    `db:"sync_status"` // local|synced|verified, forward-only
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// VisitEntity represents a row in supervision_visits.
// (form_id, visit_number) is UNIQUE.
type VisitEntity struct {
	ID                              uuid.UUID  `db:"id"`
	FormID                          uuid.UUID  `db:"form_id"`
	VisitNumber                     int        `db:"visit_number"` // 1..4
	VisitDate                       *time.Time `db:"visit_date"`
	Recommendations                 string     `db:"recommendations"`
	SupervisorSignature             string     `db:"supervisor_signature"`
	FacilityRepresentativeSignature string     `db:"facility_representative_signature"`
	SyncStatus                      string     `db:"sync_status"`
	CreatedAt                       time.Time  `db:"created_at"`
	UpdatedAt                       time.Time  `db:"updated_at"`
}

// SyncLogEntity represents a row in sync_logs. Append-only: rows are never
// updated or deleted. Successful upload rows double as the identity map from
// (user_id, device_id, temp_id) to form_id.
type SyncLogEntity struct {
	ID            int64      `db:"id"`
	UserID        string     `db:"user_id"`
	DeviceID      string     `db:"device_id"`
	FormID        *uuid.UUID `db:"form_id"`
	VisitID       *uuid.UUID `db:"visit_id"`
	TempID        *string    `db:"temp_id"`
	Direction     string     `db:"direction"` // upload|download|verify
	Outcome       string     `db:"outcome"`   // completed|failed
	Error         *string    `db:"error"`
	IPAddress     string     `db:"ip_address"`
	UserAgent     string     `db:"user_agent"`
	SyncTimestamp time.Time  `db:"sync_timestamp"`
}
