// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

// Sync status lifecycle for forms and visits. Forward-only:
// local -> synced -> verified.
const (
	SyncStatusLocal    = "local"
	SyncStatusSynced   = "synced"
	SyncStatusVerified = "verified"
)

// Direction constants for sync log entries
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
	DirectionVerify   = "verify"
)

// Outcome constants for sync log entries
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Status constants for per-form upload results
const (
	StFormSuccess = "success"
	StFormError   = "error"
)

// Error reason constants surfaced in per-form error results
const (
	ReasonBadPayload     = "bad_payload"
	ReasonDuplicateVisit = "duplicate_visit"
	ReasonStoreError     = "store_error"
	ReasonInternalError  = "internal_error"
)

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Visit number bounds: a form holds up to four numbered supervision visits.
const (
	MinVisitNumber = 1
	MaxVisitNumber = 4
)

// DefaultDownloadLimit is the page size for download responses.
const DefaultDownloadLimit = 100

// Answer values for the nominal section fields.
const (
	AnswerYes   = "Y"
	AnswerNo    = "N"
	AnswerEmpty = ""
)
