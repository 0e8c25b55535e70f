// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// visitDateLayout is the accepted wire format for visit dates.
const visitDateLayout = "2006-01-02"

// Validation sentinels for error mapping
var (
	ErrBadRequest     = errors.New("bad_request")      // Structural: rejects the whole request (HTTP 400)
	ErrFormValidation = errors.New("form_validation")  // Semantic: fails one form, siblings proceed
	ErrFormNotFound   = errors.New("form_not_found")   // Referential: verify on unknown form id
	ErrDuplicateVisit = errors.New("duplicate_visit")  // Conflict: (form_id, visit_number) already taken
)

// RequestValidationError carries per-field details for structural failures.
type RequestValidationError struct {
	Fields map[string]string
}

func (e *RequestValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *RequestValidationError) Unwrap() error { return ErrBadRequest }

// validateUploadRequest performs the structural checks that reject the whole
// batch with 400 before any transaction opens: the request must decode, name
// a device, contain at least one form, and every form must carry a tempId.
func validateUploadRequest(req *UploadRequest) error {
	fields := map[string]string{}

	if strings.TrimSpace(req.DeviceID) == "" {
		fields["deviceId"] = "required"
	}
	if len(req.Forms) == 0 {
		fields["forms"] = "must not be empty"
	}
	for i := range req.Forms {
		if strings.TrimSpace(req.Forms[i].TempID) == "" {
			fields[fmt.Sprintf("forms[%d].tempId", i)] = "required"
		}
	}

	if len(fields) > 0 {
		return &RequestValidationError{Fields: fields}
	}
	return nil
}

// validateFormUpload performs the semantic checks for one form. A failure
// here fails only that form in the batch; siblings are unaffected.
func validateFormUpload(form *FormUpload) error {
	if strings.TrimSpace(form.HealthFacilityName) == "" {
		return fmt.Errorf("%w: healthFacilityName is required", ErrFormValidation)
	}
	if strings.TrimSpace(form.Province) == "" {
		return fmt.Errorf("%w: province is required", ErrFormValidation)
	}
	if strings.TrimSpace(form.District) == "" {
		return fmt.Errorf("%w: district is required", ErrFormValidation)
	}

	seen := map[int]bool{}
	for i := range form.Visits {
		visit := &form.Visits[i]
		if visit.VisitNumber < MinVisitNumber || visit.VisitNumber > MaxVisitNumber {
			return fmt.Errorf("%w: visit %d: visitNumber %d out of range %d..%d",
				ErrFormValidation, i, visit.VisitNumber, MinVisitNumber, MaxVisitNumber)
		}
		if seen[visit.VisitNumber] {
			return fmt.Errorf("%w: visitNumber %d appears twice", ErrDuplicateVisit, visit.VisitNumber)
		}
		seen[visit.VisitNumber] = true

		if visit.VisitDate != "" {
			if _, err := time.Parse(visitDateLayout, visit.VisitDate); err != nil {
				return fmt.Errorf("%w: visit %d: invalid visitDate %q (want %s)",
					ErrFormValidation, visit.VisitNumber, visit.VisitDate, visitDateLayout)
			}
		}
	}

	return nil
}

// parseVisitDate converts a validated wire date to a nullable time.
func parseVisitDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(visitDateLayout, value)
	if err != nil {
		return nil
	}
	return &t
}
