// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

import (
	"github.com/google/uuid"
)

// statusFormSuccess creates a result for a freshly persisted form.
func statusFormSuccess(tempID string, serverID uuid.UUID, visitCount int) FormUploadStatus {
	return FormUploadStatus{
		TempID:     tempID,
		Status:     StFormSuccess,
		ServerID:   serverID.String(),
		VisitCount: visitCount,
	}
}

// statusFormAlreadySynced creates a result for an idempotent replay: the form
// was persisted by an earlier attempt and the recorded server id is returned.
func statusFormAlreadySynced(tempID string, serverID uuid.UUID, visitCount int) FormUploadStatus {
	return FormUploadStatus{
		TempID:     tempID,
		Status:     StFormSuccess,
		ServerID:   serverID.String(),
		VisitCount: visitCount,
	}
}

// statusFormError creates a per-form failure result.
func statusFormError(tempID, reason string, err error) FormUploadStatus {
	return FormUploadStatus{
		TempID: tempID,
		Status: StFormError,
		Reason: reason,
		Error:  err.Error(),
	}
}
