// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProcessVerify advances a form and all of its visits from synced to
// verified in one transaction. Partial verification is an invariant
// violation, so the cascade and the form update commit together. The
// operation is idempotent: verifying an already-verified form succeeds,
// changes nothing, and is logged again. Admin-only at the REST surface.
func (s *SyncService) ProcessVerify(ctx context.Context, adminUserID, deviceID string, formID uuid.UUID, meta ClientMeta) (*VerifyResponse, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	response := &VerifyResponse{
		FormID:     formID.String(),
		SyncStatus: SyncStatusVerified,
	}

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		var currentStatus string
		err := tx.QueryRow(ctx,
			`SELECT sync_status FROM supervision_forms WHERE id = $1 FOR UPDATE`, formID,
		).Scan(&currentStatus)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: form %s", ErrFormNotFound, formID)
			}
			return fmt.Errorf("load form %s: %w", formID, err)
		}

		if currentStatus == SyncStatusVerified {
			response.AlreadyVerified = true
			var visits int
			if err := tx.QueryRow(ctx,
				`SELECT COUNT(*) FROM supervision_visits WHERE form_id = $1`, formID,
			).Scan(&visits); err != nil {
				return fmt.Errorf("count visits for form %s: %w", formID, err)
			}
			response.VisitsVerified = visits
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE supervision_forms
			SET sync_status = @status, updated_at = now()
			WHERE id = @form_id`,
			pgx.NamedArgs{"status": SyncStatusVerified, "form_id": formID}); err != nil {
			return fmt.Errorf("verify form %s: %w", formID, err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE supervision_visits
			SET sync_status = @status, updated_at = now()
			WHERE form_id = @form_id`,
			pgx.NamedArgs{"status": SyncStatusVerified, "form_id": formID})
		if err != nil {
			return fmt.Errorf("verify visits for form %s: %w", formID, err)
		}
		response.VisitsVerified = int(tag.RowsAffected())

		return nil
	})

	logEntry := &SyncLogEntity{
		UserID:    adminUserID,
		DeviceID:  deviceID,
		FormID:    &formID,
		Direction: DirectionVerify,
		Outcome:   OutcomeCompleted,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err != nil {
		msg := err.Error()
		logEntry.Outcome = OutcomeFailed
		logEntry.Error = &msg
	}
	s.recordSyncLogBestEffort(ctx, logEntry)

	if err != nil {
		if !errors.Is(err, ErrFormNotFound) {
			s.logger.Error("Verify failed", "error", err, "form_id", formID, "user_id", adminUserID)
		}
		return nil, err
	}

	s.logger.Info("Form verified",
		"form_id", formID, "user_id", adminUserID,
		"visits", response.VisitsVerified, "already_verified", response.AlreadyVerified)

	return response, nil
}
