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

// IdentityMapper resolves a client-generated temp id to the durable server
// form id. It has no storage of its own: the successful upload rows in
// sync_logs are the map, and the partial UNIQUE index on
// (user_id, device_id, temp_id) guarantees at most one entry per key.
type IdentityMapper struct {
	db querier
}

// NewIdentityMapper creates a mapper over a pool or transaction.
func NewIdentityMapper(db querier) *IdentityMapper {
	return &IdentityMapper{db: db}
}

// Lookup returns the form id previously assigned to (userID, deviceID,
// tempID), or ok=false when no successful upload has been recorded for that
// key. This is the check that makes retry-after-unknown-outcome safe.
func (m *IdentityMapper) Lookup(ctx context.Context, userID, deviceID, tempID string) (uuid.UUID, bool, error) {
	var formID uuid.UUID
	err := m.db.QueryRow(ctx, `
		SELECT form_id
		FROM sync_logs
		WHERE user_id = @user_id
		  AND device_id = @device_id
		  AND temp_id = @temp_id
		  AND direction = 'upload'
		  AND outcome = 'completed'`,
		pgx.NamedArgs{
			"user_id":   userID,
			"device_id": deviceID,
			"temp_id":   tempID,
		},
	).Scan(&formID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("identity lookup for temp id %q: %w", tempID, err)
	}
	return formID, true, nil
}
