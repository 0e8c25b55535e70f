// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// initializeSchema creates the required tables if they don't exist.
func (s *SyncService) initializeSchema(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return s.initializeSchemaInTx(ctx, tx)
	})
}

// initializeSchemaInTx runs all migrations within an existing transaction.
func (s *SyncService) initializeSchemaInTx(ctx context.Context, tx pgx.Tx) error {
	migrations := []string{
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			login      TEXT NOT NULL UNIQUE,
			role       TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin','user')),
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS supervision_forms (
			id                   UUID PRIMARY KEY,
			user_id              TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			health_facility_name TEXT NOT NULL,
			province             TEXT NOT NULL,
			district             TEXT NOT NULL,
			sync_status          TEXT NOT NULL DEFAULT 'local'
				CHECK (sync_status IN ('local','synced','verified')),
			created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS sf_user_updated_idx ON supervision_forms(user_id, updated_at DESC)`, // Optimizes watermark downloads

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS supervision_visits (
			id                                UUID PRIMARY KEY,
			form_id                           UUID NOT NULL REFERENCES supervision_forms(id) ON DELETE CASCADE,
			visit_number                      INT  NOT NULL CHECK (visit_number BETWEEN 1 AND 4),
			visit_date                        DATE,
			recommendations                   TEXT NOT NULL DEFAULT '',
			supervisor_signature              TEXT NOT NULL DEFAULT '',
			facility_representative_signature TEXT NOT NULL DEFAULT '',
			sync_status                       TEXT NOT NULL DEFAULT 'local'
				CHECK (sync_status IN ('local','synced','verified')),
			created_at                        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at                        TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (form_id, visit_number)
		)`,
		`CREATE INDEX IF NOT EXISTS sv_form_updated_idx ON supervision_visits(form_id, updated_at DESC)`, // Supports the OR-via-child download clause

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS form_staff_training (
			form_id                  UUID PRIMARY KEY REFERENCES supervision_forms(id) ON DELETE CASCADE,
			medical_officers_trained  INT NOT NULL DEFAULT 0,
			health_assistants_trained INT NOT NULL DEFAULT 0,
			staff_nurses_trained      INT NOT NULL DEFAULT 0,
			ahw_trained               INT NOT NULL DEFAULT 0,
			anm_trained               INT NOT NULL DEFAULT 0,
			others_trained            INT NOT NULL DEFAULT 0
		)`,

		// Append-only audit ledger. The partial UNIQUE index is the
		// idempotency gate: at most one successful upload per
		// (user, device, temp_id); concurrent replays race to one winner.
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS sync_logs (
			id             BIGSERIAL PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			device_id      TEXT NOT NULL,
			form_id        UUID,
			visit_id       UUID,
			temp_id        TEXT,
			direction      TEXT NOT NULL CHECK (direction IN ('upload','download','verify')),
			outcome        TEXT NOT NULL CHECK (outcome IN ('completed','failed')),
			error          TEXT,
			ip_address     TEXT NOT NULL DEFAULT '',
			user_agent     TEXT NOT NULL DEFAULT '',
			sync_timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS sl_upload_gate_idx
			ON sync_logs(user_id, device_id, temp_id)
			WHERE direction = 'upload' AND outcome = 'completed'`,
		`CREATE INDEX IF NOT EXISTS sl_user_ts_idx ON sync_logs(user_id, sync_timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS sl_direction_ts_idx ON sync_logs(direction, sync_timestamp DESC)`,
	}

	// One table per section, keyed by visit_id. The UNIQUE constraint makes
	// the at-most-one-row-per-visit invariant self-enforcing.
	for _, kind := range []SectionKind{
		SectionAdminManagement,
		SectionLogistics,
		SectionEquipment,
		SectionMhdcManagement,
		SectionServiceStandards,
		SectionHealthInformation,
		SectionIntegration,
	} {
		migrations = append(migrations, sectionTableDDL(kind))
	}

	for i, migration := range migrations {
		s.logger.Debug("Running schema migration", "step", i+1, "total", len(migrations))
		if _, err := tx.Exec(ctx, migration); err != nil {
			return fmt.Errorf("schema migration %d failed: %w", i+1, err)
		}
	}
	s.logger.Info("Schema initialized successfully", "migrations", len(migrations))

	return nil
}

// sectionTableDDL builds the CREATE TABLE statement for a section from its
// payload's declared column list. Comments columns are free text; everything
// else is constrained to 'Y', 'N' or ''.
func sectionTableDDL(kind SectionKind) string {
	table := sectionTables[kind]
	cols := sectionColumns(newSectionPayload(kind))

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table)
	b.WriteString("\tid BIGSERIAL PRIMARY KEY,\n")
	b.WriteString("\tvisit_id UUID NOT NULL UNIQUE REFERENCES supervision_visits(id) ON DELETE CASCADE")
	for _, col := range cols {
		if col == "comments" {
			fmt.Fprintf(&b, ",\n\t%s TEXT NOT NULL DEFAULT ''", col)
			continue
		}
		fmt.Fprintf(&b, ",\n\t%s TEXT NOT NULL DEFAULT '' CHECK (%s IN ('Y','N',''))", col, col)
	}
	b.WriteString("\n)")
	return b.String()
}
