// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SectionKind identifies one of the seven survey sections.
type SectionKind string

const (
	SectionAdminManagement   SectionKind = "adminManagement"
	SectionLogistics         SectionKind = "logistics"
	SectionEquipment         SectionKind = "equipment"
	SectionMhdcManagement    SectionKind = "mhdcManagement"
	SectionServiceStandards  SectionKind = "serviceStandards"
	SectionHealthInformation SectionKind = "healthInformation"
	SectionIntegration       SectionKind = "integration"
)

// SectionPayload is implemented by the seven section payload structs. The
// concrete struct's db-tagged fields define the section's column set; the
// writer and reader below are the single code path shared by all sections.
type SectionPayload interface {
	SectionKind() SectionKind
}

// sectionTables maps each kind to its table. One row per visit, enforced by a
// UNIQUE constraint on visit_id in every section table.
var sectionTables = map[SectionKind]string{
	SectionAdminManagement:   "visit_admin_management",
	SectionLogistics:         "visit_logistics",
	SectionEquipment:         "visit_equipment",
	SectionMhdcManagement:    "visit_mhdc_management",
	SectionServiceStandards:  "visit_service_standards",
	SectionHealthInformation: "visit_health_information",
	SectionIntegration:       "visit_integration",
}

// newSectionPayload returns an empty payload for a kind, for reads.
func newSectionPayload(kind SectionKind) SectionPayload {
	switch kind {
	case SectionAdminManagement:
		return &AdminManagementPayload{}
	case SectionLogistics:
		return &LogisticsPayload{}
	case SectionEquipment:
		return &EquipmentPayload{}
	case SectionMhdcManagement:
		return &MhdcManagementPayload{}
	case SectionServiceStandards:
		return &ServiceStandardsPayload{}
	case SectionHealthInformation:
		return &HealthInformationPayload{}
	case SectionIntegration:
		return &IntegrationPayload{}
	default:
		return nil
	}
}

// sectionColumns returns the declared column list of a payload struct, in
// field order. Only db-tagged exported fields participate; there is no
// runtime key iteration over caller-supplied maps.
func sectionColumns(p SectionPayload) []string {
	t := reflect.TypeOf(p).Elem()
	cols := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}
	return cols
}

// sectionValues returns the field values aligned with sectionColumns.
func sectionValues(p SectionPayload) []any {
	v := reflect.ValueOf(p).Elem()
	t := v.Type()
	vals := make([]any, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		vals = append(vals, v.Field(i).Interface())
	}
	return vals
}

// sectionScanDests returns pointers to the fields aligned with sectionColumns.
func sectionScanDests(p SectionPayload) []any {
	v := reflect.ValueOf(p).Elem()
	t := v.Type()
	dests := make([]any, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		dests = append(dests, v.Field(i).Addr().Interface())
	}
	return dests
}

// writeSection inserts a section row for a visit inside the caller's
// transaction. A nil payload is a skip, not an error: visits may have partial
// section coverage. Insert-only by contract; replays land on the UNIQUE
// visit_id constraint and fail the form transaction.
func writeSection(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, p SectionPayload) error {
	if p == nil || reflect.ValueOf(p).IsNil() {
		return nil
	}

	table, ok := sectionTables[p.SectionKind()]
	if !ok {
		return fmt.Errorf("unknown section kind %q", p.SectionKind())
	}

	cols := sectionColumns(p)
	vals := sectionValues(p)

	placeholders := make([]string, 0, len(cols)+1)
	for i := 0; i < len(cols)+1; i++ {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (visit_id, %s) VALUES (%s)`,
		pgx.Identifier{table}.Sanitize(),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	)

	args := make([]any, 0, len(vals)+1)
	args = append(args, visitID)
	args = append(args, vals...)

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s for visit %s: %w", table, visitID, err)
	}
	return nil
}

// readSection loads one section row for a visit. Returns (nil, nil) when the
// visit has no row for that section, so callers can distinguish "not yet
// supervised on this section" from an all-"N" response.
func readSection(ctx context.Context, q querier, visitID uuid.UUID, kind SectionKind) (SectionPayload, error) {
	table, ok := sectionTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown section kind %q", kind)
	}

	p := newSectionPayload(kind)
	cols := sectionColumns(p)

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE visit_id = $1`,
		strings.Join(cols, ", "),
		pgx.Identifier{table}.Sanitize(),
	)

	if err := q.QueryRow(ctx, query, visitID).Scan(sectionScanDests(p)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s for visit %s: %w", table, visitID, err)
	}
	return p, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
