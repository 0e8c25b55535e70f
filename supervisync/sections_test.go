package supervisync

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var allSectionKinds = []SectionKind{
	SectionAdminManagement,
	SectionLogistics,
	SectionEquipment,
	SectionMhdcManagement,
	SectionServiceStandards,
	SectionHealthInformation,
	SectionIntegration,
}

func TestSectionTables_CoverAllKinds(t *testing.T) {
	for _, kind := range allSectionKinds {
		table, ok := sectionTables[kind]
		require.True(t, ok, "kind %s has no table", kind)
		require.NotEmpty(t, table)

		p := newSectionPayload(kind)
		require.NotNil(t, p, "kind %s has no payload constructor", kind)
		require.Equal(t, kind, p.SectionKind())
	}
}

func TestSectionColumns_AlignWithValuesAndDests(t *testing.T) {
	for _, kind := range allSectionKinds {
		p := newSectionPayload(kind)
		cols := sectionColumns(p)
		vals := sectionValues(p)
		dests := sectionScanDests(p)

		require.NotEmpty(t, cols, "kind %s declares no columns", kind)
		require.Len(t, vals, len(cols))
		require.Len(t, dests, len(cols))

		// Column names are lower_snake_case SQL identifiers.
		for _, col := range cols {
			require.Equal(t, strings.ToLower(col), col, "column %s in %s", col, kind)
			require.NotContains(t, col, " ")
		}
	}
}

func TestSectionScanDests_WriteThrough(t *testing.T) {
	p := &AdminManagementPayload{}
	dests := sectionScanDests(p)

	// First declared column is committee_formed; writing through the scan
	// destination must land on the struct field.
	*(dests[0].(*string)) = AnswerYes
	require.Equal(t, AnswerYes, p.CommitteeFormed)

	last := len(dests) - 1
	*(dests[last].(*string)) = "needs follow-up"
	require.Equal(t, "needs follow-up", p.Comments)
}

func TestSectionValues_ReflectFieldOrder(t *testing.T) {
	p := &EquipmentPayload{BpSet: AnswerYes, Glucometer: AnswerNo, Comments: "ok"}
	cols := sectionColumns(p)
	vals := sectionValues(p)

	byCol := map[string]any{}
	for i, col := range cols {
		byCol[col] = vals[i]
	}
	require.Equal(t, AnswerYes, byCol["bp_set"])
	require.Equal(t, AnswerNo, byCol["glucometer"])
	require.Equal(t, "", byCol["stethoscope"])
	require.Equal(t, "ok", byCol["comments"])
}

func TestSectionTableDDL(t *testing.T) {
	ddl := sectionTableDDL(SectionHealthInformation)

	require.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS visit_health_information")
	require.Contains(t, ddl, "visit_id UUID NOT NULL UNIQUE REFERENCES supervision_visits(id) ON DELETE CASCADE")
	require.Contains(t, ddl, "monthly_reporting_timely TEXT NOT NULL DEFAULT '' CHECK (monthly_reporting_timely IN ('Y','N',''))")
	// Comments are free text, not constrained to Y/N.
	require.Contains(t, ddl, "comments TEXT NOT NULL DEFAULT ''")
	require.NotContains(t, ddl, "CHECK (comments")
}

func TestSectionPayloads_JSONRoundTrip(t *testing.T) {
	in := &MhdcManagementPayload{
		ClinicOperational:     AnswerYes,
		NcdRegisterMaintained: AnswerNo,
		Comments:              "register gaps in June",
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	require.Contains(t, string(data), `"clinicOperational":"Y"`)

	var out MhdcManagementPayload
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, *in, out)
}
