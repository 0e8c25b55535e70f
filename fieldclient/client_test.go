package fieldclient

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mahimpkl/supervisync/supervisync"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "fieldclient.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestClient(t *testing.T, db *sql.DB, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(db, baseURL, "user-1", "device-1",
		func(context.Context) (string, error) { return "test-token", nil },
		DefaultConfig())
	require.NoError(t, err)
	return client
}

func TestEnsureDeviceID_Persists(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, initializeDatabase(db))

	first, err := EnsureDeviceID(db, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := EnsureDeviceID(db, "user-1")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSaveForm_QueuesAndAssignsTempID(t *testing.T) {
	db := newTestDB(t)
	client := newTestClient(t, db, "http://unused")
	ctx := context.Background()

	form := &supervisync.FormUpload{
		HealthFacilityName: "Siddhi Health Post",
		Province:           "Lumbini",
		District:           "Rupandehi",
		Visits:             []supervisync.VisitUpload{{VisitNumber: 1}},
	}
	tempID, err := client.SaveForm(ctx, form)
	require.NoError(t, err)
	require.NotEmpty(t, tempID)

	pending, err := client.PendingForms(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, tempID, pending[0].TempID)
	require.Equal(t, "Siddhi Health Post", pending[0].HealthFacilityName)
}

func TestSaveForm_EditableUntilSynced(t *testing.T) {
	db := newTestDB(t)
	client := newTestClient(t, db, "http://unused")
	ctx := context.Background()

	form := &supervisync.FormUpload{
		TempID:             "tmp-edit",
		HealthFacilityName: "Old Name",
		Province:           "Koshi",
		District:           "Morang",
	}
	_, err := client.SaveForm(ctx, form)
	require.NoError(t, err)

	form.HealthFacilityName = "New Name"
	_, err = client.SaveForm(ctx, form)
	require.NoError(t, err)

	pending, err := client.PendingForms(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "New Name", pending[0].HealthFacilityName)

	// Once synced the local row is frozen: further saves must not clobber it.
	require.NoError(t, client.MarkSynced(ctx, "tmp-edit", uuid.New().String()))
	form.HealthFacilityName = "Too Late"
	_, err = client.SaveForm(ctx, form)
	require.NoError(t, err)

	pending, err = client.PendingForms(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestUploadOnce_MarksSyncedAndKeepsFailures(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	goodServerID := uuid.New().String()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sync/upload", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req supervisync.UploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "device-1", req.DeviceID)
		require.Len(t, req.Forms, 2)

		resp := supervisync.UploadResponse{
			Total:        2,
			SuccessCount: 1,
			FailureCount: 1,
			TotalVisits:  1,
			Results: []supervisync.FormUploadStatus{
				{TempID: "tmp-good", Status: supervisync.StFormSuccess, ServerID: goodServerID, VisitCount: 1},
				{TempID: "tmp-bad", Status: supervisync.StFormError, Reason: supervisync.ReasonBadPayload, Error: "visitNumber 9 out of range"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := newTestClient(t, db, srv.URL)

	_, err := client.SaveForm(ctx, &supervisync.FormUpload{
		TempID: "tmp-good", HealthFacilityName: "HP A", Province: "P", District: "D",
		Visits: []supervisync.VisitUpload{{VisitNumber: 1}},
	})
	require.NoError(t, err)
	_, err = client.SaveForm(ctx, &supervisync.FormUpload{
		TempID: "tmp-bad", HealthFacilityName: "HP B", Province: "P", District: "D",
		Visits: []supervisync.VisitUpload{{VisitNumber: 9}},
	})
	require.NoError(t, err)

	require.NoError(t, client.UploadOnce(ctx))

	// The accepted form left the queue with its server id recorded.
	var status, serverID string
	require.NoError(t, db.QueryRow(
		`SELECT sync_status, server_id FROM local_forms WHERE temp_id = 'tmp-good'`,
	).Scan(&status, &serverID))
	require.Equal(t, "synced", status)
	require.Equal(t, goodServerID, serverID)

	// The rejected form stays queued with the recorded reason.
	pending, err := client.PendingForms(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "tmp-bad", pending[0].TempID)

	var lastError string
	require.NoError(t, db.QueryRow(
		`SELECT last_error FROM local_forms WHERE temp_id = 'tmp-bad'`,
	).Scan(&lastError))
	require.Contains(t, lastError, supervisync.ReasonBadPayload)
}

func TestDownloadOnce_MirrorsAndAdvancesWatermark(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	formID := uuid.New().String()
	syncTime := time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC)
	var gotLastSync, gotLastID []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sync/download", r.URL.Path)
		gotLastSync = append(gotLastSync, r.URL.Query().Get("lastSync"))
		gotLastID = append(gotLastID, r.URL.Query().Get("lastId"))

		resp := supervisync.DownloadResponse{
			SyncTime: syncTime,
			SyncID:   formID,
			HasMore:  false,
		}
		if len(gotLastSync) == 1 {
			resp.Forms = []supervisync.FormDownload{{
				ID:                 formID,
				HealthFacilityName: "HP Mirror",
				Province:           "P",
				District:           "D",
				SyncStatus:         supervisync.SyncStatusVerified,
				UpdatedAt:          syncTime,
				Visits:             []supervisync.VisitDownload{},
			}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := newTestClient(t, db, srv.URL)

	// A previously uploaded local form tracks the server's verify decision.
	_, err := client.SaveForm(ctx, &supervisync.FormUpload{
		TempID: "tmp-mirror", HealthFacilityName: "HP Mirror", Province: "P", District: "D",
	})
	require.NoError(t, err)
	require.NoError(t, client.MarkSynced(ctx, "tmp-mirror", formID))

	require.NoError(t, client.DownloadOnce(ctx))
	require.Equal(t, []string{""}, gotLastSync) // first sync sends no cursor
	require.Equal(t, []string{""}, gotLastID)

	remote, err := client.RemoteForms(ctx)
	require.NoError(t, err)
	require.Len(t, remote, 1)
	require.Equal(t, formID, remote[0].ID)

	var localStatus string
	require.NoError(t, db.QueryRow(
		`SELECT sync_status FROM local_forms WHERE temp_id = 'tmp-mirror'`,
	).Scan(&localStatus))
	require.Equal(t, supervisync.SyncStatusVerified, localStatus)

	// The next download resumes from the stored cursor, both components.
	require.NoError(t, client.DownloadOnce(ctx))
	require.Len(t, gotLastSync, 2)
	parsed, err := time.Parse(time.RFC3339Nano, gotLastSync[1])
	require.NoError(t, err)
	require.True(t, parsed.Equal(syncTime))
	require.Equal(t, formID, gotLastID[1])
}
