// Package fieldclient provides a SQLite-backed offline store and sync loop
// for field devices capturing supervision forms.
//
// Forms are captured locally while offline, queued as client-local rows
// keyed by a device-generated temp id, and pushed to the server in batches.
// Download pulls the server's view of the user's forms back into a local
// mirror so verification status is visible on the device.
// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package fieldclient

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mahimpkl/supervisync/supervisync"
)

// Client manages the local SQLite store and sync against the server API.
type Client struct {
	DB       *sql.DB
	BaseURL  string
	Token    func(context.Context) (string, error) // returns JWT
	DeviceID string
	UserID   string
	HTTP     *http.Client
	config   *Config
	logger   *slog.Logger
	writeMu  sync.Mutex // Serialize writes to prevent SQLite locking issues

	syncPaused int32
}

// Config holds configuration for the SQLite field client
type Config struct {
	UploadLimit int           // Forms per upload batch, e.g. 50
	BackoffMin  time.Duration // 1s
	BackoffMax  time.Duration // 60s
	Interval    time.Duration // Base period between sync attempts
}

// DefaultConfig returns a default configuration for the field client.
func DefaultConfig() *Config {
	return &Config{
		UploadLimit: 50,
		BackoffMin:  1 * time.Second,
		BackoffMax:  60 * time.Second,
		Interval:    30 * time.Second,
	}
}

// NewClient creates a new SQLite field client and initializes the local
// schema. The caller owns the *sql.DB.
func NewClient(db *sql.DB, baseURL, userID, deviceID string, tok func(ctx context.Context) (string, error), config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if userID == "" {
		return nil, fmt.Errorf("userID must be provided")
	}

	if err := initializeDatabase(db); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Client{
		DB:       db,
		BaseURL:  baseURL,
		Token:    tok,
		DeviceID: deviceID,
		UserID:   userID,
		HTTP:     &http.Client{Timeout: 120 * time.Second},
		config:   config,
		logger:   slog.Default(),
	}, nil
}

// PauseSync suspends sync activity (SyncOnce and the background loop respect this flag)
func (c *Client) PauseSync() { atomic.StoreInt32(&c.syncPaused, 1) }

// ResumeSync resumes sync activity
func (c *Client) ResumeSync() { atomic.StoreInt32(&c.syncPaused, 0) }

// EnsureDeviceID generates and persists a device ID if not already present
func EnsureDeviceID(db *sql.DB, userID string) (string, error) {
	var deviceID string
	err := db.QueryRow(`SELECT device_id FROM _sync_client_info WHERE user_id = ?`, userID).Scan(&deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		deviceID = uuid.New().String()
		_, err = db.Exec(`
			INSERT INTO _sync_client_info (user_id, device_id, last_sync_at)
			VALUES (?, ?, '')
		`, userID, deviceID)
		if err != nil {
			return "", fmt.Errorf("failed to insert client info: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to query client info: %w", err)
	}
	return deviceID, nil
}

// initializeDatabase creates the local store tables
func initializeDatabase(db *sql.DB) error {
	// Enable WAL mode and foreign keys
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []string{
		// Client/device info (one row per signed-in user)
		`CREATE TABLE IF NOT EXISTS _sync_client_info (
			user_id      TEXT NOT NULL,  -- from JWT.sub
			device_id    TEXT NOT NULL,  -- locally generated UUIDv4 (persisted)
			last_sync_at TEXT NOT NULL DEFAULT '',  -- RFC 3339 download watermark
			last_sync_id TEXT NOT NULL DEFAULT '',  -- form id tie-breaker of the cursor
			PRIMARY KEY (user_id)
		)`,

		// Forms captured on this device. The payload is the full upload JSON;
		// server_id is filled in once the upload succeeds.
		`CREATE TABLE IF NOT EXISTS local_forms (
			temp_id     TEXT PRIMARY KEY,
			payload     TEXT NOT NULL,
			sync_status TEXT NOT NULL DEFAULT 'local' CHECK (sync_status IN ('local','synced','verified')),
			server_id   TEXT,
			last_error  TEXT,
			created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,

		// Mirror of server-side aggregates fetched by download.
		`CREATE TABLE IF NOT EXISTS remote_forms (
			id          TEXT PRIMARY KEY,
			payload     TEXT NOT NULL,
			sync_status TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create client table: %w", err)
		}
	}

	return nil
}

// SaveForm stores a captured form locally in the upload queue. A missing
// tempId gets a generated one; the assigned tempId is returned.
func (c *Client) SaveForm(ctx context.Context, form *supervisync.FormUpload) (string, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if form.TempID == "" {
		form.TempID = uuid.New().String()
	}
	payload, err := json.Marshal(form)
	if err != nil {
		return "", fmt.Errorf("marshal form: %w", err)
	}

	_, err = c.DB.ExecContext(ctx, `
		INSERT INTO local_forms (temp_id, payload, sync_status)
		VALUES (?, ?, 'local')
		ON CONFLICT (temp_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE local_forms.sync_status = 'local'`,
		form.TempID, string(payload))
	if err != nil {
		return "", fmt.Errorf("save form %s: %w", form.TempID, err)
	}
	return form.TempID, nil
}

// PendingForms returns locally captured forms not yet accepted by the server,
// oldest first, capped at the configured upload limit.
func (c *Client) PendingForms(ctx context.Context) ([]supervisync.FormUpload, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT payload FROM local_forms
		WHERE sync_status = 'local'
		ORDER BY created_at
		LIMIT ?`, c.config.UploadLimit)
	if err != nil {
		return nil, fmt.Errorf("query pending forms: %w", err)
	}
	defer rows.Close()

	var forms []supervisync.FormUpload
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan pending form: %w", err)
		}
		var form supervisync.FormUpload
		if err := json.Unmarshal([]byte(payload), &form); err != nil {
			return nil, fmt.Errorf("unmarshal pending form: %w", err)
		}
		forms = append(forms, form)
	}
	return forms, rows.Err()
}

// MarkSynced records the server-assigned id for an uploaded form.
func (c *Client) MarkSynced(ctx context.Context, tempID, serverID string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.DB.ExecContext(ctx, `
		UPDATE local_forms
		SET sync_status = 'synced', server_id = ?, last_error = NULL,
		    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE temp_id = ?`, serverID, tempID)
	if err != nil {
		return fmt.Errorf("mark form %s synced: %w", tempID, err)
	}
	return nil
}

// markFailed keeps the form queued but records why the last attempt failed.
func (c *Client) markFailed(ctx context.Context, tempID, reason string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.DB.ExecContext(ctx, `
		UPDATE local_forms
		SET last_error = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE temp_id = ?`, reason, tempID)
	if err != nil {
		return fmt.Errorf("mark form %s failed: %w", tempID, err)
	}
	return nil
}

// UploadOnce pushes one batch of pending forms to the server. Per-form
// failures stay queued with the recorded reason; the batch itself succeeds
// as long as the HTTP round trip does.
func (c *Client) UploadOnce(ctx context.Context) error {
	if atomic.LoadInt32(&c.syncPaused) == 1 {
		return nil
	}

	forms, err := c.PendingForms(ctx)
	if err != nil {
		return err
	}
	if len(forms) == 0 {
		return nil
	}

	req := supervisync.UploadRequest{
		DeviceID: c.DeviceID,
		Forms:    forms,
	}
	var resp supervisync.UploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/sync/upload", nil, &req, &resp); err != nil {
		return fmt.Errorf("upload batch: %w", err)
	}

	for _, result := range resp.Results {
		if result.Status == supervisync.StFormSuccess {
			if err := c.MarkSynced(ctx, result.TempID, result.ServerID); err != nil {
				return err
			}
			continue
		}
		c.logger.Warn("Form upload rejected",
			"temp_id", result.TempID, "reason", result.Reason, "error", result.Error)
		if err := c.markFailed(ctx, result.TempID, result.Reason+": "+result.Error); err != nil {
			return err
		}
	}

	c.logger.Info("Upload batch completed",
		"total", resp.Total, "success", resp.SuccessCount, "failed", resp.FailureCount)
	return nil
}

// DownloadOnce pulls changed form aggregates into the local mirror, following
// hasMore pages until the server is drained, then advances the cursor. Both
// cursor components are echoed back so a page boundary inside forms sharing
// one change timestamp resumes where it left off.
func (c *Client) DownloadOnce(ctx context.Context) error {
	if atomic.LoadInt32(&c.syncPaused) == 1 {
		return nil
	}

	lastSync, lastID, err := c.syncCursor(ctx)
	if err != nil {
		return err
	}

	for {
		query := url.Values{"deviceId": {c.DeviceID}}
		if lastSync != "" {
			query.Set("lastSync", lastSync)
		}
		if lastID != "" {
			query.Set("lastId", lastID)
		}
		var resp supervisync.DownloadResponse
		if err := c.doJSON(ctx, http.MethodGet, "/sync/download", query, nil, &resp); err != nil {
			return fmt.Errorf("download page: %w", err)
		}

		if err := c.applyDownloaded(ctx, resp.Forms); err != nil {
			return err
		}

		lastSync = resp.SyncTime.UTC().Format(time.RFC3339Nano)
		lastID = resp.SyncID
		if err := c.setSyncCursor(ctx, lastSync, lastID); err != nil {
			return err
		}
		if !resp.HasMore {
			return nil
		}
	}
}

// SyncOnce performs one upload followed by one download.
func (c *Client) SyncOnce(ctx context.Context) error {
	if err := c.UploadOnce(ctx); err != nil {
		return err
	}
	return c.DownloadOnce(ctx)
}

// Start runs the background sync loop until the context is cancelled.
// Failures back off exponentially between BackoffMin and BackoffMax.
func (c *Client) Start(ctx context.Context) {
	go func() {
		backoff := c.config.BackoffMin
		for {
			wait := c.config.Interval
			if err := c.SyncOnce(ctx); err != nil {
				c.logger.Warn("Sync attempt failed", "error", err, "backoff", backoff)
				wait = backoff
				backoff *= 2
				if backoff > c.config.BackoffMax {
					backoff = c.config.BackoffMax
				}
			} else {
				backoff = c.config.BackoffMin
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()
}

// applyDownloaded upserts server aggregates into the mirror and reflects the
// server's status back onto local queue rows that produced them.
func (c *Client) applyDownloaded(ctx context.Context, forms []supervisync.FormDownload) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for i := range forms {
		form := &forms[i]
		payload, err := json.Marshal(form)
		if err != nil {
			return fmt.Errorf("marshal downloaded form %s: %w", form.ID, err)
		}
		if _, err := c.DB.ExecContext(ctx, `
			INSERT INTO remote_forms (id, payload, sync_status, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				payload = excluded.payload,
				sync_status = excluded.sync_status,
				updated_at = excluded.updated_at`,
			form.ID, string(payload), form.SyncStatus,
			form.UpdatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("store downloaded form %s: %w", form.ID, err)
		}

		// Verification happens server-side; surface it on the origin row.
		if _, err := c.DB.ExecContext(ctx, `
			UPDATE local_forms
			SET sync_status = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
			WHERE server_id = ? AND sync_status != ?`,
			form.SyncStatus, form.ID, form.SyncStatus); err != nil {
			return fmt.Errorf("update local form for %s: %w", form.ID, err)
		}
	}
	return nil
}

// RemoteForms returns the locally mirrored server aggregates.
func (c *Client) RemoteForms(ctx context.Context) ([]supervisync.FormDownload, error) {
	rows, err := c.DB.QueryContext(ctx, `SELECT payload FROM remote_forms ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query remote forms: %w", err)
	}
	defer rows.Close()

	var forms []supervisync.FormDownload
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan remote form: %w", err)
		}
		var form supervisync.FormDownload
		if err := json.Unmarshal([]byte(payload), &form); err != nil {
			return nil, fmt.Errorf("unmarshal remote form: %w", err)
		}
		forms = append(forms, form)
	}
	return forms, rows.Err()
}

// syncCursor reads the persisted download cursor, both parts empty on first
// sync.
func (c *Client) syncCursor(ctx context.Context) (lastSync, lastID string, err error) {
	err = c.DB.QueryRowContext(ctx,
		`SELECT last_sync_at, last_sync_id FROM _sync_client_info WHERE user_id = ?`,
		c.UserID).Scan(&lastSync, &lastID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("read sync cursor: %w", err)
	}
	return lastSync, lastID, nil
}

func (c *Client) setSyncCursor(ctx context.Context, lastSync, lastID string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.DB.ExecContext(ctx, `
		INSERT INTO _sync_client_info (user_id, device_id, last_sync_at, last_sync_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			last_sync_at = excluded.last_sync_at,
			last_sync_id = excluded.last_sync_id`,
		c.UserID, c.DeviceID, lastSync, lastID)
	if err != nil {
		return fmt.Errorf("store sync cursor: %w", err)
	}
	return nil
}

// doJSON performs one authenticated JSON round trip against the server API.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.Token(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
