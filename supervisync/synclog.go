// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// execer is satisfied by both *pgxpool.Pool and pgx.Tx so log rows can be
// written inside an upload transaction (success) or after rollback (failure).
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// recordSyncLog appends one row to the audit ledger. Rows are never updated
// or deleted.
func recordSyncLog(ctx context.Context, db execer, entry *SyncLogEntity) error {
	_, err := db.Exec(ctx, `
		INSERT INTO sync_logs
			(user_id, device_id, form_id, visit_id, temp_id, direction, outcome, error, ip_address, user_agent)
		VALUES
			(@user_id, @device_id, @form_id, @visit_id, @temp_id, @direction, @outcome, @error, @ip_address, @user_agent)`,
		pgx.NamedArgs{
			"user_id":    entry.UserID,
			"device_id":  entry.DeviceID,
			"form_id":    entry.FormID,
			"visit_id":   entry.VisitID,
			"temp_id":    entry.TempID,
			"direction":  entry.Direction,
			"outcome":    entry.Outcome,
			"error":      entry.Error,
			"ip_address": entry.IPAddress,
			"user_agent": entry.UserAgent,
		})
	if err != nil {
		return fmt.Errorf("insert sync log: %w", err)
	}
	return nil
}

// recordSyncLogBestEffort logs failures of the audit write itself but never
// fails the caller: the ledger must not take down the sync path it audits.
func (s *SyncService) recordSyncLogBestEffort(ctx context.Context, entry *SyncLogEntity) {
	if err := recordSyncLog(ctx, s.pool, entry); err != nil {
		s.logger.Warn("Failed to record sync log entry",
			"error", err, "direction", entry.Direction, "outcome", entry.Outcome,
			"user_id", entry.UserID, "device_id", entry.DeviceID)
	}
}

// SyncLogFilter narrows the admin sync-status listing.
type SyncLogFilter struct {
	Direction string // upload|download|verify, empty for all
	Outcome   string // completed|failed, empty for all
	UserID    string // empty for all users
	Page      int    // 1-based
	PageSize  int
}

// ListSyncLogs returns a page of the sync log plus aggregate statistics.
// Admin-only at the REST surface.
func (s *SyncService) ListSyncLogs(ctx context.Context, filter SyncLogFilter) (*SyncStatusResponse, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = DefaultDownloadLimit
	}

	args := pgx.NamedArgs{
		"limit":  pageSize,
		"offset": (page - 1) * pageSize,
	}
	where := "WHERE TRUE"
	if filter.Direction != "" {
		where += " AND direction = @direction"
		args["direction"] = filter.Direction
	}
	if filter.Outcome != "" {
		where += " AND outcome = @outcome"
		args["outcome"] = filter.Outcome
	}
	if filter.UserID != "" {
		where += " AND user_id = @user_id"
		args["user_id"] = filter.UserID
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, device_id, form_id::text, visit_id::text, temp_id,
		       direction, outcome, error, ip_address, user_agent, sync_timestamp
		FROM sync_logs
		`+where+`
		ORDER BY sync_timestamp DESC, id DESC
		LIMIT @limit OFFSET @offset`, args)
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}
	defer rows.Close()

	var logs []SyncLogEntry
	for rows.Next() {
		var (
			entry                   SyncLogEntry
			formID, visitID, tempID *string
			errDetail               *string
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.DeviceID, &formID, &visitID, &tempID,
			&entry.Direction, &entry.Outcome, &errDetail, &entry.IPAddress, &entry.UserAgent,
			&entry.SyncTimestamp); err != nil {
			return nil, fmt.Errorf("scan sync log row: %w", err)
		}
		if formID != nil {
			entry.FormID = *formID
		}
		if visitID != nil {
			entry.VisitID = *visitID
		}
		if tempID != nil {
			entry.TempID = *tempID
		}
		if errDetail != nil {
			entry.Error = *errDetail
		}
		logs = append(logs, entry)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("list sync logs: %w", rows.Err())
	}

	var (
		stats SyncStats
		total int64
	)
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE direction = 'upload'),
		       COUNT(*) FILTER (WHERE direction = 'download'),
		       COUNT(*) FILTER (WHERE direction = 'verify'),
		       COUNT(*) FILTER (WHERE outcome = 'completed'),
		       COUNT(*) FILTER (WHERE outcome = 'failed')
		FROM sync_logs
		`+where, args).Scan(&total, &stats.Uploads, &stats.Downloads, &stats.Verifies,
		&stats.Completed, &stats.Failed); err != nil {
		return nil, fmt.Errorf("sync log stats: %w", err)
	}

	if logs == nil {
		logs = []SyncLogEntry{}
	}

	return &SyncStatusResponse{
		Logs:     logs,
		Stats:    stats,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}
