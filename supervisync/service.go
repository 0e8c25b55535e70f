// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncService orchestrates the offline sync protocol: per-form transactional
// uploads, watermark downloads and verification. It owns no state beyond the
// injected connection pool; all cross-row atomicity comes from transactions
// scoped to a single form.
type SyncService struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	config   *ServiceConfig
	identity *IdentityMapper

	mu     sync.RWMutex
	closed bool
}

// ServiceConfig holds configuration for the sync service.
type ServiceConfig struct {
	AppName          string // Application name for logs
	DownloadPageSize int    // Forms per download page (default 100)
}

// NewSyncService creates the service from an existing pool and runs the
// idempotent schema migrations.
func NewSyncService(pool *pgxpool.Pool, config *ServiceConfig, logger *slog.Logger) (*SyncService, error) {
	if config == nil {
		config = &ServiceConfig{
			AppName:          "supervisync",
			DownloadPageSize: DefaultDownloadLimit,
		}
	}
	if config.DownloadPageSize <= 0 {
		config.DownloadPageSize = DefaultDownloadLimit
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &SyncService{
		pool:     pool,
		logger:   logger,
		config:   config,
		identity: NewIdentityMapper(pool),
	}

	if err := s.initializeSchema(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Identity returns the temp-id to server-id mapper backed by the sync log.
func (s *SyncService) Identity() *IdentityMapper {
	return s.identity
}

// Pool exposes the underlying connection pool for advanced integrations and
// test harnesses.
func (s *SyncService) Pool() *pgxpool.Pool {
	return s.pool
}

// Close marks the service as closed. The pool is owned by the caller and is
// not closed here.
func (s *SyncService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *SyncService) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("sync service is closed")
	}
	return nil
}
