// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ClientAuthenticator extracts user, device and role identity from HTTP
// requests. Implementations should validate auth (e.g., JWT) and provide all
// three identifiers.
type ClientAuthenticator interface {
	GetUserID(r *http.Request) (string, error)
	GetDeviceID(r *http.Request) (string, error)
	GetRole(r *http.Request) (string, error)
}

// HTTPSyncHandlers provides HTTP handlers for the supervision sync API
type HTTPSyncHandlers struct {
	service       *SyncService
	authenticator ClientAuthenticator
	logger        *slog.Logger
}

// NewHTTPSyncHandlers creates a new instance of sync handlers
func NewHTTPSyncHandlers(service *SyncService, authenticator ClientAuthenticator, logger *slog.Logger) *HTTPSyncHandlers {
	return &HTTPSyncHandlers{
		service:       service,
		authenticator: authenticator,
		logger:        logger,
	}
}

// HandleUpload processes batch form uploads. Structural failures reject the
// whole batch with 400; per-form semantic failures come back inside a 200
// response so the rest of the batch still lands.
func (h *HTTPSyncHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}

	userID, err := h.authenticator.GetUserID(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", err.Error())
		return
	}

	var uploadReq UploadRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&uploadReq); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse upload request")
		return
	}

	response, err := h.service.ProcessUpload(r.Context(), userID, &uploadReq, clientMeta(r))
	if err != nil {
		var reqErr *RequestValidationError
		if errors.As(err, &reqErr) {
			h.writeFieldError(w, http.StatusBadRequest, "invalid_request", "Upload request failed validation", reqErr.Fields)
			return
		}
		if errors.Is(err, ErrBadRequest) {
			h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		h.logger.Error("Failed to process upload", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "upload_failed", "Failed to process upload")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode upload response", "error", err, "user_id", userID)
	}
}

// HandleDownload returns form aggregates changed after the lastSync watermark
func (h *HTTPSyncHandlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	userID, err := h.authenticator.GetUserID(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", err.Error())
		return
	}

	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		deviceID, err = h.authenticator.GetDeviceID(r)
		if err != nil {
			h.writeError(w, http.StatusUnauthorized, "authentication_failed", err.Error())
			return
		}
	}

	// Zero cursor means first sync: every form the user owns qualifies.
	lastSync := time.Time{}
	if lastSyncStr := r.URL.Query().Get("lastSync"); lastSyncStr != "" {
		parsed, err := time.Parse(time.RFC3339Nano, lastSyncStr)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "lastSync must be an RFC 3339 timestamp")
			return
		}
		lastSync = parsed
	}

	// lastId is the id component of the cursor, echoed from the previous
	// page's syncId. Absent for first syncs and pre-cursor clients.
	lastID := uuid.Nil
	if lastIDStr := r.URL.Query().Get("lastId"); lastIDStr != "" {
		parsed, err := uuid.Parse(lastIDStr)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "lastId must be a UUID")
			return
		}
		lastID = parsed
	}

	response, err := h.service.ProcessDownload(r.Context(), userID, deviceID, lastSync, lastID, clientMeta(r))
	if err != nil {
		h.logger.Error("Failed to process download", "error", err, "user_id", userID, "device_id", deviceID)
		h.writeError(w, http.StatusInternalServerError, "download_failed", "Failed to process download")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode download response", "error", err, "user_id", userID, "device_id", deviceID)
	}
}

// HandleVerify promotes a synced form and its visits to verified. Admin only.
func (h *HTTPSyncHandlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only PUT method is allowed")
		return
	}

	userID, deviceID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	formID, err := uuid.Parse(r.PathValue("formId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "formId must be a UUID")
		return
	}

	response, err := h.service.ProcessVerify(r.Context(), userID, deviceID, formID, clientMeta(r))
	if err != nil {
		if errors.Is(err, ErrFormNotFound) {
			h.writeError(w, http.StatusNotFound, "form_not_found", "No form with the given id")
			return
		}
		h.logger.Error("Failed to verify form", "error", err, "form_id", formID, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "verify_failed", "Failed to verify form")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode verify response", "error", err, "form_id", formID)
	}
}

// HandleStatus lists the sync log with aggregate statistics. Admin only.
func (h *HTTPSyncHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	if _, _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	filter := SyncLogFilter{
		Direction: r.URL.Query().Get("direction"),
		Outcome:   r.URL.Query().Get("outcome"),
		UserID:    r.URL.Query().Get("userId"),
	}
	if ps := r.URL.Query().Get("page"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			filter.Page = v
		}
	}
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			filter.PageSize = v
		}
	}

	response, err := h.service.ListSyncLogs(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list sync logs", "error", err)
		h.writeError(w, http.StatusInternalServerError, "status_failed", "Failed to list sync logs")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode status response", "error", err)
	}
}

// requireAdmin authenticates the request and rejects non-admin callers.
func (h *HTTPSyncHandlers) requireAdmin(w http.ResponseWriter, r *http.Request) (userID, deviceID string, ok bool) {
	userID, err := h.authenticator.GetUserID(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", err.Error())
		return "", "", false
	}
	deviceID, err = h.authenticator.GetDeviceID(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", err.Error())
		return "", "", false
	}
	role, err := h.authenticator.GetRole(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", err.Error())
		return "", "", false
	}
	if role != RoleAdmin {
		h.writeError(w, http.StatusForbidden, "forbidden", "Admin role required")
		return "", "", false
	}
	return userID, deviceID, true
}

// clientMeta extracts client network metadata for the sync log.
func clientMeta(r *http.Request) ClientMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = fwd
	}
	return ClientMeta{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}

// writeError writes a standardized error response
func (h *HTTPSyncHandlers) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.writeFieldError(w, statusCode, errorCode, message, nil)
}

// writeFieldError writes a standardized error response with per-field details
func (h *HTTPSyncHandlers) writeFieldError(w http.ResponseWriter, statusCode int, errorCode, message string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := ErrorResponse{
		Error:   errorCode,
		Message: message,
		Fields:  fields,
	}
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Debug("HTTP error response",
		"status_code", statusCode,
		"error_code", errorCode,
		"message", message)
}
