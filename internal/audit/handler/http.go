package handler

import (
	"net/http"
	"strconv"
	"strings"

	"prospect-platform/backend/internal/audit/domain"
	"prospect-platform/backend/internal/audit/repository"
	"prospect-platform/backend/internal/db"
	"prospect-platform/backend/internal/platform/response"
)

// Handler serves read access to the audit trail.
type Handler struct {
	repo repository.Repository
}

// NewHandler returns an audit handler backed by repo.
func NewHandler(repo repository.Repository) *Handler {
	return &Handler{repo: repo}
}

type listResponse struct {
	AuditLogs  []*domain.AuditLog `json:"audit_logs"`
	TotalCount int64              `json:"total_count"`
}

// List handles GET /audit-logs. Optional user_id, action and resource narrow the result.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, ok := positive(w, q.Get("page_number"), "page_number", 1)
	if !ok {
		return
	}
	perPage, ok := positive(w, q.Get("per_page"), "per_page", 0)
	if !ok {
		return
	}
	if perPage > db.MaxPerPage {
		response.Failure(w, http.StatusBadRequest, "per_page must not exceed "+strconv.Itoa(db.MaxPerPage))
		return
	}
	f := repository.Filter{
		UserID:   strings.TrimSpace(q.Get("user_id")),
		Action:   strings.TrimSpace(q.Get("action")),
		Resource: strings.TrimSpace(q.Get("resource")),
	}
	skip, limit := db.PageWindow(page, perPage)

	logs, err := h.repo.List(r.Context(), f, limit, skip)
	if err != nil {
		response.Internal(w, r, "list audit logs", err)
		return
	}
	total, err := h.repo.Count(r.Context(), f)
	if err != nil {
		response.Internal(w, r, "count audit logs", err)
		return
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	response.Success(w, http.StatusOK, listResponse{AuditLogs: logs, TotalCount: total})
}

func positive(w http.ResponseWriter, raw, name string, fallback int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		response.Failure(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return n, true
}
