package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"prospect-platform/backend/internal/db"
	"prospect-platform/backend/internal/lead/domain"
	"prospect-platform/backend/internal/lead/service"
	"prospect-platform/backend/internal/platform/response"
	propertydomain "prospect-platform/backend/internal/property/domain"
	"prospect-platform/backend/internal/server/middleware"
)

// Messages returned to clients.
const (
	msgLeadExists    = "Lead Already Exist"
	msgLeadNotExists = "Lead Not Exist"
	msgLeadCreated   = "Lead Generated Successfully"
	msgProjectAbsent = "Project Not Found"
	msgLeadAbsent    = "Lead Not Found"
	msgStatusUpdated = "Lead Status Updated Successfully"
)

// Handler serves the lead and project endpoints. Routes are mounted by the server package.
type Handler struct {
	svc *service.LeadService
}

// NewHandler returns a lead HTTP handler backed by svc.
func NewHandler(svc *service.LeadService) *Handler {
	return &Handler{svc: svc}
}

type candleView struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

type projectView struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Address       string       `json:"address"`
	Logo          string       `json:"logo"`
	Price         float64      `json:"price"`
	CandleData    []candleView `json:"candle_data"`
	Change        float64      `json:"change"`
	ChangePercent float64      `json:"change_percent"`
	ActiveLeads   int64        `json:"active_leads"`
}

func candlesView(points []propertydomain.PricePoint) []candleView {
	out := make([]candleView, len(points))
	for i, p := range points {
		out[i] = candleView{Price: p.Price.InexactFloat64(), Timestamp: p.Timestamp}
	}
	return out
}

// CheckLeadExists handles GET /check-already-lead-exist?property_id=. An existing lead is reported
// as a failure envelope with HTTP 200.
func (h *Handler) CheckLeadExists(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Failure(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	propertyID, ok := requiredQuery(w, r, "property_id")
	if !ok {
		return
	}
	exists, err := h.svc.CheckLeadExists(r.Context(), sub.UserID, propertyID)
	if err != nil {
		response.Internal(w, r, "check lead exists", err)
		return
	}
	if exists {
		response.Failure(w, http.StatusOK, msgLeadExists)
		return
	}
	response.SuccessMessage(w, http.StatusOK, msgLeadNotExists)
}

// GenerateLead handles POST /generate-lead-for-property?property_id=.
func (h *Handler) GenerateLead(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Failure(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	propertyID, ok := requiredQuery(w, r, "property_id")
	if !ok {
		return
	}
	l, err := h.svc.GenerateLead(r.Context(), sub.UserID, propertyID)
	switch {
	case errors.Is(err, service.ErrPropertyNotFound):
		response.Failure(w, http.StatusNotFound, msgProjectAbsent)
		return
	case errors.Is(err, service.ErrLeadExists):
		response.Failure(w, http.StatusOK, msgLeadExists)
		return
	case err != nil:
		response.Internal(w, r, "generate lead", err)
		return
	}
	response.Success(w, http.StatusOK, map[string]string{
		"message": msgLeadCreated,
		"lead_id": l.ID,
	})
}

// ListProjects handles GET /get-investors-project?page_number=&per_page=.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Failure(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	page, perPage, ok := pageQuery(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ListProjectsWithLeadsSummary(r.Context(), sub.UserID, page, perPage)
	if err != nil {
		response.Internal(w, r, "list investor projects", err)
		return
	}
	projects := make([]projectView, 0, len(res.Projects))
	for _, p := range res.Projects {
		projects = append(projects, projectView{
			ID:            p.Property.ID,
			Title:         p.Property.Title,
			Address:       p.Property.Address,
			Logo:          p.LogoURL,
			Price:         p.Property.Price.InexactFloat64(),
			CandleData:    candlesView(p.Candles),
			Change:        p.Change.Change.InexactFloat64(),
			ChangePercent: p.Change.ChangePercent.InexactFloat64(),
			ActiveLeads:   p.ActiveLeads,
		})
	}
	response.Success(w, http.StatusOK, map[string]any{
		"projects":    projects,
		"total_count": res.TotalCount,
	})
}

// GetCandles handles GET /get-candle-of-property?property_id=. It is public.
func (h *Handler) GetCandles(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := requiredQuery(w, r, "property_id")
	if !ok {
		return
	}
	res, err := h.svc.GetCandles(r.Context(), propertyID)
	switch {
	case errors.Is(err, service.ErrPropertyNotFound):
		response.Failure(w, http.StatusNotFound, msgProjectAbsent)
		return
	case err != nil:
		response.Internal(w, r, "get candle of property", err)
		return
	}
	response.Success(w, http.StatusOK, map[string]any{
		"property_id":    res.PropertyID,
		"candle_data":    candlesView(res.Candles),
		"change":         res.Change.Change.InexactFloat64(),
		"change_percent": res.Change.ChangePercent.InexactFloat64(),
	})
}

// ListLeads handles GET /get-investors-leads?page_number=&per_page=.
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Failure(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	page, perPage, ok := pageQuery(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ListLeads(r.Context(), sub.UserID, page, perPage)
	if err != nil {
		response.Internal(w, r, "list investor leads", err)
		return
	}
	response.Success(w, http.StatusOK, map[string]any{
		"leads":       res.Leads,
		"total_count": res.TotalCount,
	})
}

// GetLead handles GET /get-investors-leads-details?lead_id=.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Failure(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	leadID, ok := requiredQuery(w, r, "lead_id")
	if !ok {
		return
	}
	l, err := h.svc.GetLead(r.Context(), sub.UserID, leadID)
	switch {
	case errors.Is(err, service.ErrLeadNotFound):
		response.Failure(w, http.StatusNotFound, msgLeadAbsent)
		return
	case err != nil:
		response.Internal(w, r, "get investor lead details", err)
		return
	}
	response.Success(w, http.StatusOK, l)
}

// ChangeLeadStatus handles PUT /change-lead-status?lead_id=&status=.
func (h *Handler) ChangeLeadStatus(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Failure(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	leadID, ok := requiredQuery(w, r, "lead_id")
	if !ok {
		return
	}
	status, ok := requiredQuery(w, r, "status")
	if !ok {
		return
	}
	l, err := h.svc.ChangeLeadStatus(r.Context(), sub.UserID, leadID, strings.ToLower(status))
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		response.Failure(w, http.StatusBadRequest, "status must be one of "+statusList())
		return
	case errors.Is(err, service.ErrLeadNotFound):
		response.Failure(w, http.StatusNotFound, msgLeadAbsent)
		return
	case errors.Is(err, service.ErrLeadExists):
		response.Failure(w, http.StatusOK, msgLeadExists)
		return
	case err != nil:
		response.Internal(w, r, "change lead status", err)
		return
	}
	response.Success(w, http.StatusOK, map[string]any{
		"message": msgStatusUpdated,
		"lead":    l,
	})
}

func statusList() string {
	return strings.Join([]string{
		string(domain.StatusActive),
		string(domain.StatusClosed),
		string(domain.StatusConverted),
		string(domain.StatusRejected),
	}, ", ")
}

func requiredQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		response.Failure(w, http.StatusBadRequest, name+" is required")
		return "", false
	}
	return v, true
}

// pageQuery reads page_number and per_page. Missing values fall back to the first page and the
// default size; malformed or non-positive values, and per_page above db.MaxPerPage, are rejected.
func pageQuery(w http.ResponseWriter, r *http.Request) (page, perPage int, ok bool) {
	page, ok = positiveQuery(w, r, "page_number", 1)
	if !ok {
		return 0, 0, false
	}
	perPage, ok = positiveQuery(w, r, "per_page", 0)
	if !ok {
		return 0, 0, false
	}
	if perPage > db.MaxPerPage {
		response.Failure(w, http.StatusBadRequest, "per_page must not exceed "+strconv.Itoa(db.MaxPerPage))
		return 0, 0, false
	}
	return page, perPage, true
}

func positiveQuery(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
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
