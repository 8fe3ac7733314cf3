package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/coastwatch-systems/coastwatch/internal/httputil"
	"github.com/coastwatch-systems/coastwatch/internal/middleware"
	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

var errMissingCorners = errors.New("a bounding box requires minLat, maxLat, minLon and maxLon together")

// ReportsHandler serves the report lifecycle endpoints.
type ReportsHandler struct {
	reports   *service.ReportService
	dashboard *service.DashboardService
}

func NewReportsHandler(reports *service.ReportService, dashboard *service.DashboardService) *ReportsHandler {
	return &ReportsHandler{reports: reports, dashboard: dashboard}
}

// Create handles POST /api/reports.
func (h *ReportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req models.CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.reports.Create(r.Context(), user.ID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, report)
}

// List handles GET /api/reports. All filters are optional.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := parseReportFilters(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := h.reports.List(r.Context(), filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}

// Get handles GET /api/reports/{id}.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// Mine handles GET /api/reports/user/mine.
func (h *ReportsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit, offset := httputil.ParseLimitOffset(r, defaultListLimit, maxListLimit)
	reports, err := h.reports.ListMine(r.Context(), user.ID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}

// Verify handles PATCH /api/reports/{id}/verify.
func (h *ReportsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	report, err := h.reports.Verify(r.Context(), mux.Vars(r)["id"], user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// Delete handles DELETE /api/reports/{id}.
func (h *ReportsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.reports.Delete(r.Context(), mux.Vars(r)["id"], user); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Hotspots handles GET /api/reports/hotspots.
func (h *ReportsHandler) Hotspots(w http.ResponseWriter, r *http.Request) {
	clusters := httputil.ParseIntParam(r.URL.Query().Get("clusters"), 0)
	days := httputil.ParseIntParam(r.URL.Query().Get("days"), 0)

	hotspots, err := h.dashboard.Hotspots(r.Context(), clusters, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"hotspots": hotspots,
		"count":    len(hotspots),
	})
}

func parseReportFilters(r *http.Request) (models.ReportFilters, error) {
	q := r.URL.Query()
	filters := models.ReportFilters{
		EventType: models.EventType(q.Get("eventType")),
	}
	filters.Limit, filters.Offset = httputil.ParseLimitOffset(r, defaultListLimit, maxListLimit)

	if v := q.Get("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			return filters, err
		}
		filters.Verified = &verified
	}

	if v := q.Get("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, err
		}
		filters.StartDate = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, err
		}
		filters.EndDate = &t
	}

	// A bounding box requires all four corners.
	corners := []string{q.Get("minLat"), q.Get("maxLat"), q.Get("minLon"), q.Get("maxLon")}
	present := 0
	for _, c := range corners {
		if c != "" {
			present++
		}
	}
	if present > 0 && present < 4 {
		return filters, errMissingCorners
	}
	if present == 4 {
		vals := make([]float64, 4)
		for i, c := range corners {
			f, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return filters, err
			}
			vals[i] = f
		}
		filters.BBox = &models.BoundingBox{
			MinLat: vals[0], MaxLat: vals[1], MinLon: vals[2], MaxLon: vals[3],
		}
	}

	return filters, nil
}
