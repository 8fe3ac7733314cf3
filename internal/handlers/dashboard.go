package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/coastwatch-systems/coastwatch/internal/httputil"
	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/service"
)

// DashboardHandler serves the analyst dashboard endpoints. Route-level role
// gating restricts these to analysts and admins.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats handles GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// Analytics handles GET /api/dashboard/analytics.
func (h *DashboardHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	days := httputil.ParseIntParam(r.URL.Query().Get("days"), 0)

	series, err := h.dashboard.Analytics(r.Context(), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"series": series,
		"count":  len(series),
	})
}

// Export handles GET /api/dashboard/export. Supported formats are csv
// (default) and json; verified_only=true limits the export to verified
// reports.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	filters := models.ReportFilters{}
	if v := r.URL.Query().Get("verified_only"); v != "" {
		verifiedOnly, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid verified_only parameter")
			return
		}
		if verifiedOnly {
			verified := true
			filters.Verified = &verified
		}
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", service.ExportFilename("csv")))
		if err := h.dashboard.ExportCSV(r.Context(), w, filters); err != nil {
			// Headers are already out; all we can do is cut the stream short.
			return
		}
	case "json":
		reports, err := h.dashboard.ExportJSON(r.Context(), filters)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", service.ExportFilename("json")))
		httputil.WriteJSON(w, http.StatusOK, reports)
	default:
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
	}
}
