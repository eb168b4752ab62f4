package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/roastsync/roastery/report"
	"github.com/roastsync/roastery/roastery"
)

// defaultSnapshotLimit is how many snapshots GET returns without ?limit.
const defaultSnapshotLimit = 30

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GET /api/v1/dashboard/summary
func (h *Handler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to compute dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(summary))
}

// ListSnapshots returns stored summaries, newest first. ?limit=0 returns all.
// GET /api/v1/dashboard/snapshots
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := defaultSnapshotLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.handleError(w, r, "invalid limit", roastery.Invalid("limit", fmt.Sprintf("must be a non-negative integer, got %q", raw)))
			return
		}
		limit = n
	}

	snaps, err := h.Store.ListSnapshots(r.Context(), limit)
	if err != nil {
		h.handleError(w, r, "failed to list snapshots", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(snaps, toSnapshotDTO))
}

// CreateSnapshot stores the current summary now (superuser).
// POST /api/v1/dashboard/snapshots
func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var (
		snap roastery.DashboardSnapshot
		err  error
	)
	if h.snapshots != nil {
		snap, err = h.snapshots.RunSnapshot(r.Context(), true)
	} else {
		snap, err = h.dashboard.Snapshot(r.Context(), h.Store, time.Now().UTC())
	}
	if err != nil {
		h.handleError(w, r, "failed to take snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSnapshotDTO(snap))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// SalesReport streams every sale as an XLSX workbook.
// GET /api/v1/reports/sales.xlsx
func (h *Handler) SalesReport(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Store.ListSales(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list sales", err)
		return
	}
	customers, err := h.Store.ListCustomers(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list customers", err)
		return
	}
	names := make(map[int64]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}

	f, err := report.SalesWorkbook(sales, names)
	if err != nil {
		h.handleError(w, r, "failed to build sales report", err)
		return
	}
	h.writeWorkbook(w, r, "sales", f)
}

// InventoryReport streams the roasted stock listing as an XLSX workbook.
// GET /api/v1/reports/inventory.xlsx
func (h *Handler) InventoryReport(w http.ResponseWriter, r *http.Request) {
	stock, err := h.inventory.Listing(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list roasted inventory", err)
		return
	}
	f, err := report.InventoryWorkbook(stock)
	if err != nil {
		h.handleError(w, r, "failed to build inventory report", err)
		return
	}
	h.writeWorkbook(w, r, "inventory", f)
}

func (h *Handler) writeWorkbook(w http.ResponseWriter, r *http.Request, name string, f *excelize.File) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	if err := report.Write(w, f); err != nil {
		// Headers are gone; all we can do is log.
		h.logger.Sugar().Errorw("failed to stream workbook", "report", name, "path", r.URL.Path, "error", err)
	}
}
