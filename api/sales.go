package api

import (
	"net/http"

	"github.com/roastsync/roastery/roastery"
)

// =============================================================================
// SALE HANDLERS
// =============================================================================

// ListSales returns every sale with its items, newest first.
// GET /api/v1/sales
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Store.ListSales(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list sales", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(sales, toSaleDTO))
}

// GET /api/v1/sales/{id}
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	s, err := h.Store.GetSale(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get sale", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(s))
}

// CreateSale validates the items against roasted stock and records the
// sale. A shortfall answers 400 naming the available grams.
// POST /api/v1/sales
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid sale", err)
		return
	}
	saleDate, err := parseDate("sale_date", req.SaleDate)
	if err != nil {
		h.handleError(w, r, "invalid sale", err)
		return
	}
	paidAt, err := parseDatePtr("paid_at", req.PaidAt)
	if err != nil {
		h.handleError(w, r, "invalid sale", err)
		return
	}

	sale, err := h.sales.Create(r.Context(), roastery.SaleInput{
		CustomerID: req.CustomerID,
		SaleDate:   saleDate,
		Notes:      req.Notes,
		Items:      toSaleItems(req.Items),
		IsPaid:     req.IsPaid,
		AmountPaid: moneyPtr(req.AmountPaid),
		PaidAt:     paidAt,
	})
	if err != nil {
		h.handleError(w, r, "failed to create sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(sale))
}

// UpdateSale changes the given fields. A present "items" list replaces all
// lines and is validated without counting the sale's current lines.
// PUT /api/v1/sales/{id}
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	var req SaleUpdateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid sale", err)
		return
	}
	saleDate, err := parseDatePtr("sale_date", req.SaleDate)
	if err != nil {
		h.handleError(w, r, "invalid sale", err)
		return
	}
	paidAt, err := parseDatePtr("paid_at", req.PaidAt)
	if err != nil {
		h.handleError(w, r, "invalid sale", err)
		return
	}

	upd := roastery.SaleUpdate{
		SaleDate:   saleDate,
		Notes:      req.Notes,
		IsPaid:     req.IsPaid,
		AmountPaid: moneyPtr(req.AmountPaid),
		PaidAt:     paidAt,
	}
	if req.CustomerID.Set {
		upd.CustomerID = req.CustomerID.Value
		upd.ClearCustomer = req.CustomerID.Value == nil
	}
	if req.Items != nil {
		upd.Items = toSaleItems(*req.Items)
	}

	sale, err := h.sales.Update(r.Context(), id, upd)
	if err != nil {
		h.handleError(w, r, "failed to update sale", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(sale))
}

// DeleteSale removes a sale; its grams return to stock.
// DELETE /api/v1/sales/{id}
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "sale", h.sales.Delete)
}

// ListDebts returns sales with money still owed. ?status=partial keeps the
// ones with some payment, ?status=pending the ones with none.
// GET /api/v1/sales/debts
func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	status, err := roastery.ParseDebtStatus(r.URL.Query().Get("status"))
	if err != nil {
		h.handleError(w, r, "invalid status", err)
		return
	}
	sales, err := h.Store.ListSales(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list sales", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(roastery.FilterDebts(sales, status), toSaleDTO))
}
