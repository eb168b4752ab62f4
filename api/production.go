package api

import (
	"net/http"
	"time"

	"github.com/roastsync/roastery/roastery"
)

// =============================================================================
// LOT HANDLERS
// =============================================================================

// GET /api/v1/lots
func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.Store.ListLots(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list lots", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(lots, toLotDTO))
}

// GET /api/v1/lots/{id}
func (h *Handler) GetLot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	l, err := h.Store.GetLot(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get lot", err)
		return
	}
	writeJSON(w, http.StatusOK, toLotDTO(l))
}

// CreateLot records a green-coffee purchase. Farm and variety must exist.
// POST /api/v1/lots
func (h *Handler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req LotRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid lot", err)
		return
	}
	date, err := parseDate("purchase_date", req.PurchaseDate)
	if err != nil {
		h.handleError(w, r, "invalid lot", err)
		return
	}

	l := roastery.CoffeeLot{
		FarmID:        req.FarmID,
		VarietyID:     req.VarietyID,
		Process:       req.Process,
		PurchaseDate:  date,
		GreenWeight:   roastery.Grams(req.GreenWeightG),
		PricePerKg:    money(req.PricePerKg),
		MoistureLevel: req.MoistureLevel,
		Notes:         req.Notes,
	}
	if err := h.checkLot(r, l); err != nil {
		h.handleError(w, r, "failed to check lot", err)
		return
	}
	if err := h.Store.InsertLot(r.Context(), &l); err != nil {
		h.handleError(w, r, "failed to create lot", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLotDTO(l))
}

// PUT /api/v1/lots/{id}
func (h *Handler) UpdateLot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	var req LotUpdateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid lot", err)
		return
	}
	date, err := parseDatePtr("purchase_date", req.PurchaseDate)
	if err != nil {
		h.handleError(w, r, "invalid lot", err)
		return
	}

	l, err := h.Store.GetLot(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get lot", err)
		return
	}
	setIf(&l.FarmID, req.FarmID)
	setIf(&l.VarietyID, req.VarietyID)
	setIf(&l.Process, req.Process)
	setIf(&l.PurchaseDate, date)
	setIf(&l.Notes, req.Notes)
	if req.GreenWeightG != nil {
		l.GreenWeight = roastery.Grams(*req.GreenWeightG)
	}
	if req.PricePerKg != nil {
		l.PricePerKg = money(*req.PricePerKg)
	}
	if req.MoistureLevel != nil {
		l.MoistureLevel = req.MoistureLevel
	}

	if err := h.checkLot(r, l); err != nil {
		h.handleError(w, r, "failed to check lot", err)
		return
	}
	if err := h.Store.UpdateLot(r.Context(), l); err != nil {
		h.handleError(w, r, "failed to update lot", err)
		return
	}
	writeJSON(w, http.StatusOK, toLotDTO(l))
}

// DELETE /api/v1/lots/{id}
func (h *Handler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "lot", h.Store.DeleteLot)
}

func (h *Handler) checkLot(r *http.Request, l roastery.CoffeeLot) error {
	if err := roastery.ValidateLot(l); err != nil {
		return err
	}
	if _, err := h.Store.GetFarm(r.Context(), l.FarmID); err != nil {
		return err
	}
	_, err := h.Store.GetVariety(r.Context(), l.VarietyID)
	return err
}

// =============================================================================
// ROAST HANDLERS
// =============================================================================

// GET /api/v1/roasts
func (h *Handler) ListRoasts(w http.ResponseWriter, r *http.Request) {
	roasts, err := h.Store.ListRoasts(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list roasts", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(roasts, toRoastDTO))
}

// GET /api/v1/roasts/{id}
func (h *Handler) GetRoast(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	rb, err := h.Store.GetRoastBatch(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get roast", err)
		return
	}
	writeJSON(w, http.StatusOK, toRoastDTO(rb))
}

// CreateRoast records a roast batch; shrinkage is derived.
// POST /api/v1/roasts
func (h *Handler) CreateRoast(w http.ResponseWriter, r *http.Request) {
	var req RoastRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid roast", err)
		return
	}
	date, err := parseDate("roast_date", req.RoastDate)
	if err != nil {
		h.handleError(w, r, "invalid roast", err)
		return
	}

	rb := roastery.RoastBatch{
		LotID:         req.LotID,
		RoastDate:     date,
		GreenInput:    roastery.Grams(req.GreenInputG),
		RoastedOutput: roastery.Grams(req.RoastedOutputG),
		RoastLevel:    req.RoastLevel,
		Notes:         req.Notes,
	}
	if err := h.prepareRoast(r, &rb); err != nil {
		h.handleError(w, r, "failed to check roast", err)
		return
	}
	if err := h.Store.InsertRoast(r.Context(), &rb); err != nil {
		h.handleError(w, r, "failed to create roast", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoastDTO(rb))
}

// PUT /api/v1/roasts/{id}
func (h *Handler) UpdateRoast(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	var req RoastUpdateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid roast", err)
		return
	}
	date, err := parseDatePtr("roast_date", req.RoastDate)
	if err != nil {
		h.handleError(w, r, "invalid roast", err)
		return
	}

	rb, err := h.Store.GetRoastBatch(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get roast", err)
		return
	}
	setIf(&rb.LotID, req.LotID)
	setIf(&rb.RoastDate, date)
	setIf(&rb.RoastLevel, req.RoastLevel)
	setIf(&rb.Notes, req.Notes)
	if req.GreenInputG != nil {
		rb.GreenInput = roastery.Grams(*req.GreenInputG)
	}
	if req.RoastedOutputG != nil {
		rb.RoastedOutput = roastery.Grams(*req.RoastedOutputG)
	}

	if err := h.prepareRoast(r, &rb); err != nil {
		h.handleError(w, r, "failed to check roast", err)
		return
	}
	if err := h.Store.UpdateRoast(r.Context(), rb); err != nil {
		h.handleError(w, r, "failed to update roast", err)
		return
	}
	writeJSON(w, http.StatusOK, toRoastDTO(rb))
}

// DELETE /api/v1/roasts/{id}
func (h *Handler) DeleteRoast(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "roast", h.Store.DeleteRoast)
}

func (h *Handler) prepareRoast(r *http.Request, rb *roastery.RoastBatch) error {
	if err := roastery.PrepareRoast(rb); err != nil {
		return err
	}
	_, err := h.Store.GetLot(r.Context(), rb.LotID)
	return err
}

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// ListRoastedInventory returns every batch with sold, adjusted and
// available grams. Available is not floored.
// GET /api/v1/inventory/roasted
func (h *Handler) ListRoastedInventory(w http.ResponseWriter, r *http.Request) {
	stock, err := h.inventory.Listing(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list roasted inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(stock, toRoastedInventoryDTO))
}

// ListAdjustments optionally filters by ?roast_id=.
// GET /api/v1/inventory/adjustments
func (h *Handler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	roastID, err := queryID(r, "roast_id")
	if err != nil {
		h.handleError(w, r, "invalid roast_id", err)
		return
	}
	adjs, err := h.Store.ListAdjustments(r.Context(), roastID)
	if err != nil {
		h.handleError(w, r, "failed to list adjustments", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(adjs, toAdjustmentDTO))
}

// POST /api/v1/inventory/adjustments
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid adjustment", err)
		return
	}

	date := today()
	if req.AdjustmentDate != "" {
		var err error
		if date, err = parseDate("adjustment_date", req.AdjustmentDate); err != nil {
			h.handleError(w, r, "invalid adjustment", err)
			return
		}
	}

	a := roastery.RoastAdjustment{
		RoastBatchID:   req.RoastBatchID,
		Adjustment:     roastery.Grams(req.AdjustmentG),
		Reason:         req.Reason,
		AdjustmentDate: date,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
	if err := h.checkAdjustment(r, a); err != nil {
		h.handleError(w, r, "failed to check adjustment", err)
		return
	}
	if err := h.Store.InsertAdjustment(r.Context(), &a); err != nil {
		h.handleError(w, r, "failed to create adjustment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdjustmentDTO(a))
}

// PUT /api/v1/inventory/adjustments/{id}
func (h *Handler) UpdateAdjustment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	var req AdjustmentUpdateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid adjustment", err)
		return
	}
	date, err := parseDatePtr("adjustment_date", req.AdjustmentDate)
	if err != nil {
		h.handleError(w, r, "invalid adjustment", err)
		return
	}

	a, err := h.Store.GetAdjustment(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get adjustment", err)
		return
	}
	setIf(&a.RoastBatchID, req.RoastBatchID)
	setIf(&a.Reason, req.Reason)
	setIf(&a.AdjustmentDate, date)
	if req.AdjustmentG != nil {
		a.Adjustment = roastery.Grams(*req.AdjustmentG)
	}

	if err := h.checkAdjustment(r, a); err != nil {
		h.handleError(w, r, "failed to check adjustment", err)
		return
	}
	if err := h.Store.UpdateAdjustment(r.Context(), a); err != nil {
		h.handleError(w, r, "failed to update adjustment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAdjustmentDTO(a))
}

// DELETE /api/v1/inventory/adjustments/{id}
func (h *Handler) DeleteAdjustment(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "adjustment", h.Store.DeleteAdjustment)
}

func (h *Handler) checkAdjustment(r *http.Request, a roastery.RoastAdjustment) error {
	if err := roastery.ValidateAdjustment(a); err != nil {
		return err
	}
	_, err := h.Store.GetRoastBatch(r.Context(), a.RoastBatchID)
	return err
}
