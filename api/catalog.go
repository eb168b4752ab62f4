package api

import (
	"context"
	"net/http"

	"github.com/roastsync/roastery/roastery"
)

// =============================================================================
// FARM HANDLERS
// =============================================================================

// ListFarms returns all farms.
// GET /api/v1/farms
func (h *Handler) ListFarms(w http.ResponseWriter, r *http.Request) {
	farms, err := h.Store.ListFarms(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list farms", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(farms, toFarmDTO))
}

// GET /api/v1/farms/{id}
func (h *Handler) GetFarm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	f, err := h.Store.GetFarm(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get farm", err)
		return
	}
	writeJSON(w, http.StatusOK, toFarmDTO(f))
}

// POST /api/v1/farms
func (h *Handler) CreateFarm(w http.ResponseWriter, r *http.Request) {
	var req FarmRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid farm", err)
		return
	}
	f := roastery.Farm{Name: req.Name, Location: req.Location, Notes: req.Notes}
	if err := roastery.ValidateName("name", f.Name); err != nil {
		h.handleError(w, r, "invalid farm", err)
		return
	}
	if err := h.Store.InsertFarm(r.Context(), &f); err != nil {
		h.handleError(w, r, "failed to create farm", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFarmDTO(f))
}

// PUT /api/v1/farms/{id}
func (h *Handler) UpdateFarm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	var req FarmUpdateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid farm", err)
		return
	}

	f, err := h.Store.GetFarm(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get farm", err)
		return
	}
	setIf(&f.Name, req.Name)
	setIf(&f.Location, req.Location)
	setIf(&f.Notes, req.Notes)
	if err := roastery.ValidateName("name", f.Name); err != nil {
		h.handleError(w, r, "invalid farm", err)
		return
	}

	if err := h.Store.UpdateFarm(r.Context(), f); err != nil {
		h.handleError(w, r, "failed to update farm", err)
		return
	}
	writeJSON(w, http.StatusOK, toFarmDTO(f))
}

// DELETE /api/v1/farms/{id}
func (h *Handler) DeleteFarm(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "farm", h.Store.DeleteFarm)
}

// =============================================================================
// VARIETY HANDLERS
// =============================================================================

// GET /api/v1/varieties
func (h *Handler) ListVarieties(w http.ResponseWriter, r *http.Request) {
	varieties, err := h.Store.ListVarieties(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list varieties", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(varieties, toVarietyDTO))
}

// GET /api/v1/varieties/{id}
func (h *Handler) GetVariety(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	v, err := h.Store.GetVariety(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get variety", err)
		return
	}
	writeJSON(w, http.StatusOK, toVarietyDTO(v))
}

// POST /api/v1/varieties
func (h *Handler) CreateVariety(w http.ResponseWriter, r *http.Request) {
	var req VarietyRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid variety", err)
		return
	}
	v := roastery.Variety{Name: req.Name, Description: req.Description}
	if err := roastery.ValidateName("name", v.Name); err != nil {
		h.handleError(w, r, "invalid variety", err)
		return
	}
	if err := h.Store.InsertVariety(r.Context(), &v); err != nil {
		h.handleError(w, r, "failed to create variety", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVarietyDTO(v))
}

// PUT /api/v1/varieties/{id}
func (h *Handler) UpdateVariety(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	var req VarietyUpdateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid variety", err)
		return
	}

	v, err := h.Store.GetVariety(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get variety", err)
		return
	}
	setIf(&v.Name, req.Name)
	setIf(&v.Description, req.Description)
	if err := roastery.ValidateName("name", v.Name); err != nil {
		h.handleError(w, r, "invalid variety", err)
		return
	}

	if err := h.Store.UpdateVariety(r.Context(), v); err != nil {
		h.handleError(w, r, "failed to update variety", err)
		return
	}
	writeJSON(w, http.StatusOK, toVarietyDTO(v))
}

// DELETE /api/v1/varieties/{id}
func (h *Handler) DeleteVariety(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "variety", h.Store.DeleteVariety)
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// GET /api/v1/customers
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Store.ListCustomers(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list customers", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(customers, toCustomerDTO))
}

// GET /api/v1/customers/{id}
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	c, err := h.Store.GetCustomer(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// POST /api/v1/customers
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid customer", err)
		return
	}
	c := roastery.Customer{Name: req.Name, ContactInfo: req.ContactInfo}
	if err := roastery.ValidateName("name", c.Name); err != nil {
		h.handleError(w, r, "invalid customer", err)
		return
	}
	if err := h.Store.InsertCustomer(r.Context(), &c); err != nil {
		h.handleError(w, r, "failed to create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(c))
}

// PUT /api/v1/customers/{id}
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	var req CustomerUpdateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid customer", err)
		return
	}

	c, err := h.Store.GetCustomer(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get customer", err)
		return
	}
	setIf(&c.Name, req.Name)
	setIf(&c.ContactInfo, req.ContactInfo)
	if err := roastery.ValidateName("name", c.Name); err != nil {
		h.handleError(w, r, "invalid customer", err)
		return
	}

	if err := h.Store.UpdateCustomer(r.Context(), c); err != nil {
		h.handleError(w, r, "failed to update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// DELETE /api/v1/customers/{id}
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "customer", h.Store.DeleteCustomer)
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// GET /api/v1/expenses
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Store.ListExpenses(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(expenses, toExpenseDTO))
}

// GET /api/v1/expenses/{id}
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	e, err := h.Store.GetExpense(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

// POST /api/v1/expenses
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid expense", err)
		return
	}
	date, err := parseDate("expense_date", req.ExpenseDate)
	if err != nil {
		h.handleError(w, r, "invalid expense", err)
		return
	}
	e := roastery.Expense{
		ExpenseDate: date,
		Category:    req.Category,
		Amount:      roastery.RoundMoney(money(req.Amount), h.places),
		Notes:       req.Notes,
	}
	if err := roastery.ValidateName("category", e.Category); err != nil {
		h.handleError(w, r, "invalid expense", err)
		return
	}
	if err := h.Store.InsertExpense(r.Context(), &e); err != nil {
		h.handleError(w, r, "failed to create expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

// PUT /api/v1/expenses/{id}
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	var req ExpenseUpdateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid expense", err)
		return
	}
	date, err := parseDatePtr("expense_date", req.ExpenseDate)
	if err != nil {
		h.handleError(w, r, "invalid expense", err)
		return
	}

	e, err := h.Store.GetExpense(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get expense", err)
		return
	}
	setIf(&e.ExpenseDate, date)
	setIf(&e.Category, req.Category)
	setIf(&e.Notes, req.Notes)
	if req.Amount != nil {
		e.Amount = roastery.RoundMoney(money(*req.Amount), h.places)
	}
	if err := roastery.ValidateName("category", e.Category); err != nil {
		h.handleError(w, r, "invalid expense", err)
		return
	}

	if err := h.Store.UpdateExpense(r.Context(), e); err != nil {
		h.handleError(w, r, "failed to update expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

// DELETE /api/v1/expenses/{id}
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "expense", h.Store.DeleteExpense)
}

// =============================================================================
// PRICE REFERENCE HANDLERS
// =============================================================================

// ListPriceReferences returns list prices ordered by bag size.
// GET /api/v1/price-references
func (h *Handler) ListPriceReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := h.Store.ListPriceReferences(r.Context())
	if err != nil {
		h.handleError(w, r, "failed to list price references", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(refs, toPriceReferenceDTO))
}

// GET /api/v1/price-references/{id}
func (h *Handler) GetPriceReference(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	p, err := h.Store.GetPriceReference(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get price reference", err)
		return
	}
	writeJSON(w, http.StatusOK, toPriceReferenceDTO(p))
}

// POST /api/v1/price-references
func (h *Handler) CreatePriceReference(w http.ResponseWriter, r *http.Request) {
	var req PriceReferenceRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid price reference", err)
		return
	}
	p := roastery.PriceReference{
		VarietyID: req.VarietyID,
		Process:   req.Process,
		BagSizeG:  req.BagSizeG,
		Price:     roastery.RoundMoney(money(req.Price), h.places),
		Notes:     req.Notes,
	}
	if err := h.checkVariety(r, p.VarietyID); err != nil {
		h.handleError(w, r, "failed to check variety", err)
		return
	}
	if err := h.Store.InsertPriceReference(r.Context(), &p); err != nil {
		h.handleError(w, r, "failed to create price reference", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPriceReferenceDTO(p))
}

// PUT /api/v1/price-references/{id}
func (h *Handler) UpdatePriceReference(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	var req PriceReferenceUpdateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid price reference", err)
		return
	}

	p, err := h.Store.GetPriceReference(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "failed to get price reference", err)
		return
	}
	if req.VarietyID.Set {
		p.VarietyID = req.VarietyID.Value
	}
	setIf(&p.Process, req.Process)
	setIf(&p.BagSizeG, req.BagSizeG)
	setIf(&p.Notes, req.Notes)
	if req.Price != nil {
		p.Price = roastery.RoundMoney(money(*req.Price), h.places)
	}
	if err := h.checkVariety(r, p.VarietyID); err != nil {
		h.handleError(w, r, "failed to check variety", err)
		return
	}

	if err := h.Store.UpdatePriceReference(r.Context(), p); err != nil {
		h.handleError(w, r, "failed to update price reference", err)
		return
	}
	writeJSON(w, http.StatusOK, toPriceReferenceDTO(p))
}

// DELETE /api/v1/price-references/{id}
func (h *Handler) DeletePriceReference(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "price reference", h.Store.DeletePriceReference)
}

func (h *Handler) checkVariety(r *http.Request, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := h.Store.GetVariety(r.Context(), *id)
	return err
}

// =============================================================================
// SHARED
// =============================================================================

// setIf copies *src into dst when src is set.
func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// deleteByID parses {id}, deletes and answers 204.
func (h *Handler) deleteByID(w http.ResponseWriter, r *http.Request, entity string, del func(ctx context.Context, id int64) error) {
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, "invalid id", err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		h.handleError(w, r, "failed to delete "+entity, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
