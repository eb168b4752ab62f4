/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the roastery records from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Create bodies (required fields are values)
  - *UpdateRequest: Update bodies (every field optional, nil means keep)

UNITS AND FORMATS:
  - Weights are grams (float), suffixed _g
  - Money is a JSON number, rounded to the configured currency decimals
  - Dates are "YYYY-MM-DD"; timestamps RFC3339

VALIDATION:
  Shape checks use go-playground/validator tags (field names in errors are
  the JSON names). Business rules (stock, payments) live in package roastery.

SEE ALSO:
  - convert.go: record <-> DTO mapping
  - handlers.go: decode / writeError
*/
package api

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// CATALOG
// =============================================================================

type FarmDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

type FarmRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

type FarmUpdateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

type VarietyDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type VarietyRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type VarietyUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description"`
}

type CustomerDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info"`
}

type CustomerRequest struct {
	Name        string `json:"name" validate:"required"`
	ContactInfo string `json:"contact_info"`
}

type CustomerUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	ContactInfo *string `json:"contact_info"`
}

type ExpenseDTO struct {
	ID          int64   `json:"id"`
	ExpenseDate string  `json:"expense_date"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Notes       string  `json:"notes"`
}

type ExpenseRequest struct {
	ExpenseDate string  `json:"expense_date" validate:"required,datetime=2006-01-02"`
	Category    string  `json:"category" validate:"required"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	Notes       string  `json:"notes"`
}

type ExpenseUpdateRequest struct {
	ExpenseDate *string  `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
	Category    *string  `json:"category" validate:"omitempty,min=1"`
	Amount      *float64 `json:"amount" validate:"omitempty,gte=0"`
	Notes       *string  `json:"notes"`
}

type PriceReferenceDTO struct {
	ID        int64   `json:"id"`
	VarietyID *int64  `json:"variety_id"`
	Process   string  `json:"process"`
	BagSizeG  int     `json:"bag_size_g"`
	Price     float64 `json:"price"`
	Notes     string  `json:"notes"`
}

type PriceReferenceRequest struct {
	VarietyID *int64  `json:"variety_id" validate:"omitempty,gt=0"`
	Process   string  `json:"process"`
	BagSizeG  int     `json:"bag_size_g" validate:"gt=0"`
	Price     float64 `json:"price" validate:"gte=0"`
	Notes     string  `json:"notes"`
}

type PriceReferenceUpdateRequest struct {
	VarietyID OptionalID `json:"variety_id"`
	Process   *string    `json:"process"`
	BagSizeG  *int       `json:"bag_size_g" validate:"omitempty,gt=0"`
	Price     *float64   `json:"price" validate:"omitempty,gte=0"`
	Notes     *string    `json:"notes"`
}

// =============================================================================
// PRODUCTION
// =============================================================================

type LotDTO struct {
	ID            int64    `json:"id"`
	FarmID        int64    `json:"farm_id"`
	VarietyID     int64    `json:"variety_id"`
	Process       string   `json:"process"`
	PurchaseDate  string   `json:"purchase_date"`
	GreenWeightG  float64  `json:"green_weight_g"`
	PricePerKg    float64  `json:"price_per_kg"`
	MoistureLevel *float64 `json:"moisture_level"`
	Notes         string   `json:"notes"`
}

type LotRequest struct {
	FarmID        int64    `json:"farm_id" validate:"required,gt=0"`
	VarietyID     int64    `json:"variety_id" validate:"required,gt=0"`
	Process       string   `json:"process" validate:"required"`
	PurchaseDate  string   `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	GreenWeightG  float64  `json:"green_weight_g" validate:"gt=0"`
	PricePerKg    float64  `json:"price_per_kg" validate:"gte=0"`
	MoistureLevel *float64 `json:"moisture_level" validate:"omitempty,gte=0,lte=100"`
	Notes         string   `json:"notes"`
}

type LotUpdateRequest struct {
	FarmID        *int64   `json:"farm_id" validate:"omitempty,gt=0"`
	VarietyID     *int64   `json:"variety_id" validate:"omitempty,gt=0"`
	Process       *string  `json:"process" validate:"omitempty,min=1"`
	PurchaseDate  *string  `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	GreenWeightG  *float64 `json:"green_weight_g" validate:"omitempty,gt=0"`
	PricePerKg    *float64 `json:"price_per_kg" validate:"omitempty,gte=0"`
	MoistureLevel *float64 `json:"moisture_level" validate:"omitempty,gte=0,lte=100"`
	Notes         *string  `json:"notes"`
}

type RoastDTO struct {
	ID             int64   `json:"id"`
	LotID          int64   `json:"lot_id"`
	RoastDate      string  `json:"roast_date"`
	GreenInputG    float64 `json:"green_input_g"`
	RoastedOutputG float64 `json:"roasted_output_g"`
	RoastLevel     string  `json:"roast_level"`
	Notes          string  `json:"notes"`
	ShrinkagePct   float64 `json:"shrinkage_pct"`
}

type RoastRequest struct {
	LotID          int64   `json:"lot_id" validate:"required,gt=0"`
	RoastDate      string  `json:"roast_date" validate:"required,datetime=2006-01-02"`
	GreenInputG    float64 `json:"green_input_g" validate:"gt=0"`
	RoastedOutputG float64 `json:"roasted_output_g" validate:"gte=0"`
	RoastLevel     string  `json:"roast_level"`
	Notes          string  `json:"notes"`
}

type RoastUpdateRequest struct {
	LotID          *int64   `json:"lot_id" validate:"omitempty,gt=0"`
	RoastDate      *string  `json:"roast_date" validate:"omitempty,datetime=2006-01-02"`
	GreenInputG    *float64 `json:"green_input_g" validate:"omitempty,gt=0"`
	RoastedOutputG *float64 `json:"roasted_output_g" validate:"omitempty,gte=0"`
	RoastLevel     *string  `json:"roast_level"`
	Notes          *string  `json:"notes"`
}

type AdjustmentDTO struct {
	ID             int64   `json:"id"`
	RoastBatchID   int64   `json:"roast_batch_id"`
	AdjustmentG    float64 `json:"adjustment_g"`
	Reason         string  `json:"reason"`
	AdjustmentDate string  `json:"adjustment_date"`
	CreatedAt      string  `json:"created_at"`
}

// AdjustmentRequest: a missing adjustment_date means today.
type AdjustmentRequest struct {
	RoastBatchID   int64   `json:"roast_batch_id" validate:"required,gt=0"`
	AdjustmentG    float64 `json:"adjustment_g"`
	Reason         string  `json:"reason"`
	AdjustmentDate string  `json:"adjustment_date" validate:"omitempty,datetime=2006-01-02"`
}

type AdjustmentUpdateRequest struct {
	RoastBatchID   *int64   `json:"roast_batch_id" validate:"omitempty,gt=0"`
	AdjustmentG    *float64 `json:"adjustment_g"`
	Reason         *string  `json:"reason"`
	AdjustmentDate *string  `json:"adjustment_date" validate:"omitempty,datetime=2006-01-02"`
}

// RoastedInventoryDTO is one line of the roasted stock listing.
// AvailableG may be negative when a batch is overdrawn.
type RoastedInventoryDTO struct {
	RoastID        int64   `json:"roast_id"`
	RoastDate      string  `json:"roast_date"`
	RoastLevel     string  `json:"roast_level"`
	LotID          int64   `json:"lot_id"`
	LotProcess     string  `json:"lot_process"`
	FarmName       string  `json:"farm_name"`
	VarietyName    string  `json:"variety_name"`
	GreenInputG    float64 `json:"green_input_g"`
	RoastedOutputG float64 `json:"roasted_output_g"`
	SoldG          float64 `json:"sold_g"`
	AdjustmentsG   float64 `json:"adjustments_g"`
	AvailableG     float64 `json:"available_g"`
	ShrinkagePct   float64 `json:"shrinkage_pct"`
	Notes          string  `json:"notes"`
}

// =============================================================================
// SALES
// =============================================================================

type SaleItemDTO struct {
	ID           int64   `json:"id"`
	SaleID       int64   `json:"sale_id"`
	RoastBatchID int64   `json:"roast_batch_id"`
	BagSizeG     int     `json:"bag_size_g"`
	Bags         int     `json:"bags"`
	BagPrice     float64 `json:"bag_price"`
	Notes        string  `json:"notes"`
}

type SaleDTO struct {
	ID             int64         `json:"id"`
	CustomerID     *int64        `json:"customer_id"`
	SaleDate       string        `json:"sale_date"`
	Notes          string        `json:"notes"`
	TotalPrice     float64       `json:"total_price"`
	TotalQuantityG float64       `json:"total_quantity_g"`
	IsPaid         bool          `json:"is_paid"`
	AmountPaid     float64       `json:"amount_paid"`
	Outstanding    float64       `json:"outstanding"`
	PaidAt         *string       `json:"paid_at"`
	Items          []SaleItemDTO `json:"items"`
}

// SaleItemRequest is checked by the sale validator, not by tags, so errors
// name the offending line (items[1].bags).
type SaleItemRequest struct {
	RoastBatchID int64   `json:"roast_batch_id"`
	BagSizeG     int     `json:"bag_size_g"`
	Bags         *int    `json:"bags"`
	BagPrice     float64 `json:"bag_price"`
	Notes        string  `json:"notes"`
}

type SaleRequest struct {
	CustomerID *int64            `json:"customer_id" validate:"omitempty,gt=0"`
	SaleDate   string            `json:"sale_date" validate:"required,datetime=2006-01-02"`
	Notes      string            `json:"notes"`
	Items      []SaleItemRequest `json:"items"`
	IsPaid     bool              `json:"is_paid"`
	AmountPaid *float64          `json:"amount_paid"`
	PaidAt     *string           `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
}

// SaleUpdateRequest: "customer_id": null detaches the customer, an absent
// key keeps it. A present "items" replaces every line.
type SaleUpdateRequest struct {
	CustomerID OptionalID         `json:"customer_id"`
	SaleDate   *string            `json:"sale_date" validate:"omitempty,datetime=2006-01-02"`
	Notes      *string            `json:"notes"`
	Items      *[]SaleItemRequest `json:"items"`
	IsPaid     *bool              `json:"is_paid"`
	AmountPaid *float64           `json:"amount_paid"`
	PaidAt     *string            `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
}

// OptionalID tells an absent key from an explicit null.
type OptionalID struct {
	Set   bool
	Value *int64
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// =============================================================================
// USERS & AUTH
// =============================================================================

type UserDTO struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UserRequest: is_active defaults to true.
type UserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	FullName    string `json:"full_name"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

type UserUpdateRequest struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
	IsActive *bool   `json:"is_active"`
}

// LoginRequest accepts "username" (form style) or "email".
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type TokenDTO struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

type DashboardDTO struct {
	GreenPurchasedG   float64 `json:"green_purchased_g"`
	GreenConsumedG    float64 `json:"green_consumed_g"`
	GreenAvailableG   float64 `json:"green_available_g"`
	RoastedProducedG  float64 `json:"roasted_produced_g"`
	RoastedSoldG      float64 `json:"roasted_sold_g"`
	RoastedAdjustedG  float64 `json:"roasted_adjusted_g"`
	RoastedAvailableG float64 `json:"roasted_available_g"`

	PurchaseCost  float64 `json:"purchase_cost"`
	SalesRevenue  float64 `json:"sales_revenue"`
	Expenses      float64 `json:"expenses"`
	ExpectedCash  float64 `json:"expected_cash"`
	CashCollected float64 `json:"cash_collected"`
	Receivables   float64 `json:"receivables"`

	GreenInventoryValue   float64 `json:"green_inventory_value"`
	RoastedInventoryValue float64 `json:"roasted_inventory_value"`
	CoffeeInventoryValue  float64 `json:"coffee_inventory_value"`
	AvgPricePerG          float64 `json:"avg_price_per_g"`
	ProjectedFullSale     float64 `json:"projected_full_sale_value"`
	ProjectedHalfSale     float64 `json:"projected_half_sale_value"`

	RecentLots     []LotDTO     `json:"recent_lots"`
	RecentExpenses []ExpenseDTO `json:"recent_expenses"`
	RecentSales    []SaleDTO    `json:"recent_sales"`
}

type SnapshotDTO struct {
	ID      int64        `json:"id"`
	TakenAt string       `json:"taken_at"`
	Summary DashboardDTO `json:"summary"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type HealthDTO struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
