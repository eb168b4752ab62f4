/*
handlers.go - HTTP handler context, request decoding and error mapping

PURPOSE:
  Holds the dependencies every handler shares and the helpers that turn
  requests into records and errors into responses. Handlers live next to
  their area:
  - catalog.go:    farms, varieties, customers, expenses, price references
  - production.go: lots, roasts, adjustments, roasted inventory
  - sales.go:      sales and debts
  - users.go:      login, me, register, user management
  - dashboard.go:  summary, snapshots, spreadsheet reports

REQUEST FLOW:
  1. Parse the path id / decode and validate the JSON body
  2. Convert to records (convert.go)
  3. Call the store or a roastery service
  4. Serialize the DTO

ERROR HANDLING:
  Errors are returned as JSON {"error", "details"} with:
  - 400: malformed body, validation, insufficient stock, inactive user
  - 401: bad credentials or token
  - 403: not a superuser
  - 404: record not found
  - 409: store constraint (record still referenced, duplicate)
  - 503: a lock could not be obtained in time
  - 500: anything else (logged)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roastsync/roastery/auth"
	"github.com/roastsync/roastery/lock"
	"github.com/roastsync/roastery/roastery"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// SnapshotRunner takes a dashboard snapshot on demand.
type SnapshotRunner interface {
	RunSnapshot(ctx context.Context, force bool) (roastery.DashboardSnapshot, error)
}

// Deps are the handler's collaborators. Sales, Snapshots and Logger are
// optional.
type Deps struct {
	Store     roastery.Store
	Auth      *auth.Service
	Sales     *roastery.SaleService
	Snapshots SnapshotRunner
	Places    int32
	Logger    *zap.Logger
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store roastery.Store

	auth      *auth.Service
	sales     *roastery.SaleService
	inventory *roastery.Inventory
	dashboard *roastery.Dashboard
	snapshots SnapshotRunner
	places    int32
	logger    *zap.Logger
	validate  *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sales := d.Sales
	if sales == nil {
		sales = roastery.NewSaleService(d.Store, nil, d.Places, logger.Named("svc.sales"))
	}
	return &Handler{
		Store:     d.Store,
		auth:      d.Auth,
		sales:     sales,
		inventory: roastery.NewInventory(d.Store),
		dashboard: roastery.NewDashboard(d.Store, d.Places),
		snapshots: d.Snapshots,
		places:    d.Places,
		logger:    logger,
		validate:  newValidator(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// bodyError is a body that could not be decoded.
type bodyError struct {
	err error
}

func (e *bodyError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *bodyError) Unwrap() error { return e.err }

// decode reads a JSON body into dst and runs its validate tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &bodyError{err: err}
	}
	return h.validate.Struct(dst)
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, roastery.Invalid("id", fmt.Sprintf("must be a positive integer, got %q", raw))
	}
	return id, nil
}

// queryID parses an optional positive integer query parameter. Missing
// means 0.
func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, roastery.Invalid(name, fmt.Sprintf("must be a positive integer, got %q", raw))
	}
	return id, nil
}

func today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// handleError maps err to a status code. message is used for 500s only;
// client errors carry their own text.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var (
		tagErrs  validator.ValidationErrors
		bodyErr  *bodyError
		stockErr *roastery.InsufficientInventoryError
		fieldErr *roastery.ValidationError
	)

	switch {
	case errors.As(err, &tagErrs):
		details := make(map[string]string, len(tagErrs))
		for _, fe := range tagErrs {
			details[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: details})
	case errors.As(err, &bodyErr):
		writeError(w, http.StatusBadRequest, "invalid request body", bodyErr.err)
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: stockErr.Error(),
			Details: map[string]any{
				"roast_batch_id": stockErr.RoastBatchID,
				"available_g":    stockErr.Available.Float64(),
				"requested_g":    stockErr.Requested.Float64(),
			},
		})
	case errors.As(err, &fieldErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   fieldErr.Error(),
			Details: map[string]string{fieldErr.Field: fieldErr.Message},
		})
	case roastery.IsClientError(err), errors.Is(err, auth.ErrInactiveUser):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case roastery.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case roastery.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, lock.ErrNotObtained):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "resource busy, retry", err)
	default:
		h.logger.Error(message,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

// Healthz reports liveness and database reachability.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	dto := HealthDTO{Status: "ok", Database: "unknown"}
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			dto.Status, dto.Database = "degraded", "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, dto)
			return
		}
		dto.Database = "ok"
	}
	writeJSON(w, http.StatusOK, dto)
}
