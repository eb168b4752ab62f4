/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the HTTP router (chi), middleware stack, and route definitions.
	This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
 1. RequestID:  Unique ID per request for tracing
 2. RealIP:     Client address behind a proxy
 3. accessLog:  One zap line per request
 4. Recoverer:  Panic recovery (500 instead of crash)
 5. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS (/api/v1):

	/auth/login               public
	/auth/me                  any active user
	/auth/register            superuser
	/farms, /varieties, /customers, /expenses, /price-references,
	/lots, /roasts, /sales    CRUD, any active user
	/sales/debts              open balances
	/inventory/*              roasted listing, adjustments
	/dashboard/*              summary, snapshots (POST: superuser)
	/reports/*.xlsx           spreadsheet exports
	/users/*                  superuser
	/scenarios/*              demo data, superuser
	/healthz                  public, outside /api/v1

SEE ALSO:
  - handlers.go: Handler context and error mapping
  - middleware.go: Authentication
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// CORSOrigins are the allowed frontend origins.
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		// Everything else needs an active user
		r.Group(func(r chi.Router) {
			r.Use(h.RequireUser)

			r.Get("/auth/me", h.Me)
			r.With(h.RequireSuperuser).Post("/auth/register", h.CreateUser)

			r.Route("/farms", func(r chi.Router) {
				r.Get("/", h.ListFarms)
				r.Post("/", h.CreateFarm)
				r.Get("/{id}", h.GetFarm)
				r.Put("/{id}", h.UpdateFarm)
				r.Delete("/{id}", h.DeleteFarm)
			})

			r.Route("/varieties", func(r chi.Router) {
				r.Get("/", h.ListVarieties)
				r.Post("/", h.CreateVariety)
				r.Get("/{id}", h.GetVariety)
				r.Put("/{id}", h.UpdateVariety)
				r.Delete("/{id}", h.DeleteVariety)
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", h.ListCustomers)
				r.Post("/", h.CreateCustomer)
				r.Get("/{id}", h.GetCustomer)
				r.Put("/{id}", h.UpdateCustomer)
				r.Delete("/{id}", h.DeleteCustomer)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", h.ListExpenses)
				r.Post("/", h.CreateExpense)
				r.Get("/{id}", h.GetExpense)
				r.Put("/{id}", h.UpdateExpense)
				r.Delete("/{id}", h.DeleteExpense)
			})

			r.Route("/price-references", func(r chi.Router) {
				r.Get("/", h.ListPriceReferences)
				r.Post("/", h.CreatePriceReference)
				r.Get("/{id}", h.GetPriceReference)
				r.Put("/{id}", h.UpdatePriceReference)
				r.Delete("/{id}", h.DeletePriceReference)
			})

			r.Route("/lots", func(r chi.Router) {
				r.Get("/", h.ListLots)
				r.Post("/", h.CreateLot)
				r.Get("/{id}", h.GetLot)
				r.Put("/{id}", h.UpdateLot)
				r.Delete("/{id}", h.DeleteLot)
			})

			r.Route("/roasts", func(r chi.Router) {
				r.Get("/", h.ListRoasts)
				r.Post("/", h.CreateRoast)
				r.Get("/{id}", h.GetRoast)
				r.Put("/{id}", h.UpdateRoast)
				r.Delete("/{id}", h.DeleteRoast)
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", h.ListSales)
				r.Post("/", h.CreateSale)
				r.Get("/debts", h.ListDebts)
				r.Get("/{id}", h.GetSale)
				r.Put("/{id}", h.UpdateSale)
				r.Delete("/{id}", h.DeleteSale)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/roasted", h.ListRoastedInventory)
				r.Get("/adjustments", h.ListAdjustments)
				r.Post("/adjustments", h.CreateAdjustment)
				r.Put("/adjustments/{id}", h.UpdateAdjustment)
				r.Delete("/adjustments/{id}", h.DeleteAdjustment)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/summary", h.DashboardSummary)
				r.Get("/snapshots", h.ListSnapshots)
				r.With(h.RequireSuperuser).Post("/snapshots", h.CreateSnapshot)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/sales.xlsx", h.SalesReport)
				r.Get("/inventory.xlsx", h.InventoryReport)
			})

			r.Route("/scenarios", func(r chi.Router) {
				r.Use(h.RequireSuperuser)
				r.Get("/", h.ListScenarios)
				r.Post("/load", h.LoadScenario)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(h.RequireSuperuser)
				r.Get("/", h.ListUsers)
				r.Post("/", h.CreateUser)
				r.Get("/{id}", h.GetUser)
				r.Put("/{id}", h.UpdateUser)
				r.Delete("/{id}", h.DeleteUser)
			})
		})
	})

	return r
}
