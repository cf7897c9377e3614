package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/diewo77/invoicebook/auth"
	"github.com/diewo77/invoicebook/httpx"
	"github.com/diewo77/invoicebook/internal/config"
	"github.com/diewo77/invoicebook/internal/db"
	"github.com/diewo77/invoicebook/internal/handlers"
	"github.com/diewo77/invoicebook/internal/logger"
	"github.com/diewo77/invoicebook/internal/metrics"
	"github.com/diewo77/invoicebook/internal/services"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const requestIDHeader = "X-Request-ID"

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	db      *gorm.DB
	log     *zap.Logger
	metrics *metrics.Metrics
	gather  prometheus.Gatherer

	auth      *handlers.AuthHandler
	companies *handlers.CompanyHandler
	invoices  *handlers.InvoiceHandler
	profiles  *handlers.ProfileHandler
	dashboard *handlers.DashboardHandler
}

// NewApp wires the services and handlers on top of conn. Collectors are
// registered on reg, which also backs /metrics.
func NewApp(conn *gorm.DB, cfg *config.Config, log *zap.Logger, reg *prometheus.Registry) *App {
	m := metrics.New(reg)

	ledger := services.NewLedger(conn, log, m)
	invoices := services.NewInvoiceService(conn, ledger, log, m, services.InvoiceOptions{
		CacheTTL:  cfg.App.CacheTTL,
		DueInDays: cfg.App.DueInDays,
	})
	companies := services.NewCompanyService(conn, log, invoices)
	recurring := services.NewRecurringService(invoices, companies, log, m, cfg.App.MaxRecurrences, cfg.App.DueInDays)
	profiles := services.NewProfileService(conn, log)

	app := &App{
		mux:       http.NewServeMux(),
		db:        conn,
		log:       log,
		metrics:   m,
		gather:    reg,
		auth:      handlers.NewAuthHandler(conn, profiles, log),
		companies: handlers.NewCompanyHandler(companies, ledger, log),
		invoices:  handlers.NewInvoiceHandler(invoices, recurring, services.NewRenderService(invoices, profiles), log),
		profiles:  handlers.NewProfileHandler(profiles, log),
		dashboard: handlers.NewDashboardHandler(services.NewDashboardService(conn), log),
	}
	app.setupRoutes()
	return app
}

// newRegistry returns a registry carrying the Go runtime and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	auth.Middleware(a.observe(a.recoverer(a.mux))).ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /healthz", a.healthz)
	a.mux.Handle("GET /metrics", promhttp.HandlerFor(a.gather, promhttp.HandlerOpts{}))

	a.mux.HandleFunc("POST /api/auth/register", a.auth.Register)
	a.mux.HandleFunc("POST /api/auth/login", a.auth.Login)
	a.mux.HandleFunc("POST /api/auth/logout", a.auth.Logout)
	a.mux.Handle("GET /api/auth/me", requireAuth(a.auth.Me))

	// ─────────────────────────────────────────────────────────────────────────
	// Companies
	// ─────────────────────────────────────────────────────────────────────────
	ch := a.companies
	a.mux.Handle("GET /api/companies", requireAuth(ch.List))
	a.mux.Handle("POST /api/companies", requireAuth(ch.Create))
	a.mux.Handle("GET /api/companies/{id}", requireAuth(ch.Get))
	a.mux.Handle("PUT /api/companies/{id}", requireAuth(ch.Update))
	a.mux.Handle("DELETE /api/companies/{id}", requireAuth(ch.Delete))
	a.mux.Handle("GET /api/companies/{id}/next-number", requireAuth(ch.NextNumber))
	a.mux.Handle("POST /api/companies/{id}/reconcile", requireAuth(ch.Reconcile))

	// ─────────────────────────────────────────────────────────────────────────
	// Invoices
	// ─────────────────────────────────────────────────────────────────────────
	ih := a.invoices
	a.mux.Handle("GET /api/invoices", requireAuth(ih.List))
	a.mux.Handle("POST /api/invoices", requireAuth(ih.Create))
	a.mux.Handle("POST /api/invoices/recurring", requireAuth(ih.CreateRecurring))
	a.mux.Handle("GET /api/invoices/{id}", requireAuth(ih.Get))
	a.mux.Handle("PUT /api/invoices/{id}", requireAuth(ih.Update))
	a.mux.Handle("DELETE /api/invoices/{id}", requireAuth(ih.Delete))
	a.mux.Handle("PUT /api/invoices/{id}/status", requireAuth(ih.UpdateStatus))
	a.mux.Handle("POST /api/invoices/{id}/pdf", requireAuth(ih.RenderData))

	// ─────────────────────────────────────────────────────────────────────────
	// User profile & banking
	// ─────────────────────────────────────────────────────────────────────────
	ph := a.profiles
	a.mux.Handle("GET /api/user/profile", requireAuth(ph.GetProfile))
	a.mux.Handle("PUT /api/user/profile", requireAuth(ph.UpdateProfile))
	a.mux.Handle("GET /api/user/banking", requireAuth(ph.ListBanking))
	a.mux.Handle("POST /api/user/banking", requireAuth(ph.CreateBanking))
	a.mux.Handle("PUT /api/user/banking/{id}", requireAuth(ph.UpdateBanking))
	a.mux.Handle("DELETE /api/user/banking/{id}", requireAuth(ph.DeleteBanking))
	a.mux.Handle("POST /api/user/banking/{id}/default", requireAuth(ph.SetDefaultBanking))

	a.mux.Handle("GET /api/dashboard/revenue", requireAuth(a.dashboard.Revenue))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

func requireAuth(h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(h)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// observe tags the request with an id, then logs and measures it once served.
func (a *App) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		r = r.WithContext(logger.WithRequestID(r.Context(), id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		a.metrics.ObserveHTTP(r.Method, r.Pattern, rec.status, elapsed)
		logger.WithContext(r.Context(), a.log).Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", r.Pattern),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
		)
	})
}

func (a *App) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				logger.WithContext(r.Context(), a.log).Error("panic serving request",
					zap.String("path", r.URL.Path),
					zap.String("panic", fmt.Sprint(p)),
					zap.Stack("stack"),
				)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(r.Context(), a.db); err != nil {
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
