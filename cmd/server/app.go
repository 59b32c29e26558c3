package main

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/diewo77/paintms/internal/httpx"
	"github.com/diewo77/paintms/internal/logging"
	"github.com/diewo77/paintms/internal/policy"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux         *http.ServeMux
	handler     http.Handler
	db          *gorm.DB
	routerCfg   *policy.RouterConfig
	log         logrus.FieldLogger
	prefix      string
	corsOrigins []string
}

// NewApp creates a new application with all routes mounted under prefix.
func NewApp(db *gorm.DB, routerCfg *policy.RouterConfig, log logrus.FieldLogger, prefix string, corsOrigins []string) *App {
	app := &App{
		mux:         http.NewServeMux(),
		db:          db,
		routerCfg:   routerCfg,
		log:         log,
		prefix:      strings.TrimSuffix(prefix, "/"),
		corsOrigins: corsOrigins,
	}
	app.setupRoutes()
	app.handler = app.withRecover(app.withLogging(app.withCORS(routerCfg.Auth.Middleware(app.mux))))
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// Public routes
	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.readiness)
	a.mux.HandleFunc("POST "+a.prefix+"/auth/login", a.routerCfg.AuthHandler.Login)

	// Account
	ah := a.routerCfg.AuthHandler
	a.handle("GET /auth/me", ah.Me)
	a.handle("PUT /auth/change-password", ah.ChangePassword)
	a.handle("PUT /auth/profile", ah.UpdateProfile)
	a.handle("GET /auth/logs", ah.Logs)

	// Clients
	ch := a.routerCfg.ClientHandler
	a.handle("GET /clients", ch.List)
	a.handle("GET /clients/stats", ch.Stats)
	a.handle("GET /clients/top", ch.Top)
	a.handle("GET /clients/{id}", ch.Get)
	a.handle("POST /clients", ch.Create)
	a.handle("PUT /clients/{id}", ch.Update)
	a.handle("DELETE /clients/{id}", ch.Delete)

	// Products
	ph := a.routerCfg.ProductHandler
	a.handle("GET /products", ph.List)
	a.handle("GET /products/stats", ph.Stats)
	a.handle("GET /products/{id}", ph.Get)
	a.handle("POST /products", ph.Create)
	a.handle("PUT /products/{id}", ph.Update)
	a.handle("DELETE /products/{id}", ph.Delete)

	// Invoices
	ih := a.routerCfg.InvoiceHandler
	a.handle("GET /invoices", ih.List)
	a.handle("GET /invoices/export", ih.Export)
	a.handle("GET /invoices/{id}", ih.Get)
	a.handle("POST /invoices", ih.Create)
	a.handle("PUT /invoices/{id}", ih.Update)
	a.handle("DELETE /invoices/{id}", ih.Delete)
	a.handle("PUT /invoices/{id}/pay", ih.Pay)
	a.handle("PUT /invoices/{id}/unpay", ih.Unpay)
	a.handle("GET /invoices/{id}/print", ih.Print)
	a.handle("GET /invoices/{id}/pdf", ih.PDF)

	a.mux.HandleFunc(a.prefix+"/", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "route_not_found", r.Method+" "+r.URL.Path)
	})
}

// handle mounts an authenticated route. pattern is "METHOD /path" relative to the prefix.
func (a *App) handle(pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	a.mux.Handle(method+" "+a.prefix+path, a.routerCfg.Auth.RequireAuth(h))
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness checks that the database answers.
func (a *App) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		logging.LogError(a.log, "main", "readiness", "database ping", nil, err)
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging tags the request with an id and logs it once served.
func (a *App) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.log.WithFields(logrus.Fields{
			"request_id": reqID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}).Info("request")
	})
}

// withRecover turns a handler panic into a 500 response.
func (a *App) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				a.log.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  rec,
				}).Error("handler panic")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withCORS allows the configured origins ("*" allows any).
func (a *App) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (slices.Contains(a.corsOrigins, "*") || slices.Contains(a.corsOrigins, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			h.Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
