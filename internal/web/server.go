package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hpungsan/tabshelf/internal/config"
	"github.com/hpungsan/tabshelf/internal/logger"
)

// shutdownTimeout bounds how long in-flight requests get after a stop signal.
const shutdownTimeout = 5 * time.Second

// NewRouter builds the local API router. A nil logger discards.
func NewRouter(db *sql.DB, cfg *config.Config, log *slog.Logger, version string) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	h := &Handlers{db: db, log: log, version: version}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(securityHeaders)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)

		r.Route("/workspaces", func(r chi.Router) {
			r.Get("/", h.HandleListWorkspaces)
			r.Post("/", h.HandleCreateWorkspace)
			r.Get("/default", h.HandleDefaultWorkspace)
			r.Post("/default", h.HandleEnsureDefaultWorkspace)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.HandleGetWorkspace)
				r.Patch("/", h.HandleUpdateWorkspace)
				r.Delete("/", h.HandleDeleteWorkspace)
				r.Post("/touch", h.HandleTouchWorkspace)
				r.Get("/groups", h.HandleWorkspaceGroups)
				r.Get("/groups/at/{position}", h.HandleGroupAt)
				r.Put("/groups/order", h.HandleReorderGroups)
				r.Get("/tab-count", h.HandleWorkspaceTabCount)
				r.Get("/summary", h.HandleWorkspaceSummary)
			})
		})

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", h.HandleListGroups)
			r.Post("/", h.HandleCreateGroup)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.HandleGetGroup)
				r.Patch("/", h.HandleUpdateGroup)
				r.Delete("/", h.HandleDeleteGroup)
				r.Post("/archive", h.HandleArchiveGroup)
				r.Post("/unarchive", h.HandleUnarchiveGroup)
				r.Get("/tabs", h.HandleGroupTabs)
				r.Get("/tabs/at/{position}", h.HandleTabAt)
				r.Put("/tabs/order", h.HandleReorderTabs)
				r.Get("/tab-count", h.HandleGroupTabCount)
			})
		})

		r.Route("/tabs", func(r chi.Router) {
			r.Get("/", h.HandleListTabs)
			r.Post("/", h.HandleCreateTab)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.HandleGetTab)
				r.Patch("/", h.HandleUpdateTab)
				r.Delete("/", h.HandleDeleteTab)
				r.Post("/archive", h.HandleArchiveTab)
				r.Post("/unarchive", h.HandleUnarchiveTab)
			})
		})

		r.Route("/trash", func(r chi.Router) {
			r.Get("/", h.HandleListTrash)
			r.Delete("/", h.HandleEmptyTrash)
			r.Get("/expired", h.HandleListExpired)
			r.Post("/purge", h.HandlePurge)
			r.Post("/{id}/restore", h.HandleRestore)
			r.Delete("/{id}", h.HandlePermanentDelete)
		})

		r.Get("/search", h.HandleSearch)
	})

	return r
}

// NewServer creates the HTTP server for the local API.
func NewServer(db *sql.DB, cfg *config.Config, log *slog.Logger, version string) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.WebBind, cfg.WebPort),
		Handler:           NewRouter(db, cfg, log, version),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// requestLogger logs one line per request at debug, or warn for 5xx.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= 500 {
				level = slog.LevelWarn
			}
			log.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Run serves srv until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("tabshelf API listening", "addr", "http://"+srv.Addr)
	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, "[::]") || strings.HasPrefix(srv.Addr, ":") {
		log.Warn("API is bound to all interfaces and may be reachable from the network", "addr", srv.Addr)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
