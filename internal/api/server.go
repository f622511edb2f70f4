// Package api wires the HTTP surface: the scan lifecycle plus the file and
// permission operations passed through to the storage provider.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/filemgr/spacescan/internal/api/handlers"
	"github.com/filemgr/spacescan/internal/auth"
	"github.com/filemgr/spacescan/internal/history"
	"github.com/filemgr/spacescan/internal/provider/nextcloud"
	"github.com/filemgr/spacescan/internal/provider/webdav"
	"github.com/filemgr/spacescan/internal/scan"
	"github.com/filemgr/spacescan/internal/scheduler"
)

// Server holds the HTTP server and all handler dependencies.
type Server struct {
	addr string
	srv  *http.Server
}

// New wires all routes and returns a Server ready to Run. An empty jwtSecret
// disables authentication (local development only).
func New(
	addr string,
	svc *scan.Service,
	registry *scan.Registry,
	hist *history.Recorder,
	dav *webdav.Client,
	nc *nextcloud.Client,
	sched *scheduler.Scheduler,
	jwtSecret []byte,
	version string,
) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	statusH := &handlers.StatusHandler{Registry: registry, Sched: sched, Version: version}
	scansH := &handlers.ScansHandler{Service: svc, History: hist}
	filesH := &handlers.FilesHandler{WebDAV: dav}
	permsH := &handlers.PermissionsHandler{Nextcloud: nc}
	providerH := &handlers.ProviderHandler{Nextcloud: nc}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", statusH.ServeHTTP)

		r.Group(func(r chi.Router) {
			if len(jwtSecret) > 0 {
				r.Use(auth.RequireToken(jwtSecret))
			}

			r.Put("/spaces/{space}/scans", scansH.Start)
			r.Get("/scans", scansH.List)
			r.Get("/scans/{scanID}", scansH.Status)
			r.Delete("/scans/{scanID}", scansH.Delete)

			r.Post("/files/*", filesH.Upload)
			r.Get("/files/*", filesH.Content)
			r.Delete("/files/*", filesH.Delete)
			r.Get("/info/*", filesH.Info)
			r.Post("/directories/*", filesH.Mkdir)

			r.Get("/permissions/{dir}", permsH.Get)
			r.Post("/permissions/{user}/{level}/{dir}", permsH.Set)
			r.Delete("/permissions/{user}/{dir}", permsH.Delete)

			r.Put("/provider/scans", providerH.ScanAll)
			r.Put("/provider/scans/directory/*", providerH.ScanDirectory)
			r.Put("/provider/scans/{user}", providerH.ScanUser)
			r.Get("/provider/users", providerH.Users)
		})
	})

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: r},
	}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		return s.srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
