package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/graph"
	"github.com/specialistvlad/svcgrid/internal/node"
)

// serviceView is the JSON shape of one service on the status endpoints.
type serviceView struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Name         string            `json:"name"`
	Comments     string            `json:"comments,omitempty"`
	State        string            `json:"state"`
	ResumeIntent bool              `json:"resumeIntent"`
	Properties   map[string]string `json:"properties,omitempty"`
	References   []string          `json:"references,omitempty"`
}

func newServiceView(n *node.Node) serviceView {
	v := serviceView{
		ID:           n.ID(),
		Type:         n.Type(),
		Name:         n.Name(),
		Comments:     n.Comments(),
		State:        n.State().String(),
		ResumeIntent: n.ResumeIntent(),
	}
	for _, p := range n.Properties() {
		if !p.Set {
			continue
		}
		if v.Properties == nil {
			v.Properties = make(map[string]string)
		}
		v.Properties[p.Descriptor.Name] = p.Value
	}
	for _, ref := range graph.References(n) {
		v.References = append(v.References, ref.TargetID)
	}
	return v
}

// routes builds the status router.
func (a *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(100, time.Minute))

	r.Get("/health", a.healthHandler)
	r.Get("/services", a.servicesHandler)
	r.Get("/services/{id}", a.serviceHandler)
	r.Get("/bulletins", a.bulletinsHandler)
	r.Handle("/metrics", promhttp.HandlerFor(a.metrics.registry, promhttp.HandlerOpts{}))
	return r
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) servicesHandler(w http.ResponseWriter, _ *http.Request) {
	nodes := a.graph.Nodes()
	views := make([]serviceView, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, newServiceView(n))
	}
	a.writeJSON(w, http.StatusOK, views)
}

func (a *App) serviceHandler(w http.ResponseWriter, r *http.Request) {
	n := a.graph.Lookup(chi.URLParam(r, "id"))
	if n == nil {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"error": "service not found"})
		return
	}
	a.writeJSON(w, http.StatusOK, newServiceView(n))
}

func (a *App) bulletinsHandler(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.bulletins.Bulletins())
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("Failed to encode response.", "error", err)
	}
}

// startStatusServer binds the port synchronously so a port conflict is
// reported to the caller, then serves in the background.
func (a *App) startStatusServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start status server: %w", err)
	}

	a.httpServer = &http.Server{
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) closeStatusServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if a.httpServer == nil {
		logger.Debug("Status server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down status server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Status server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Status server shut down gracefully.")
	return nil
}
