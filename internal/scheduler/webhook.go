package scheduler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"electrobot/catalog/internal/notify"
	"electrobot/catalog/internal/repository"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

type refreshResponse struct {
	Status string `json:"status"`
	Items  int    `json:"items"`
	Error  string `json:"error,omitempty"`
}

// Webhook exposes the operator endpoint that forces a catalog refresh.
type Webhook struct {
	refresher  Refresher
	notifier   notify.Notifier
	repository repository.RefreshRepository
	path       string
	token      string
}

func NewWebhook(refresher Refresher, notifier notify.Notifier, repository repository.RefreshRepository, path, token string) *Webhook {
	if path == "" {
		path = "/catalog/refresh"
	}
	return &Webhook{
		refresher:  refresher,
		notifier:   notifier,
		repository: repository,
		path:       path,
		token:      token,
	}
}

func (h *Webhook) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authorize)
		r.Get(h.path, h.Refresh)
		r.Get(h.path+"/history", h.History)
	})

	return r
}

// authorize checks the shared secret passed as ?token=; no configured token
// means the endpoint is open.
func (h *Webhook) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.token != "" {
			got := r.URL.Query().Get("token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
				log.Warnf("⚠️ Rejected webhook call from %s: bad token", r.RemoteAddr)
				writeJSON(w, http.StatusForbidden, refreshResponse{Status: "forbidden"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Webhook) Refresh(w http.ResponseWriter, r *http.Request) {
	// the refresh outlives a caller that hangs up
	ctx := context.WithoutCancel(r.Context())
	log.WithField("request_id", chimiddleware.GetReqID(r.Context())).Info("🔄 Forced catalog refresh requested")

	changed, err := h.refresher.Refresh(ctx, true)
	items := h.refresher.Items()
	if err != nil {
		h.notify(ctx, fmt.Sprintf("❌ Catalog refresh failed: %v", err))
		writeJSON(w, http.StatusBadGateway, refreshResponse{Status: "failed", Items: items, Error: err.Error()})
		return
	}

	status := "unchanged"
	if changed {
		status = "updated"
		h.notify(ctx, fmt.Sprintf("✅ Catalog updated: %d items", items))
	} else {
		h.notify(ctx, fmt.Sprintf("ℹ️ Catalog unchanged: %d items", items))
	}
	writeJSON(w, http.StatusOK, refreshResponse{Status: status, Items: items})
}

// History lists the most recent refresh attempts; ?limit= defaults to 20.
func (h *Webhook) History(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusBadRequest, refreshResponse{Status: "bad_request", Error: "invalid limit"})
			return
		}
		limit = n
	}

	records, err := h.repository.RecentRefreshes(r.Context(), limit)
	if err != nil {
		log.Errorf("❌ Failed to load refresh history: %v", err)
		writeJSON(w, http.StatusInternalServerError, refreshResponse{Status: "failed", Error: "history unavailable"})
		return
	}
	if records == nil {
		records = []repository.RefreshRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Webhook) notify(ctx context.Context, text string) {
	if err := h.notifier.Notify(ctx, text); err != nil {
		log.Errorf("❌ Failed to notify operator: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugf("Failed to write response: %v", err)
	}
}

// Serve runs handler on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("🌐 Webhook listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve webhook: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down webhook server: %w", err)
	}
	log.Info("Webhook server stopped")
	return nil
}
