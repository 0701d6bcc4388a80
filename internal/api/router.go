// Package api exposes decisor sync and review over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/theneilagencia/glimora-sub000/internal/decisor"
	"github.com/theneilagencia/glimora-sub000/internal/decisorsync"
	"github.com/theneilagencia/glimora-sub000/internal/model"
)

// Syncer runs decisor syncs. *decisorsync.Service satisfies it.
type Syncer interface {
	SyncAccount(ctx context.Context, accountID string) (*model.AccountSyncResult, error)
	SyncOrganization(ctx context.Context, organizationID string) (*model.OrganizationSyncResult, error)
}

// DecisorStore is the read and review side of decisor.Store.
type DecisorStore interface {
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListDecisors(ctx context.Context, accountID string) ([]model.Decisor, error)
	SetSellerFeedback(ctx context.Context, id string, feedback model.SellerFeedback, notes string) (*model.Decisor, error)
}

// Options configures the router.
type Options struct {
	CORSOrigins []string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// SyncTimeout bounds a single sync request. Zero means no bound beyond
	// the request context.
	SyncTimeout time.Duration
}

type handler struct {
	syncer Syncer
	store  DecisorStore
	opts   Options
}

// NewRouter builds the HTTP handler.
func NewRouter(syncer Syncer, store DecisorStore, opts Options) http.Handler {
	h := &handler{syncer: syncer, store: store, opts: opts}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Get("/accounts/{id}/decisors", h.listDecisors)
	r.Post("/accounts/{id}/decisors/sync", h.syncAccount)
	r.Post("/organizations/{id}/decisors/sync", h.syncOrganization)
	r.Put("/decisors/{id}/feedback", h.setFeedback)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) syncContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.opts.SyncTimeout > 0 {
		return context.WithTimeout(r.Context(), h.opts.SyncTimeout)
	}
	return context.WithCancel(r.Context())
}

func (h *handler) syncAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := h.syncContext(r)
	defer cancel()

	res, err := h.syncer.SyncAccount(ctx, id)
	if err != nil {
		if errors.Is(err, decisorsync.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		zap.L().Error("api: account sync failed", zap.String("account_id", id), zap.Error(err))
		var scrapeErr *decisor.ScrapeError
		if errors.As(err, &scrapeErr) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) syncOrganization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := h.syncContext(r)
	defer cancel()

	res, err := h.syncer.SyncOrganization(ctx, id)
	if err != nil {
		zap.L().Error("api: organization sync failed", zap.String("organization_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) listDecisors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	acct, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	decisors, err := h.store.ListDecisors(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if decisors == nil {
		decisors = []model.Decisor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": id, "decisors": decisors})
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
	Notes    string `json:"notes"`
}

func (h *handler) setFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	feedback, err := model.ParseSellerFeedback(req.Feedback)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.store.SetSellerFeedback(r.Context(), id, feedback, req.Notes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "decisor not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
