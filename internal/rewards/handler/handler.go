package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"museion/internal/rewards/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/httputil"
)

// Service defines the read-only reward surface. The recorder methods are not
// part of it: points enter only through verified ledger events.
type Service interface {
	Account(ctx context.Context, addr domain.Address) (*models.Account, error)
	Ranking(ctx context.Context, limit int) ([]models.RankEntry, error)
	Badges(ctx context.Context) []models.Badge
}

// Handler wires reward endpoints to the reward service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts reward endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/rewards/accounts/{address}", h.HandleAccount)
	r.Get("/rewards/ranking", h.HandleRanking)
	r.Get("/rewards/badges", h.HandleBadges)
}

// HandleAccount handles GET /rewards/accounts/{address}.
func (h *Handler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	acct, err := h.service.Account(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acct)
}

// HandleRanking handles GET /rewards/ranking?limit=N.
func (h *Handler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "limit must be an integer"))
			return
		}
		limit = n
	}

	entries, err := h.service.Ranking(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"ranking": entries})
}

// HandleBadges handles GET /rewards/badges.
func (h *Handler) HandleBadges(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"badges": h.service.Badges(r.Context())})
}
