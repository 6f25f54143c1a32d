package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"museion/internal/registry/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/httputil"
	"museion/pkg/requestcontext"
)

// Service defines the registry operations the handler exposes. AddCollection
// is deliberately absent: it is an internal capability of the mint path.
type Service interface {
	Register(ctx context.Context, id domain.InstitutionID, name, description string) (*models.Institution, string, error)
	Verify(ctx context.Context, id domain.InstitutionID, caller domain.Address) (*models.Institution, error)
	Deactivate(ctx context.Context, id domain.InstitutionID, caller domain.Address) (*models.Institution, error)
	Reactivate(ctx context.Context, id domain.InstitutionID, caller domain.Address) (*models.Institution, error)
	UpdateInfo(ctx context.Context, id domain.InstitutionID, caller domain.Address, name, description string) (*models.Institution, error)
	IsVerified(ctx context.Context, id domain.InstitutionID) (bool, error)
	Get(ctx context.Context, id domain.InstitutionID) (*models.Institution, error)
	Count(ctx context.Context) (int, error)
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/institutions", h.HandleRegister)
	r.Get("/institutions/count", h.HandleCount)
	r.Get("/institutions/{id}", h.HandleGet)
	r.Get("/institutions/{id}/verified", h.HandleIsVerified)
	r.Patch("/institutions/{id}", h.HandleUpdateInfo)
	r.Post("/institutions/{id}/verify", h.HandleVerify)
	r.Post("/institutions/{id}/deactivate", h.HandleDeactivate)
	r.Post("/institutions/{id}/reactivate", h.HandleReactivate)
}

type registerRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type registerResponse struct {
	Institution *models.Institution `json:"institution"`
	// Credential is returned exactly once, at registration.
	Credential string `json:"credential"`
}

// HandleRegister handles POST /institutions.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[registerRequest](w, r, h.logger)
	if !ok {
		return
	}
	id, err := domain.ParseInstitutionID(req.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	inst, credential, err := h.service.Register(ctx, id, req.Name, req.Description)
	if err != nil {
		h.logError(ctx, "institution registration failed", id, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, registerResponse{Institution: inst, Credential: credential})
}

// HandleGet handles GET /institutions/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	inst, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inst)
}

// HandleIsVerified handles GET /institutions/{id}/verified.
func (h *Handler) HandleIsVerified(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	verified, err := h.service.IsVerified(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"verified": verified})
}

// HandleCount handles GET /institutions/count.
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

// HandleVerify handles POST /institutions/{id}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.service.Verify)
}

// HandleDeactivate handles POST /institutions/{id}/deactivate.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.service.Deactivate)
}

// HandleReactivate handles POST /institutions/{id}/reactivate.
func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.service.Reactivate)
}

func (h *Handler) adminTransition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, id domain.InstitutionID, caller domain.Address) (*models.Institution, error),
) {
	ctx := r.Context()

	id, err := domain.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	inst, err := op(ctx, id, caller)
	if err != nil {
		h.logError(ctx, "institution transition failed", id, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inst)
}

type updateInfoRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// HandleUpdateInfo handles PATCH /institutions/{id}.
func (h *Handler) HandleUpdateInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.Decode[updateInfoRequest](w, r, h.logger)
	if !ok {
		return
	}

	inst, err := h.service.UpdateInfo(ctx, id, caller, req.Name, req.Description)
	if err != nil {
		h.logError(ctx, "institution info update failed", id, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) logError(ctx context.Context, msg string, id domain.InstitutionID, err error) {
	h.logger.ErrorContext(ctx, msg,
		"institution", id,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
