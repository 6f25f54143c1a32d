package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"museion/internal/token/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/httputil"
	"museion/pkg/requestcontext"
)

// InstitutionKeyHeader carries the institution credential on mint requests.
const InstitutionKeyHeader = "X-Institution-Key"

// Service defines the asset operations exposed over HTTP. SettlementTransfer
// is deliberately absent: only the marketplace may invoke it, in-process.
type Service interface {
	Mint(ctx context.Context, institution domain.InstitutionID, credential string, creator domain.Address, metadataURI string, royaltyPct int) (*models.Token, error)
	Transfer(ctx context.Context, id domain.TokenID, from, to, caller domain.Address) (*models.Token, error)
	UpdateMetadata(ctx context.Context, id domain.TokenID, caller domain.Address, newURI string) (*models.Token, error)
	Get(ctx context.Context, id domain.TokenID) (*models.Token, error)
	Provenance(ctx context.Context, id domain.TokenID) ([]models.ProvenanceEntry, error)
	TotalSupply(ctx context.Context) (uint64, error)
}

// Handler wires asset endpoints to the token service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts asset endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tokens", h.HandleMint)
	r.Get("/tokens/supply", h.HandleTotalSupply)
	r.Get("/tokens/{id}", h.HandleGet)
	r.Get("/tokens/{id}/provenance", h.HandleProvenance)
	r.Post("/tokens/{id}/transfer", h.HandleTransfer)
	r.Put("/tokens/{id}/metadata", h.HandleUpdateMetadata)
}

type mintRequest struct {
	Institution string `json:"institution"`
	MetadataURI string `json:"metadata_uri"`
	RoyaltyPct  int    `json:"royalty_pct"`
}

// HandleMint handles POST /tokens. The authenticated caller becomes the
// creator; the institution credential arrives in X-Institution-Key.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creator := requestcontext.Caller(ctx)
	if creator.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	credential := r.Header.Get(InstitutionKeyHeader)
	if credential == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing institution credential"))
		return
	}
	req, ok := httputil.Decode[mintRequest](w, r, h.logger)
	if !ok {
		return
	}
	institution, err := domain.ParseInstitutionID(req.Institution)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.service.Mint(ctx, institution, credential, creator, req.MetadataURI, req.RoyaltyPct)
	if err != nil {
		h.logger.ErrorContext(ctx, "mint failed",
			"institution", institution,
			"creator", creator,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, token)
}

type transferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// HandleTransfer handles POST /tokens/{id}/transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	id, err := domain.ParseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[transferRequest](w, r, h.logger)
	if !ok {
		return
	}
	from, err := domain.ParseAddress(req.From)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.service.Transfer(ctx, id, from, to, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "transfer failed",
			"token_id", id,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, token)
}

type updateMetadataRequest struct {
	MetadataURI string `json:"metadata_uri"`
}

// HandleUpdateMetadata handles PUT /tokens/{id}/metadata.
func (h *Handler) HandleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	id, err := domain.ParseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[updateMetadataRequest](w, r, h.logger)
	if !ok {
		return
	}

	token, err := h.service.UpdateMetadata(ctx, id, caller, req.MetadataURI)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, token)
}

// HandleGet handles GET /tokens/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, token)
}

// HandleProvenance handles GET /tokens/{id}/provenance.
func (h *Handler) HandleProvenance(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.service.Provenance(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"token_id": id, "provenance": entries})
}

// HandleTotalSupply handles GET /tokens/supply.
func (h *Handler) HandleTotalSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.service.TotalSupply(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"total_supply": supply})
}
