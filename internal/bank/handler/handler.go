package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"museion/internal/bank/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/httputil"
	"museion/pkg/requestcontext"
)

// Service defines the bank operations exposed over HTTP. The internal
// movement capabilities (debit, credit, escrow) are not part of this surface.
type Service interface {
	Deposit(ctx context.Context, addr domain.Address, amount int64, caller domain.Address) (*models.Account, error)
	Balance(ctx context.Context, addr domain.Address) (*models.Account, error)
}

// Handler wires bank endpoints to the bank service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts bank endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/bank/deposits", h.HandleDeposit)
	r.Get("/bank/accounts/{address}", h.HandleBalance)
}

type depositRequest struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

// HandleDeposit handles POST /bank/deposits.
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.Decode[depositRequest](w, r, h.logger)
	if !ok {
		return
	}
	addr, err := domain.ParseAddress(req.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	acct, err := h.service.Deposit(ctx, addr, req.Amount, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "deposit failed",
			"address", addr,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acct)
}

// HandleBalance handles GET /bank/accounts/{address}.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	acct, err := h.service.Balance(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acct)
}
