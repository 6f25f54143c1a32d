package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"museion/internal/market/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/httputil"
	"museion/pkg/requestcontext"
)

// Service defines the marketplace operations exposed over HTTP.
type Service interface {
	List(ctx context.Context, tokenID domain.TokenID, price int64, seller domain.Address, expiresAt *time.Time) (*models.Listing, error)
	Buy(ctx context.Context, tokenID domain.TokenID, buyer domain.Address, payment int64) (*models.Listing, *models.Split, error)
	Cancel(ctx context.Context, tokenID domain.TokenID, caller domain.Address) (*models.Listing, error)
	GetListing(ctx context.Context, tokenID domain.TokenID) (*models.Listing, error)

	CreateAuction(ctx context.Context, tokenID domain.TokenID, seller domain.Address, startPrice int64, duration time.Duration) (*models.Auction, error)
	Bid(ctx context.Context, tokenID domain.TokenID, bidder domain.Address, amount int64) (*models.Auction, error)
	SettleAuction(ctx context.Context, tokenID domain.TokenID) (*models.Auction, *models.Split, error)
	CancelAuction(ctx context.Context, tokenID domain.TokenID, caller domain.Address) (*models.Auction, error)
	GetAuction(ctx context.Context, tokenID domain.TokenID) (*models.Auction, error)
}

// Handler wires marketplace endpoints to the market service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts marketplace endpoints on the router. Listings and auctions
// are keyed by token ID: a token has at most one live sale of either kind.
func (h *Handler) Register(r chi.Router) {
	r.Post("/listings", h.HandleList)
	r.Get("/listings/{tokenID}", h.HandleGetListing)
	r.Post("/listings/{tokenID}/buy", h.HandleBuy)
	r.Post("/listings/{tokenID}/cancel", h.HandleCancel)

	r.Post("/auctions", h.HandleCreateAuction)
	r.Get("/auctions/{tokenID}", h.HandleGetAuction)
	r.Post("/auctions/{tokenID}/bids", h.HandleBid)
	r.Post("/auctions/{tokenID}/settle", h.HandleSettleAuction)
	r.Post("/auctions/{tokenID}/cancel", h.HandleCancelAuction)
}

type listRequest struct {
	TokenID   string     `json:"token_id"`
	Price     int64      `json:"price"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HandleList handles POST /listings. The authenticated caller is the seller.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	seller := requestcontext.Caller(ctx)
	if seller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.Decode[listRequest](w, r, h.logger)
	if !ok {
		return
	}
	tokenID, err := domain.ParseTokenID(req.TokenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	listing, err := h.service.List(ctx, tokenID, req.Price, seller, req.ExpiresAt)
	if err != nil {
		h.logger.ErrorContext(ctx, "list failed",
			"token_id", tokenID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, listing)
}

type buyRequest struct {
	Payment int64 `json:"payment"`
}

// saleResponse is the settlement receipt: the closed sale plus the exact
// split of the price.
type saleResponse struct {
	Listing *models.Listing `json:"listing,omitempty"`
	Auction *models.Auction `json:"auction,omitempty"`
	Split   *models.Split   `json:"split,omitempty"`
}

// HandleBuy handles POST /listings/{tokenID}/buy.
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	buyer := requestcontext.Caller(ctx)
	if buyer.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[buyRequest](w, r, h.logger)
	if !ok {
		return
	}

	listing, split, err := h.service.Buy(ctx, tokenID, buyer, req.Payment)
	if err != nil {
		h.logger.ErrorContext(ctx, "buy failed",
			"token_id", tokenID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saleResponse{Listing: listing, Split: split})
}

// HandleCancel handles POST /listings/{tokenID}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	listing, err := h.service.Cancel(ctx, tokenID, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

// HandleGetListing handles GET /listings/{tokenID}.
func (h *Handler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	listing, err := h.service.GetListing(r.Context(), tokenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

type createAuctionRequest struct {
	TokenID         string `json:"token_id"`
	StartPrice      int64  `json:"start_price"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// HandleCreateAuction handles POST /auctions. The authenticated caller is
// the seller.
func (h *Handler) HandleCreateAuction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	seller := requestcontext.Caller(ctx)
	if seller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.Decode[createAuctionRequest](w, r, h.logger)
	if !ok {
		return
	}
	tokenID, err := domain.ParseTokenID(req.TokenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	auction, err := h.service.CreateAuction(ctx, tokenID, seller, req.StartPrice, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		h.logger.ErrorContext(ctx, "create auction failed",
			"token_id", tokenID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, auction)
}

type bidRequest struct {
	Amount int64 `json:"amount"`
}

// HandleBid handles POST /auctions/{tokenID}/bids.
func (h *Handler) HandleBid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bidder := requestcontext.Caller(ctx)
	if bidder.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[bidRequest](w, r, h.logger)
	if !ok {
		return
	}

	auction, err := h.service.Bid(ctx, tokenID, bidder, req.Amount)
	if err != nil {
		h.logger.ErrorContext(ctx, "bid failed",
			"token_id", tokenID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, auction)
}

// HandleSettleAuction handles POST /auctions/{tokenID}/settle. Any
// authenticated caller may settle an ended auction.
func (h *Handler) HandleSettleAuction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	auction, split, err := h.service.SettleAuction(ctx, tokenID)
	if err != nil {
		h.logger.ErrorContext(ctx, "settle failed",
			"token_id", tokenID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saleResponse{Auction: auction, Split: split})
}

// HandleCancelAuction handles POST /auctions/{tokenID}/cancel.
func (h *Handler) HandleCancelAuction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	auction, err := h.service.CancelAuction(ctx, tokenID, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, auction)
}

// HandleGetAuction handles GET /auctions/{tokenID}.
func (h *Handler) HandleGetAuction(w http.ResponseWriter, r *http.Request) {
	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	auction, err := h.service.GetAuction(r.Context(), tokenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, auction)
}
