// Package service implements the marketplace: listing and auction lifecycle
// plus atomic sale settlement. Settlement is one transaction covering the
// fund split, the holder transfer, the listing transition, and the reward
// notification: either every leg commits or none does.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"museion/internal/events"
	marketmetrics "museion/internal/market/metrics"
	"museion/internal/market/models"
	tokenmodels "museion/internal/token/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/sentinel"
	"museion/pkg/platform/tx"
	"museion/pkg/requestcontext"
)

// ListingStore is the marketplace's listing persistence port. Create must
// reject a second active listing per token with sentinel.ErrConflict.
type ListingStore interface {
	Create(ctx context.Context, l *models.Listing) error
	FindActiveByToken(ctx context.Context, tokenID domain.TokenID) (*models.Listing, error)
	Execute(ctx context.Context, id domain.ListingID,
		validate func(*models.Listing) error,
		mutate func(*models.Listing)) (*models.Listing, error)
}

// AuctionStore is the auction persistence port, same contract as listings.
type AuctionStore interface {
	Create(ctx context.Context, a *models.Auction) error
	FindActiveByToken(ctx context.Context, tokenID domain.TokenID) (*models.Auction, error)
	Execute(ctx context.Context, id domain.AuctionID,
		validate func(*models.Auction) error,
		mutate func(*models.Auction)) (*models.Auction, error)
}

// TokenLedger is the capability surface the marketplace needs from the asset
// context. SettlementTransfer re-validates holdership inside the asset
// service, so the marketplace cannot move a token its seller no longer holds.
type TokenLedger interface {
	Get(ctx context.Context, id domain.TokenID) (*tokenmodels.Token, error)
	SettlementTransfer(ctx context.Context, id domain.TokenID, from, to domain.Address, salePrice int64) (*tokenmodels.Token, error)
}

// Funds is the settlement bank capability. All methods participate in the
// ambient transaction and return sentinel.ErrInsufficient untranslated.
type Funds interface {
	Debit(ctx context.Context, addr domain.Address, amount int64) error
	Credit(ctx context.Context, addr domain.Address, amount int64) error
	Hold(ctx context.Context, addr domain.Address, amount int64) error
	Release(ctx context.Context, addr domain.Address, amount int64) error
	Capture(ctx context.Context, addr domain.Address, amount int64) error
}

// RewardRecorder receives verified marketplace facts inside the settlement
// transaction.
type RewardRecorder interface {
	OnSold(ctx context.Context, seller, buyer domain.Address, price int64) error
	OnListed(ctx context.Context, seller domain.Address) error
}

// Service orchestrates the marketplace.
type Service struct {
	listings  ListingStore
	auctions  AuctionStore
	tokens    TokenLedger
	funds     Funds
	rewards   RewardRecorder
	runner    tx.Runner
	publisher events.Publisher
	treasury  domain.Address
	logger    *slog.Logger
	metrics   *marketmetrics.Metrics
	tracer    trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *marketmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithRewardRecorder(r RewardRecorder) Option {
	return func(s *Service) { s.rewards = r }
}

func New(listings ListingStore, auctions AuctionStore, tokens TokenLedger, funds Funds, runner tx.Runner, treasury domain.Address, opts ...Option) *Service {
	s := &Service{
		listings: listings,
		auctions: auctions,
		tokens:   tokens,
		funds:    funds,
		runner:   runner,
		treasury: treasury,
		logger:   slog.Default(),
		tracer:   otel.Tracer("museion/market"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List creates a fixed-price listing. The seller must hold the token, the
// token must not already be listed or on auction, and the price must be
// positive.
func (s *Service) List(ctx context.Context, tokenID domain.TokenID, price int64, seller domain.Address, expiresAt *time.Time) (*models.Listing, error) {
	var listing *models.Listing
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		tok, err := s.tokens.Get(txCtx, tokenID)
		if err != nil {
			return err
		}
		if seller != tok.Holder {
			return dErrors.New(dErrors.CodeUnauthorized, "seller is not the current holder")
		}
		if _, err := s.auctions.FindActiveByToken(txCtx, tokenID); err == nil {
			return dErrors.New(dErrors.CodeAlreadyListed, "token is on auction")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check auctions")
		}

		now := requestcontext.Now(txCtx)
		l, err := models.NewListing(tokenID, seller, price, expiresAt, now)
		if err != nil {
			return err
		}
		if err := s.listings.Create(txCtx, l); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyListed, "token already has an active listing")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create listing")
		}
		if s.rewards != nil {
			if err := s.rewards.OnListed(txCtx, seller); err != nil {
				return err
			}
		}
		if err := s.emit(txCtx, events.Event{
			Type:      events.TypeTokenListed,
			TokenID:   tokenID,
			ListingID: l.ID,
			Actor:     seller,
			Amount:    price,
		}); err != nil {
			return err
		}
		listing = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "token listed",
		"token_id", tokenID,
		"listing_id", listing.ID,
		"price", price,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.ListingsCreated.Inc()
	}
	return listing, nil
}

// Buy settles a fixed-price sale atomically. The buyer is debited exactly the
// asking price; the split routes royalty to the creator, fee to the treasury,
// and the remainder to the seller; the transfer goes through the asset
// context's single transfer path; the listing transitions to Sold.
//
// Lazy lifecycle side effects commit even when the purchase is rejected: an
// expired listing transitions to Expired, and a stale listing (seller no
// longer holds the token) transitions to Cancelled.
func (s *Service) Buy(ctx context.Context, tokenID domain.TokenID, buyer domain.Address, payment int64) (*models.Listing, *models.Split, error) {
	ctx, span := s.tracer.Start(ctx, "market.Buy",
		trace.WithAttributes(attribute.Int64("token_id", int64(tokenID))))
	defer span.End()
	start := time.Now()

	var (
		sold   *models.Listing
		split  models.Split
		reject error
	)
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)

		l, err := s.listings.FindActiveByToken(txCtx, tokenID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotActive, "no active listing for this token")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load listing")
		}
		if l.IsExpired(now) {
			if reject, err = s.expireListing(txCtx, l, now); err != nil {
				return err
			}
			return nil
		}

		tok, err := s.tokens.Get(txCtx, tokenID)
		if err != nil {
			return err
		}
		if tok.Holder != l.Seller {
			if reject, err = s.cancelStaleListing(txCtx, l, now); err != nil {
				return err
			}
			return nil
		}
		if buyer == l.Seller {
			return dErrors.New(dErrors.CodeSelfTransfer, "buyer already holds this token")
		}
		if payment < l.Price {
			return dErrors.New(dErrors.CodeInsufficientPayment, "payment is below the asking price")
		}
		sp, err := models.ComputeSplit(l.Price, tok.RoyaltyPct)
		if err != nil {
			return err
		}

		if err := s.funds.Debit(txCtx, buyer, l.Price); err != nil {
			if errors.Is(err, sentinel.ErrInsufficient) {
				return dErrors.New(dErrors.CodeSettlementFailed, "buyer has insufficient funds")
			}
			return dErrors.Wrap(err, dErrors.CodeSettlementFailed, "failed to debit buyer")
		}
		if err := s.payout(txCtx, tok.Creator, l.Seller, sp); err != nil {
			return err
		}
		if _, err := s.tokens.SettlementTransfer(txCtx, tokenID, l.Seller, buyer, l.Price); err != nil {
			return err
		}

		updated, err := s.listings.Execute(txCtx, l.ID, nil, func(l *models.Listing) {
			l.ApplyState(models.ListingSold, now)
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close listing")
		}
		if s.rewards != nil {
			if err := s.rewards.OnSold(txCtx, l.Seller, buyer, l.Price); err != nil {
				return err
			}
		}
		if err := s.emit(txCtx, events.Event{
			Type:      events.TypeTokenSold,
			TokenID:   tokenID,
			ListingID: l.ID,
			From:      l.Seller,
			To:        buyer,
			Amount:    l.Price,
			Royalty:   sp.Royalty,
		}); err != nil {
			return err
		}
		sold = updated
		split = sp
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if reject != nil {
		return nil, nil, reject
	}

	s.logger.InfoContext(ctx, "sale settled",
		"token_id", tokenID,
		"listing_id", sold.ID,
		"price", sold.Price,
		"royalty", split.Royalty,
		"fee", split.Fee,
		"proceeds", split.Proceeds,
		"buyer", buyer,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.ObserveSettlement("listing", sold.Price, start)
	}
	return sold, &split, nil
}

// Cancel terminates an active listing. Seller only.
func (s *Service) Cancel(ctx context.Context, tokenID domain.TokenID, caller domain.Address) (*models.Listing, error) {
	var (
		cancelled *models.Listing
		reject    error
	)
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)

		l, err := s.listings.FindActiveByToken(txCtx, tokenID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no active listing for this token")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load listing")
		}
		if l.IsExpired(now) {
			if reject, err = s.expireListing(txCtx, l, now); err != nil {
				return err
			}
			return nil
		}
		if caller != l.Seller {
			return dErrors.New(dErrors.CodeUnauthorized, "only the seller may cancel a listing")
		}

		updated, err := s.listings.Execute(txCtx, l.ID, nil, func(l *models.Listing) {
			l.ApplyState(models.ListingCancelled, now)
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel listing")
		}
		if err := s.emit(txCtx, events.Event{
			Type:      events.TypeListingCancelled,
			TokenID:   tokenID,
			ListingID: l.ID,
			Actor:     caller,
		}); err != nil {
			return err
		}
		cancelled = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	if reject != nil {
		return nil, reject
	}
	return cancelled, nil
}

// GetListing returns the token's current listing with lazy expiry folded into
// the reported state. Read-only: the stored state is not touched.
func (s *Service) GetListing(ctx context.Context, tokenID domain.TokenID) (*models.Listing, error) {
	l, err := s.listings.FindActiveByToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active listing for this token")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load listing")
	}
	l.State = l.EffectiveState(requestcontext.Now(ctx))
	return l, nil
}

// expireListing applies the lazy expiry transition and returns the typed
// rejection the caller reports after committing.
func (s *Service) expireListing(ctx context.Context, l *models.Listing, now time.Time) (error, error) {
	if _, err := s.listings.Execute(ctx, l.ID, nil, func(l *models.Listing) {
		l.ApplyState(models.ListingExpired, now)
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire listing")
	}
	if err := s.emit(ctx, events.Event{
		Type:      events.TypeListingExpired,
		TokenID:   l.TokenID,
		ListingID: l.ID,
	}); err != nil {
		return nil, err
	}
	return dErrors.New(dErrors.CodeExpired, "listing has expired"), nil
}

// cancelStaleListing retires a listing whose seller no longer holds the
// token, closing the stale-listing exploit window.
func (s *Service) cancelStaleListing(ctx context.Context, l *models.Listing, now time.Time) (error, error) {
	if _, err := s.listings.Execute(ctx, l.ID, nil, func(l *models.Listing) {
		l.ApplyState(models.ListingCancelled, now)
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel stale listing")
	}
	if err := s.emit(ctx, events.Event{
		Type:      events.TypeListingCancelled,
		TokenID:   l.TokenID,
		ListingID: l.ID,
		Note:      "stale",
	}); err != nil {
		return nil, err
	}
	return dErrors.New(dErrors.CodeStaleListing, "seller no longer holds this token"), nil
}

// payout routes the three split legs. Credits cannot underflow; any failure
// here is infrastructure, surfaced as settlement_failed so the whole
// transaction rolls back.
func (s *Service) payout(ctx context.Context, creator, seller domain.Address, sp models.Split) error {
	if sp.Royalty > 0 {
		if err := s.funds.Credit(ctx, creator, sp.Royalty); err != nil {
			return dErrors.Wrap(err, dErrors.CodeSettlementFailed, "failed to credit royalty")
		}
	}
	if sp.Fee > 0 {
		if err := s.funds.Credit(ctx, s.treasury, sp.Fee); err != nil {
			return dErrors.Wrap(err, dErrors.CodeSettlementFailed, "failed to credit marketplace fee")
		}
	}
	if sp.Proceeds > 0 {
		if err := s.funds.Credit(ctx, seller, sp.Proceeds); err != nil {
			return dErrors.Wrap(err, dErrors.CodeSettlementFailed, "failed to credit seller proceeds")
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event events.Event) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Emit(ctx, event)
}
