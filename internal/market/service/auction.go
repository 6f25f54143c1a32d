package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"museion/internal/events"
	"museion/internal/market/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/sentinel"
	"museion/pkg/requestcontext"
)

// CreateAuction opens a time-bounded auction for a token the seller holds.
// A token cannot be on auction and listed at the same time.
func (s *Service) CreateAuction(ctx context.Context, tokenID domain.TokenID, seller domain.Address, startPrice int64, duration time.Duration) (*models.Auction, error) {
	var auction *models.Auction
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		tok, err := s.tokens.Get(txCtx, tokenID)
		if err != nil {
			return err
		}
		if seller != tok.Holder {
			return dErrors.New(dErrors.CodeUnauthorized, "seller is not the current holder")
		}
		if _, err := s.listings.FindActiveByToken(txCtx, tokenID); err == nil {
			return dErrors.New(dErrors.CodeAlreadyListed, "token already has an active listing")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check listings")
		}

		now := requestcontext.Now(txCtx)
		a, err := models.NewAuction(tokenID, seller, startPrice, duration, now)
		if err != nil {
			return err
		}
		if err := s.auctions.Create(txCtx, a); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyListed, "token is already on auction")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create auction")
		}
		if s.rewards != nil {
			if err := s.rewards.OnListed(txCtx, seller); err != nil {
				return err
			}
		}
		if err := s.emit(txCtx, events.Event{
			Type:      events.TypeAuctionCreated,
			TokenID:   tokenID,
			AuctionID: a.ID,
			Actor:     seller,
			Amount:    startPrice,
		}); err != nil {
			return err
		}
		auction = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "auction created",
		"token_id", tokenID,
		"auction_id", auction.ID,
		"start_price", startPrice,
		"ends_at", auction.EndsAt,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.AuctionsCreated.Inc()
	}
	return auction, nil
}

// Bid places a new highest bid. The bid amount moves into the bidder's
// escrow and the previous highest bid is released in the same transaction,
// so at most one bid is held per auction at any commit point.
func (s *Service) Bid(ctx context.Context, tokenID domain.TokenID, bidder domain.Address, amount int64) (*models.Auction, error) {
	var auction *models.Auction
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.auctions.FindActiveByToken(txCtx, tokenID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotActive, "no active auction for this token")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load auction")
		}
		now := requestcontext.Now(txCtx)
		if err := a.CanBid(bidder, amount, now); err != nil {
			return err
		}

		prevBidder, prevBid := a.HighestBidder, a.CurrentBid
		if err := s.funds.Hold(txCtx, bidder, amount); err != nil {
			if errors.Is(err, sentinel.ErrInsufficient) {
				return dErrors.New(dErrors.CodeInsufficientPayment, "bidder has insufficient funds")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to escrow bid")
		}
		if prevBid > 0 {
			if err := s.funds.Release(txCtx, prevBidder, prevBid); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to refund outbid escrow")
			}
		}

		updated, err := s.auctions.Execute(txCtx, a.ID, nil, func(a *models.Auction) {
			a.ApplyBid(bidder, amount, now)
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record bid")
		}
		if err := s.emit(txCtx, events.Event{
			Type:      events.TypeAuctionBid,
			TokenID:   tokenID,
			AuctionID: a.ID,
			Actor:     bidder,
			Amount:    amount,
		}); err != nil {
			return err
		}
		auction = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "bid placed",
		"token_id", tokenID,
		"auction_id", auction.ID,
		"amount", amount,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.BidsPlaced.Inc()
	}
	return auction, nil
}

// SettleAuction finalizes an ended auction. Anyone may call it; settlement is
// a public service to the winner, not a seller privilege. With no bids the
// auction expires. With a held bid the escrow is captured and split exactly
// like a fixed-price sale.
//
// If the seller disposed of the token mid-auction, the held bid is refunded
// and the auction cancelled; that cleanup commits even though the call
// reports a stale-listing rejection.
func (s *Service) SettleAuction(ctx context.Context, tokenID domain.TokenID) (*models.Auction, *models.Split, error) {
	ctx, span := s.tracer.Start(ctx, "market.SettleAuction",
		trace.WithAttributes(attribute.Int64("token_id", int64(tokenID))))
	defer span.End()
	start := time.Now()

	var (
		settled *models.Auction
		split   *models.Split
		reject  error
	)
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.auctions.FindActiveByToken(txCtx, tokenID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotActive, "no active auction for this token")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load auction")
		}
		now := requestcontext.Now(txCtx)
		if !a.Ended(now) {
			return dErrors.New(dErrors.CodeConflict, "auction has not ended yet")
		}

		if !a.HasBids() {
			updated, err := s.auctions.Execute(txCtx, a.ID, nil, func(a *models.Auction) {
				a.ApplyState(models.AuctionExpired, now)
			})
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire auction")
			}
			if err := s.emit(txCtx, events.Event{
				Type:      events.TypeAuctionExpired,
				TokenID:   tokenID,
				AuctionID: a.ID,
			}); err != nil {
				return err
			}
			settled = updated
			return nil
		}

		tok, err := s.tokens.Get(txCtx, tokenID)
		if err != nil {
			return err
		}
		if tok.Holder != a.Seller {
			if reject, err = s.cancelStaleAuction(txCtx, a, now); err != nil {
				return err
			}
			return nil
		}
		sp, err := models.ComputeSplit(a.CurrentBid, tok.RoyaltyPct)
		if err != nil {
			return err
		}

		if err := s.funds.Capture(txCtx, a.HighestBidder, a.CurrentBid); err != nil {
			return dErrors.Wrap(err, dErrors.CodeSettlementFailed, "failed to capture escrowed bid")
		}
		if err := s.payout(txCtx, tok.Creator, a.Seller, sp); err != nil {
			return err
		}
		if _, err := s.tokens.SettlementTransfer(txCtx, tokenID, a.Seller, a.HighestBidder, a.CurrentBid); err != nil {
			return err
		}

		updated, err := s.auctions.Execute(txCtx, a.ID, nil, func(a *models.Auction) {
			a.ApplyState(models.AuctionSettled, now)
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close auction")
		}
		if s.rewards != nil {
			if err := s.rewards.OnSold(txCtx, a.Seller, a.HighestBidder, a.CurrentBid); err != nil {
				return err
			}
		}
		if err := s.emit(txCtx, events.Event{
			Type:      events.TypeAuctionSettled,
			TokenID:   tokenID,
			AuctionID: a.ID,
			From:      a.Seller,
			To:        a.HighestBidder,
			Amount:    a.CurrentBid,
			Royalty:   sp.Royalty,
		}); err != nil {
			return err
		}
		settled = updated
		split = &sp
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if reject != nil {
		return nil, nil, reject
	}

	if split != nil {
		s.logger.InfoContext(ctx, "auction settled",
			"token_id", tokenID,
			"auction_id", settled.ID,
			"price", settled.CurrentBid,
			"royalty", split.Royalty,
			"fee", split.Fee,
			"proceeds", split.Proceeds,
			"winner", settled.HighestBidder,
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.metrics != nil {
			s.metrics.ObserveSettlement("auction", settled.CurrentBid, start)
		}
	} else {
		s.logger.InfoContext(ctx, "auction expired without bids",
			"token_id", tokenID,
			"auction_id", settled.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return settled, split, nil
}

// CancelAuction withdraws an auction before any bid lands. Seller only; once
// a bid is held the seller is committed to the sale.
func (s *Service) CancelAuction(ctx context.Context, tokenID domain.TokenID, caller domain.Address) (*models.Auction, error) {
	var cancelled *models.Auction
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.auctions.FindActiveByToken(txCtx, tokenID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no active auction for this token")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load auction")
		}
		if caller != a.Seller {
			return dErrors.New(dErrors.CodeUnauthorized, "only the seller may cancel an auction")
		}
		if a.HasBids() {
			return dErrors.New(dErrors.CodeConflict, "auction has a held bid and cannot be cancelled")
		}

		now := requestcontext.Now(txCtx)
		updated, err := s.auctions.Execute(txCtx, a.ID, nil, func(a *models.Auction) {
			a.ApplyState(models.AuctionCancelled, now)
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel auction")
		}
		if err := s.emit(txCtx, events.Event{
			Type:      events.TypeAuctionCancelled,
			TokenID:   tokenID,
			AuctionID: a.ID,
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
	return cancelled, nil
}

// GetAuction returns the token's current auction.
func (s *Service) GetAuction(ctx context.Context, tokenID domain.TokenID) (*models.Auction, error) {
	a, err := s.auctions.FindActiveByToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active auction for this token")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load auction")
	}
	return a, nil
}

// cancelStaleAuction refunds the held bid and retires an auction whose
// seller no longer holds the token.
func (s *Service) cancelStaleAuction(ctx context.Context, a *models.Auction, now time.Time) (error, error) {
	if a.HasBids() {
		if err := s.funds.Release(ctx, a.HighestBidder, a.CurrentBid); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to refund escrowed bid")
		}
	}
	if _, err := s.auctions.Execute(ctx, a.ID, nil, func(a *models.Auction) {
		a.ApplyState(models.AuctionCancelled, now)
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel stale auction")
	}
	if err := s.emit(ctx, events.Event{
		Type:      events.TypeAuctionCancelled,
		TokenID:   a.TokenID,
		AuctionID: a.ID,
		Note:      "stale",
	}); err != nil {
		return nil, err
	}
	return dErrors.New(dErrors.CodeStaleListing, "seller no longer holds this token"), nil
}
