package models

import (
	"time"

	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
)

// AuctionState is the auction lifecycle: Active → Settled | Cancelled |
// Expired. Expired means the end time passed with no bids.
type AuctionState string

const (
	AuctionActive    AuctionState = "active"
	AuctionSettled   AuctionState = "settled"
	AuctionCancelled AuctionState = "cancelled"
	AuctionExpired   AuctionState = "expired"
)

// Auction is a time-bounded, escrow-backed sale of one token. Each new
// highest bid moves the bidder's funds into escrow and refunds the previous
// bidder in the same transaction, so exactly one bid is ever held per
// auction.
type Auction struct {
	ID      domain.AuctionID `json:"id"`
	TokenID domain.TokenID   `json:"token_id"`
	Seller  domain.Address   `json:"seller"`

	StartPrice    int64          `json:"start_price"`
	CurrentBid    int64          `json:"current_bid"`
	HighestBidder domain.Address `json:"highest_bidder,omitempty"`

	State  AuctionState `json:"state"`
	EndsAt time.Time    `json:"ends_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAuction constructs an active auction ending at now+duration.
func NewAuction(tokenID domain.TokenID, seller domain.Address, startPrice int64, duration time.Duration, now time.Time) (*Auction, error) {
	if startPrice <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidPrice, "starting price must be positive")
	}
	if duration <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "auction duration must be positive")
	}
	return &Auction{
		TokenID:    tokenID,
		Seller:     seller,
		StartPrice: startPrice,
		State:      AuctionActive,
		EndsAt:     now.Add(duration),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsActive reports whether the auction is in the Active state.
func (a *Auction) IsActive() bool { return a.State == AuctionActive }

// HasBids reports whether any bid is held in escrow.
func (a *Auction) HasBids() bool { return a.CurrentBid > 0 }

// Ended reports whether the bidding window has closed.
func (a *Auction) Ended(now time.Time) bool { return now.After(a.EndsAt) }

// CanBid validates a new bid against the auction rules.
func (a *Auction) CanBid(bidder domain.Address, amount int64, now time.Time) error {
	if a.Ended(now) {
		return dErrors.New(dErrors.CodeExpired, "auction has ended")
	}
	if bidder == a.Seller {
		return dErrors.New(dErrors.CodeUnauthorized, "seller cannot bid on their own auction")
	}
	if amount < a.StartPrice {
		return dErrors.New(dErrors.CodeInvalidPrice, "bid is below the starting price")
	}
	if amount <= a.CurrentBid {
		return dErrors.New(dErrors.CodeInvalidPrice, "bid must exceed the current bid")
	}
	return nil
}

// ApplyBid records the new highest bid.
func (a *Auction) ApplyBid(bidder domain.Address, amount int64, now time.Time) {
	a.CurrentBid = amount
	a.HighestBidder = bidder
	a.UpdatedAt = now
}

// ApplyState transitions the auction to a terminal state.
func (a *Auction) ApplyState(state AuctionState, now time.Time) {
	a.State = state
	a.UpdatedAt = now
}
