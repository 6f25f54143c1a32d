// Package models holds the marketplace aggregates: fixed-price listings,
// auctions, and the settlement split arithmetic.
package models

import (
	"time"

	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
)

// ListingState is the listing lifecycle: Active → Sold | Cancelled | Expired.
// All three end states are terminal; relisting creates a fresh Listing.
type ListingState string

const (
	ListingActive    ListingState = "active"
	ListingSold      ListingState = "sold"
	ListingCancelled ListingState = "cancelled"
	ListingExpired   ListingState = "expired"
)

// Listing is an offer to sell one token at a fixed price, optionally
// time-bounded.
//
// Invariants:
//   - Price is positive (smallest currency unit)
//   - At most one Active listing exists per token
//   - The seller's holdership is re-checked at settlement, not just here
type Listing struct {
	ID      domain.ListingID `json:"id"`
	TokenID domain.TokenID   `json:"token_id"`
	Seller  domain.Address   `json:"seller"`
	Price   int64            `json:"price"`
	State   ListingState     `json:"state"`

	// ExpiresAt bounds the listing; nil means open-ended. Expiry is checked
	// lazily whenever the listing is touched, never by a scheduler.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewListing constructs an active listing.
func NewListing(tokenID domain.TokenID, seller domain.Address, price int64, expiresAt *time.Time, now time.Time) (*Listing, error) {
	if price <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidPrice, "price must be positive")
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "expiry must be in the future")
	}
	return &Listing{
		TokenID:   tokenID,
		Seller:    seller,
		Price:     price,
		State:     ListingActive,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsActive reports whether the listing is in the Active state, ignoring the
// time bound; combine with IsExpired for the effective state.
func (l *Listing) IsActive() bool { return l.State == ListingActive }

// IsExpired reports whether the time bound has passed.
func (l *Listing) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// EffectiveState folds lazy expiry into the reported state without mutating.
func (l *Listing) EffectiveState(now time.Time) ListingState {
	if l.State == ListingActive && l.IsExpired(now) {
		return ListingExpired
	}
	return l.State
}

// ApplyState transitions the listing to a terminal state.
func (l *Listing) ApplyState(state ListingState, now time.Time) {
	l.State = state
	l.UpdatedAt = now
}
