// Package events defines the ledger's export record. Every state mutation
// appends one event to the transactional outbox in the same commit as the
// mutation itself: either both become visible or neither does. A background
// relay drains the outbox to Kafka with at-least-once delivery; off-ledger
// consumers (indexers, notification fan-out, media pipelines) own idempotent
// application keyed on the event ID.
//
// The reward ledger does NOT consume these events. It is updated through
// in-transaction recorder ports so points can never drift from the sales
// they reward.
package events

import (
	"time"

	"museion/pkg/domain"
)

// Type names every ledger fact exported to off-ledger consumers. Types are
// part of the public contract; renaming one breaks downstream consumers.
type Type string

const (
	TypeInstitutionRegistered  Type = "institution_registered"
	TypeInstitutionVerified    Type = "institution_verified"
	TypeInstitutionDeactivated Type = "institution_deactivated"
	TypeInstitutionReactivated Type = "institution_reactivated"

	TypeTokenMinted      Type = "token_minted"
	TypeTokenTransferred Type = "token_transferred"

	TypeTokenListed      Type = "token_listed"
	TypeTokenSold        Type = "token_sold"
	TypeListingCancelled Type = "listing_cancelled"
	TypeListingExpired   Type = "listing_expired"

	TypeAuctionCreated   Type = "auction_created"
	TypeAuctionBid       Type = "auction_bid"
	TypeAuctionSettled   Type = "auction_settled"
	TypeAuctionCancelled Type = "auction_cancelled"
	TypeAuctionExpired   Type = "auction_expired"

	TypePointsAwarded Type = "points_awarded"
	TypeBadgeAwarded  Type = "badge_awarded"
)

// Event is the flat export record. One struct for all types keeps consumer
// schemas simple; fields that don't apply to a type stay empty. Seq is
// assigned by the outbox at append time and orders events identically to
// commit order.
type Event struct {
	ID         string    `json:"id"`
	Seq        uint64    `json:"seq"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	Institution domain.InstitutionID `json:"institution,omitempty"`
	TokenID     domain.TokenID       `json:"token_id,omitempty"`
	ListingID   domain.ListingID     `json:"listing_id,omitempty"`
	AuctionID   domain.AuctionID     `json:"auction_id,omitempty"`

	Actor domain.Address `json:"actor,omitempty"`
	From  domain.Address `json:"from,omitempty"`
	To    domain.Address `json:"to,omitempty"`

	Amount  int64  `json:"amount,omitempty"`
	Royalty int64  `json:"royalty,omitempty"`
	Badge   string `json:"badge,omitempty"`
	Note    string `json:"note,omitempty"`

	RequestID string `json:"request_id,omitempty"`
}
