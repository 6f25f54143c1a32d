// Package models holds the asset context's aggregates: the tokenized
// artifact and its append-only provenance trail.
package models

import (
	"strings"
	"time"

	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
)

// Token is a tokenized cultural artifact.
//
// Invariants:
//   - ID comes from a monotonic counter and is never reused
//   - RoyaltyPct is in [0,100] and immutable after mint
//   - Holder changes only through the transfer path
//   - MetadataURI is mutable only by the creator, and only while the token
//     has never left the creator
type Token struct {
	ID          domain.TokenID       `json:"id"`
	Institution domain.InstitutionID `json:"institution"`
	Creator     domain.Address       `json:"creator"`
	Holder      domain.Address       `json:"holder"`

	// MetadataURI is an opaque content-hash reference to off-ledger metadata.
	// Stored and returned verbatim, never parsed.
	MetadataURI string `json:"metadata_uri"`

	// RoyaltyPct of every future sale price is routed to Creator.
	RoyaltyPct int `json:"royalty_pct"`

	TransferCount uint64    `json:"transfer_count"`
	MintedAt      time.Time `json:"minted_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const maxMetadataURILen = 512

// ValidateMetadataURI checks the shape constraints of a metadata pointer.
// The content is opaque; only emptiness and length are enforced.
func ValidateMetadataURI(uri string) error {
	if uri == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "metadata uri cannot be empty")
	}
	if len(uri) > maxMetadataURILen {
		return dErrors.New(dErrors.CodeInvalidArgument, "metadata uri is too long")
	}
	return nil
}

// NewToken constructs a freshly minted token held by its creator. The ID is
// assigned by the store at creation.
func NewToken(institution domain.InstitutionID, creator domain.Address, metadataURI string, royaltyPct int, now time.Time) (*Token, error) {
	if royaltyPct < 0 || royaltyPct > 100 {
		return nil, dErrors.New(dErrors.CodeInvalidRoyalty, "royalty percentage must be between 0 and 100")
	}
	metadataURI = strings.TrimSpace(metadataURI)
	if err := ValidateMetadataURI(metadataURI); err != nil {
		return nil, err
	}
	return &Token{
		Institution: institution,
		Creator:     creator,
		Holder:      creator,
		MetadataURI: metadataURI,
		RoyaltyPct:  royaltyPct,
		MintedAt:    now,
		UpdatedAt:   now,
	}, nil
}

// MetadataLocked reports whether the metadata pointer is frozen. It locks on
// first departure from the creator and never unlocks, so buyers can trust
// that what they saw is what they hold.
func (t *Token) MetadataLocked() bool { return t.TransferCount > 0 }

// CanTransfer validates a holder change from from to to.
func (t *Token) CanTransfer(from, to domain.Address) error {
	if from == to {
		return dErrors.New(dErrors.CodeSelfTransfer, "cannot transfer a token to its current holder")
	}
	if t.Holder != from {
		return dErrors.New(dErrors.CodeUnauthorized, "transfer origin is not the current holder")
	}
	return nil
}

// ApplyTransfer moves holdership. Royalty terms ride along unchanged.
func (t *Token) ApplyTransfer(to domain.Address, now time.Time) {
	t.Holder = to
	t.TransferCount++
	t.UpdatedAt = now
}

// ProvenanceKind classifies one provenance entry.
type ProvenanceKind string

const (
	ProvenanceMint     ProvenanceKind = "mint"
	ProvenanceTransfer ProvenanceKind = "transfer"
	ProvenanceSale     ProvenanceKind = "sale"
)

// ProvenanceEntry is one link in a token's append-only custody chain.
type ProvenanceEntry struct {
	TokenID    domain.TokenID `json:"token_id"`
	Seq        uint64         `json:"seq"`
	Kind       ProvenanceKind `json:"kind"`
	From       domain.Address `json:"from,omitempty"`
	To         domain.Address `json:"to"`
	Price      int64          `json:"price,omitempty"`
	Note       string         `json:"note,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
