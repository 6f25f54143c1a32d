package domain

import (
	"strconv"

	dErrors "museion/pkg/domain-errors"
)

// InstitutionID is the caller-chosen identifier an institution registers
// under. Unlike token and listing IDs it is not assigned by the ledger, so
// the shape is enforced at registration time and on every lookup.
//
// Invariant: 1-64 characters drawn from [A-Za-z0-9_-].
type InstitutionID string

const maxInstitutionIDLen = 64

// ParseInstitutionID constructs an InstitutionID from external input.
//
// Errors: returns CodeInvalidArgument when the value is empty, too long, or
// contains characters outside the allowed set.
func ParseInstitutionID(s string) (InstitutionID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "institution id cannot be empty")
	}
	if len(s) > maxInstitutionIDLen {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "institution id is too long")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return "", dErrors.New(dErrors.CodeInvalidArgument, "institution id contains invalid characters")
		}
	}
	return InstitutionID(s), nil
}

// IsZero reports whether the ID is unset.
func (id InstitutionID) IsZero() bool { return id == "" }

func (id InstitutionID) String() string { return string(id) }

// TokenID identifies a minted token. IDs come from a monotonic counter
// starting at 1 and are never reused, so zero always means "unset".
type TokenID uint64

// ParseTokenID parses a decimal token ID from external input (path
// parameters, request bodies).
//
// Errors: returns CodeInvalidArgument when the value is not a positive
// decimal integer that fits in uint64.
func ParseTokenID(s string) (TokenID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidArgument, "token id must be a positive integer")
	}
	return TokenID(n), nil
}

// IsZero reports whether the ID is unset.
func (id TokenID) IsZero() bool { return id == 0 }

func (id TokenID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ListingID identifies a marketplace listing. Same counter discipline as
// TokenID: monotonic, starting at 1, never reused.
type ListingID uint64

// ParseListingID parses a decimal listing ID from external input.
func ParseListingID(s string) (ListingID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidArgument, "listing id must be a positive integer")
	}
	return ListingID(n), nil
}

// IsZero reports whether the ID is unset.
func (id ListingID) IsZero() bool { return id == 0 }

func (id ListingID) String() string { return strconv.FormatUint(uint64(id), 10) }

// AuctionID identifies an auction. Monotonic, starting at 1, never reused.
type AuctionID uint64

// ParseAuctionID parses a decimal auction ID from external input.
func ParseAuctionID(s string) (AuctionID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidArgument, "auction id must be a positive integer")
	}
	return AuctionID(n), nil
}

// IsZero reports whether the ID is unset.
func (id AuctionID) IsZero() bool { return id == 0 }

func (id AuctionID) String() string { return strconv.FormatUint(uint64(id), 10) }
