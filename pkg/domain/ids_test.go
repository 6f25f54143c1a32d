package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "museion/pkg/domain-errors"
)

// TestParseAddress_Invariants validates the parsing invariant:
// "addresses are non-empty, bounded, and drawn from a fixed character set".
func TestParseAddress_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAddress("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		_, err := ParseAddress(strings.Repeat("a", maxAddressLen+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("accepts ledger-style values", func(t *testing.T) {
		for _, s := range []string{
			"GDW6AUTBXTOC7FIKUO5BOO3OGLK4SF7ZPOBLMQHMZDI45J2Z6VXRB5NR",
			"wallet:alice",
			"treasury.platform",
			"user_42",
		} {
			addr, err := ParseAddress(s)
			require.NoError(t, err, s)
			assert.Equal(t, Address(s), addr)
		}
	})
}

// TestParseInstitutionID_Invariants validates the slug shape enforced at
// registration and on every lookup.
func TestParseInstitutionID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseInstitutionID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		_, err := ParseInstitutionID(strings.Repeat("m", maxInstitutionIDLen+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("accepts slugs", func(t *testing.T) {
		id, err := ParseInstitutionID("louvre-annex_2")
		require.NoError(t, err)
		assert.Equal(t, InstitutionID("louvre-annex_2"), id)
	})
}

// TestParseNumericIDs validates that ledger-assigned IDs are positive
// decimal integers; zero is reserved for "unset".
func TestParseNumericIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"zero", "0", true},
		{"negative", "-1", true},
		{"not a number", "abc", true},
		{"hex", "0x10", true},
		{"overflow", "18446744073709551616", true},
		{"one", "1", false},
		{"max uint64", "18446744073709551615", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, tokenErr := ParseTokenID(tt.input)
			_, listingErr := ParseListingID(tt.input)
			_, auctionErr := ParseAuctionID(tt.input)
			if tt.wantErr {
				require.Error(t, tokenErr)
				require.Error(t, listingErr)
				require.Error(t, auctionErr)
				assert.True(t, dErrors.HasCode(tokenErr, dErrors.CodeInvalidArgument))
			} else {
				require.NoError(t, tokenErr)
				require.NoError(t, listingErr)
				require.NoError(t, auctionErr)
			}
		})
	}
}

// TestParseID_SecurityInvariants validates trust-boundary rejection of
// hostile input shapes at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"SQL injection attempt", "'; DROP TABLE tokens;--"},
		{"Path traversal", "../../../etc/passwd"},
		{"Null byte injection", "louvre\x00annex"},
		{"Oversized input", strings.Repeat("a", 1000)},
		{"Unicode zero-width space", "louvre​annex"},
		{"Whitespace only", "   "},
		{"Embedded space", "louvre annex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInstitutionID(tt.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
		})
	}
}

// TestTypeDistinction verifies the compiler enforces type safety between the
// numeric ID families. If this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	tokenID := TokenID(7)
	listingID := ListingID(7)

	// These would fail to compile if the types were interchangeable:
	// var _ TokenID = listingID   // compile error
	// var _ ListingID = tokenID   // compile error

	assert.Equal(t, uint64(tokenID), uint64(listingID))
	assert.Equal(t, "7", tokenID.String())
	assert.True(t, TokenID(0).IsZero())
	assert.False(t, listingID.IsZero())
}
