// Package domain defines the identity types shared across bounded contexts.
// Values are constructed through Parse* functions at trust boundaries
// (handlers, stores); direct casting bypasses validation and is reserved for
// code that already holds a validated value.
package domain

import dErrors "museion/pkg/domain-errors"

// Address identifies an account on the ledger: end-user wallets, institution
// payout accounts, and the platform treasury. The value is opaque here; the
// host platform owns key custody and signature verification, so by the time
// a request reaches this module the caller's address is already
// authenticated.
//
// Invariant: 1-128 characters drawn from [A-Za-z0-9:_.-].
type Address string

const maxAddressLen = 128

// ParseAddress constructs an Address from external input.
//
// Errors: returns CodeInvalidArgument when the value is empty, too long, or
// contains characters outside the allowed set; no other errors are expected.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "address cannot be empty")
	}
	if len(s) > maxAddressLen {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "address is too long")
	}
	for i := 0; i < len(s); i++ {
		if !isAddressByte(s[i]) {
			return "", dErrors.New(dErrors.CodeInvalidArgument, "address contains invalid characters")
		}
	}
	return Address(s), nil
}

func isAddressByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == ':' || c == '_' || c == '.' || c == '-':
		return true
	}
	return false
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a == "" }

func (a Address) String() string { return string(a) }
