// Package models holds the registry's aggregate: the verified-institution
// record that gates minting.
package models

import (
	"strings"
	"time"

	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
)

// Status is the institution's operational flag. Deactivation is a flag, not a
// deletion: artifacts minted under an institution keep their provenance even
// after the institution is switched off.
type Status string

const (
	StatusActive      Status = "active"
	StatusDeactivated Status = "deactivated"
)

// Institution is the aggregate root for a museum or cultural body.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - CollectionCount only increases
//   - Verified never transitions back to false
//   - Only verified AND active institutions authorize mints
type Institution struct {
	ID          domain.InstitutionID `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Verified    bool                 `json:"verified"`
	Status      Status               `json:"status"`

	// CollectionCount tracks how many tokens were minted under this
	// institution. Incremented only from the asset mint path.
	CollectionCount uint64 `json:"collection_count"`

	// CredentialHash is the bcrypt hash of the institution credential issued
	// once at registration. Never serialized to callers.
	CredentialHash string `json:"-"`

	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const maxNameLen = 128

// NewInstitution constructs an unverified, active institution.
func NewInstitution(id domain.InstitutionID, name, description, credentialHash string, now time.Time) (*Institution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "institution name cannot be empty")
	}
	if len(name) > maxNameLen {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "institution name must be 128 characters or less")
	}
	return &Institution{
		ID:             id,
		Name:           name,
		Description:    strings.TrimSpace(description),
		Verified:       false,
		Status:         StatusActive,
		CredentialHash: credentialHash,
		RegisteredAt:   now,
		UpdatedAt:      now,
	}, nil
}

// IsActive reports whether the institution is operational.
func (i *Institution) IsActive() bool { return i.Status == StatusActive }

// MayAuthorizeMint is the single authorization gate the asset context checks.
func (i *Institution) MayAuthorizeMint() bool { return i.Verified && i.IsActive() }

// ApplyVerification marks the institution verified. Idempotent at the model
// level; the service decides whether the transition warrants an event.
func (i *Institution) ApplyVerification(now time.Time) {
	if i.Verified {
		return
	}
	i.Verified = true
	i.UpdatedAt = now
}

// CanDeactivate validates the active → deactivated transition.
func (i *Institution) CanDeactivate() error {
	if i.Status == StatusDeactivated {
		return dErrors.New(dErrors.CodeConflict, "institution is already deactivated")
	}
	return nil
}

// ApplyDeactivation flips the status flag. Minted tokens are unaffected.
func (i *Institution) ApplyDeactivation(now time.Time) {
	i.Status = StatusDeactivated
	i.UpdatedAt = now
}

// CanReactivate validates the deactivated → active transition.
func (i *Institution) CanReactivate() error {
	if i.Status == StatusActive {
		return dErrors.New(dErrors.CodeConflict, "institution is already active")
	}
	return nil
}

// ApplyReactivation flips the status flag back.
func (i *Institution) ApplyReactivation(now time.Time) {
	i.Status = StatusActive
	i.UpdatedAt = now
}

// ApplyInfoUpdate replaces display fields. Empty values keep the current one.
func (i *Institution) ApplyInfoUpdate(name, description string, now time.Time) error {
	name = strings.TrimSpace(name)
	if len(name) > maxNameLen {
		return dErrors.New(dErrors.CodeInvalidArgument, "institution name must be 128 characters or less")
	}
	if name != "" {
		i.Name = name
	}
	if description = strings.TrimSpace(description); description != "" {
		i.Description = description
	}
	i.UpdatedAt = now
	return nil
}

// ApplyCollectionAdded increments the monotonic counter.
func (i *Institution) ApplyCollectionAdded(now time.Time) {
	i.CollectionCount++
	i.UpdatedAt = now
}
