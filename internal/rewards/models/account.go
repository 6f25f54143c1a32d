// Package models holds the reward ledger's aggregates: participant accounts
// and the badge catalog.
package models

import (
	"time"

	"museion/pkg/domain"
)

// Account accumulates a participant's points, badges, and activity counters.
// Points are monotonically non-decreasing: there is no spend mechanism.
// Accounts are created lazily on the first qualifying event and never
// deleted.
type Account struct {
	Address domain.Address `json:"address"`
	Points  int64          `json:"points"`

	// Badges earned, each at most once. Order is award order.
	Badges []string `json:"badges"`

	// Activity counters backing the badge thresholds.
	Mints     uint64 `json:"mints"`
	Sales     uint64 `json:"sales"`
	Purchases uint64 `json:"purchases"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasBadge reports whether the badge was already awarded.
func (a *Account) HasBadge(id string) bool {
	for _, b := range a.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// RankEntry is one row of the ranking view. Rank is derived on read, never
// stored.
type RankEntry struct {
	Rank    int            `json:"rank"`
	Address domain.Address `json:"address"`
	Points  int64          `json:"points"`
}
