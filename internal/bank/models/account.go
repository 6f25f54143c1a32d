// Package models holds the settlement bank's ledger account.
package models

import (
	"time"

	"museion/pkg/domain"
)

// Account tracks the on-ledger funds of one address. Available covers
// marketplace purchases; Escrowed holds active auction bids. Neither balance
// may ever go negative: the store rejects any adjustment that would.
type Account struct {
	Address   domain.Address `json:"address"`
	Available int64          `json:"available"`
	Escrowed  int64          `json:"escrowed"`
	UpdatedAt time.Time      `json:"updated_at"`
}
