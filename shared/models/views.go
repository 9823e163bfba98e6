package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountView is the read-optimised projection of an account.
// Only name and balance are serialised to the API response; the other fields
// are cache bookkeeping. Version is the store version the view was built from.
type AccountView struct {
	AccountNumber string          `json:"-"`
	Name          string          `json:"name"`
	Balance       decimal.Decimal `json:"balance"`
	Version       int64           `json:"-"`
	UpdatedAt     time.Time       `json:"-"`
}
