// Package models defines data structures for Folio
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category identifies the asset class of a holding.
type Category string

const (
	CategoryCrypto Category = "crypto"
	CategoryStocks Category = "stocks"
	CategoryGold   Category = "gold"
)

// ErrFuturePurchaseDate is returned when a holding's purchase date is after
// the current date. Such a holding cannot contribute to any historical bucket.
var ErrFuturePurchaseDate = errors.New("holding purchase date is in the future")

// Holding is a tracked quantity of one asset with cost basis and purchase
// date. The history engine treats holdings as read-only input.
type Holding struct {
	ID           string   `json:"id"`
	Symbol       string   `json:"symbol"`
	Category     Category `json:"category"`
	Balance      float64  `json:"balance"`
	PurchaseDate string   `json:"purchase_date,omitempty"` // "2006-01-02", no time component
	BuyPrice     float64  `json:"buy_price,omitempty"`     // unit cost; 0 means unknown
}

// NewHolding creates a holding with a generated ID.
func NewHolding(symbol string, category Category, balance float64) Holding {
	return Holding{
		ID:       uuid.New().String(),
		Symbol:   symbol,
		Category: category,
		Balance:  balance,
	}
}

// PurchaseTime parses the purchase date as midnight UTC.
// Returns false when no purchase date is recorded or it is malformed.
func (h Holding) PurchaseTime() (time.Time, bool) {
	if h.PurchaseDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", h.PurchaseDate)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Validate checks the holding for structural problems against the given
// current time. A purchase date after today is rejected rather than guessed at.
func (h Holding) Validate(now time.Time) error {
	if h.Balance < 0 {
		return fmt.Errorf("holding %s: negative balance %f", h.ID, h.Balance)
	}
	if pt, ok := h.PurchaseTime(); ok {
		today := now.UTC().Truncate(24 * time.Hour)
		if pt.After(today) {
			return fmt.Errorf("holding %s (%s): %w: %s", h.ID, h.Symbol, ErrFuturePurchaseDate, h.PurchaseDate)
		}
	}
	return nil
}

// CloneHoldings returns a copy of the holdings slice. Holdings are value
// types, so copying the slice is sufficient to decouple callers.
func CloneHoldings(holdings []Holding) []Holding {
	out := make([]Holding, len(holdings))
	copy(out, holdings)
	return out
}
