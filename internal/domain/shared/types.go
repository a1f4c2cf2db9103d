package shared

import (
	"errors"
	"strings"
)

var ErrInvalidCurrency = errors.New("invalid currency")

// Currency is an ISO-4217 code accepted by the ledger
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyEUR Currency = "EUR"
)

// Currencies lists the supported currencies in display order
var Currencies = []Currency{CurrencyUSD, CurrencyGBP, CurrencyEUR}

// ParseCurrency normalises raw case-insensitively and rejects unsupported codes
func ParseCurrency(raw string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Currencies {
		if c == known {
			return c, nil
		}
	}
	return "", ErrInvalidCurrency
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
