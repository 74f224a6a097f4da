// Package models provides domain models for the allocation application.
package models

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
)

// ParseExchange normalises user input to a known exchange, defaulting to NSE.
func ParseExchange(s string) Exchange {
	switch Exchange(s) {
	case BSE, "bse":
		return BSE
	default:
		return NSE
	}
}
