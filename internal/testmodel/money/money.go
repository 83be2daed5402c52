// Package money declares amounts used by geo to exercise codecs generated
// in another package.
package money

// Money is an amount in minor units.
type Money struct {
	Amount   int64  `stag:"amount"`
	Currency string `stag:"currency"`
}
