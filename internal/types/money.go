// Package types holds the small value objects shared across modules.
package types

import "fmt"

// Money is a currency amount in cents. Keeping amounts in integer minor
// units makes repeated debits and credits exact; the ledger never touches
// binary floating point.
type Money int64

// PerKm treats m as a per-kilometre rate and returns the charge for
// travelling the given number of metres, rounded half-up to the cent.
func (m Money) PerKm(metres int64) Money {
	n := int64(m) * metres
	return Money((n + 500) / 1000)
}

// String renders the amount as a decimal with two fractional digits,
// e.g. "3.50" or "-0.25".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
