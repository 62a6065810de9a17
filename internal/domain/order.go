package domain

// CurrencyINR is the only currency orders are created in.
const CurrencyINR = "INR"

// Order is a payment intent created at the gateway. Nothing is stored locally
// until the payment for it is verified.
type Order struct {
	ID       string
	Amount   int64 // minor units
	Currency string
	Receipt  string
	KeyID    string
}
