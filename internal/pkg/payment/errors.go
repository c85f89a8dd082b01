package payment

import "errors"

var (
	// ErrInvalidSignature rejects a delivery before any state is touched.
	ErrInvalidSignature = errors.New("payment: invalid notification signature")
	// ErrOrderNotFound rejects a delivery naming an unknown order.
	ErrOrderNotFound = errors.New("payment: order not found")
	// ErrInsufficientBalance marks a shortfall debit that the wallet could
	// not cover; the order lands in error_reconciling.
	ErrInsufficientBalance = errors.New("payment: insufficient wallet balance for shortfall")
	// ErrOverpaymentAnomaly marks a delivery paying more than the list
	// price; the order lands in error_reconciling.
	ErrOverpaymentAnomaly = errors.New("payment: overpayment anomaly")
	// ErrInvalidAmount rejects an unparseable money parameter.
	ErrInvalidAmount = errors.New("payment: invalid money amount")
)
