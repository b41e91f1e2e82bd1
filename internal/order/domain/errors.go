package domain

import "errors"

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidPaymentStatus = errors.New("invalid_payment_status")
	ErrInvalidDate          = errors.New("invalid_date")
	ErrInvalidPageToken     = errors.New("invalid_page_token")
	ErrEmptyOrder           = errors.New("empty_order")
	ErrCustomerNotFound     = errors.New("customer_not_found")
	ErrNotFound             = errors.New("not_found")

	// ErrContention marks a placement that lost a lock race and can be
	// retried as-is by the caller.
	ErrContention = errors.New("contention")

	// ErrSequencer wraps storage faults while drawing an invoice number.
	ErrSequencer = errors.New("invoice_sequencer")
)
