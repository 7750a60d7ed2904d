package service

import "errors"

var (
	ErrEmptyCart = errors.New("cart is empty, nothing to order")
	// ErrInvalidTransition is the expected outcome of status races and of
	// operations addressed at orders in the wrong state. It is a normal
	// error result, never a crash.
	ErrInvalidTransition  = errors.New("illegal transition of order status")
	ErrForbidden          = errors.New("caller may not act on this order")
	ErrNoteRequired       = errors.New("rejection requires a note")
	ErrUnsupportedReceipt = errors.New("receipt must be an image or a PDF")
)
