package uart

import "errors"

var (
	// ErrBusy indicates the peripheral is already transmitting or receiving.
	ErrBusy = errors.New("uart busy")
	// ErrNotEnabled indicates reception is not enabled.
	ErrNotEnabled = errors.New("uart rx not enabled")
	// ErrClosed indicates the peripheral or transport is closed.
	ErrClosed = errors.New("uart closed")
)
