package voucher

import "errors"

// Service errors
var (
	ErrVoucherNotFound = errors.New("voucher not found")
	ErrInvalidState    = errors.New("invalid voucher state transition")
	ErrInvalidLocation = errors.New("voucher not valid at this location")
	ErrVoucherExpired  = errors.New("voucher has expired")
)
