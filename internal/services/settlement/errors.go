package settlement

import "errors"

// Service errors
var (
	ErrVoucherNotFound    = errors.New("voucher not found")
	ErrMerchantNotPayable = errors.New("merchant has no connected account")
	ErrInvalidState       = errors.New("invalid settlement state")
	ErrAlreadySettled     = errors.New("voucher already has an active payout item")
	ErrTransferFailed     = errors.New("external transfer failed")
)
