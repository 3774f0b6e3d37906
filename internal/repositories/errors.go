package repositories

import "errors"

var (
	ErrVoucherNotFound  = errors.New("voucher not found")
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrPayoutNotFound   = errors.New("payout item not found")
	ErrReferralNotFound = errors.New("referral not found")
)
