package fees

import (
	"context"
)

// Settlement is the outcome of fee and commission computation for one
// voucher: what Stripe took, what the platform keeps, what the merchant gets.
type Settlement struct {
	StripeFee     float64
	BrontieFee    float64
	AmountPayable float64

	// EstimatedFee is true when the processor fee could not be retrieved
	// and the schedule-based estimate was used instead.
	EstimatedFee bool
}

// FeeLookup retrieves the actual processor fee for a payment reference.
// A lookup failure is soft: the calculator falls back to the estimate.
type FeeLookup interface {
	GetActualFee(ctx context.Context, paymentRef string) (float64, error)
}
