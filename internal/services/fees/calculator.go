package fees

import (
	"context"
	"time"

	"brontie/internal/models"

	"github.com/rs/zerolog"
)

const (
	// Stripe's European card schedule, used when the actual fee is not
	// retrievable: 1.4% + €0.25.
	EstimatePercent = 0.014
	EstimateFixed   = 0.25

	// DefaultCommissionRate applies when a merchant has no explicit rate.
	DefaultCommissionRate = 0.10

	// CommissionGraceDays is the free period after merchant signup.
	// Day 90 itself is already commissioned (inclusive bound).
	CommissionGraceDays = 90
)

// Calculator computes processor fee, platform commission and the merchant
// payable for a gross voucher amount. The clock is injected so tests can pin
// the commission grace period.
type Calculator struct {
	feeLookup FeeLookup
	logger    zerolog.Logger
	now       func() time.Time
}

func NewCalculator(feeLookup FeeLookup, logger zerolog.Logger) *Calculator {
	return &Calculator{
		feeLookup: feeLookup,
		logger:    logger,
		now:       time.Now,
	}
}

// NewCalculatorWithClock is used by tests to control time.
func NewCalculatorWithClock(feeLookup FeeLookup, logger zerolog.Logger, now func() time.Time) *Calculator {
	c := NewCalculator(feeLookup, logger)
	c.now = now
	return c
}

// ComputeSettlement returns the settlement breakdown for a gross amount.
// paymentRef may be empty; the estimate is used then. The result never has a
// negative payable: it is clamped to zero and logged.
func (c *Calculator) ComputeSettlement(ctx context.Context, gross float64, merchant *models.Merchant, paymentRef string) Settlement {
	stripeFee, estimated := c.processorFee(ctx, gross, paymentRef)

	var brontieFee float64
	if c.commissionActive(merchant) {
		rate := merchant.BrontieFeeSettings.CommissionRate
		if rate == 0 {
			rate = DefaultCommissionRate
		}
		brontieFee = (gross - stripeFee) * rate
	}

	payable := gross - stripeFee - brontieFee
	if payable < 0 {
		c.logger.Warn().
			Float64("gross", gross).
			Float64("stripe_fee", stripeFee).
			Float64("brontie_fee", brontieFee).
			Msg("negative payable clamped to zero")
		payable = 0
	}

	return Settlement{
		StripeFee:     stripeFee,
		BrontieFee:    brontieFee,
		AmountPayable: payable,
		EstimatedFee:  estimated,
	}
}

// EstimateFee returns the schedule-based processor fee estimate.
func EstimateFee(gross float64) float64 {
	return gross*EstimatePercent + EstimateFixed
}

func (c *Calculator) processorFee(ctx context.Context, gross float64, paymentRef string) (fee float64, estimated bool) {
	if c.feeLookup == nil || paymentRef == "" {
		return EstimateFee(gross), true
	}

	actual, err := c.feeLookup.GetActualFee(ctx, paymentRef)
	if err != nil {
		c.logger.Debug().Err(err).Str("payment_ref", paymentRef).
			Msg("fee lookup unavailable, falling back to estimate")
		return EstimateFee(gross), true
	}
	return actual, false
}

// commissionActive applies the activation rules: the manual flag wins, an
// explicit activate-from date overrides the grace period, and otherwise the
// merchant is commissioned from day 90 after signup, inclusive.
func (c *Calculator) commissionActive(merchant *models.Merchant) bool {
	if merchant.BrontieFeeSettings.IsActive {
		return true
	}
	// An explicit deactivation overrides the grace-period rule until the
	// commission is switched back on.
	if merchant.BrontieFeeSettings.DeactivatedAt != nil {
		return false
	}

	now := c.now()
	if from := merchant.BrontieFeeSettings.ActivateFrom; from != nil {
		return !now.Before(*from)
	}

	days := int(now.Sub(merchant.CreatedAt).Hours() / 24)
	return days >= CommissionGraceDays
}
