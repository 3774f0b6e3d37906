package fees

import (
	"context"
	"errors"
	"testing"
	"time"

	"brontie/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockFeeLookup struct {
	mock.Mock
}

func (m *MockFeeLookup) GetActualFee(ctx context.Context, paymentRef string) (float64, error) {
	args := m.Called(ctx, paymentRef)
	return args.Get(0).(float64), args.Error(1)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return fixedNow }

func merchantCreatedDaysAgo(days int) *models.Merchant {
	return &models.Merchant{
		ID:        1,
		CreatedAt: fixedNow.Add(-time.Duration(days) * 24 * time.Hour),
	}
}

func TestCalculator_ComputeSettlement_EstimatedFee(t *testing.T) {
	lookup := new(MockFeeLookup)
	c := NewCalculatorWithClock(lookup, zerolog.Nop(), testClock)

	// Fresh merchant inside the grace period: no commission.
	result := c.ComputeSettlement(context.Background(), 10.00, merchantCreatedDaysAgo(10), "")

	assert.True(t, result.EstimatedFee)
	assert.InDelta(t, 0.39, result.StripeFee, 1e-9)
	assert.InDelta(t, 0.0, result.BrontieFee, 1e-9)
	assert.InDelta(t, 9.61, result.AmountPayable, 1e-9)
	lookup.AssertNotCalled(t, "GetActualFee")
}

func TestCalculator_ComputeSettlement_ActualFee(t *testing.T) {
	lookup := new(MockFeeLookup)
	lookup.On("GetActualFee", mock.Anything, "pi_123").Return(0.42, nil)

	c := NewCalculatorWithClock(lookup, zerolog.Nop(), testClock)
	result := c.ComputeSettlement(context.Background(), 10.00, merchantCreatedDaysAgo(10), "pi_123")

	assert.False(t, result.EstimatedFee)
	assert.InDelta(t, 0.42, result.StripeFee, 1e-9)
	assert.InDelta(t, 9.58, result.AmountPayable, 1e-9)
	lookup.AssertExpectations(t)
}

func TestCalculator_ComputeSettlement_LookupFailureFallsBack(t *testing.T) {
	lookup := new(MockFeeLookup)
	lookup.On("GetActualFee", mock.Anything, "pi_err").Return(0.0, errors.New("api down"))

	c := NewCalculatorWithClock(lookup, zerolog.Nop(), testClock)
	result := c.ComputeSettlement(context.Background(), 10.00, merchantCreatedDaysAgo(10), "pi_err")

	assert.True(t, result.EstimatedFee)
	assert.InDelta(t, 0.39, result.StripeFee, 1e-9)
	lookup.AssertExpectations(t)
}

func TestCalculator_ComputeSettlement_CommissionAfterGrace(t *testing.T) {
	lookup := new(MockFeeLookup)
	c := NewCalculatorWithClock(lookup, zerolog.Nop(), testClock)

	result := c.ComputeSettlement(context.Background(), 10.00, merchantCreatedDaysAgo(120), "")

	// 10% of the net after the processor fee.
	assert.InDelta(t, 0.961, result.BrontieFee, 1e-9)
	assert.InDelta(t, 8.649, result.AmountPayable, 1e-9)
}

func TestCalculator_ComputeSettlement_ClampsNegativePayable(t *testing.T) {
	lookup := new(MockFeeLookup)
	c := NewCalculatorWithClock(lookup, zerolog.Nop(), testClock)

	// Gross 0.10, estimate 0.10*0.014+0.25 = 0.2514 exceeds the gross.
	result := c.ComputeSettlement(context.Background(), 0.10, merchantCreatedDaysAgo(10), "")

	assert.Equal(t, 0.0, result.AmountPayable)
}

func TestCalculator_CommissionActive(t *testing.T) {
	deactivated := fixedNow.Add(-24 * time.Hour)
	futureFrom := fixedNow.Add(24 * time.Hour)
	pastFrom := fixedNow.Add(-24 * time.Hour)

	tests := []struct {
		name     string
		merchant *models.Merchant
		want     bool
	}{
		{
			name:     "inside grace period",
			merchant: merchantCreatedDaysAgo(89),
			want:     false,
		},
		{
			name:     "day ninety is commissioned",
			merchant: merchantCreatedDaysAgo(90),
			want:     true,
		},
		{
			name: "manual flag wins over grace period",
			merchant: func() *models.Merchant {
				m := merchantCreatedDaysAgo(10)
				m.BrontieFeeSettings.IsActive = true
				return m
			}(),
			want: true,
		},
		{
			name: "deactivation overrides elapsed grace period",
			merchant: func() *models.Merchant {
				m := merchantCreatedDaysAgo(200)
				m.BrontieFeeSettings.DeactivatedAt = &deactivated
				return m
			}(),
			want: false,
		},
		{
			name: "activate-from in the future",
			merchant: func() *models.Merchant {
				m := merchantCreatedDaysAgo(200)
				m.BrontieFeeSettings.ActivateFrom = &futureFrom
				return m
			}(),
			want: false,
		},
		{
			name: "activate-from in the past overrides grace period",
			merchant: func() *models.Merchant {
				m := merchantCreatedDaysAgo(10)
				m.BrontieFeeSettings.ActivateFrom = &pastFrom
				return m
			}(),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCalculatorWithClock(new(MockFeeLookup), zerolog.Nop(), testClock)
			assert.Equal(t, tt.want, c.commissionActive(tt.merchant))
		})
	}
}

func TestCalculator_CustomCommissionRate(t *testing.T) {
	m := merchantCreatedDaysAgo(120)
	m.BrontieFeeSettings.CommissionRate = 0.05

	c := NewCalculatorWithClock(new(MockFeeLookup), zerolog.Nop(), testClock)
	result := c.ComputeSettlement(context.Background(), 100.00, m, "")

	// Estimate 100*0.014+0.25 = 1.65; commission 5% of 98.35.
	assert.InDelta(t, 1.65, result.StripeFee, 1e-9)
	assert.InDelta(t, 4.9175, result.BrontieFee, 1e-9)
	assert.InDelta(t, 93.4325, result.AmountPayable, 1e-9)
}

func TestEstimateFee(t *testing.T) {
	assert.InDelta(t, 0.39, EstimateFee(10.00), 1e-9)
	assert.InDelta(t, 0.25, EstimateFee(0), 1e-9)
}
