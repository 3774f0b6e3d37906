package voucher

import (
	"context"
	"errors"
	"testing"
	"time"

	"brontie/internal/models"
	"brontie/internal/repositories"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockVoucherRepo struct {
	mock.Mock
}

func (m *MockVoucherRepo) Create(ctx context.Context, voucher *models.Voucher) error {
	args := m.Called(ctx, voucher)
	return args.Error(0)
}

func (m *MockVoucherRepo) GetByID(ctx context.Context, id uint) (*models.Voucher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Voucher), args.Error(1)
}

func (m *MockVoucherRepo) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Voucher), args.Error(1)
}

func (m *MockVoucherRepo) GetByPaymentRef(ctx context.Context, paymentRef string) (*models.Voucher, error) {
	args := m.Called(ctx, paymentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Voucher), args.Error(1)
}

func (m *MockVoucherRepo) GetChain(ctx context.Context, voucherID uint) (*models.VoucherChain, error) {
	args := m.Called(ctx, voucherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoucherChain), args.Error(1)
}

func (m *MockVoucherRepo) Update(ctx context.Context, voucher *models.Voucher) error {
	args := m.Called(ctx, voucher)
	return args.Error(0)
}

func (m *MockVoucherRepo) TransitionStatus(ctx context.Context, id uint, from []models.VoucherStatus, to models.VoucherStatus, updates map[string]interface{}) (bool, error) {
	args := m.Called(ctx, id, from, to, updates)
	return args.Bool(0), args.Error(1)
}

func (m *MockVoucherRepo) SetSettlementAmounts(ctx context.Context, id uint, stripeFee, net float64) error {
	args := m.Called(ctx, id, stripeFee, net)
	return args.Error(0)
}

func (m *MockVoucherRepo) MarkRedeemed(ctx context.Context, ids []uint, at time.Time) error {
	args := m.Called(ctx, ids, at)
	return args.Error(0)
}

func (m *MockVoucherRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockPayoutRepo struct {
	mock.Mock
}

func (m *MockPayoutRepo) Create(ctx context.Context, item *models.PayoutItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockPayoutRepo) GetActiveByVoucherID(ctx context.Context, voucherID uint) (*models.PayoutItem, error) {
	args := m.Called(ctx, voucherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PayoutItem), args.Error(1)
}

func (m *MockPayoutRepo) ClaimPending(ctx context.Context, batchID string) ([]models.PayoutItem, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PayoutItem), args.Error(1)
}

func (m *MockPayoutRepo) MarkPaid(ctx context.Context, ids []uint, transferID string, paidAt time.Time) error {
	args := m.Called(ctx, ids, transferID, paidAt)
	return args.Error(0)
}

func (m *MockPayoutRepo) Release(ctx context.Context, ids []uint) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockPayoutRepo) ReverseByVoucherID(ctx context.Context, voucherID uint) (int64, error) {
	args := m.Called(ctx, voucherID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPayoutRepo) FlagForReview(ctx context.Context, voucherID uint) (int64, error) {
	args := m.Called(ctx, voucherID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPayoutRepo) StatusTotals(ctx context.Context) ([]models.PayoutStatusTotal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PayoutStatusTotal), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetVoucher(ctx context.Context, code string) (*models.Voucher, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Voucher), args.Error(1)
}

func (m *MockCache) CacheVoucher(ctx context.Context, voucher *models.Voucher) error {
	args := m.Called(ctx, voucher)
	return args.Error(0)
}

func (m *MockCache) InvalidateVoucher(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *MockVoucherRepo, payout *MockPayoutRepo, cache *MockCache) Service {
	return NewServiceWithClock(repo, payout, cache, zerolog.Nop(), func() time.Time { return testNow })
}

func issuedVoucher() *models.Voucher {
	expires := testNow.Add(24 * time.Hour)
	return &models.Voucher{
		ID:          1,
		Code:        "abc-123",
		Status:      models.VoucherStatusIssued,
		ProductID:   7,
		AmountGross: 25.00,
		Currency:    "EUR",
		ExpiresAt:   &expires,
	}
}

func TestService_GetByCode(t *testing.T) {
	t.Run("cache hit skips the database", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		cache := new(MockCache)
		cached := issuedVoucher()
		cache.On("GetVoucher", mock.Anything, "abc-123").Return(cached, nil)

		s := newTestService(repo, new(MockPayoutRepo), cache)
		v, err := s.GetByCode(context.Background(), "abc-123")

		assert.NoError(t, err)
		assert.Equal(t, cached, v)
		repo.AssertNotCalled(t, "GetByCode")
	})

	t.Run("cache miss falls through and populates", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		cache := new(MockCache)
		v := issuedVoucher()
		cache.On("GetVoucher", mock.Anything, "abc-123").Return(nil, errors.New("miss"))
		repo.On("GetByCode", mock.Anything, "abc-123").Return(v, nil)
		cache.On("CacheVoucher", mock.Anything, v).Return(nil)

		s := newTestService(repo, new(MockPayoutRepo), cache)
		got, err := s.GetByCode(context.Background(), "abc-123")

		assert.NoError(t, err)
		assert.Equal(t, v, got)
		cache.AssertExpectations(t)
	})

	t.Run("unknown code", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		cache := new(MockCache)
		cache.On("GetVoucher", mock.Anything, "nope").Return(nil, errors.New("miss"))
		repo.On("GetByCode", mock.Anything, "nope").Return(nil, repositories.ErrVoucherNotFound)

		s := newTestService(repo, new(MockPayoutRepo), cache)
		_, err := s.GetByCode(context.Background(), "nope")

		assert.ErrorIs(t, err, ErrVoucherNotFound)
	})
}

func TestService_Create(t *testing.T) {
	t.Run("rejects non-positive amount", func(t *testing.T) {
		s := newTestService(new(MockVoucherRepo), new(MockPayoutRepo), new(MockCache))
		_, err := s.Create(context.Background(), CreateInput{ProductID: 1, AmountGross: 0})
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("creates pending voucher with generated code", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(v *models.Voucher) bool {
			return v.Status == models.VoucherStatusPending && v.Code != "" && v.Currency == "EUR"
		})).Return(nil)

		s := newTestService(repo, new(MockPayoutRepo), new(MockCache))
		v, err := s.Create(context.Background(), CreateInput{ProductID: 1, AmountGross: 25.00, SenderEmail: "a@b.c"})

		assert.NoError(t, err)
		assert.Equal(t, models.VoucherStatusPending, v.Status)
		repo.AssertExpectations(t)
	})
}

func TestService_Issue(t *testing.T) {
	t.Run("pending voucher is issued", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		cache := new(MockCache)
		v := issuedVoucher()
		v.Status = models.VoucherStatusPending
		v.ExpiresAt = nil

		repo.On("GetByCode", mock.Anything, "abc-123").Return(v, nil)
		repo.On("TransitionStatus", mock.Anything, uint(1),
			[]models.VoucherStatus{models.VoucherStatusPending},
			models.VoucherStatusIssued, mock.Anything).Return(true, nil)
		cache.On("InvalidateVoucher", mock.Anything, "abc-123").Return(nil)

		s := newTestService(repo, new(MockPayoutRepo), cache)
		got, err := s.Issue(context.Background(), "abc-123", "pi_123")

		assert.NoError(t, err)
		assert.Equal(t, models.VoucherStatusIssued, got.Status)
		assert.Equal(t, "pi_123", got.PaymentRef)
		assert.Equal(t, testNow, *got.IssuedAt)
		assert.Equal(t, testNow.Add(models.DefaultVoucherValidity), *got.ExpiresAt)
	})

	t.Run("issuing an issued voucher is a no-op", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		v := issuedVoucher()

		repo.On("GetByCode", mock.Anything, "abc-123").Return(v, nil)
		repo.On("TransitionStatus", mock.Anything, uint(1), mock.Anything, models.VoucherStatusIssued, mock.Anything).
			Return(false, nil)

		s := newTestService(repo, new(MockPayoutRepo), new(MockCache))
		got, err := s.Issue(context.Background(), "abc-123", "pi_123")

		assert.NoError(t, err)
		assert.Equal(t, models.VoucherStatusIssued, got.Status)
	})

	t.Run("issuing a refunded voucher fails", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		v := issuedVoucher()
		v.Status = models.VoucherStatusRefunded

		repo.On("GetByCode", mock.Anything, "abc-123").Return(v, nil)
		repo.On("TransitionStatus", mock.Anything, uint(1), mock.Anything, models.VoucherStatusIssued, mock.Anything).
			Return(false, nil)

		s := newTestService(repo, new(MockPayoutRepo), new(MockCache))
		_, err := s.Issue(context.Background(), "abc-123", "pi_123")

		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestService_Redeem(t *testing.T) {
	t.Run("successful redemption", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		cache := new(MockCache)
		v := issuedVoucher()

		repo.On("GetByCode", mock.Anything, "abc-123").Return(v, nil)
		repo.On("TransitionStatus", mock.Anything, uint(1),
			[]models.VoucherStatus{models.VoucherStatusIssued},
			models.VoucherStatusRedeemed, mock.Anything).Return(true, nil)
		cache.On("InvalidateVoucher", mock.Anything, "abc-123").Return(nil)

		s := newTestService(repo, new(MockPayoutRepo), cache)
		got, err := s.Redeem(context.Background(), "abc-123", 5)

		assert.NoError(t, err)
		assert.Equal(t, models.VoucherStatusRedeemed, got.Status)
		assert.Equal(t, uint(5), *got.RedeemedLocationID)
	})

	t.Run("second redemption fails the status guard", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		v := issuedVoucher()
		v.Status = models.VoucherStatusRedeemed

		repo.On("GetByCode", mock.Anything, "abc-123").Return(v, nil)
		repo.On("TransitionStatus", mock.Anything, uint(1), mock.Anything,
			models.VoucherStatusRedeemed, mock.Anything).Return(false, nil)

		s := newTestService(repo, new(MockPayoutRepo), new(MockCache))
		_, err := s.Redeem(context.Background(), "abc-123", 5)

		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("restricted voucher rejects another location", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		v := issuedVoucher()
		v.ValidLocationIDs = []uint{2, 3}

		repo.On("GetByCode", mock.Anything, "abc-123").Return(v, nil)

		s := newTestService(repo, new(MockPayoutRepo), new(MockCache))
		_, err := s.Redeem(context.Background(), "abc-123", 5)

		assert.ErrorIs(t, err, ErrInvalidLocation)
		repo.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("expired voucher is lazily settled and rejected", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		cache := new(MockCache)
		v := issuedVoucher()
		expired := testNow.Add(-time.Hour)
		v.ExpiresAt = &expired

		repo.On("GetByCode", mock.Anything, "abc-123").Return(v, nil)
		repo.On("TransitionStatus", mock.Anything, uint(1),
			[]models.VoucherStatus{models.VoucherStatusIssued},
			models.VoucherStatusExpired, mock.Anything).Return(true, nil)
		cache.On("InvalidateVoucher", mock.Anything, "abc-123").Return(nil)

		s := newTestService(repo, new(MockPayoutRepo), cache)
		_, err := s.Redeem(context.Background(), "abc-123", 5)

		assert.ErrorIs(t, err, ErrVoucherExpired)
		repo.AssertExpectations(t)
	})
}

func TestService_Refund(t *testing.T) {
	t.Run("refund reverses the payout item", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		payout := new(MockPayoutRepo)
		cache := new(MockCache)
		v := issuedVoucher()
		v.Status = models.VoucherStatusRedeemed

		repo.On("GetByCode", mock.Anything, "abc-123").Return(v, nil)
		repo.On("TransitionStatus", mock.Anything, uint(1), mock.Anything,
			models.VoucherStatusRefunded, mock.Anything).Return(true, nil)
		payout.On("ReverseByVoucherID", mock.Anything, uint(1)).Return(int64(1), nil)
		cache.On("InvalidateVoucher", mock.Anything, "abc-123").Return(nil)

		s := newTestService(repo, payout, cache)
		got, err := s.Refund(context.Background(), "abc-123")

		assert.NoError(t, err)
		assert.Equal(t, models.VoucherStatusRefunded, got.Status)
		payout.AssertExpectations(t)
	})

	t.Run("expired voucher cannot be refunded", func(t *testing.T) {
		repo := new(MockVoucherRepo)
		v := issuedVoucher()
		v.Status = models.VoucherStatusExpired

		repo.On("GetByCode", mock.Anything, "abc-123").Return(v, nil)
		repo.On("TransitionStatus", mock.Anything, uint(1), mock.Anything,
			models.VoucherStatusRefunded, mock.Anything).Return(false, nil)

		s := newTestService(repo, new(MockPayoutRepo), new(MockCache))
		_, err := s.Refund(context.Background(), "abc-123")

		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestService_Dispute(t *testing.T) {
	repo := new(MockVoucherRepo)
	payout := new(MockPayoutRepo)
	cache := new(MockCache)
	v := issuedVoucher()

	repo.On("GetByCode", mock.Anything, "abc-123").Return(v, nil)
	repo.On("TransitionStatus", mock.Anything, uint(1), mock.Anything,
		models.VoucherStatusDisputed, mock.Anything).Return(true, nil)
	payout.On("FlagForReview", mock.Anything, uint(1)).Return(int64(1), nil)
	cache.On("InvalidateVoucher", mock.Anything, "abc-123").Return(nil)

	s := newTestService(repo, payout, cache)
	got, err := s.Dispute(context.Background(), "abc-123")

	assert.NoError(t, err)
	assert.Equal(t, models.VoucherStatusDisputed, got.Status)
	payout.AssertExpectations(t)
}

func TestService_ExpireOverdue(t *testing.T) {
	repo := new(MockVoucherRepo)
	repo.On("ExpireOverdue", mock.Anything, testNow).Return(int64(3), nil)

	s := newTestService(repo, new(MockPayoutRepo), new(MockCache))
	n, err := s.ExpireOverdue(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
