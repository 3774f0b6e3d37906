package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brontie/internal/models"
	"brontie/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type service struct {
	repo       repositories.VoucherRepository
	payoutRepo repositories.PayoutItemRepository
	cache      CacheOperator
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService creates a new voucher service.
func NewService(
	repo repositories.VoucherRepository,
	payoutRepo repositories.PayoutItemRepository,
	cache CacheOperator,
	logger zerolog.Logger,
) Service {
	if repo == nil {
		panic("voucher repository is required")
	}
	if payoutRepo == nil {
		panic("payout item repository is required")
	}
	if cache == nil {
		panic("cache is required")
	}

	return &service{
		repo:       repo,
		payoutRepo: payoutRepo,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// NewServiceWithClock is used by tests to control time.
func NewServiceWithClock(
	repo repositories.VoucherRepository,
	payoutRepo repositories.PayoutItemRepository,
	cache CacheOperator,
	logger zerolog.Logger,
	now func() time.Time,
) Service {
	s := NewService(repo, payoutRepo, cache, logger).(*service)
	s.now = now
	return s
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Voucher, error) {
	if input.AmountGross <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidState)
	}

	voucher := &models.Voucher{
		Code:             uuid.NewString(),
		Status:           models.VoucherStatusPending,
		ProductID:        input.ProductID,
		AmountGross:      input.AmountGross,
		Currency:         "EUR",
		SenderName:       input.SenderName,
		SenderEmail:      input.SenderEmail,
		RecipientName:    input.RecipientName,
		RecipientEmail:   input.RecipientEmail,
		Message:          input.Message,
		ValidLocationIDs: input.ValidLocationIDs,
		ReferralToken:    input.ReferralToken,
	}

	if err := s.repo.Create(ctx, voucher); err != nil {
		return nil, fmt.Errorf("failed to create voucher: %w", err)
	}
	return voucher, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	// Try cache first
	if voucher, err := s.cache.GetVoucher(ctx, code); err == nil {
		return voucher, nil
	}

	voucher, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrVoucherNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}

	if err := s.cache.CacheVoucher(ctx, voucher); err != nil {
		s.logger.Debug().Err(err).Str("code", code).Msg("failed to cache voucher")
	}
	return voucher, nil
}

func (s *service) GetByPaymentRef(ctx context.Context, paymentRef string) (*models.Voucher, error) {
	voucher, err := s.repo.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		if errors.Is(err, repositories.ErrVoucherNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return voucher, nil
}

func (s *service) Issue(ctx context.Context, code, paymentRef string) (*models.Voucher, error) {
	voucher, err := s.getFresh(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, voucher, paymentRef)
}

func (s *service) IssueByPaymentRef(ctx context.Context, paymentRef string) (*models.Voucher, error) {
	voucher, err := s.repo.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		if errors.Is(err, repositories.ErrVoucherNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	return s.issue(ctx, voucher, paymentRef)
}

func (s *service) issue(ctx context.Context, voucher *models.Voucher, paymentRef string) (*models.Voucher, error) {
	now := s.now()
	expires := now.Add(models.DefaultVoucherValidity)

	ok, err := s.repo.TransitionStatus(ctx, voucher.ID,
		[]models.VoucherStatus{models.VoucherStatusPending},
		models.VoucherStatusIssued,
		map[string]interface{}{
			"issued_at":   now,
			"expires_at":  expires,
			"payment_ref": paymentRef,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to issue voucher: %w", err)
	}
	if !ok {
		// Webhooks get redelivered; issuing an already-issued voucher is
		// a no-op, anything else is a real violation.
		if voucher.Status == models.VoucherStatusIssued {
			return voucher, nil
		}
		return nil, fmt.Errorf("%w: cannot issue voucher in status %s", ErrInvalidState, voucher.Status)
	}

	s.invalidate(ctx, voucher.Code)
	s.logger.Info().Str("code", voucher.Code).Msg("voucher issued")

	voucher.Status = models.VoucherStatusIssued
	voucher.IssuedAt = &now
	voucher.ExpiresAt = &expires
	voucher.PaymentRef = paymentRef
	return voucher, nil
}

// Redeem transitions issued -> redeemed after validating the location and
// expiry. The status guard is what prevents double payout: a second attempt
// for the same code fails with ErrInvalidState.
func (s *service) Redeem(ctx context.Context, code string, locationID uint) (*models.Voucher, error) {
	voucher, err := s.getFresh(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if voucher.ExpiresAt != nil && now.After(*voucher.ExpiresAt) {
		// Lazily settle the expiry before rejecting.
		if _, err := s.repo.TransitionStatus(ctx, voucher.ID,
			[]models.VoucherStatus{models.VoucherStatusIssued},
			models.VoucherStatusExpired, nil); err != nil {
			return nil, fmt.Errorf("failed to expire voucher: %w", err)
		}
		s.invalidate(ctx, code)
		return nil, ErrVoucherExpired
	}

	if !voucher.ValidAtLocation(locationID) {
		return nil, ErrInvalidLocation
	}

	ok, err := s.repo.TransitionStatus(ctx, voucher.ID,
		[]models.VoucherStatus{models.VoucherStatusIssued},
		models.VoucherStatusRedeemed,
		map[string]interface{}{
			"redeemed_at":          now,
			"confirmed_at":         now,
			"redeemed_location_id": locationID,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to redeem voucher: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot redeem voucher in status %s", ErrInvalidState, voucher.Status)
	}

	s.invalidate(ctx, code)
	s.logger.Info().Str("code", code).Uint("location_id", locationID).Msg("voucher redeemed")

	voucher.Status = models.VoucherStatusRedeemed
	voucher.RedeemedAt = &now
	voucher.ConfirmedAt = &now
	voucher.RedeemedLocationID = &locationID
	return voucher, nil
}

// Refund moves the voucher to refunded and reverses any non-reversed payout
// item, so a pending settlement cannot proceed and a paid one is marked
// reversed in the ledger. The clawback transfer itself is a manual follow-up.
func (s *service) Refund(ctx context.Context, code string) (*models.Voucher, error) {
	voucher, err := s.getFresh(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ok, err := s.repo.TransitionStatus(ctx, voucher.ID,
		[]models.VoucherStatus{models.VoucherStatusPending, models.VoucherStatusIssued, models.VoucherStatusRedeemed},
		models.VoucherStatusRefunded,
		map[string]interface{}{"refunded_at": now})
	if err != nil {
		return nil, fmt.Errorf("failed to refund voucher: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot refund voucher in status %s", ErrInvalidState, voucher.Status)
	}

	reversed, err := s.payoutRepo.ReverseByVoucherID(ctx, voucher.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reverse payout item: %w", err)
	}
	if reversed > 0 {
		s.logger.Warn().Str("code", code).Int64("reversed", reversed).
			Msg("payout item reversed after refund, clawback needs manual follow-up")
	}

	s.invalidate(ctx, code)

	voucher.Status = models.VoucherStatusRefunded
	voucher.RefundedAt = &now
	return voucher, nil
}

func (s *service) Dispute(ctx context.Context, code string) (*models.Voucher, error) {
	voucher, err := s.getFresh(ctx, code)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.TransitionStatus(ctx, voucher.ID,
		[]models.VoucherStatus{models.VoucherStatusPending, models.VoucherStatusIssued, models.VoucherStatusRedeemed},
		models.VoucherStatusDisputed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dispute voucher: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot dispute voucher in status %s", ErrInvalidState, voucher.Status)
	}

	flagged, err := s.payoutRepo.FlagForReview(ctx, voucher.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to flag payout items: %w", err)
	}

	s.invalidate(ctx, code)
	s.logger.Warn().Str("code", code).Int64("flagged", flagged).Msg("voucher disputed")

	voucher.Status = models.VoucherStatusDisputed
	return voucher, nil
}

func (s *service) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.repo.ExpireOverdue(ctx, s.now())
}

// getFresh bypasses the cache for mutating operations.
func (s *service) getFresh(ctx context.Context, code string) (*models.Voucher, error) {
	voucher, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrVoucherNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return voucher, nil
}

func (s *service) invalidate(ctx context.Context, code string) {
	if err := s.cache.InvalidateVoucher(ctx, code); err != nil {
		s.logger.Debug().Err(err).Str("code", code).Msg("failed to invalidate voucher cache")
	}
}
