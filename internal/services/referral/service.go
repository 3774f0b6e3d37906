// Package referral implements the viral loop: every issued voucher carries
// a shareable token, and purchases arriving with a token are credited to
// the original sender as conversions.
package referral

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

var ErrReferralNotFound = errors.New("referral not found")

type Service struct {
	repo   repositories.ReferralRepository
	logger zerolog.Logger
}

func NewService(repo repositories.ReferralRepository, logger zerolog.Logger) *Service {
	if repo == nil {
		panic("referral repository is required")
	}
	return &Service{repo: repo, logger: logger}
}

// CreateForVoucher mints the referral token attached to a freshly issued
// voucher.
func (s *Service) CreateForVoucher(ctx context.Context, voucher *models.Voucher) (*models.Referral, error) {
	referral := &models.Referral{
		Token:       uuid.NewString(),
		VoucherID:   voucher.ID,
		SenderEmail: voucher.SenderEmail,
	}
	if err := s.repo.Create(ctx, referral); err != nil {
		return nil, fmt.Errorf("failed to create referral: %w", err)
	}
	return referral, nil
}

// RecordConversion credits a token's first conversion to the sender.
// Unknown or already-converted tokens are ignored; a bad share link must
// never break a purchase.
func (s *Service) RecordConversion(ctx context.Context, token string, voucherID uint) error {
	if token == "" {
		return nil
	}

	converted, err := s.repo.MarkConverted(ctx, token, voucherID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record conversion: %w", err)
	}
	if converted {
		s.logger.Info().Str("token", token).Uint("voucher_id", voucherID).Msg("referral converted")
	}
	return nil
}

// GetByToken resolves a referral token.
func (s *Service) GetByToken(ctx context.Context, token string) (*models.Referral, error) {
	referral, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrReferralNotFound) {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}
	return referral, nil
}
