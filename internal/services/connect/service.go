// Package connect mirrors merchant connected-account state from the
// payment processor.
package connect

import (
	"context"
	"errors"
	"fmt"

	"brontie/internal/models"
	"brontie/internal/repositories"

	"github.com/rs/zerolog"
)

// Service errors
var (
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrNoAccount        = errors.New("merchant has no connected account")
)

// AccountStatus is the processor's view of a connected account.
type AccountStatus struct {
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

// AccountClient retrieves connected-account capability flags.
type AccountClient interface {
	GetAccount(ctx context.Context, accountID string) (AccountStatus, error)
}

// CacheInvalidator is the cache subset the sync needs.
type CacheInvalidator interface {
	InvalidateMerchant(ctx context.Context, merchantID uint) error
}

// Service syncs connected-account flags onto merchant records.
type Service struct {
	repo     repositories.MerchantRepository
	accounts AccountClient
	cache    CacheInvalidator
	logger   zerolog.Logger
}

func NewService(repo repositories.MerchantRepository, accounts AccountClient, cache CacheInvalidator, logger zerolog.Logger) *Service {
	if repo == nil {
		panic("merchant repository is required")
	}
	if accounts == nil {
		panic("account client is required")
	}
	if cache == nil {
		panic("cache is required")
	}
	return &Service{repo: repo, accounts: accounts, cache: cache, logger: logger}
}

// SyncAccountStatus mirrors the external account's capability flags onto the
// merchant record. Idempotent; safe to call on every onboarding callback or
// account.updated webhook. A transfer does not require a prior sync; only
// the account id itself gates transfers.
func (s *Service) SyncAccountStatus(ctx context.Context, merchantID uint) (*models.Merchant, error) {
	merchant, err := s.repo.GetByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, repositories.ErrMerchantNotFound) {
			return nil, ErrMerchantNotFound
		}
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}

	accountID := merchant.StripeConnectSettings.AccountID
	if accountID == "" {
		return nil, ErrNoAccount
	}

	status, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve account %s: %w", accountID, err)
	}

	settings := models.StripeConnectSettings{
		AccountID:           accountID,
		ChargesEnabled:      status.ChargesEnabled,
		PayoutsEnabled:      status.PayoutsEnabled,
		DetailsSubmitted:    status.DetailsSubmitted,
		IsConnected:         status.DetailsSubmitted && status.ChargesEnabled,
		OnboardingCompleted: status.DetailsSubmitted,
	}
	if err := s.repo.UpdateConnectSettings(ctx, merchantID, settings); err != nil {
		return nil, fmt.Errorf("failed to update connect settings: %w", err)
	}

	if err := s.cache.InvalidateMerchant(ctx, merchantID); err != nil {
		s.logger.Debug().Err(err).Uint("merchant_id", merchantID).Msg("failed to invalidate merchant cache")
	}

	merchant.StripeConnectSettings = settings
	s.logger.Info().Uint("merchant_id", merchantID).
		Bool("connected", settings.IsConnected).Msg("connected account synced")
	return merchant, nil
}

// AttachAccount stores a freshly created connected-account id and runs the
// first sync.
func (s *Service) AttachAccount(ctx context.Context, merchantID uint, accountID string) (*models.Merchant, error) {
	merchant, err := s.repo.GetByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, repositories.ErrMerchantNotFound) {
			return nil, ErrMerchantNotFound
		}
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}

	merchant.StripeConnectSettings.AccountID = accountID
	if err := s.repo.Update(ctx, merchant); err != nil {
		return nil, fmt.Errorf("failed to attach account: %w", err)
	}

	return s.SyncAccountStatus(ctx, merchantID)
}
