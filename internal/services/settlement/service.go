package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"brontie/internal/models"
	"brontie/internal/repositories"
	"brontie/internal/services/fees"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service settles redeemed vouchers: it computes fees, creates payout items
// and moves money to merchant connected accounts, one voucher at a time or
// batched per merchant.
type Service interface {
	SettleVoucher(ctx context.Context, voucherID uint) (*models.PayoutItem, error)
	SettleBatch(ctx context.Context) (*BatchResult, error)
	Report(ctx context.Context) ([]models.PayoutStatusTotal, error)
}

type service struct {
	voucherRepo  repositories.VoucherRepository
	payoutRepo   repositories.PayoutItemRepository
	merchantRepo repositories.MerchantRepository
	calculator   *fees.Calculator
	transfers    TransferClient
	logger       zerolog.Logger
	now          func() time.Time
}

// NewService creates a new settlement service.
func NewService(
	voucherRepo repositories.VoucherRepository,
	payoutRepo repositories.PayoutItemRepository,
	merchantRepo repositories.MerchantRepository,
	calculator *fees.Calculator,
	transfers TransferClient,
	logger zerolog.Logger,
) Service {
	if voucherRepo == nil {
		panic("voucher repository is required")
	}
	if payoutRepo == nil {
		panic("payout item repository is required")
	}
	if merchantRepo == nil {
		panic("merchant repository is required")
	}
	if calculator == nil {
		panic("fee calculator is required")
	}
	if transfers == nil {
		panic("transfer client is required")
	}

	return &service{
		voucherRepo:  voucherRepo,
		payoutRepo:   payoutRepo,
		merchantRepo: merchantRepo,
		calculator:   calculator,
		transfers:    transfers,
		logger:       logger,
		now:          time.Now,
	}
}

// NewServiceWithClock is used by tests to control time.
func NewServiceWithClock(
	voucherRepo repositories.VoucherRepository,
	payoutRepo repositories.PayoutItemRepository,
	merchantRepo repositories.MerchantRepository,
	calculator *fees.Calculator,
	transfers TransferClient,
	logger zerolog.Logger,
	now func() time.Time,
) Service {
	s := NewService(voucherRepo, payoutRepo, merchantRepo, calculator, transfers, logger).(*service)
	s.now = now
	return s
}

// SettleVoucher settles one redeemed voucher. The payout item is persisted
// pending BEFORE the external transfer so a crash between the transfer and
// the status update leaves an auditable pending record, never a silent loss.
func (s *service) SettleVoucher(ctx context.Context, voucherID uint) (*models.PayoutItem, error) {
	chain, err := s.voucherRepo.GetChain(ctx, voucherID)
	if err != nil {
		if errors.Is(err, repositories.ErrVoucherNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to load voucher chain: %w", err)
	}

	voucher := chain.Voucher
	merchant := chain.Merchant

	switch voucher.Status {
	case models.VoucherStatusIssued, models.VoucherStatusRedeemed:
	default:
		return nil, fmt.Errorf("%w: cannot settle voucher in status %s", ErrInvalidState, voucher.Status)
	}

	// Hard precondition: no connected account, no transfer, no payout item.
	if !merchant.Payable() {
		return nil, fmt.Errorf("%w: merchant %d", ErrMerchantNotPayable, merchant.ID)
	}

	// One non-reversed payout item per voucher. The partial unique index
	// backs this check against races.
	if existing, err := s.payoutRepo.GetActiveByVoucherID(ctx, voucher.ID); err == nil {
		return existing, fmt.Errorf("%w: item %d is %s", ErrAlreadySettled, existing.ID, existing.Status)
	} else if !errors.Is(err, repositories.ErrPayoutNotFound) {
		return nil, fmt.Errorf("failed to check existing payout: %w", err)
	}

	result := s.calculator.ComputeSettlement(ctx, voucher.AmountGross, &merchant, voucher.PaymentRef)

	item := &models.PayoutItem{
		VoucherID:     voucher.ID,
		MerchantID:    merchant.ID,
		AmountPayable: result.AmountPayable,
		BrontieFee:    result.BrontieFee,
		StripeFee:     result.StripeFee,
		Currency:      voucher.Currency,
		Status:        models.PayoutStatusPending,
	}
	if err := s.payoutRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create payout item: %w", err)
	}

	// Every payout item passes through here, so this is the single place
	// the voucher's own fee and net columns get written.
	net := voucher.AmountGross - result.StripeFee
	if err := s.voucherRepo.SetSettlementAmounts(ctx, voucher.ID, result.StripeFee, net); err != nil {
		return item, fmt.Errorf("failed to record voucher fee amounts: %w", err)
	}

	correlation := fmt.Sprintf("voucher-%s-%s", voucher.Code, uuid.NewString()[:8])
	transferID, err := s.transfers.CreateTransfer(ctx,
		MinorUnits(result.AmountPayable), strings.ToLower(voucher.Currency),
		merchant.StripeConnectSettings.AccountID, correlation)
	if err != nil {
		// Unknown or failed outcome: the item stays pending for
		// reconciliation or a later batch run. Never mark paid here.
		s.logger.Error().Err(err).Uint("voucher_id", voucher.ID).
			Uint("merchant_id", merchant.ID).Msg("voucher transfer failed")
		return item, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	now := s.now()
	if err := s.payoutRepo.MarkPaid(ctx, []uint{item.ID}, transferID, now); err != nil {
		return item, fmt.Errorf("transfer %s succeeded but payout update failed: %w", transferID, err)
	}
	if err := s.voucherRepo.MarkRedeemed(ctx, []uint{voucher.ID}, now); err != nil {
		return item, fmt.Errorf("transfer %s succeeded but voucher update failed: %w", transferID, err)
	}

	item.Status = models.PayoutStatusPaid
	item.TransferID = transferID
	item.PaidOutAt = &now

	s.logger.Info().Uint("voucher_id", voucher.ID).Uint("merchant_id", merchant.ID).
		Str("transfer_id", transferID).Float64("amount", result.AmountPayable).
		Msg("voucher settled")
	return item, nil
}

// SettleBatch settles every pending payout item, grouped into one transfer
// per merchant. One merchant's failure never blocks the others; errors are
// collected into the result instead of aborting the run.
func (s *service) SettleBatch(ctx context.Context) (*BatchResult, error) {
	now := s.now()
	batchID := fmt.Sprintf("batch-%d-%s", now.Unix(), uuid.NewString()[:8])

	result := &BatchResult{
		BatchID:   batchID,
		Transfers: []TransferRecord{},
		Errors:    []MerchantError{},
		RanAt:     now,
	}

	// Claim before transferring so an overlapping run cannot pick up the
	// same items.
	items, err := s.payoutRepo.ClaimPending(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending payout items: %w", err)
	}
	if len(items) == 0 {
		return result, nil
	}

	for _, group := range groupByMerchant(items) {
		s.settleGroup(ctx, batchID, group, result)
	}

	s.logger.Info().Str("batch_id", batchID).
		Int("processed", result.Processed).Int("failed", result.Failed).
		Msg("batch settlement finished")
	return result, nil
}

type merchantGroup struct {
	merchantID uint
	items      []models.PayoutItem
}

// groupByMerchant builds a deterministic per-merchant grouping by explicit
// iteration, ordered by merchant id.
func groupByMerchant(items []models.PayoutItem) []merchantGroup {
	byMerchant := make(map[uint][]models.PayoutItem)
	for _, item := range items {
		byMerchant[item.MerchantID] = append(byMerchant[item.MerchantID], item)
	}

	ids := make([]uint, 0, len(byMerchant))
	for id := range byMerchant {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	groups := make([]merchantGroup, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, merchantGroup{merchantID: id, items: byMerchant[id]})
	}
	return groups
}

func (s *service) settleGroup(ctx context.Context, batchID string, group merchantGroup, result *BatchResult) {
	itemIDs := make([]uint, 0, len(group.items))
	voucherIDs := make([]uint, 0, len(group.items))
	var total float64
	for _, item := range group.items {
		itemIDs = append(itemIDs, item.ID)
		voucherIDs = append(voucherIDs, item.VoucherID)
		total += item.AmountPayable
	}

	fail := func(reason string) {
		if err := s.payoutRepo.Release(ctx, itemIDs); err != nil {
			s.logger.Error().Err(err).Uint("merchant_id", group.merchantID).
				Msg("failed to release claimed payout items")
		}
		result.Failed += len(group.items)
		result.Errors = append(result.Errors, MerchantError{
			MerchantID: group.merchantID,
			Reason:     reason,
		})
	}

	merchant, err := s.merchantRepo.GetByID(ctx, group.merchantID)
	if err != nil {
		fail(fmt.Sprintf("merchant lookup failed: %v", err))
		return
	}
	if !merchant.Payable() {
		fail(ErrMerchantNotPayable.Error())
		return
	}

	currency := "eur"
	if c := group.items[0].Currency; c != "" {
		currency = strings.ToLower(c)
	}

	correlation := fmt.Sprintf("%s-m%d", batchID, group.merchantID)
	transferID, err := s.transfers.CreateTransfer(ctx,
		MinorUnits(total), currency,
		merchant.StripeConnectSettings.AccountID, correlation)
	if err != nil {
		s.logger.Error().Err(err).Uint("merchant_id", group.merchantID).
			Float64("amount", total).Msg("batch transfer failed")
		fail(fmt.Sprintf("transfer failed: %v", err))
		return
	}

	now := s.now()
	if err := s.payoutRepo.MarkPaid(ctx, itemIDs, transferID, now); err != nil {
		// Money moved but the ledger update failed. The items stay
		// processing with this batch id for reconciliation.
		s.logger.Error().Err(err).Str("transfer_id", transferID).
			Uint("merchant_id", group.merchantID).
			Msg("transfer succeeded but payout update failed")
		result.Failed += len(group.items)
		result.Errors = append(result.Errors, MerchantError{
			MerchantID: group.merchantID,
			Reason:     fmt.Sprintf("transfer %s succeeded but payout update failed: %v", transferID, err),
		})
		return
	}
	if err := s.voucherRepo.MarkRedeemed(ctx, voucherIDs, now); err != nil {
		s.logger.Error().Err(err).Str("transfer_id", transferID).
			Msg("failed to mark vouchers redeemed after batch transfer")
	}

	result.Processed += len(group.items)
	result.Transfers = append(result.Transfers, TransferRecord{
		MerchantID: group.merchantID,
		TransferID: transferID,
		Amount:     total,
		ItemCount:  len(group.items),
	})
}

// Report aggregates payout items by status for reconciliation.
func (s *service) Report(ctx context.Context) ([]models.PayoutStatusTotal, error) {
	return s.payoutRepo.StatusTotals(ctx)
}
