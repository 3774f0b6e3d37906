package handlers

import (
	"errors"

	"brontie/internal/services/settlement"
	"brontie/internal/services/voucher"
	"brontie/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// SettlementHandler exposes the admin settlement operations.
type SettlementHandler struct {
	settlement settlement.Service
	vouchers   voucher.Service
	logger     zerolog.Logger
}

func NewSettlementHandler(settlementSvc settlement.Service, vouchers voucher.Service, logger zerolog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlement: settlementSvc,
		vouchers:   vouchers,
		logger:     logger,
	}
}

// RunBatch triggers one batch settlement run. Per-merchant failures come
// back inside the result, not as an HTTP error.
func (h *SettlementHandler) RunBatch(c *fiber.Ctx) error {
	result, err := h.settlement.SettleBatch(c.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("batch settlement failed")
		return response.ServerError(c, "Batch settlement failed")
	}
	return response.Success(c, "Batch settlement finished", result)
}

// Report returns payout item totals grouped by status.
func (h *SettlementHandler) Report(c *fiber.Ctx) error {
	totals, err := h.settlement.Report(c.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("settlement report failed")
		return response.ServerError(c, "Failed to build report")
	}
	return response.Success(c, "Settlement report", totals)
}

// SettleVoucher settles a single voucher out of band.
func (h *SettlementHandler) SettleVoucher(c *fiber.Ctx) error {
	code := c.Params("code")

	v, err := h.vouchers.GetByCode(c.Context(), code)
	if err != nil {
		if errors.Is(err, voucher.ErrVoucherNotFound) {
			return response.NotFound(c, "Voucher not found")
		}
		return response.ServerError(c, "Failed to get voucher")
	}

	item, err := h.settlement.SettleVoucher(c.Context(), v.ID)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrInvalidState):
			return response.Conflict(c, "Voucher cannot be settled in its current status")
		case errors.Is(err, settlement.ErrAlreadySettled):
			return response.Conflict(c, "Voucher already has a payout item")
		case errors.Is(err, settlement.ErrMerchantNotPayable):
			return response.BadRequest(c, "Merchant has no connected account")
		case errors.Is(err, settlement.ErrTransferFailed):
			h.logger.Error().Err(err).Str("code", code).Msg("transfer failed")
			return response.Error(c, fiber.StatusBadGateway, "Transfer failed; payout item left pending")
		}
		h.logger.Error().Err(err).Str("code", code).Msg("settlement failed")
		return response.ServerError(c, "Settlement failed")
	}
	return response.Success(c, "Voucher settled", item)
}

// RefundVoucher is the admin refund path; the webhook path covers refunds
// initiated from the Stripe dashboard.
func (h *SettlementHandler) RefundVoucher(c *fiber.Ctx) error {
	code := c.Params("code")

	v, err := h.vouchers.Refund(c.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, voucher.ErrVoucherNotFound):
			return response.NotFound(c, "Voucher not found")
		case errors.Is(err, voucher.ErrInvalidState):
			return response.Conflict(c, "Voucher cannot be refunded")
		}
		h.logger.Error().Err(err).Str("code", code).Msg("refund failed")
		return response.ServerError(c, "Refund failed")
	}
	return response.Success(c, "Voucher refunded", v)
}

// ExpireVouchers sweeps issued vouchers past their expiry date.
func (h *SettlementHandler) ExpireVouchers(c *fiber.Ctx) error {
	expired, err := h.vouchers.ExpireOverdue(c.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("expiry sweep failed")
		return response.ServerError(c, "Expiry sweep failed")
	}
	return response.Success(c, "Expiry sweep finished", fiber.Map{"expired": expired})
}
