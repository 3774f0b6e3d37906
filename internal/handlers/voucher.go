// Package handlers contains the fiber HTTP handlers. They translate
// request payloads into service calls and service errors into status codes;
// no business rules live here.
package handlers

import (
	"errors"

	"brontie/internal/repositories"
	"brontie/internal/services/settlement"
	"brontie/internal/services/voucher"
	"brontie/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type VoucherHandler struct {
	vouchers   voucher.Service
	settlement settlement.Service
	products   repositories.ProductRepository
	logger     zerolog.Logger
}

func NewVoucherHandler(
	vouchers voucher.Service,
	settlementSvc settlement.Service,
	products repositories.ProductRepository,
	logger zerolog.Logger,
) *VoucherHandler {
	return &VoucherHandler{
		vouchers:   vouchers,
		settlement: settlementSvc,
		products:   products,
		logger:     logger,
	}
}

type createVoucherRequest struct {
	ProductID      uint   `json:"product_id"`
	SenderName     string `json:"sender_name"`
	SenderEmail    string `json:"sender_email"`
	RecipientName  string `json:"recipient_name"`
	RecipientEmail string `json:"recipient_email"`
	Message        string `json:"message"`
	ReferralToken  string `json:"referral_token"`

	// LocationIDs restricts redemption; empty means any of the
	// merchant's locations.
	LocationIDs []uint `json:"location_ids"`
}

// CreateVoucher starts a purchase: the voucher is created pending and only
// becomes issued once the payment webhook confirms the checkout.
func (h *VoucherHandler) CreateVoucher(c *fiber.Ctx) error {
	var req createVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.ProductID == 0 {
		return response.BadRequest(c, "product_id is required")
	}
	if req.SenderEmail == "" {
		return response.BadRequest(c, "sender_email is required")
	}

	product, err := h.products.GetByID(c.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return response.NotFound(c, "Product not found")
		}
		h.logger.Error().Err(err).Uint("product_id", req.ProductID).Msg("product lookup failed")
		return response.ServerError(c, "Failed to create voucher")
	}
	if !product.Active {
		return response.BadRequest(c, "Product is not available")
	}

	v, err := h.vouchers.Create(c.Context(), voucher.CreateInput{
		ProductID:        product.ID,
		AmountGross:      product.Price,
		SenderName:       req.SenderName,
		SenderEmail:      req.SenderEmail,
		RecipientName:    req.RecipientName,
		RecipientEmail:   req.RecipientEmail,
		Message:          req.Message,
		ValidLocationIDs: req.LocationIDs,
		ReferralToken:    req.ReferralToken,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("voucher creation failed")
		return response.ServerError(c, "Failed to create voucher")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Voucher created",
		"data":    v,
	})
}

// GetVoucher serves the public voucher page lookup.
func (h *VoucherHandler) GetVoucher(c *fiber.Ctx) error {
	code := c.Params("code")

	v, err := h.vouchers.GetByCode(c.Context(), code)
	if err != nil {
		if errors.Is(err, voucher.ErrVoucherNotFound) {
			return response.NotFound(c, "Voucher not found")
		}
		h.logger.Error().Err(err).Str("code", code).Msg("voucher lookup failed")
		return response.ServerError(c, "Failed to get voucher")
	}
	return response.Success(c, "Voucher retrieved", v)
}

type redeemRequest struct {
	LocationID uint `json:"location_id"`
}

// RedeemVoucher redeems the voucher at a store location and immediately
// attempts the merchant payout. A transfer failure does not undo the
// redemption; the payout item stays pending for the next batch run.
func (h *VoucherHandler) RedeemVoucher(c *fiber.Ctx) error {
	code := c.Params("code")

	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.LocationID == 0 {
		return response.BadRequest(c, "location_id is required")
	}

	v, err := h.vouchers.Redeem(c.Context(), code, req.LocationID)
	if err != nil {
		switch {
		case errors.Is(err, voucher.ErrVoucherNotFound):
			return response.NotFound(c, "Voucher not found")
		case errors.Is(err, voucher.ErrVoucherExpired):
			return response.Error(c, fiber.StatusGone, "Voucher has expired")
		case errors.Is(err, voucher.ErrInvalidLocation):
			return response.BadRequest(c, "Voucher is not valid at this location")
		case errors.Is(err, voucher.ErrInvalidState):
			return response.Conflict(c, "Voucher cannot be redeemed")
		}
		h.logger.Error().Err(err).Str("code", code).Msg("redemption failed")
		return response.ServerError(c, "Failed to redeem voucher")
	}

	payoutStatus := "paid"
	item, err := h.settlement.SettleVoucher(c.Context(), v.ID)
	if err != nil {
		// The customer's redemption stands either way.
		payoutStatus = "pending"
		h.logger.Warn().Err(err).Str("code", code).Msg("payout deferred after redemption")
	}

	return response.Success(c, "Voucher redeemed", fiber.Map{
		"voucher":       v,
		"payout_status": payoutStatus,
		"payout_item":   item,
	})
}
