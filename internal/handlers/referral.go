package handlers

import (
	"errors"

	"brontie/internal/services/referral"
	"brontie/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type ReferralHandler struct {
	referrals *referral.Service
}

func NewReferralHandler(referrals *referral.Service) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

// GetReferral resolves a share-link token so the storefront can prefill the
// referred purchase.
func (h *ReferralHandler) GetReferral(c *fiber.Ctx) error {
	token := c.Params("token")

	ref, err := h.referrals.GetByToken(c.Context(), token)
	if err != nil {
		if errors.Is(err, referral.ErrReferralNotFound) {
			return response.NotFound(c, "Referral not found")
		}
		return response.ServerError(c, "Failed to get referral")
	}
	return response.Success(c, "Referral retrieved", ref)
}
