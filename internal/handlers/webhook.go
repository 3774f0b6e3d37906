package handlers

import (
	"encoding/json"
	"errors"

	"brontie/internal/models"
	"brontie/internal/repositories"
	"brontie/internal/services/referral"
	"brontie/internal/services/voucher"
	"brontie/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"
)

// WebhookHandler processes Stripe events. Signature verification plus a
// processed-event table make redeliveries harmless.
type WebhookHandler struct {
	vouchers      voucher.Service
	referrals     *referral.Service
	events        repositories.WebhookEventRepository
	signingSecret string
	logger        zerolog.Logger
}

func NewWebhookHandler(
	vouchers voucher.Service,
	referrals *referral.Service,
	events repositories.WebhookEventRepository,
	signingSecret string,
	logger zerolog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		vouchers:      vouchers,
		referrals:     referrals,
		events:        events,
		signingSecret: signingSecret,
		logger:        logger,
	}
}

// HandleStripeEvent is the single webhook endpoint registered with Stripe.
func (h *WebhookHandler) HandleStripeEvent(c *fiber.Ctx) error {
	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), h.signingSecret)
	if err != nil {
		h.logger.Warn().Err(err).Msg("webhook signature verification failed")
		return response.BadRequest(c, "Invalid signature")
	}

	var payload models.JSON
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		h.logger.Warn().Err(err).Str("event_id", event.ID).Msg("unparseable event payload")
	}

	first, err := h.events.MarkProcessed(c.Context(), event.ID, string(event.Type), payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to record webhook event")
		return response.ServerError(c, "Failed to process event")
	}
	if !first {
		return response.Success(c, "Event already processed", nil)
	}

	switch event.Type {
	case "checkout.session.completed":
		err = h.handleCheckoutCompleted(c, event)
	case "charge.refunded":
		err = h.handleChargeRefunded(c, event)
	case "charge.dispute.created":
		err = h.handleDisputeCreated(c, event)
	default:
		h.logger.Debug().Str("type", string(event.Type)).Msg("ignoring webhook event")
	}
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID).
			Str("type", string(event.Type)).Msg("webhook handling failed")
		return response.ServerError(c, "Failed to process event")
	}
	return response.Success(c, "Event processed", nil)
}

// handleCheckoutCompleted issues the voucher, mints its referral token and
// credits the referral it arrived through, if any.
func (h *WebhookHandler) handleCheckoutCompleted(c *fiber.Ctx, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return err
	}

	code := session.Metadata["voucher_code"]
	if code == "" {
		h.logger.Warn().Str("session_id", session.ID).Msg("checkout session without voucher_code metadata")
		return nil
	}

	paymentRef := session.ID
	if session.PaymentIntent != nil {
		paymentRef = session.PaymentIntent.ID
	}

	v, err := h.vouchers.Issue(c.Context(), code, paymentRef)
	if err != nil {
		return err
	}

	if _, err := h.referrals.CreateForVoucher(c.Context(), v); err != nil {
		// Token minting must not fail the issue.
		h.logger.Error().Err(err).Str("code", code).Msg("failed to create referral token")
	}
	if err := h.referrals.RecordConversion(c.Context(), v.ReferralToken, v.ID); err != nil {
		h.logger.Error().Err(err).Str("code", code).Msg("failed to record referral conversion")
	}
	return nil
}

func (h *WebhookHandler) handleChargeRefunded(c *fiber.Ctx, event stripe.Event) error {
	var ch stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		return err
	}

	v, err := h.lookupByCharge(c, &ch)
	if err != nil {
		if errors.Is(err, voucher.ErrVoucherNotFound) {
			h.logger.Warn().Str("charge_id", ch.ID).Msg("refunded charge has no voucher")
			return nil
		}
		return err
	}

	_, err = h.vouchers.Refund(c.Context(), v.Code)
	if errors.Is(err, voucher.ErrInvalidState) {
		// Already refunded or otherwise terminal.
		return nil
	}
	return err
}

func (h *WebhookHandler) handleDisputeCreated(c *fiber.Ctx, event stripe.Event) error {
	var dispute stripe.Dispute
	if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
		return err
	}
	if dispute.Charge == nil {
		return nil
	}

	v, err := h.lookupByCharge(c, dispute.Charge)
	if err != nil {
		if errors.Is(err, voucher.ErrVoucherNotFound) {
			h.logger.Warn().Str("charge_id", dispute.Charge.ID).Msg("disputed charge has no voucher")
			return nil
		}
		return err
	}

	_, err = h.vouchers.Dispute(c.Context(), v.Code)
	if errors.Is(err, voucher.ErrInvalidState) {
		return nil
	}
	return err
}

// lookupByCharge resolves the voucher behind a charge. The payment reference
// stored at issue time is the payment intent id when the checkout session
// carried one, the session id otherwise.
func (h *WebhookHandler) lookupByCharge(c *fiber.Ctx, ch *stripe.Charge) (*models.Voucher, error) {
	if ch.PaymentIntent != nil {
		v, err := h.vouchers.GetByPaymentRef(c.Context(), ch.PaymentIntent.ID)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, voucher.ErrVoucherNotFound) {
			return nil, err
		}
	}
	return h.vouchers.GetByPaymentRef(c.Context(), ch.ID)
}
