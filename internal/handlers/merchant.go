package handlers

import (
	"errors"
	"time"

	"brontie/internal/models"
	"brontie/internal/repositories"
	"brontie/internal/services/connect"
	"brontie/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// MerchantHandler covers merchant administration: records, products,
// locations, connected-account lifecycle and commission toggling.
type MerchantHandler struct {
	merchants repositories.MerchantRepository
	products  repositories.ProductRepository
	connect   *connect.Service
	logger    zerolog.Logger
}

func NewMerchantHandler(
	merchants repositories.MerchantRepository,
	products repositories.ProductRepository,
	connectSvc *connect.Service,
	logger zerolog.Logger,
) *MerchantHandler {
	return &MerchantHandler{
		merchants: merchants,
		products:  products,
		connect:   connectSvc,
		logger:    logger,
	}
}

type createMerchantRequest struct {
	BusinessName    string `json:"business_name"`
	Email           string `json:"email"`
	BusinessAddress string `json:"business_address"`
}

func (h *MerchantHandler) CreateMerchant(c *fiber.Ctx) error {
	var req createMerchantRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.BusinessName == "" || req.Email == "" {
		return response.BadRequest(c, "business_name and email are required")
	}

	if _, err := h.merchants.GetByEmail(c.Context(), req.Email); err == nil {
		return response.Conflict(c, "Merchant with this email already exists")
	} else if !errors.Is(err, repositories.ErrMerchantNotFound) {
		return response.ServerError(c, "Failed to create merchant")
	}

	merchant := &models.Merchant{
		BusinessName:    req.BusinessName,
		Email:           req.Email,
		BusinessAddress: req.BusinessAddress,
		Status:          "active",
	}
	if err := h.merchants.Create(c.Context(), merchant); err != nil {
		h.logger.Error().Err(err).Msg("merchant creation failed")
		return response.ServerError(c, "Failed to create merchant")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Merchant created",
		"data":    merchant,
	})
}

func (h *MerchantHandler) GetMerchant(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid merchant id")
	}

	merchant, err := h.merchants.GetByID(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, repositories.ErrMerchantNotFound) {
			return response.NotFound(c, "Merchant not found")
		}
		return response.ServerError(c, "Failed to get merchant")
	}
	return response.Success(c, "Merchant retrieved", merchant)
}

type attachAccountRequest struct {
	AccountID string `json:"account_id"`
}

// AttachStripeAccount stores the connected-account id created during
// onboarding and runs the first capability sync.
func (h *MerchantHandler) AttachStripeAccount(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid merchant id")
	}

	var req attachAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.AccountID == "" {
		return response.BadRequest(c, "account_id is required")
	}

	merchant, err := h.connect.AttachAccount(c.Context(), uint(id), req.AccountID)
	if err != nil {
		if errors.Is(err, connect.ErrMerchantNotFound) {
			return response.NotFound(c, "Merchant not found")
		}
		h.logger.Error().Err(err).Int("merchant_id", id).Msg("account attach failed")
		return response.ServerError(c, "Failed to attach account")
	}
	return response.Success(c, "Account attached", merchant)
}

// SyncStripeAccount refreshes capability flags from the processor. Wired to
// the onboarding return URL and callable manually.
func (h *MerchantHandler) SyncStripeAccount(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid merchant id")
	}

	merchant, err := h.connect.SyncAccountStatus(c.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, connect.ErrMerchantNotFound):
			return response.NotFound(c, "Merchant not found")
		case errors.Is(err, connect.ErrNoAccount):
			return response.BadRequest(c, "Merchant has no connected account")
		}
		h.logger.Error().Err(err).Int("merchant_id", id).Msg("account sync failed")
		return response.ServerError(c, "Failed to sync account")
	}
	return response.Success(c, "Account synced", merchant)
}

type commissionRequest struct {
	Active bool   `json:"active"`
	Reason string `json:"reason"`
}

// SetCommission toggles commission collection for a merchant. Activation
// clears any previous deactivation; deactivation records who and why.
func (h *MerchantHandler) SetCommission(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid merchant id")
	}

	var req commissionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	by := ""
	if claims, ok := c.Locals("claims").(*models.AdminClaims); ok {
		by = claims.Email
	}
	if !req.Active && req.Reason == "" {
		return response.BadRequest(c, "reason is required when deactivating")
	}

	if err := h.merchants.SetCommissionActive(c.Context(), uint(id), req.Active, by, req.Reason, time.Now()); err != nil {
		if errors.Is(err, repositories.ErrMerchantNotFound) {
			return response.NotFound(c, "Merchant not found")
		}
		h.logger.Error().Err(err).Int("merchant_id", id).Msg("commission update failed")
		return response.ServerError(c, "Failed to update commission")
	}

	merchant, err := h.merchants.GetByID(c.Context(), uint(id))
	if err != nil {
		return response.ServerError(c, "Failed to get merchant")
	}
	return response.Success(c, "Commission updated", merchant)
}

type createProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

func (h *MerchantHandler) CreateProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid merchant id")
	}

	var req createProductRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name == "" || req.Price <= 0 {
		return response.BadRequest(c, "name and a positive price are required")
	}

	if _, err := h.merchants.GetByID(c.Context(), uint(id)); err != nil {
		if errors.Is(err, repositories.ErrMerchantNotFound) {
			return response.NotFound(c, "Merchant not found")
		}
		return response.ServerError(c, "Failed to create product")
	}

	product := &models.Product{
		MerchantID:  uint(id),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    "EUR",
		Active:      true,
	}
	if err := h.products.Create(c.Context(), product); err != nil {
		h.logger.Error().Err(err).Int("merchant_id", id).Msg("product creation failed")
		return response.ServerError(c, "Failed to create product")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Product created",
		"data":    product,
	})
}

func (h *MerchantHandler) ListProducts(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid merchant id")
	}

	products, err := h.products.ListByMerchant(c.Context(), uint(id))
	if err != nil {
		return response.ServerError(c, "Failed to list products")
	}
	return response.Success(c, "Products retrieved", products)
}

type createLocationRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (h *MerchantHandler) CreateLocation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid merchant id")
	}

	var req createLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return response.BadRequest(c, "name is required")
	}

	location := &models.Location{
		MerchantID: uint(id),
		Name:       req.Name,
		Address:    req.Address,
		Active:     true,
	}
	if err := h.products.CreateLocation(c.Context(), location); err != nil {
		h.logger.Error().Err(err).Int("merchant_id", id).Msg("location creation failed")
		return response.ServerError(c, "Failed to create location")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Location created",
		"data":    location,
	})
}

func (h *MerchantHandler) ListLocations(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid merchant id")
	}

	locations, err := h.products.ListLocations(c.Context(), uint(id))
	if err != nil {
		return response.ServerError(c, "Failed to list locations")
	}
	return response.Success(c, "Locations retrieved", locations)
}
