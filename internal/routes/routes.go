// Package routes wires repositories, services and handlers onto the fiber
// app and applies the admin authentication middleware.
package routes

import (
	"brontie/internal/config"
	"brontie/internal/handlers"
	"brontie/internal/middleware"
	"brontie/internal/models"
	"brontie/internal/repositories"
	"brontie/internal/services/connect"
	"brontie/internal/services/fees"
	"brontie/internal/services/referral"
	"brontie/internal/services/settlement"
	"brontie/internal/services/voucher"
	"brontie/internal/stripeclient"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// SetupRoutes builds the full dependency graph and registers every route.
func SetupRoutes(app *fiber.App, cfg *config.Config, logger zerolog.Logger) {
	db := repositories.DB
	cacheSvc := repositories.CacheService

	voucherRepo := repositories.NewVoucherRepository(db)
	payoutRepo := repositories.NewPayoutItemRepository(db)
	merchantRepo := repositories.NewMerchantRepository(db)
	productRepo := repositories.NewProductRepository(db)
	referralRepo := repositories.NewReferralRepository(db)
	webhookRepo := repositories.NewWebhookEventRepository(db)

	stripeClient := stripeclient.New(cfg.Stripe.SecretKey)

	calculator := fees.NewCalculator(stripeClient, logger)
	voucherService := voucher.NewService(voucherRepo, payoutRepo, cacheSvc, logger)
	settlementService := settlement.NewService(voucherRepo, payoutRepo, merchantRepo, calculator, stripeClient, logger)
	connectService := connect.NewService(merchantRepo, stripeClient, cacheSvc, logger)
	referralService := referral.NewService(referralRepo, logger)

	voucherHandler := handlers.NewVoucherHandler(voucherService, settlementService, productRepo, logger)
	settlementHandler := handlers.NewSettlementHandler(settlementService, voucherService, logger)
	merchantHandler := handlers.NewMerchantHandler(merchantRepo, productRepo, connectService, logger)
	webhookHandler := handlers.NewWebhookHandler(voucherService, referralService, webhookRepo, cfg.Stripe.WebhookSecret, logger)
	referralHandler := handlers.NewReferralHandler(referralService)
	healthHandler := handlers.NewHealthHandler(db, cacheSvc)

	app.Get("/health", healthHandler.Health)
	app.Get("/ready", healthHandler.Ready)

	api := app.Group("/api")

	// Public storefront endpoints.
	api.Post("/vouchers", voucherHandler.CreateVoucher)
	api.Get("/vouchers/:code", voucherHandler.GetVoucher)
	api.Post("/vouchers/:code/redeem", voucherHandler.RedeemVoucher)
	api.Get("/referrals/:token", referralHandler.GetReferral)

	// Stripe calls this with a signed payload; no bearer auth.
	api.Post("/webhooks/stripe", webhookHandler.HandleStripeEvent)

	// Admin endpoints.
	admin := api.Group("/admin", middleware.AdminAuth(cfg.Server.JWTSecret))

	admin.Post("/settlements/run", middleware.RequirePermission(models.PermissionSettlementRun), settlementHandler.RunBatch)
	admin.Get("/settlements/report", middleware.RequirePermission(models.PermissionSettlementRead), settlementHandler.Report)
	admin.Post("/vouchers/:code/settle", middleware.RequirePermission(models.PermissionSettlementRun), settlementHandler.SettleVoucher)
	admin.Post("/vouchers/:code/refund", middleware.RequirePermission(models.PermissionVoucherWrite), settlementHandler.RefundVoucher)
	admin.Post("/vouchers/expire", middleware.RequirePermission(models.PermissionVoucherWrite), settlementHandler.ExpireVouchers)

	admin.Post("/merchants", middleware.RequirePermission(models.PermissionMerchantWrite), merchantHandler.CreateMerchant)
	admin.Get("/merchants/:id", merchantHandler.GetMerchant)
	admin.Post("/merchants/:id/stripe-account", middleware.RequirePermission(models.PermissionMerchantWrite), merchantHandler.AttachStripeAccount)
	admin.Post("/merchants/:id/stripe-account/sync", middleware.RequirePermission(models.PermissionMerchantWrite), merchantHandler.SyncStripeAccount)
	admin.Post("/merchants/:id/commission", middleware.RequirePermission(models.PermissionMerchantWrite), merchantHandler.SetCommission)
	admin.Post("/merchants/:id/products", middleware.RequirePermission(models.PermissionMerchantWrite), merchantHandler.CreateProduct)
	admin.Get("/merchants/:id/products", merchantHandler.ListProducts)
	admin.Post("/merchants/:id/locations", middleware.RequirePermission(models.PermissionMerchantWrite), merchantHandler.CreateLocation)
	admin.Get("/merchants/:id/locations", merchantHandler.ListLocations)
}
