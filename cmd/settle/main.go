// Command settle runs one batch settlement from the command line. It exists
// for cron and for manual reruns after transfer failures.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"brontie/internal/config"
	"brontie/internal/repositories"
	"brontie/internal/services/fees"
	"brontie/internal/services/settlement"
	"brontie/internal/stripeclient"

	"github.com/rs/zerolog"
)

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := repositories.InitDB(cfg); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if repositories.DB != nil {
			if sqlDB, err := repositories.DB.DB(); err == nil {
				sqlDB.Close()
			}
		}
		if repositories.CacheService != nil {
			repositories.CacheService.Close()
		}
	}()

	stripeClient := stripeclient.New(cfg.Stripe.SecretKey)
	svc := settlement.NewService(
		repositories.NewVoucherRepository(repositories.DB),
		repositories.NewPayoutItemRepository(repositories.DB),
		repositories.NewMerchantRepository(repositories.DB),
		fees.NewCalculator(stripeClient, logger),
		stripeClient,
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := svc.SettleBatch(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch settlement failed")
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	os.Stdout.Write(append(out, '\n'))

	if result.Failed > 0 {
		os.Exit(1)
	}
}
