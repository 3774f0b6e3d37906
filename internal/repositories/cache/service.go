package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"brontie/internal/models"

	"github.com/redis/go-redis/v9"
)

// CacheService wraps Redis with JSON marshalling and domain key helpers.
// It is constructed once at startup and passed by reference; no
// package-level cache state exists.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations

func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Voucher caching. Vouchers are keyed by redemption code since that is the
// only lookup the public API performs.

func (s *CacheService) CacheVoucher(ctx context.Context, voucher *models.Voucher) error {
	if voucher == nil {
		return errors.New("cannot cache nil voucher")
	}
	key := s.GenerateKey("voucher", "code", voucher.Code)
	return s.Set(ctx, key, voucher)
}

func (s *CacheService) GetVoucher(ctx context.Context, code string) (*models.Voucher, error) {
	key := s.GenerateKey("voucher", "code", code)
	var voucher models.Voucher
	found, err := s.Get(ctx, key, &voucher)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("voucher not found in cache")
	}
	return &voucher, nil
}

func (s *CacheService) InvalidateVoucher(ctx context.Context, code string) error {
	return s.Delete(ctx, s.GenerateKey("voucher", "code", code))
}

// Merchant caching. Commission settings are read on every settlement run,
// so merchants get a shorter TTL to keep activation changes visible.

const merchantTTL = 5 * time.Minute

func (s *CacheService) CacheMerchant(ctx context.Context, merchant *models.Merchant) error {
	if merchant == nil {
		return errors.New("cannot cache nil merchant")
	}
	key := s.GenerateKey("merchant", "id", merchant.ID)
	return s.SetWithTTL(ctx, key, merchant, merchantTTL)
}

func (s *CacheService) GetMerchant(ctx context.Context, merchantID uint) (*models.Merchant, error) {
	key := s.GenerateKey("merchant", "id", merchantID)
	var merchant models.Merchant
	found, err := s.Get(ctx, key, &merchant)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("merchant not found in cache")
	}
	return &merchant, nil
}

func (s *CacheService) InvalidateMerchant(ctx context.Context, merchantID uint) error {
	return s.Delete(ctx, s.GenerateKey("merchant", "id", merchantID))
}

// HealthCheck pings Redis.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// FlushAll flushes all keys from the cache
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
