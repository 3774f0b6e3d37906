package repositories

import (
	"context"
	"errors"

	"brontie/internal/models"

	"gorm.io/gorm"
)

// ProductRepository is the data access contract for products and locations.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	ListByMerchant(ctx context.Context, merchantID uint) ([]models.Product, error)
	CreateLocation(ctx context.Context, location *models.Location) error
	ListLocations(ctx context.Context, merchantID uint) ([]models.Location, error)
	GetLocation(ctx context.Context, id uint) (*models.Location, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) ListByMerchant(ctx context.Context, merchantID uint) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID).Find(&products).Error
	return products, err
}

func (r *productRepository) CreateLocation(ctx context.Context, location *models.Location) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *productRepository) ListLocations(ctx context.Context, merchantID uint) ([]models.Location, error) {
	var locations []models.Location
	err := r.db.WithContext(ctx).Where("merchant_id = ? AND active", merchantID).Find(&locations).Error
	return locations, err
}

func (r *productRepository) GetLocation(ctx context.Context, id uint) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).First(&location, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &location, nil
}
