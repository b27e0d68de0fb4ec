package repository

import (
	"context"

	"catalog-chat/internal/domain"

	"gorm.io/gorm"
)

type GormProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, r.db, "products", &domain.Product{})
}

func (r *GormProductRepository) Append(ctx context.Context, in domain.ProductInput) (domain.ProductID, error) {
	p := in.ToProduct()
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return 0, storeError("append product", err)
	}
	return p.ID, nil
}

func (r *GormProductRepository) ReadAll(ctx context.Context) ([]domain.Product, error) {
	products := make([]domain.Product, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&products).Error; err != nil {
		return nil, storeError("read products", err)
	}
	return products, nil
}
