package services

import (
	"context"
	"fmt"

	"catalog-chat/internal/domain"
	"catalog-chat/internal/repository"
	"catalog-chat/internal/validation"

	"go.uber.org/zap"
)

// SeedCatalog appends items only when the catalog is empty. Every item goes
// through the same validation gate as client submissions. Returns how many
// rows were inserted.
func SeedCatalog(ctx context.Context, products repository.ProductRepository, items []domain.ProductInput, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.L()
	}

	existing, err := products.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("catalog already populated, skipping seed", zap.Int("catalog_size", len(existing)))
		return 0, nil
	}

	for i, item := range items {
		if err := validation.ValidateProduct(item); err != nil {
			return 0, fmt.Errorf("seed item %d: %w", i, err)
		}
	}

	inserted := 0
	for _, item := range items {
		id, err := products.Append(ctx, item)
		if err != nil {
			return inserted, fmt.Errorf("seed catalog: %w", err)
		}
		inserted++
		logger.Debug("seeded product", zap.Uint64("product_id", uint64(id)), zap.String("name", item.Name))
	}

	logger.Info("catalog seeded", zap.Int("inserted", inserted))
	return inserted, nil
}
