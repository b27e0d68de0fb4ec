package repository

import (
	"context"

	"catalog-chat/internal/domain"
)

// ProductRepository is the durable, append-only product table.
type ProductRepository interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, in domain.ProductInput) (domain.ProductID, error)
	ReadAll(ctx context.Context) ([]domain.Product, error)
}

// MessageRepository is the durable, append-only chat log.
type MessageRepository interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, m domain.ChatMessage) error
	ReadAll(ctx context.Context) ([]domain.ChatMessage, error)
}
