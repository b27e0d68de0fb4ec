package repository

import (
	"context"

	"catalog-chat/internal/domain"

	"gorm.io/gorm"
)

type GormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, r.db, "chat_messages", &domain.ChatRecord{})
}

func (r *GormMessageRepository) Append(ctx context.Context, m domain.ChatMessage) error {
	rec := domain.NewChatRecord(m)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return storeError("append message", err)
	}
	return nil
}

func (r *GormMessageRepository) ReadAll(ctx context.Context) ([]domain.ChatMessage, error) {
	var records []domain.ChatRecord
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, storeError("read messages", err)
	}
	messages := make([]domain.ChatMessage, 0, len(records))
	for _, rec := range records {
		messages = append(messages, rec.Message())
	}
	return messages, nil
}
