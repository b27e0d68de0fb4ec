package domain

import "time"

// ChatMessage is the wire and read model of one chat line.
type ChatMessage struct {
	Author    string     `json:"author" validate:"notblank,max=255"`
	Text      string     `json:"text" validate:"notblank,max=2000"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ChatRecord is the persisted row behind a ChatMessage. ID only orders rows.
type ChatRecord struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	Author    string     `gorm:"type:varchar(255);not null"`
	Text      string     `gorm:"type:text;not null"`
	SentAt    *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime;not null"`
}

func (ChatRecord) TableName() string {
	return "chat_messages"
}

func NewChatRecord(m ChatMessage) ChatRecord {
	return ChatRecord{
		Author: m.Author,
		Text:   m.Text,
		SentAt: m.Timestamp,
	}
}

// Message rebuilds the read model. The client-supplied time wins over the insert time.
func (r ChatRecord) Message() ChatMessage {
	ts := r.CreatedAt
	if r.SentAt != nil {
		ts = *r.SentAt
	}
	return ChatMessage{
		Author:    r.Author,
		Text:      r.Text,
		Timestamp: &ts,
	}
}
