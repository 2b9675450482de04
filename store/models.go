package store

import (
	"time"

	"gorm.io/gorm"
)

// Subscriber is a bot user. Rows are created on first /start and the
// notification flag is toggled from the matches menu.
type Subscriber struct {
	gorm.Model
	TelegramID           int64 `gorm:"uniqueIndex;not null"`
	UserName             string
	NotificationsEnabled bool `gorm:"not null;default:false;index"`
	LastActivityAt       *time.Time
}

// NotificationRecord marks a match whose reminder has been sent. At most one
// row exists per match.
type NotificationRecord struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	MatchID        int       `gorm:"uniqueIndex;not null" json:"match_id"`
	SentAt         time.Time `gorm:"not null" json:"sent_at"`
	RecipientCount int       `gorm:"not null;default:0" json:"recipient_count"`
}

func (NotificationRecord) TableName() string { return "game_notifications" }
