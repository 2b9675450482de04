package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SubscriberStore manages bot users and their notification preference.
type SubscriberStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSubscriberStore(db *gorm.DB) *SubscriberStore {
	return &SubscriberStore{db: db, now: time.Now}
}

// Ensure returns the subscriber for telegramID, creating it with notifications
// disabled on first contact. The username and activity time are refreshed.
func (s *SubscriberStore) Ensure(ctx context.Context, telegramID int64, userName string) (*Subscriber, error) {
	now := s.now().UTC()
	sub := &Subscriber{}
	err := s.db.WithContext(ctx).
		Where(Subscriber{TelegramID: telegramID}).
		Attrs(Subscriber{UserName: userName}).
		FirstOrCreate(sub).Error
	if err != nil {
		return nil, fmt.Errorf("ensure subscriber %d: %w", telegramID, err)
	}
	err = s.db.WithContext(ctx).Model(sub).Updates(map[string]any{
		"user_name":        userName,
		"last_activity_at": now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("touch subscriber %d: %w", telegramID, err)
	}
	return sub, nil
}

// Get returns the subscriber for telegramID or ErrNotFound.
func (s *SubscriberStore) Get(ctx context.Context, telegramID int64) (*Subscriber, error) {
	sub := &Subscriber{}
	if err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get subscriber %d: %w", telegramID, err)
	}
	return sub, nil
}

// SetEnabled sets the notification flag for an existing subscriber.
func (s *SubscriberStore) SetEnabled(ctx context.Context, telegramID int64, enabled bool) error {
	res := s.db.WithContext(ctx).Model(&Subscriber{}).
		Where("telegram_id = ?", telegramID).
		Update("notifications_enabled", enabled)
	if res.Error != nil {
		return fmt.Errorf("update subscriber %d: %w", telegramID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Toggle flips the notification flag and returns the new value.
func (s *SubscriberStore) Toggle(ctx context.Context, telegramID int64) (bool, error) {
	var enabled bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := &Subscriber{}
		if err := tx.Where("telegram_id = ?", telegramID).First(sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		enabled = !sub.NotificationsEnabled
		return tx.Model(sub).Update("notifications_enabled", enabled).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("toggle subscriber %d: %w", telegramID, err)
	}
	return enabled, nil
}

// Remove hard-deletes the subscriber so a later /start can recreate it.
// Removing an unknown id is not an error.
func (s *SubscriberStore) Remove(ctx context.Context, telegramID int64) error {
	if err := s.db.WithContext(ctx).Unscoped().Where("telegram_id = ?", telegramID).Delete(&Subscriber{}).Error; err != nil {
		return fmt.Errorf("delete subscriber %d: %w", telegramID, err)
	}
	return nil
}

// ListEnabled returns every subscriber with notifications enabled at call time.
func (s *SubscriberStore) ListEnabled(ctx context.Context) ([]Subscriber, error) {
	var subs []Subscriber
	if err := s.db.WithContext(ctx).Where("notifications_enabled = ?", true).Order("id").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list enabled subscribers: %w", err)
	}
	return subs, nil
}

// CountEnabled returns the number of subscribers with notifications enabled.
func (s *SubscriberStore) CountEnabled(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Subscriber{}).Where("notifications_enabled = ?", true).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count enabled subscribers: %w", err)
	}
	return n, nil
}
