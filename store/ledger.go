package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadyNotified is returned by Record when the match already has a record.
var ErrAlreadyNotified = errors.New("match already notified")

// SQLLedger is the sqlite-backed notification ledger. The unique index on
// match_id makes Record first-writer-wins across processes sharing the file.
type SQLLedger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLLedger(db *gorm.DB) *SQLLedger {
	return &SQLLedger{db: db, now: time.Now}
}

// HasNotified reports whether a record exists for matchID.
func (l *SQLLedger) HasNotified(ctx context.Context, matchID int) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&NotificationRecord{}).Where("match_id = ?", matchID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check ledger for match %d: %w", matchID, err)
	}
	return count > 0, nil
}

// Record writes the record for matchID. A second write for the same match
// returns ErrAlreadyNotified and leaves the first record untouched.
func (l *SQLLedger) Record(ctx context.Context, matchID int, recipientCount int) error {
	rec := &NotificationRecord{
		MatchID:        matchID,
		SentAt:         l.now().UTC(),
		RecipientCount: recipientCount,
	}
	res := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return fmt.Errorf("record match %d: %w", matchID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyNotified
	}
	return nil
}

// Get returns the record for matchID.
func (l *SQLLedger) Get(ctx context.Context, matchID int) (*NotificationRecord, error) {
	var rec NotificationRecord
	if err := l.db.WithContext(ctx).Where("match_id = ?", matchID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record for match %d: %w", matchID, err)
	}
	return &rec, nil
}

// Recent returns up to limit records, newest first.
func (l *SQLLedger) Recent(ctx context.Context, limit int) ([]NotificationRecord, error) {
	var recs []NotificationRecord
	if err := l.db.WithContext(ctx).Order("sent_at DESC").Order("id DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list recent records: %w", err)
	}
	return recs, nil
}
