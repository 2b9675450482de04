package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "stars:notified:"

// recordScript writes the record and its index entry in one step so a
// stored record is always listed by Recent.
var recordScript = redis.NewScript(`
if redis.call("SET", KEYS[1], ARGV[1], "NX") then
	redis.call("ZADD", KEYS[2], ARGV[2], ARGV[3])
	return 1
end
return 0
`)

// RedisLedger keeps the notification ledger in Redis for deployments where
// several bot instances share no database file. SET NX gives the same
// first-writer-wins guarantee as the sqlite unique index.
type RedisLedger struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisLedger(client *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisLedger{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisLedger) key(matchID int) string {
	return l.prefix + strconv.Itoa(matchID)
}

func (l *RedisLedger) indexKey() string {
	return l.prefix + "index"
}

// HasNotified reports whether a record exists for matchID.
func (l *RedisLedger) HasNotified(ctx context.Context, matchID int) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(matchID)).Result()
	if err != nil {
		return false, fmt.Errorf("check ledger for match %d: %w", matchID, err)
	}
	return n > 0, nil
}

// Record stores the record for matchID without expiry. A second write for the
// same match returns ErrAlreadyNotified.
func (l *RedisLedger) Record(ctx context.Context, matchID int, recipientCount int) error {
	rec := NotificationRecord{
		MatchID:        matchID,
		SentAt:         l.now().UTC(),
		RecipientCount: recipientCount,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	keys := []string{l.key(matchID), l.indexKey()}
	created, err := recordScript.Run(ctx, l.client, keys,
		data, rec.SentAt.UnixMilli(), strconv.Itoa(matchID)).Int()
	if err != nil {
		return fmt.Errorf("record match %d: %w", matchID, err)
	}
	if created == 0 {
		return ErrAlreadyNotified
	}
	return nil
}

// Get returns the record for matchID.
func (l *RedisLedger) Get(ctx context.Context, matchID int) (*NotificationRecord, error) {
	data, err := l.client.Get(ctx, l.key(matchID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record for match %d: %w", matchID, err)
	}
	var rec NotificationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record for match %d: %w", matchID, err)
	}
	return &rec, nil
}

// Recent returns up to limit records, newest first.
func (l *RedisLedger) Recent(ctx context.Context, limit int) ([]NotificationRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := l.client.ZRevRange(ctx, l.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent records: %w", err)
	}
	recs := make([]NotificationRecord, 0, len(ids))
	for _, id := range ids {
		matchID, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		rec, err := l.Get(ctx, matchID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}
