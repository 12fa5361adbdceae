// Package store keeps live queue and availability snapshots in Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shop-finder/internal/status"
	"shop-finder/models"

	"github.com/redis/go-redis/v9"
)

const (
	fieldQueueSize   = "current_queue_size"
	fieldAverageWait = "average_wait_time"
	fieldLastUpdated = "last_updated"
)

// addEntryScript stores the entry and bumps the counter in one step.
// KEYS[1] queue meta hash, KEYS[2] entries hash
// ARGV[1] entry key, ARGV[2] entry json, ARGV[3] now (ms)
const addEntryScript = `
if redis.call('HEXISTS', KEYS[2], ARGV[1]) == 1 then
	return -1
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
local size = redis.call('HINCRBY', KEYS[1], 'current_queue_size', 1)
redis.call('HSET', KEYS[1], 'last_updated', ARGV[3])
return size
`

// updateEntryScript rewrites the entry and, when it leaves the queue,
// decrements the counter without going below zero. An entry that is already
// completed or cancelled is left untouched.
// KEYS[1] queue meta hash, KEYS[2] entries hash
// ARGV[1] entry key, ARGV[2] entry json, ARGV[3] "1" to decrement, ARGV[4] now (ms)
const updateEntryScript = `
local stored = redis.call('HGET', KEYS[2], ARGV[1])
if not stored then
	return -1
end
local current = cjson.decode(stored)
if current.status == 'completed' or current.status == 'cancelled' then
	return -2
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
local size = tonumber(redis.call('HGET', KEYS[1], 'current_queue_size') or '0')
if ARGV[3] == '1' and size > 0 then
	size = redis.call('HINCRBY', KEYS[1], 'current_queue_size', -1)
end
redis.call('HSET', KEYS[1], 'last_updated', ARGV[4])
return size
`

var ErrEntryFinal = fmt.Errorf("%w: entry already left the queue", status.ErrInvalidStatus)

type QueueStore struct {
	Redis *redis.Client
}

func NewQueueStore(redisClient *redis.Client) *QueueStore {
	return &QueueStore{Redis: redisClient}
}

func queueKey(shopID string) string {
	return fmt.Sprintf("queue:%s", shopID)
}

func entriesKey(shopID string) string {
	return fmt.Sprintf("queue:%s:entries", shopID)
}

// EntryKey builds the id an entry is stored under.
func EntryKey(userID string, at time.Time) string {
	return fmt.Sprintf("%s_%d", userID, at.UnixMilli())
}

// Snapshot returns the shop's queue, or nil when nothing was ever written.
func (s *QueueStore) Snapshot(ctx context.Context, shopID string) (*models.QueueSnapshot, error) {
	meta, err := s.Redis.HGetAll(ctx, queueKey(shopID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read queue %s: %w", shopID, err)
	}

	rawEntries, err := s.Redis.HGetAll(ctx, entriesKey(shopID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read queue entries %s: %w", shopID, err)
	}

	if len(meta) == 0 && len(rawEntries) == 0 {
		return nil, nil
	}

	snapshot := &models.QueueSnapshot{
		CurrentQueueSize: parseInt(meta[fieldQueueSize]),
		AverageWaitTime:  parseFloat(meta[fieldAverageWait]),
		LastUpdated:      parseInt64(meta[fieldLastUpdated]),
		Entries:          make(map[string]models.QueueEntry, len(rawEntries)),
	}

	for key, raw := range rawEntries {
		var entry models.QueueEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("decode queue entry %s/%s: %w", shopID, key, err)
		}
		snapshot.Entries[key] = entry
	}

	return snapshot, nil
}

// Entry loads one entry.
func (s *QueueStore) Entry(ctx context.Context, shopID, entryKey string) (models.QueueEntry, error) {
	var entry models.QueueEntry

	raw, err := s.Redis.HGet(ctx, entriesKey(shopID), entryKey).Result()
	if errors.Is(err, redis.Nil) {
		return entry, status.ErrEntryNotFound
	}
	if err != nil {
		return entry, fmt.Errorf("read queue entry %s/%s: %w", shopID, entryKey, err)
	}

	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return entry, fmt.Errorf("decode queue entry %s/%s: %w", shopID, entryKey, err)
	}
	return entry, nil
}

// AddEntry stores a new entry and returns the updated queue size.
func (s *QueueStore) AddEntry(ctx context.Context, shopID, entryKey string, entry models.QueueEntry, now time.Time) (int, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return 0, err
	}

	size, err := s.Redis.Eval(ctx, addEntryScript,
		[]string{queueKey(shopID), entriesKey(shopID)},
		entryKey, string(data), now.UnixMilli(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("add queue entry %s/%s: %w", shopID, entryKey, err)
	}
	if size < 0 {
		return 0, fmt.Errorf("add queue entry %s/%s: key already taken", shopID, entryKey)
	}

	return size, nil
}

// UpdateEntry overwrites an existing entry. leaving decrements the queue
// size, floored at zero. It returns the updated queue size, or
// ErrEntryFinal when the stored entry already left the queue.
func (s *QueueStore) UpdateEntry(ctx context.Context, shopID, entryKey string, entry models.QueueEntry, leaving bool, now time.Time) (int, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return 0, err
	}

	decrement := "0"
	if leaving {
		decrement = "1"
	}

	size, err := s.Redis.Eval(ctx, updateEntryScript,
		[]string{queueKey(shopID), entriesKey(shopID)},
		entryKey, string(data), decrement, now.UnixMilli(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("update queue entry %s/%s: %w", shopID, entryKey, err)
	}
	switch size {
	case -1:
		return 0, status.ErrEntryNotFound
	case -2:
		return 0, ErrEntryFinal
	}

	return size, nil
}

// SetAverageWait records the latest estimate as the shop's average wait.
func (s *QueueStore) SetAverageWait(ctx context.Context, shopID string, minutes float64, now time.Time) error {
	err := s.Redis.HSet(ctx, queueKey(shopID),
		fieldAverageWait, strconv.FormatFloat(minutes, 'f', -1, 64),
		fieldLastUpdated, now.UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("set average wait %s: %w", shopID, err)
	}
	return nil
}

// ShopIDs lists every shop that has queue state.
func (s *QueueStore) ShopIDs(ctx context.Context) ([]string, error) {
	var shopIDs []string

	iter := s.Redis.Scan(ctx, 0, "queue:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasSuffix(key, ":entries") {
			continue
		}
		shopIDs = append(shopIDs, strings.TrimPrefix(key, "queue:"))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan queues: %w", err)
	}

	return shopIDs, nil
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
