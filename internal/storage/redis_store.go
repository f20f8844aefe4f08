// Package storage persists client session snapshots and bot run journals in Redis.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ndbaker1/BONK/internal/config"
)

const (
	// Redis key 前缀
	snapshotKeyPrefix = "bonk:snapshot:"
	journalKeyPrefix  = "bonk:journal:"

	defaultSnapshotTTL = 2 * time.Hour
	journalExpiration  = 24 * time.Hour
	maxJournalLength   = 1000
)

// SessionSnapshot 客户端最近一次已知的会话状态
type SessionSnapshot struct {
	Identity  string   `json:"identity"`
	SessionID string   `json:"session_id"`
	Screen    string   `json:"screen"`
	Roster    []string `json:"roster"`
	UpdatedAt int64    `json:"updated_at"`
}

// JournalEntry 一次机器人运行中的一行日志
type JournalEntry struct {
	At   int64  `json:"at"`
	Bot  string `json:"bot"`
	Line string `json:"line"`
}

// RedisStore Redis 存储
type RedisStore struct {
	client      *redis.Client
	snapshotTTL time.Duration
}

// NewRedisStore 创建 Redis 存储，ttl <= 0 时使用默认过期时间
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &RedisStore{client: client, snapshotTTL: ttl}
}

// Open 按配置连接 Redis 并检查连通性
func Open(ctx context.Context, cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return NewRedisStore(client, cfg.SnapshotTTLDuration()), nil
}

// Close 关闭连接
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

// --- 会话快照 ---

// SaveSnapshot 保存快照并刷新过期时间
func (rs *RedisStore) SaveSnapshot(ctx context.Context, snap *SessionSnapshot) error {
	if snap == nil || snap.Identity == "" {
		return nil
	}
	if snap.UpdatedAt == 0 {
		snap.UpdatedAt = time.Now().Unix()
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("序列化快照失败: %w", err)
	}
	return rs.client.Set(ctx, snapshotKeyPrefix+snap.Identity, data, rs.snapshotTTL).Err()
}

// LoadSnapshot 加载快照，不存在时返回 nil, nil
func (rs *RedisStore) LoadSnapshot(ctx context.Context, identity string) (*SessionSnapshot, error) {
	data, err := rs.client.Get(ctx, snapshotKeyPrefix+identity).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("反序列化快照失败: %w", err)
	}
	return &snap, nil
}

// DeleteSnapshot 删除快照
func (rs *RedisStore) DeleteSnapshot(ctx context.Context, identity string) error {
	return rs.client.Del(ctx, snapshotKeyPrefix+identity).Err()
}

// SnapshotIdentities 列出所有保存了快照的身份
func (rs *RedisStore) SnapshotIdentities(ctx context.Context) ([]string, error) {
	var ids []string
	iter := rs.client.Scan(ctx, 0, snapshotKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(snapshotKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// --- 运行日志 ---

// AppendJournal 追加日志，只保留最近 maxJournalLength 条
func (rs *RedisStore) AppendJournal(ctx context.Context, runID string, entry JournalEntry) error {
	if entry.At == 0 {
		entry.At = time.Now().UnixMilli()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化日志失败: %w", err)
	}

	key := journalKeyPrefix + runID
	pipe := rs.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxJournalLength, -1)
	pipe.Expire(ctx, key, journalExpiration)
	_, err = pipe.Exec(ctx)
	return err
}

// Journal 按写入顺序返回运行日志
func (rs *RedisStore) Journal(ctx context.Context, runID string) ([]JournalEntry, error) {
	raw, err := rs.client.LRange(ctx, journalKeyPrefix+runID, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]JournalEntry, 0, len(raw))
	for _, r := range raw {
		var e JournalEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("反序列化日志失败: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
