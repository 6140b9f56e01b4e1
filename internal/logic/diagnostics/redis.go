package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relay-gateway-sol/internal/logic/core"
	"relay-gateway-sol/internal/pkg/logger"
	"relay-gateway-sol/internal/pkg/types"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/jsonx"
)

// ErrRecordNotFound 记录不存在或已过期
var ErrRecordNotFound = errors.New("failed transaction record not found")

const (
	failedTxPrefix = "relay:failed_tx"
	DefaultTTL     = 24 * time.Hour
)

// RedisFailedTxStore 保存终态提交失败的交易，仅供运维排查，中继流程不回读
type RedisFailedTxStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisFailedTxStore(rdb *redis.Client, ttl time.Duration) *RedisFailedTxStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisFailedTxStore{rdb: rdb, ttl: ttl}
}

func (s *RedisFailedTxStore) getKey(hash types.Hash) string {
	return fmt.Sprintf("%s:%s", failedTxPrefix, hash)
}

// Record 写入诊断记录，相同内容哈希覆盖旧记录并刷新 TTL
func (s *RedisFailedTxStore) Record(ctx context.Context, rec *core.FailedTransactionRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	raw, err := jsonx.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal failed tx record: %w", err)
	}
	key := s.getKey(rec.ContentHash)
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	logger.Infof("[FailedTxStore:Record] key=%s, attempts=%d, err=%s", key, rec.Attempts, rec.Error)
	return nil
}

// Get 按内容哈希读取记录（运维接口）
func (s *RedisFailedTxStore) Get(ctx context.Context, hash types.Hash) (*core.FailedTransactionRecord, error) {
	raw, err := s.rdb.Get(ctx, s.getKey(hash)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrRecordNotFound
	case err != nil:
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	var rec core.FailedTransactionRecord
	if err := jsonx.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal failed tx record: %w", err)
	}
	return &rec, nil
}

// TTL 返回记录剩余存活时间，记录不存在时返回 ErrRecordNotFound
func (s *RedisFailedTxStore) TTL(ctx context.Context, hash types.Hash) (time.Duration, error) {
	d, err := s.rdb.TTL(ctx, s.getKey(hash)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl error: %w", err)
	}
	if d < 0 {
		return 0, ErrRecordNotFound
	}
	return d, nil
}
