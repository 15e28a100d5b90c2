// Copyright 2026 The trip-planner Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trip-planner/internal/planner"
	"trip-planner/pkg/config"
)

// RedisStore Redis 会话存储。状态走 SETEX，历史走 RPUSH 列表并在
// 每次追加时刷新过期时间。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 创建 Redis 会话存储并验证连通性
func NewRedisStore(ctx context.Context, cfg config.SessionConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
		PoolSize: 50,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// SaveState 实现 Store
func (s *RedisStore) SaveState(ctx context.Context, sessionID string, state *planner.State) error {
	if state == nil {
		return nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化状态失败: %w", err)
	}
	return s.client.SetEx(ctx, stateKey(sessionID), payload, s.ttl).Err()
}

// LoadState 实现 Store
func (s *RedisStore) LoadState(ctx context.Context, sessionID string) (*planner.State, error) {
	payload, err := s.client.Get(ctx, stateKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var state planner.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("反序列化状态失败: %w", err)
	}
	return &state, nil
}

// DeleteState 实现 Store
func (s *RedisStore) DeleteState(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, stateKey(sessionID)).Err()
}

// AppendHistory 实现 Store
func (s *RedisStore) AppendHistory(ctx context.Context, sessionID string, msg planner.DialogMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}
	key := historyKey(sessionID)
	if err := s.client.RPush(ctx, key, payload).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.ttl).Err()
}

// History 实现 Store
func (s *RedisStore) History(ctx context.Context, sessionID string, limit int) ([]planner.DialogMessage, error) {
	key := historyKey(sessionID)
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	items, err := s.client.LRange(ctx, key, start, -1).Result()
	if err != nil {
		return nil, err
	}
	messages := make([]planner.DialogMessage, 0, len(items))
	for _, item := range items {
		var msg planner.DialogMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("反序列化消息失败: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// ClearHistory 实现 Store
func (s *RedisStore) ClearHistory(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, historyKey(sessionID)).Err()
}

// Close 实现 Store
func (s *RedisStore) Close() error {
	return s.client.Close()
}
