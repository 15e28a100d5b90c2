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

// Package session 管理规划会话的持久化。状态整体 JSON 序列化，
// 对话历史独立于状态保存，二者同生命周期过期。
package session

import (
	"context"
	"fmt"
	"time"

	"trip-planner/internal/planner"
	"trip-planner/pkg/config"
)

// DefaultTTL 会话默认过期时间
const DefaultTTL = time.Hour

// Store 会话存储接口
type Store interface {
	// SaveState 保存会话状态，带 TTL
	SaveState(ctx context.Context, sessionID string, state *planner.State) error

	// LoadState 加载会话状态，不存在返回 (nil, nil)
	LoadState(ctx context.Context, sessionID string) (*planner.State, error)

	// DeleteState 删除会话状态
	DeleteState(ctx context.Context, sessionID string) error

	// AppendHistory 追加一条对话历史并刷新过期时间
	AppendHistory(ctx context.Context, sessionID string, msg planner.DialogMessage) error

	// History 获取对话历史，limit<=0 返回全部，否则返回最近 limit 条
	History(ctx context.Context, sessionID string, limit int) ([]planner.DialogMessage, error)

	// ClearHistory 清空对话历史
	ClearHistory(ctx context.Context, sessionID string) error

	// Close 释放底层连接
	Close() error
}

// NewStore 根据配置创建会话存储
func NewStore(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	ttl := DefaultTTL
	if cfg.TTL != "" {
		parsed, err := time.ParseDuration(cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("无法解析会话 TTL %q: %w", cfg.TTL, err)
		}
		ttl = parsed
	}

	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(ttl), nil
	case "redis":
		return NewRedisStore(ctx, cfg, ttl)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN, ttl)
	default:
		return nil, fmt.Errorf("不支持的会话存储类型: %s", cfg.Type)
	}
}

func stateKey(sessionID string) string {
	return "trip_planner:state:" + sessionID
}

func historyKey(sessionID string) string {
	return "trip_planner:history:" + sessionID
}
