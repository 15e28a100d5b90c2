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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trip-planner/internal/planner"
)

// PostgresStore Postgres 会话存储，多实例部署时共享会话。
// 过期行由查询侧按 expires_at 过滤，物理清理交给外部任务。
//
// 需要的表结构：
//
//	CREATE TABLE IF NOT EXISTS planner_sessions (
//	    session_id text PRIMARY KEY,
//	    payload    jsonb NOT NULL,
//	    expires_at timestamptz NOT NULL,
//	    updated_at timestamptz NOT NULL DEFAULT now()
//	);
//	CREATE TABLE IF NOT EXISTS planner_history (
//	    id         bigserial PRIMARY KEY,
//	    session_id text NOT NULL,
//	    message    jsonb NOT NULL,
//	    expires_at timestamptz NOT NULL,
//	    created_at timestamptz NOT NULL DEFAULT now()
//	);
//	CREATE INDEX IF NOT EXISTS idx_planner_history_session ON planner_history (session_id, id);
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPostgresStore 创建 Postgres 会话存储
func NewPostgresStore(ctx context.Context, dsn string, ttl time.Duration) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{pool: pool, ttl: ttl}, nil
}

// SaveState 实现 Store
func (s *PostgresStore) SaveState(ctx context.Context, sessionID string, state *planner.State) error {
	if state == nil {
		return nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化状态失败: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO planner_sessions (session_id, payload, expires_at, updated_at)
		 VALUES ($1, $2, now() + $3, now())
		 ON CONFLICT (session_id) DO UPDATE SET payload = $2, expires_at = now() + $3, updated_at = now()`,
		sessionID, payload, s.ttl)
	return err
}

// LoadState 实现 Store
func (s *PostgresStore) LoadState(ctx context.Context, sessionID string) (*planner.State, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM planner_sessions WHERE session_id = $1 AND expires_at > now()`,
		sessionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
func (s *PostgresStore) DeleteState(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM planner_sessions WHERE session_id = $1`, sessionID)
	return err
}

// AppendHistory 实现 Store
func (s *PostgresStore) AppendHistory(ctx context.Context, sessionID string, msg planner.DialogMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO planner_history (session_id, message, expires_at) VALUES ($1, $2, now() + $3)`,
		sessionID, payload, s.ttl)
	return err
}

// History 实现 Store
func (s *PostgresStore) History(ctx context.Context, sessionID string, limit int) ([]planner.DialogMessage, error) {
	query := `SELECT message FROM planner_history
	          WHERE session_id = $1 AND expires_at > now() ORDER BY id`
	args := []any{sessionID}
	if limit > 0 {
		query = `SELECT message FROM (
		             SELECT id, message FROM planner_history
		             WHERE session_id = $1 AND expires_at > now() ORDER BY id DESC LIMIT $2
		         ) recent ORDER BY id`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []planner.DialogMessage
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var msg planner.DialogMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("反序列化消息失败: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ClearHistory 实现 Store
func (s *PostgresStore) ClearHistory(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM planner_history WHERE session_id = $1`, sessionID)
	return err
}

// Close 实现 Store
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
