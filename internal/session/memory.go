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
	"fmt"
	"sync"
	"time"

	"trip-planner/internal/planner"
)

type memoryEntry struct {
	payload  []byte
	expireAt time.Time
}

type memoryHistory struct {
	messages []planner.DialogMessage
	expireAt time.Time
}

// MemoryStore 内存会话存储，用于开发与测试
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	states  map[string]*memoryEntry
	history map[string]*memoryHistory
}

// NewMemoryStore 创建内存会话存储
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		states:  make(map[string]*memoryEntry),
		history: make(map[string]*memoryHistory),
	}
}

// SaveState 实现 Store
func (s *MemoryStore) SaveState(ctx context.Context, sessionID string, state *planner.State) error {
	if state == nil {
		return nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化状态失败: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = &memoryEntry{
		payload:  payload,
		expireAt: time.Now().Add(s.ttl),
	}
	return nil
}

// LoadState 实现 Store
func (s *MemoryStore) LoadState(ctx context.Context, sessionID string) (*planner.State, error) {
	s.mu.RLock()
	entry, ok := s.states[sessionID]
	s.mu.RUnlock()
	if !ok || time.Now().After(entry.expireAt) {
		return nil, nil
	}
	var state planner.State
	if err := json.Unmarshal(entry.payload, &state); err != nil {
		return nil, fmt.Errorf("反序列化状态失败: %w", err)
	}
	return &state, nil
}

// DeleteState 实现 Store
func (s *MemoryStore) DeleteState(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
	return nil
}

// AppendHistory 实现 Store
func (s *MemoryStore) AppendHistory(ctx context.Context, sessionID string, msg planner.DialogMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.history[sessionID]
	if !ok || time.Now().After(h.expireAt) {
		h = &memoryHistory{}
		s.history[sessionID] = h
	}
	h.messages = append(h.messages, msg)
	h.expireAt = time.Now().Add(s.ttl)
	return nil
}

// History 实现 Store
func (s *MemoryStore) History(ctx context.Context, sessionID string, limit int) ([]planner.DialogMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.history[sessionID]
	if !ok || time.Now().After(h.expireAt) {
		return nil, nil
	}
	messages := h.messages
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	out := make([]planner.DialogMessage, len(messages))
	copy(out, messages)
	return out, nil
}

// ClearHistory 实现 Store
func (s *MemoryStore) ClearHistory(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, sessionID)
	return nil
}

// Close 实现 Store
func (s *MemoryStore) Close() error {
	return nil
}
