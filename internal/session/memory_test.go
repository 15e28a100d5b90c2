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
	"testing"
	"time"

	"trip-planner/internal/planner"
	"trip-planner/pkg/config"
)

func configSession(storeType string) config.SessionConfig {
	return config.SessionConfig{Type: storeType}
}

func newTestState(sessionID, input string) *planner.State {
	state := planner.NewState(sessionID)
	state.UserInput = input
	return state
}

func TestMemoryStoreStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	state := newTestState("u1", "明天去上海")
	state.SlotsComplete = true
	if err := store.SaveState(ctx, "u1", state); err != nil {
		t.Fatalf("save state failed: %v", err)
	}

	loaded, err := store.LoadState(ctx, "u1")
	if err != nil {
		t.Fatalf("load state failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("loaded state should not be nil")
	}
	if loaded.UserInput != "明天去上海" {
		t.Fatalf("user input = %q", loaded.UserInput)
	}
	if !loaded.SlotsComplete {
		t.Fatal("slot completeness should survive round trip")
	}
}

func TestMemoryStoreLoadAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	state, err := store.LoadState(ctx, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != nil {
		t.Fatal("absent session should load as nil, nil")
	}
}

func TestMemoryStoreDeleteState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	if err := store.SaveState(ctx, "u1", newTestState("u1", "hi")); err != nil {
		t.Fatalf("save state failed: %v", err)
	}
	if err := store.DeleteState(ctx, "u1"); err != nil {
		t.Fatalf("delete state failed: %v", err)
	}
	state, err := store.LoadState(ctx, "u1")
	if err != nil || state != nil {
		t.Fatalf("state should be gone, got %v, %v", state, err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Millisecond)

	if err := store.SaveState(ctx, "u1", newTestState("u1", "hi")); err != nil {
		t.Fatalf("save state failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	state, err := store.LoadState(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != nil {
		t.Fatal("expired state should load as nil")
	}
}

func TestMemoryStoreHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	for _, content := range []string{"一", "二", "三"} {
		if err := store.AppendHistory(ctx, "u1", planner.DialogMessage{Role: "user", Content: content}); err != nil {
			t.Fatalf("append history failed: %v", err)
		}
	}

	all, err := store.History(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("history length = %d, want 3", len(all))
	}

	recent, err := store.History(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "二" || recent[1].Content != "三" {
		t.Fatalf("recent history = %+v", recent)
	}

	if err := store.ClearHistory(ctx, "u1"); err != nil {
		t.Fatalf("clear history failed: %v", err)
	}
	cleared, err := store.History(ctx, "u1", 0)
	if err != nil || len(cleared) != 0 {
		t.Fatalf("history should be empty after clear, got %v, %v", cleared, err)
	}
}

func TestNewStoreDefaultsToMemory(t *testing.T) {
	store, err := NewStore(context.Background(), configSession(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("default store type = %T, want *MemoryStore", store)
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	_, err := NewStore(context.Background(), configSession("etcd"))
	if err == nil {
		t.Fatal("expected error for unknown store type")
	}
}
