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

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRenderTurn(t *testing.T) {
	clarify := renderTurn(&planResponse{
		Status:       "clarify",
		Output:       "请告诉我出发城市。",
		MissingSlots: []string{"origin", "start_date"},
	})
	if !strings.Contains(clarify, "[需补充信息]") {
		t.Fatalf("clarify output missing marker: %s", clarify)
	}
	if !strings.Contains(clarify, "origin, start_date") {
		t.Fatalf("clarify output missing slots: %s", clarify)
	}

	completed := renderTurn(&planResponse{Status: "completed", Output: "行程如下。"})
	if completed != "行程如下。" {
		t.Fatalf("completed output = %q", completed)
	}

	violated := renderTurn(&planResponse{Status: "violated", Output: "时间不可行。"})
	if !strings.Contains(violated, "[时间约束不可行]") {
		t.Fatalf("violated output missing marker: %s", violated)
	}
}

func TestChatKeepsSessionAcrossTurns(t *testing.T) {
	var sessionIDs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/plan" {
			http.NotFound(w, r)
			return
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sessionIDs = append(sessionIDs, req["session_id"])
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(planResponse{
			SessionID: "s-fixed",
			Status:    "clarify",
			Output:    "请补充出发日期。",
		})
	}))
	defer srv.Close()
	t.Setenv("TRIP_API_URL", srv.URL)

	in := strings.NewReader("我想去上海\n周五出发\nexit\n")
	var out bytes.Buffer
	runChat(nil, in, &out)

	if len(sessionIDs) != 2 {
		t.Fatalf("plan calls = %d, want 2", len(sessionIDs))
	}
	if sessionIDs[0] != "" {
		t.Fatalf("first turn session_id = %q, want empty", sessionIDs[0])
	}
	if sessionIDs[1] != "s-fixed" {
		t.Fatalf("second turn session_id = %q, want s-fixed", sessionIDs[1])
	}
	if !strings.Contains(out.String(), "会话: s-fixed") {
		t.Fatalf("output missing session line: %s", out.String())
	}
}
