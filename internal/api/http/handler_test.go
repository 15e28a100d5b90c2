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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner/internal/api/http/middleware"
	"trip-planner/internal/graph"
	"trip-planner/internal/session"
	"trip-planner/internal/tool"
	"trip-planner/internal/tool/registry"
	"trip-planner/pkg/log"
)

// scriptedCompleter 按提示词里的标记串返回预置应答
type scriptedCompleter struct {
	responses map[string]string
}

func (f *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	for marker, response := range f.responses {
		if strings.Contains(prompt, marker) {
			return response, nil
		}
	}
	return "", fmt.Errorf("没有匹配的预置应答")
}

type staticTool struct {
	name   string
	result tool.Result
}

func (t *staticTool) Name() string                        { return t.name }
func (t *staticTool) Description() string                 { return "测试工具" }
func (t *staticTool) Schema() tool.Schema                 { return tool.Schema{Type: "object"} }
func (t *staticTool) ValidateParams(map[string]any) error { return nil }
func (t *staticTool) Execute(context.Context, map[string]any) tool.Result {
	return t.result
}

func planningResponses() map[string]string {
	return map[string]string{
		"识别并提取旅行规划所需的关键信息": `{"origin": "北京", "destination": "上海", "start_date": "2099-05-01"}`,
		"严格校验以下提供的槽位数据":    `{"is_valid": true, "missing_fields": [], "reason": "槽位完整。"}`,
		"将任务分解为多个可执行的子任务":  `{"subtasks": [{"task": "查询从北京到上海的火车票", "tool_name": "train_query", "parameters": {"origin": "北京", "destination": "上海", "date": "2099-05-01"}}]}`,
		"判断以下工具返回的原始数据是否有效": `{"is_acceptable": true, "reason": "结果有效。"}`,
		"生成一份完整、专业、结构化的出行规划方案": "为您规划如下：乘坐 G123 前往上海。",
	}
}

func newTestServer(t *testing.T) (*server.Hertz, session.Store) {
	t.Helper()

	logger, err := log.NewLogger(nil)
	require.NoError(t, err)

	reg := registry.New()
	reg.Register(&staticTool{name: "train_query", result: tool.Success(map[string]any{
		"trains": []any{
			map[string]any{
				"train_no":       "G123",
				"departure_time": "08:00",
				"arrival_time":   "12:30",
				"duration":       "4小时30分钟",
				"price":          map[string]any{"二等座": 553.0},
			},
		},
	})})

	store := session.NewMemoryStore(time.Minute)
	completer := &scriptedCompleter{responses: planningResponses()}
	engine := graph.NewEngine(completer, completer, reg, store, logger, graph.DefaultOptions())

	handler := NewHandler(engine, store, reg, logger)
	router := NewRouter(handler, middleware.NewMiddleware(nil))
	return router.Build(":0"), store
}

func performJSON(s *server.Hertz, method, path string, body []byte) *ut.ResponseRecorder {
	return ut.PerformRequest(s.Engine, method, path, &ut.Body{Body: bytes.NewReader(body), Len: len(body)})
}

func TestHealthCheck(t *testing.T) {
	s, _ := newTestServer(t)

	w := performJSON(s, "GET", "/api/health", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), `"status":"ok"`)
}

func TestPlanRequiresUserInput(t *testing.T) {
	s, _ := newTestServer(t)

	body := []byte(`{"session_id": "s1"}`)
	w := performJSON(s, "POST", "/api/plan", body)
	assert.Equal(t, 400, w.Result().StatusCode())

	w = performJSON(s, "POST", "/api/plan", []byte(`{not json`))
	assert.Equal(t, 400, w.Result().StatusCode())
}

func TestPlanCompletedTurn(t *testing.T) {
	s, _ := newTestServer(t)

	body := []byte(`{"user_input": "帮我规划北京到上海的行程"}`)
	w := performJSON(s, "POST", "/api/plan", body)
	require.Equal(t, 200, w.Result().StatusCode())

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "completed", resp.Status)
	assert.True(t, resp.SlotsComplete)
	assert.Contains(t, resp.Output, "G123")

	// 会话状态与历史应已持久化
	w = performJSON(s, "GET", "/api/sessions/"+resp.SessionID, nil)
	require.Equal(t, 200, w.Result().StatusCode())

	w = performJSON(s, "GET", "/api/sessions/"+resp.SessionID+"/history", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	var history struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &history))
	assert.Equal(t, 2, history.Total)
}

func TestPlanClarifyTurn(t *testing.T) {
	logger, err := log.NewLogger(nil)
	require.NoError(t, err)

	store := session.NewMemoryStore(time.Minute)
	completer := &scriptedCompleter{responses: map[string]string{
		"识别并提取旅行规划所需的关键信息": `{"origin": "", "destination": "上海"}`,
		"严格校验以下提供的槽位数据":    `{"is_valid": false, "missing_fields": ["origin", "start_date"], "reason": "出发地和日期缺失"}`,
		"引导其补充必要信息和澄清歧义":   "请告诉我您的出发城市和出发日期。",
	}}
	engine := graph.NewEngine(completer, completer, registry.New(), store, logger, graph.DefaultOptions())
	handler := NewHandler(engine, store, registry.New(), logger)
	s := NewRouter(handler, middleware.NewMiddleware(nil)).Build(":0")

	body := []byte(`{"user_input": "我想去上海"}`)
	w := performJSON(s, "POST", "/api/plan", body)
	require.Equal(t, 200, w.Result().StatusCode())

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	assert.Equal(t, "clarify", resp.Status)
	assert.False(t, resp.SlotsComplete)
	assert.Equal(t, []string{"origin", "start_date"}, resp.MissingSlots)
	assert.Contains(t, resp.Output, "出发城市")
}

func TestSessionNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	w := performJSON(s, "GET", "/api/sessions/missing", nil)
	assert.Equal(t, 404, w.Result().StatusCode())
}

func TestDeleteSession(t *testing.T) {
	s, _ := newTestServer(t)

	body := []byte(`{"session_id": "s-del", "user_input": "帮我规划北京到上海的行程"}`)
	w := performJSON(s, "POST", "/api/plan", body)
	require.Equal(t, 200, w.Result().StatusCode())

	w = performJSON(s, "DELETE", "/api/sessions/s-del", nil)
	require.Equal(t, 200, w.Result().StatusCode())

	w = performJSON(s, "GET", "/api/sessions/s-del", nil)
	assert.Equal(t, 404, w.Result().StatusCode())
}

func TestSessionHistoryLimitValidation(t *testing.T) {
	s, _ := newTestServer(t)

	w := performJSON(s, "GET", "/api/sessions/s1/history?limit=abc", nil)
	assert.Equal(t, 400, w.Result().StatusCode())
}

func TestSystemStatusListsTools(t *testing.T) {
	s, _ := newTestServer(t)

	w := performJSON(s, "GET", "/api/system/status", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "train_query")
}
