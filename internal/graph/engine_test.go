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

package graph

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner/internal/planner"
	"trip-planner/internal/tool"
	"trip-planner/internal/tool/registry"
	"trip-planner/pkg/errors"
	"trip-planner/pkg/log"
)

// fakeCompleter 按提示词里的标记串返回预置应答
type fakeCompleter struct {
	responses map[string]string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	for marker, response := range f.responses {
		if strings.Contains(prompt, marker) {
			return response, nil
		}
	}
	return "", fmt.Errorf("没有匹配的预置应答")
}

const (
	markerIntent      = "识别并提取旅行规划所需的关键信息"
	markerSlotCheck   = "严格校验以下提供的槽位数据"
	markerResultCheck = "判断以下工具返回的原始数据是否有效"
	markerDecompose   = "将任务分解为多个可执行的子任务"
	markerRefine      = "引导其补充必要信息和澄清歧义"
	markerCorrection  = "需要根据错误信息修正参数"
	markerIntegration = "生成一份完整、专业、结构化的出行规划方案"
)

// fakeTool 记录参数并返回预置结果
type fakeTool struct {
	name       string
	result     tool.Result
	lastParams map[string]any
	calls      int
}

func (t *fakeTool) Name() string                        { return t.name }
func (t *fakeTool) Description() string                 { return "测试工具" }
func (t *fakeTool) Schema() tool.Schema                 { return tool.Schema{Type: "object"} }
func (t *fakeTool) ValidateParams(map[string]any) error { return nil }

func (t *fakeTool) Execute(_ context.Context, params map[string]any) tool.Result {
	t.calls++
	t.lastParams = params
	return t.result
}

func newTestEngine(t *testing.T, completer Completer, tools *registry.Registry) *Engine {
	t.Helper()
	logger, err := log.NewLogger(nil)
	require.NoError(t, err)
	if tools == nil {
		tools = registry.New()
	}
	return NewEngine(completer, completer, tools, nil, logger, DefaultOptions())
}

func TestRunTurnClarify(t *testing.T) {
	completer := &fakeCompleter{responses: map[string]string{
		markerIntent:    `{"origin": "", "destination": "上海", "start_date": ""}`,
		markerSlotCheck: `{"is_valid": false, "missing_fields": ["origin", "start_date"], "reason": "出发地和日期缺失"}`,
		markerRefine:    "请告诉我您的出发城市和出发日期。",
	}}
	engine := newTestEngine(t, completer, nil)

	state := planner.NewState("s-clarify")
	state.UserInput = "我想去上海"
	require.NoError(t, engine.RunTurn(context.Background(), state))

	assert.False(t, state.SlotsComplete)
	assert.Equal(t, "请告诉我您的出发城市和出发日期。", state.FinalOutput)
	assert.Equal(t, state.FinalOutput, state.ClarifyMessage)
	assert.Equal(t, []string{"origin", "start_date"}, state.MissingSlots)
	assert.Contains(t, state.MissingSlotsByLevel["L1"], "origin")
	// 对话历史应包含用户输入与助手澄清
	require.Len(t, state.DialogHistory, 2)
	assert.Equal(t, "assistant", state.DialogHistory[1].Role)
}

func TestRunTurnCompleted(t *testing.T) {
	trainData := map[string]any{
		"trains": []any{
			map[string]any{
				"train_no":       "G123",
				"departure_time": "08:00",
				"arrival_time":   "12:30",
				"duration":       "4小时30分钟",
				"price":          map[string]any{"二等座": 553.0},
			},
		},
	}
	train := &fakeTool{name: "train_query", result: tool.Success(trainData)}
	reg := registry.New()
	reg.Register(train)

	completer := &fakeCompleter{responses: map[string]string{
		markerIntent:      `{"origin": "北京", "destination": "上海", "start_date": "2099-05-01"}`,
		markerSlotCheck:   `{"is_valid": true, "missing_fields": [], "reason": "所有核心槽位已填充且合理。"}`,
		markerDecompose:   `{"subtasks": [{"task": "查询从北京到上海的火车票", "tool_name": "train_query", "parameters": {"origin": "北京", "destination": "上海", "date": "2099-05-01"}}]}`,
		markerResultCheck: `{"is_acceptable": true, "reason": "结果有效。"}`,
		markerIntegration: "为您规划如下：乘坐 G123 前往上海。",
	}}
	engine := newTestEngine(t, completer, reg)

	state := planner.NewState("s-complete")
	state.UserInput = "帮我规划北京到上海的行程"
	require.NoError(t, engine.RunTurn(context.Background(), state))

	assert.True(t, state.SlotsComplete)
	assert.Equal(t, 1, train.calls)
	assert.Equal(t, "为您规划如下：乘坐 G123 前往上海。", state.FinalOutput)

	require.Len(t, state.Subtasks, 1)
	assert.Equal(t, planner.StatusSuccess, state.Subtasks[0].Status)
	require.Contains(t, state.ToolResults, "task_0")
	assert.True(t, state.ToolResults["task_0"].Succeeded())
	// 车次负载应被识别为可评估的交通方案
	assert.NotEmpty(t, state.TransportCandidates)
	assert.NotEmpty(t, state.TransportSummary)
}

func TestRunTurnRetriesThenFails(t *testing.T) {
	// 工具始终失败且错误与参数无关，调度应重试后放弃
	broken := &fakeTool{name: "train_query", result: tool.Errorf("上游服务不可用")}
	reg := registry.New()
	reg.Register(broken)

	completer := &fakeCompleter{responses: map[string]string{
		markerIntent:      `{"origin": "北京", "destination": "上海", "start_date": "2099-05-01"}`,
		markerSlotCheck:   `{"is_valid": true, "missing_fields": [], "reason": "ok"}`,
		markerDecompose:   `{"subtasks": [{"task": "查火车票", "tool_name": "train_query", "parameters": {}}]}`,
		markerResultCheck: `{"is_acceptable": false, "reason": "查询失败"}`,
		markerIntegration: "部分查询失败，以下为替代建议。",
	}}
	engine := newTestEngine(t, completer, reg)

	state := planner.NewState("s-retry")
	state.UserInput = "帮我查票"
	require.NoError(t, engine.RunTurn(context.Background(), state))

	require.Len(t, state.Subtasks, 1)
	assert.Equal(t, planner.StatusFailed, state.Subtasks[0].Status)
	// 首次执行 + MaxRetry 次重试
	assert.Equal(t, DefaultOptions().MaxRetry+1, broken.calls)
	assert.Equal(t, "部分查询失败，以下为替代建议。", state.FinalOutput)
}

func TestRunTurnParameterCorrectionOnce(t *testing.T) {
	// 日期类错误首次失败应触发参数修正，且只触发一次
	broken := &fakeTool{name: "train_query", result: tool.Errorf("出发日期不能早于今天")}
	reg := registry.New()
	reg.Register(broken)

	completer := &fakeCompleter{responses: map[string]string{
		markerIntent:      `{"origin": "北京", "destination": "上海", "start_date": "2020-01-01"}`,
		markerSlotCheck:   `{"is_valid": true, "missing_fields": [], "reason": "ok"}`,
		markerDecompose:   `{"subtasks": [{"task": "查火车票", "tool_name": "train_query", "parameters": {"date": "2020-01-01"}}]}`,
		markerResultCheck: `{"is_acceptable": false, "reason": "日期错误"}`,
		markerCorrection:  `{"corrected_parameters": {"date": "2099-05-01"}, "correction_reason": "日期改为未来"}`,
		markerIntegration: "查询失败说明。",
	}}
	engine := newTestEngine(t, completer, reg)

	state := planner.NewState("s-correction")
	state.UserInput = "帮我查票"
	require.NoError(t, engine.RunTurn(context.Background(), state))

	require.Len(t, state.Subtasks, 1)
	task := state.Subtasks[0]
	assert.True(t, task.CorrectionApplied)
	assert.Equal(t, "2099-05-01", task.Parameters["date"])
	// 修正一次 + 常规重试，不得无限循环
	assert.Equal(t, planner.StatusFailed, task.Status)
	assert.Equal(t, DefaultOptions().MaxRetry+2, broken.calls)
	assert.False(t, state.NeedsCorrection)
}

func TestRunTurnConstraintViolation(t *testing.T) {
	completer := &fakeCompleter{responses: map[string]string{
		markerIntent:    `{"origin": "北京", "destination": "上海", "start_date": "2099-05-01"}`,
		markerSlotCheck: `{"is_valid": true, "missing_fields": [], "reason": "ok"}`,
	}}
	engine := newTestEngine(t, completer, nil)

	state := planner.NewState("s-violated")
	// 最晚 08:00 到达，而默认行程耗时 120 分钟，最晚出发为负值，不可行
	state.UserInput = "明早必须8点前到上海开会"
	latest := 8 * 60
	state.HardConstraints = []*planner.TimeConstraint{{
		Activity:   "开会",
		Latest:     &latest,
		WindowType: planner.WindowDeadline,
		SourceText: "必须8点前到",
		Confidence: 0.9,
	}}
	// 使倒推出的最晚出发时间为负
	engine.opts.TimeWindow.DefaultTravelDuration = 10 * 60
	require.NoError(t, engine.RunTurn(context.Background(), state))

	assert.True(t, state.ConstraintViolated)
	assert.NotEmpty(t, state.ViolationMessage)
	assert.Equal(t, state.ViolationMessage, state.FinalOutput)
	// 违规时不应继续任务分解
	assert.Empty(t, state.Subtasks)
}

func TestRunTurnMaxSteps(t *testing.T) {
	completer := &fakeCompleter{responses: map[string]string{
		markerIntent: `{"origin": "北京"}`,
	}}
	logger, err := log.NewLogger(nil)
	require.NoError(t, err)
	engine := NewEngine(completer, completer, registry.New(), nil, logger, Options{MaxSteps: 2})

	state := planner.NewState("s-steps")
	state.UserInput = "北京到上海"
	err = engine.RunTurn(context.Background(), state)
	assert.ErrorIs(t, err, errors.ErrMaxStepsExceeded)
}

func TestRouteAfterScheduler(t *testing.T) {
	engine := newTestEngine(t, &fakeCompleter{}, nil)

	state := planner.NewState("s-route")
	state.Subtasks = []*planner.Subtask{{ID: "task_0", Tool: "train_query"}}

	state.NeedsCorrection = true
	assert.Equal(t, NodeParameterCorrection, engine.route(NodeTaskScheduler, state))

	state.NeedsCorrection = false
	state.SubtaskIndex = 0
	assert.Equal(t, NodeToolExecution, engine.route(NodeTaskScheduler, state))

	state.SubtaskIndex = 1
	assert.Equal(t, NodeTransportPlanning, engine.route(NodeTaskScheduler, state))
}

func TestDynamicInstructionsMerge(t *testing.T) {
	train := &fakeTool{name: "train_query", result: tool.Success(map[string]any{"trains": []any{}})}
	reg := registry.New()
	reg.Register(train)
	engine := newTestEngine(t, &fakeCompleter{}, reg)

	state := planner.NewState("s-dynamic")
	state.Subtasks = []*planner.Subtask{{
		ID:         "task_0",
		Tool:       "train_query",
		Parameters: map[string]any{"origin": "北京", "seat": "二等座"},
	}}
	state.DynamicInstructions = map[string]map[string]any{
		"train_query": {"seat": "一等座"},
	}

	require.NoError(t, engine.toolExecution(context.Background(), state))
	assert.Equal(t, "一等座", train.lastParams["seat"])
	assert.Equal(t, "北京", train.lastParams["origin"])
}
