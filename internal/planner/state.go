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

// Package planner 定义行程规划会话的数据模型：State 是单轮编排的唯一载体，
// 所有节点与引擎围绕它读写，并整体序列化到会话存储。
package planner

import "time"

// TaskStatus 子任务状态
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusRunning TaskStatus = "running"
	StatusSuccess TaskStatus = "success"
	StatusFailed  TaskStatus = "failed"
)

// DialogMessage 对话历史中的一条消息
type DialogMessage struct {
	Role      string    `json:"role"` // user | assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Subtask LLM 分解出的一个可执行子任务
type Subtask struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Tool        string         `json:"tool"`
	Parameters  map[string]any `json:"parameters"`
	Status      TaskStatus     `json:"status"`
	RetryCount  int            `json:"retry_count"`
	// CorrectionApplied 标记该子任务已走过一次参数修正，修正只允许触发一次
	CorrectionApplied bool `json:"correction_applied,omitempty"`
}

// ToolExecution 某个子任务的工具执行结果
type ToolExecution struct {
	Status       string `json:"status"` // success | error
	Data         any    `json:"data,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Succeeded 工具调用是否成功返回
func (r *ToolExecution) Succeeded() bool {
	return r != nil && r.Status == "success"
}

// ValidationResult LLM 对工具结果的校验结论
type ValidationResult struct {
	IsAcceptable bool   `json:"is_acceptable"`
	Reason       string `json:"reason,omitempty"`
}

// State 一次规划会话的完整上下文。整个结构体作为单文档持久化，
// 键名即存储中的 JSON 字段名，修改需保持向后兼容。
type State struct {
	SessionID string `json:"session_id"`

	UserInput     string          `json:"user_input,omitempty"`
	DialogHistory []DialogMessage `json:"dialog_history,omitempty"`

	// 槽位抽取与校验
	Slots               map[string]any      `json:"current_slots,omitempty"`
	SlotsComplete       bool                `json:"is_slots_complete"`
	MissingSlots        []string            `json:"missing_slots,omitempty"`
	MissingSlotsByLevel map[string][]string `json:"missing_slots_by_level,omitempty"`
	AmbiguityQuestions  []string            `json:"ambiguity_questions,omitempty"`
	ClarifyMessage      string              `json:"clarify_message,omitempty"`

	// 子任务执行
	Subtasks        []*Subtask                `json:"subtasks,omitempty"`
	SubtaskIndex    int                       `json:"current_subtask_index"`
	ToolResults     map[string]*ToolExecution `json:"tool_results,omitempty"`
	NeedsCorrection bool                      `json:"needs_parameter_correction,omitempty"`
	LastValidation  *ValidationResult         `json:"validation_result,omitempty"`
	// DynamicInstructions 按工具名追加/覆盖调用参数，来自请求方
	DynamicInstructions map[string]map[string]any `json:"dynamic_instructions,omitempty"`

	// 时间约束引擎
	HardConstraints       []*TimeConstraint `json:"hard_time_constraints,omitempty"`
	SoftPreferences       []*TimePreference `json:"soft_time_preferences,omitempty"`
	NormalizedConstraints []*TimeConstraint `json:"normalized_time_constraints,omitempty"`
	ConstraintViolated    bool              `json:"time_constraint_violated,omitempty"`
	ViolationMessage      string            `json:"violation_message,omitempty"`
	ConstraintSummary     string            `json:"constraint_summary,omitempty"`
	PreferenceScore       *float64          `json:"preference_score,omitempty"`
	PreferenceDetails     []*PreferenceItem `json:"preference_details,omitempty"`
	PreferenceSummary     string            `json:"preference_summary,omitempty"`

	// 地点与通勤
	LocationCandidates map[string][]*LocationCandidate `json:"location_candidates,omitempty"`
	ResolvedLocations  map[string]*LocationCandidate   `json:"resolved_locations,omitempty"`
	CommutePlans       []*CommutePlan                  `json:"commute_plans,omitempty"`
	CommuteSummary     string                          `json:"commute_summary,omitempty"`

	// 交通方案
	TransportCandidates []*TransportCandidate `json:"transport_candidates,omitempty"`
	TransportSummary    string                `json:"transport_summary,omitempty"`
	PlanVariants        []*PlanVariant        `json:"plan_variants,omitempty"`
	TransferSegments    []*TransferSegment    `json:"transfer_segments,omitempty"`
	TransferSummary     string                `json:"transfer_summary,omitempty"`
	Risk                *RiskContext          `json:"risk_context,omitempty"`
	Buffer              *BufferPlan           `json:"buffer_plan,omitempty"`

	// 输出
	FinalOutput string `json:"final_output,omitempty"`
	LastError   string `json:"last_error,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewState 创建空会话状态
func NewState(sessionID string) *State {
	return &State{
		SessionID:   sessionID,
		Slots:       make(map[string]any),
		ToolResults: make(map[string]*ToolExecution),
		UpdatedAt:   time.Now(),
	}
}

// CurrentSubtask 返回当前待执行子任务，索引越界时返回 nil
func (s *State) CurrentSubtask() *Subtask {
	if s.SubtaskIndex < 0 || s.SubtaskIndex >= len(s.Subtasks) {
		return nil
	}
	return s.Subtasks[s.SubtaskIndex]
}

// AllSubtasksDone 所有子任务是否均已到达终态
func (s *State) AllSubtasksDone() bool {
	return s.SubtaskIndex >= len(s.Subtasks)
}

// SlotString 读取字符串槽位，缺失或非字符串返回空串
func (s *State) SlotString(key string) string {
	if s.Slots == nil {
		return ""
	}
	if v, ok := s.Slots[key].(string); ok {
		return v
	}
	return ""
}

// AppendDialog 追加一条对话记录
func (s *State) AppendDialog(role, content string) {
	s.DialogHistory = append(s.DialogHistory, DialogMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}
