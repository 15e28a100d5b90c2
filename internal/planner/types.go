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

package planner

// WindowType 时间窗类型
type WindowType string

const (
	WindowFixed    WindowType = "fixed"    // 起止均已钉死
	WindowFlexible WindowType = "flexible" // 有范围可挪动
	WindowDeadline WindowType = "deadline" // 只有最晚到达
	WindowOpen     WindowType = "open"     // 无约束
)

// TimeConstraint 从用户文本解析出的硬性时间约束。
// Earliest/Latest 为当日零点起的分钟数，nil 表示该侧无界。
type TimeConstraint struct {
	Activity   string     `json:"activity"`
	Earliest   *int       `json:"earliest,omitempty"`
	Latest     *int       `json:"latest,omitempty"`
	WindowType WindowType `json:"window_type"`
	SourceText string     `json:"source_text,omitempty"`
	Confidence float64    `json:"confidence"`
	// ExpectedDuration 调用方显式指定的活动时长（分钟），覆盖工具统计
	ExpectedDuration *int `json:"expected_duration_minutes,omitempty"`

	// 归一化阶段填充
	LastDeparture *int `json:"last_departure,omitempty"`
	Feasible      bool `json:"is_feasible"`

	// 调度传播阶段填充：前向最早开始/结束、后向最晚开始/结束与松弛度
	ForwardStart      *int `json:"forward_start,omitempty"`
	ForwardFinish     *int `json:"forward_finish,omitempty"`
	BackwardStart     *int `json:"backward_start,omitempty"`
	BackwardFinish    *int `json:"backward_finish,omitempty"`
	Slack             *int `json:"slack,omitempty"`
	ProjectedDuration int  `json:"projected_duration,omitempty"`
}

// TimePreference 软性时间偏好，参与偏好打分而非可行性判定
type TimePreference struct {
	Activity   string     `json:"activity"`
	Earliest   *int       `json:"earliest,omitempty"`
	Latest     *int       `json:"latest,omitempty"`
	WindowType WindowType `json:"window_type"`
	// Type 偏好类别：budget、avoid_early、avoid_late、prefer_after、prefer_before、general
	Type       string  `json:"type"`
	Weight     float64 `json:"weight"`
	SourceText string  `json:"source_text,omitempty"`
	Confidence float64 `json:"confidence"`
}

// PreferenceItem 单条偏好的打分明细
type PreferenceItem struct {
	Activity   string  `json:"activity"`
	SourceText string  `json:"source_text,omitempty"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`
	Reason     string  `json:"reason,omitempty"`
}

// LocationRole 地点在行程中的角色
type LocationRole string

const (
	RoleOrigin      LocationRole = "origin"
	RoleDestination LocationRole = "destination"
	RoleGeneric     LocationRole = "generic"
)

// LocationLevel 地点粒度：L1 城市、L2 区县/商圈、L3 POI
type LocationLevel string

const (
	LevelCity     LocationLevel = "L1"
	LevelDistrict LocationLevel = "L2"
	LevelPOI      LocationLevel = "L3"
)

// LocationCandidate 从文本解析出的地点候选
type LocationCandidate struct {
	Text       string        `json:"text"`
	Role       LocationRole  `json:"role"`
	Level      LocationLevel `json:"level"`
	Confidence float64       `json:"confidence"`
	SourceText string        `json:"source_text,omitempty"`
}

// RiskContext 影响通勤与缓冲的环境因素
type RiskContext struct {
	Importance float64 `json:"importance"`
	TimeOfDay  string  `json:"time_of_day,omitempty"` // morning_peak | evening_peak | off_peak | late_night
	Weather    string  `json:"weather,omitempty"`     // clear | rain | storm | snow
	RouteType  string  `json:"route_type,omitempty"`  // highway | urban | unknown
}

// BufferPlan 行程缓冲建议
type BufferPlan struct {
	MinBuffer  float64 `json:"min_buffer"`
	MaxBuffer  float64 `json:"max_buffer"`
	Suggestion string  `json:"suggestion"`
}

// ModeEstimate 某种通勤方式的耗时估计
type ModeEstimate struct {
	Mode    string  `json:"mode"`
	Minutes float64 `json:"minutes"`
	Risk    string  `json:"risk"` // low | medium | high
}

// CommutePlan 两点间的通勤评估结果
type CommutePlan struct {
	From          string         `json:"from"`
	To            string         `json:"to"`
	DistanceKm    float64        `json:"distance_km"`
	Modes         []ModeEstimate `json:"modes"`
	Recommended   string         `json:"recommended"`
	BufferMinutes float64        `json:"buffer_minutes"`
}

// TransportScores 候选交通方案的分维度得分，均归一化到 [0,1]
type TransportScores struct {
	Safety   float64 `json:"safety"`
	Price    float64 `json:"price"`
	Comfort  float64 `json:"comfort"`
	Transfer float64 `json:"transfer"`
}

// TransportCandidate 从工具结果提炼出的一个交通方案。
// Price/SafetyMargin 为 nil 表示数据缺失，评分时走中性分支。
type TransportCandidate struct {
	TaskID       string          `json:"task_id,omitempty"`
	ToolName     string          `json:"tool_name,omitempty"`
	ID           string          `json:"id"`
	Mode         string          `json:"mode"`      // train | flight | route
	Departure    string          `json:"departure"` // HH:MM
	Arrival      string          `json:"arrival"`   // HH:MM
	DurationText string          `json:"duration_text,omitempty"`
	Price        *float64        `json:"price,omitempty"`
	Transfers    int             `json:"transfers"`
	SafetyMargin *float64        `json:"safety_margin,omitempty"`
	Feasible     bool            `json:"feasible"`
	Reason       string          `json:"infeasible_reason,omitempty"`
	Scores       TransportScores `json:"scores"`
	Overall      float64         `json:"overall"`
	UserType     string          `json:"user_type,omitempty"`
}

// PlanVariant 面向用户输出的方案变体
type PlanVariant struct {
	Type      string              `json:"type"` // time_priority | balanced
	Title     string              `json:"title"`
	Candidate *TransportCandidate `json:"candidate"`
	Reason    string              `json:"reason"`
}

// TransferSegment 换乘衔接段及其时间带
type TransferSegment struct {
	Segment    string `json:"segment"`
	Type       string `json:"type"` // same_station | cross_station | cross_transport
	MinMinutes int    `json:"min_minutes"`
	MaxMinutes int    `json:"max_minutes"`
	Minutes    int    `json:"minutes"` // 区间中值，用于汇总
	Risk       string `json:"risk"`
	Notes      string `json:"notes,omitempty"`
}
