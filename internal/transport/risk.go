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

package transport

import (
	"fmt"
	"strings"

	"trip-planner/internal/planner"
)

// BuildRiskProfile 根据槽位内容生成风险上下文
func BuildRiskProfile(slots map[string]any) *planner.RiskContext {
	risk := &planner.RiskContext{
		Importance: 0.5,
		TimeOfDay:  "off_peak",
		Weather:    "clear",
		RouteType:  "unknown",
	}

	if strings.Contains(slotStr(slots, "start_date"), "早") {
		risk.TimeOfDay = "morning_peak"
	}
	if strings.Contains(slotStr(slots, "end_date"), "晚") {
		risk.TimeOfDay = "evening_peak"
	}

	transportation := strings.ToLower(slotStr(slots, "transportation_preference"))
	for _, kw := range []string{"高铁", "飞机"} {
		if strings.Contains(transportation, kw) {
			risk.RouteType = "highway"
			break
		}
	}

	return risk
}

// BuildBufferPlan 基于通勤缓冲区间给出预留建议
func BuildBufferPlan(commutes []*planner.CommutePlan, risk *planner.RiskContext) *planner.BufferPlan {
	if len(commutes) == 0 {
		return &planner.BufferPlan{
			MinBuffer:  15,
			MaxBuffer:  60,
			Suggestion: "根据任务重要性自行预留缓冲。",
		}
	}

	minBuffer := commutes[0].BufferMinutes
	maxBuffer := commutes[0].BufferMinutes
	for _, plan := range commutes[1:] {
		if plan.BufferMinutes < minBuffer {
			minBuffer = plan.BufferMinutes
		}
		if plan.BufferMinutes > maxBuffer {
			maxBuffer = plan.BufferMinutes
		}
	}

	weather := "天气"
	timeOfDay := "时段"
	if risk != nil {
		if risk.Weather != "" {
			weather = risk.Weather
		}
		if risk.TimeOfDay != "" {
			timeOfDay = risk.TimeOfDay
		}
	}

	return &planner.BufferPlan{
		MinBuffer:  minBuffer,
		MaxBuffer:  maxBuffer,
		Suggestion: fmt.Sprintf("建议预留 %.1f 分钟缓冲（受 %s 与 %s 影响）。", maxBuffer, weather, timeOfDay),
	}
}
