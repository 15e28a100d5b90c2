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

// Package transport 交通方案决策引擎：从工具结果提取候选，按用户类型
// 加权评分，产出时间优先与平衡两套方案变体。
package transport

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"trip-planner/internal/planner"
	"trip-planner/internal/timewindow"
)

// 用户类型 → 评分权重。权重总和为 1。
var userTypeWeights = map[string]planner.TransportScores{
	"business": {Safety: 0.5, Price: 0.1, Comfort: 0.3, Transfer: 0.1},
	"economic": {Safety: 0.3, Price: 0.5, Comfort: 0.1, Transfer: 0.1},
	"balanced": {Safety: 0.4, Price: 0.2, Comfort: 0.2, Transfer: 0.2},
}

// InferUserType 从住宿/交通偏好槽位推断用户类型
func InferUserType(slots map[string]any) string {
	accommodation := strings.ToLower(slotStr(slots, "accommodation_preference"))
	transportation := strings.ToLower(slotStr(slots, "transportation_preference"))

	for _, kw := range []string{"商务", "五星", "高端"} {
		if strings.Contains(accommodation, kw) {
			return "business"
		}
	}
	for _, kw := range []string{"经济", "实惠", "青旅", "民宿"} {
		if strings.Contains(accommodation, kw) {
			return "economic"
		}
	}
	if strings.Contains(transportation, "自驾") {
		return "balanced"
	}
	return "balanced"
}

func slotStr(slots map[string]any, key string) string {
	if slots == nil {
		return ""
	}
	if v, ok := slots[key].(string); ok {
		return v
	}
	return ""
}

// extractPrice 兼容数字、档位 map 与列表，取最低价
func extractPrice(value any) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case map[string]any:
		var prices []float64
		for _, val := range v {
			if f, ok := toFloat(val); ok {
				prices = append(prices, f)
			}
		}
		return minOf(prices)
	case []any:
		var prices []float64
		for _, item := range v {
			if f, ok := toFloat(item); ok {
				prices = append(prices, f)
			}
		}
		return minOf(prices)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}

func minOf(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}
	m := prices[0]
	for _, p := range prices[1:] {
		if p < m {
			m = p
		}
	}
	return &m
}

// ExtractCandidates 扫描工具结果里的 trains/routes 负载并转为候选方案
func ExtractCandidates(results map[string]*planner.ToolExecution, toolNames map[string]string) []*planner.TransportCandidate {
	var candidates []*planner.TransportCandidate

	// 按任务 ID 排序遍历，保证同分候选的排名稳定
	taskIDs := make([]string, 0, len(results))
	for taskID := range results {
		taskIDs = append(taskIDs, taskID)
	}
	sort.Strings(taskIDs)

	for _, taskID := range taskIDs {
		result := results[taskID]
		if result == nil || result.Data == nil {
			continue
		}
		data, ok := result.Data.(map[string]any)
		if !ok {
			continue
		}
		toolName := toolNames[taskID]

		if trains, ok := data["trains"].([]any); ok {
			for _, item := range trains {
				train, ok := item.(map[string]any)
				if !ok {
					continue
				}
				id := str(train["train_no"])
				if id == "" {
					id = str(train["code"])
				}
				candidates = append(candidates, &planner.TransportCandidate{
					TaskID:       taskID,
					ToolName:     toolName,
					Mode:         "train",
					ID:           id,
					Departure:    str(train["departure_time"]),
					Arrival:      str(train["arrival_time"]),
					DurationText: str(train["duration"]),
					Price:        extractPrice(train["price"]),
				})
			}
			continue
		}

		if routes, ok := data["routes"].([]any); ok {
			for _, item := range routes {
				route, ok := item.(map[string]any)
				if !ok {
					continue
				}
				mode := str(route["mode"])
				if mode == "" {
					mode = "route"
				}
				transfers := 0
				if f, ok := toFloat(route["transfers"]); ok {
					transfers = int(f)
				}
				candidates = append(candidates, &planner.TransportCandidate{
					TaskID:       taskID,
					ToolName:     toolName,
					Mode:         mode,
					ID:           str(route["id"]),
					Departure:    str(route["departure_time"]),
					Arrival:      str(route["arrival_time"]),
					DurationText: str(route["duration"]),
					Price:        extractPrice(route["price"]),
					Transfers:    transfers,
				})
			}
		}
	}
	return candidates
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// arrivalMinutes 计算到达时刻，跨零点时加一天
func arrivalMinutes(c *planner.TransportCandidate) (int, bool) {
	arr, ok := timewindow.ToMinutes(c.Arrival)
	if !ok {
		return 0, false
	}
	if dep, ok := timewindow.ToMinutes(c.Departure); ok && arr < dep {
		arr += 24 * 60
	}
	return arr, true
}

// durationMinutes 优先用出发/到达时刻差，其次解析时长文本
func durationMinutes(c *planner.TransportCandidate) (int, bool) {
	if c.Departure != "" && c.Arrival != "" {
		if dep, ok := timewindow.ToMinutes(c.Departure); ok {
			if arr, ok := arrivalMinutes(c); ok {
				return arr - dep, true
			}
		}
	}
	if c.DurationText == "" {
		return 0, false
	}

	hours, minutes := 0, 0
	if strings.Contains(c.DurationText, "小时") {
		parts := strings.SplitN(c.DurationText, "小时", 2)
		if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			hours = n
		}
		if len(parts) > 1 {
			rest := strings.TrimSuffix(strings.TrimSpace(parts[1]), "分钟")
			if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
				minutes = n
			}
		}
	} else if strings.Contains(c.DurationText, ":") {
		parts := strings.SplitN(c.DurationText, ":", 2)
		h, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		if err1 == nil && err2 == nil {
			hours, minutes = h, m
		}
	}
	if hours == 0 && minutes == 0 {
		return 0, false
	}
	return hours*60 + minutes, true
}

// SafetyMargin 最早 deadline − 到达时刻 − 最小通勤缓冲。
// 缺少 deadline 或到达信息时返回 nil。
func SafetyMargin(c *planner.TransportCandidate, constraints []*planner.TimeConstraint, commutes []*planner.CommutePlan) *float64 {
	arrival, ok := timewindow.ToMinutes(c.Arrival)
	if !ok {
		duration, dok := durationMinutes(c)
		if !dok {
			return nil
		}
		departure := 8 * 60
		if dep, ok := timewindow.ToMinutes(c.Departure); ok {
			departure = dep
		}
		arrival = departure + duration
	}

	deadline := 0
	haveDeadline := false
	for _, con := range constraints {
		if con.Latest == nil {
			continue
		}
		if !haveDeadline || *con.Latest < deadline {
			deadline = *con.Latest
			haveDeadline = true
		}
	}
	if !haveDeadline {
		return nil
	}

	commuteBuffer := 15.0
	for i, plan := range commutes {
		if i == 0 || plan.BufferMinutes < commuteBuffer {
			commuteBuffer = plan.BufferMinutes
		}
	}

	margin := float64(deadline) - float64(arrival) - commuteBuffer
	return &margin
}

// Evaluate 对候选分为可行/不可行两组，可行组按综合得分降序。
// 安全余量为负直接筛掉，其余按用户类型权重打分。
func Evaluate(candidates []*planner.TransportCandidate, constraints []*planner.TimeConstraint,
	commutes []*planner.CommutePlan, slots map[string]any) (feasible, infeasible []*planner.TransportCandidate) {

	userType := InferUserType(slots)
	weights := userTypeWeights[userType]

	var prices []float64
	for _, c := range candidates {
		if c.Price != nil {
			prices = append(prices, *c.Price)
		}
	}
	var minPrice, maxPrice *float64
	if len(prices) > 0 {
		minPrice, maxPrice = minOf(prices), maxOf(prices)
	}

	for _, c := range candidates {
		margin := SafetyMargin(c, constraints, commutes)
		c.SafetyMargin = margin
		if margin != nil && *margin < 0 {
			c.Feasible = false
			c.Reason = "安全余量不足"
			infeasible = append(infeasible, c)
			continue
		}

		duration, haveDuration := durationMinutes(c)

		safetyScore := 0.5
		if margin != nil {
			safetyScore = math.Min(1.0, math.Max(0.0, *margin/60))
		}

		priceScore := 0.5
		switch {
		case c.Price != nil && maxPrice != nil && minPrice != nil && *maxPrice != *minPrice:
			priceScore = 1 - (*c.Price-*minPrice)/(*maxPrice-*minPrice)
		case c.Price != nil:
			priceScore = 0.6
		}

		comfortScore := 0.5
		if haveDuration {
			comfortScore = math.Max(0.0, 1-float64(duration)/600)
		}

		transferScore := math.Max(0.0, 1-float64(c.Transfers)*0.3)

		overall := safetyScore*weights.Safety +
			priceScore*weights.Price +
			comfortScore*weights.Comfort +
			transferScore*weights.Transfer

		c.Feasible = true
		c.UserType = userType
		c.Scores = planner.TransportScores{
			Safety:   round3(safetyScore),
			Price:    round3(priceScore),
			Comfort:  round3(comfortScore),
			Transfer: round3(transferScore),
		}
		c.Overall = round3(overall)
		feasible = append(feasible, c)
	}

	sort.SliceStable(feasible, func(i, j int) bool {
		return feasible[i].Overall > feasible[j].Overall
	})
	return feasible, infeasible
}

func maxOf(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}
	m := prices[0]
	for _, p := range prices[1:] {
		if p > m {
			m = p
		}
	}
	return &m
}

// BuildVariants 产出固定两套方案：时间优先取最早到达，平衡取最高分
func BuildVariants(feasible []*planner.TransportCandidate) []*planner.PlanVariant {
	if len(feasible) == 0 {
		return nil
	}

	bestBalanced := feasible[0]

	bestTime := bestBalanced
	bestArrival := math.MaxInt
	for _, c := range feasible {
		if arr, ok := arrivalMinutes(c); ok && arr < bestArrival {
			bestArrival = arr
			bestTime = c
		}
	}

	return []*planner.PlanVariant{
		{
			Type:      "time_priority",
			Title:     "时间优先方案",
			Candidate: bestTime,
			Reason:    "追求最早到达，适合 deadline 紧张场景。",
		},
		{
			Type:      "balanced",
			Title:     "平衡策略方案",
			Candidate: bestBalanced,
			Reason:    "综合考虑安全、价格、舒适度及换乘，适合常规选择。",
		},
	}
}

// SummarizePlans 最佳方案与落选原因的摘要
func SummarizePlans(feasible, infeasible []*planner.TransportCandidate) string {
	var lines []string
	if len(feasible) > 0 {
		best := feasible[0]
		marginText := "未知"
		if best.SafetyMargin != nil {
			marginText = timewindow.ToClock(int(*best.SafetyMargin))
		}
		lines = append(lines, fmt.Sprintf("最佳方案：%s %s，得分 %.3f，预计 %s 到达，安全余量 %s。",
			best.Mode, best.ID, best.Overall, best.Arrival, marginText))
		if len(feasible) > 1 {
			alt := feasible[1]
			lines = append(lines, fmt.Sprintf("Plan B：%s %s，得分 %.3f。", alt.Mode, alt.ID, alt.Overall))
		}
	} else {
		lines = append(lines, "暂无满足约束的交通方案。")
	}

	if len(infeasible) > 0 {
		counts := make(map[string]int)
		var order []string
		for _, c := range infeasible {
			reason := c.Reason
			if reason == "" {
				reason = "不可行"
			}
			if _, ok := counts[reason]; !ok {
				order = append(order, reason)
			}
			counts[reason]++
		}
		var parts []string
		for _, reason := range order {
			parts = append(parts, fmt.Sprintf("%s%d条", reason, counts[reason]))
		}
		lines = append(lines, fmt.Sprintf("被筛掉的方案：%s", strings.Join(parts, ", ")))
	}

	return strings.Join(lines, "\n")
}

// SummarizeVariants 多方案对比摘要
func SummarizeVariants(variants []*planner.PlanVariant) string {
	if len(variants) == 0 {
		return "暂无多方案对比。"
	}
	lines := []string{"多方案对比："}
	for _, v := range variants {
		arrival := v.Candidate.Arrival
		if arrival == "" {
			arrival = "未知"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s %s，到达 %s，得分 %.3f。%s",
			v.Title, v.Candidate.Mode, v.Candidate.ID, arrival, v.Candidate.Overall, v.Reason))
	}
	return strings.Join(lines, "\n")
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
