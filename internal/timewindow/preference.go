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

package timewindow

import (
	"fmt"
	"math"
	"strings"

	"trip-planner/internal/planner"
)

// EvaluatePreferences 对软偏好逐条打分并返回加权均值。
// 评分只读取传播后的排期，永不影响硬约束可行性。
func EvaluatePreferences(prefs []*planner.TimePreference, constraints []*planner.TimeConstraint) ([]*planner.PreferenceItem, *float64) {
	if len(prefs) == 0 {
		return nil, nil
	}

	var breakdown []*planner.PreferenceItem
	weightedTotal := 0.0
	weightSum := 0.0

	for _, pref := range prefs {
		weight := clamp(pref.Weight, 0.05, 1.0)
		matched := matchConstraint(pref, constraints)
		score, reason := satisfaction(pref, matched)
		breakdown = append(breakdown, &planner.PreferenceItem{
			Activity:   pref.Activity,
			SourceText: pref.SourceText,
			Score:      round3(score),
			Weight:     weight,
			Reason:     reason,
		})
		weightedTotal += score * weight
		weightSum += weight
	}

	if weightSum == 0 {
		return breakdown, nil
	}
	aggregate := round3(weightedTotal / weightSum)
	return breakdown, &aggregate
}

// SummarizePreferences 生成偏好评分摘要
func SummarizePreferences(breakdown []*planner.PreferenceItem, aggregate *float64) string {
	if len(breakdown) == 0 {
		return "暂无软约束偏好或尚未评分。"
	}
	var lines []string
	if aggregate != nil {
		lines = append(lines, fmt.Sprintf("综合偏好得分：%.2f", *aggregate))
	}
	for _, item := range breakdown {
		desc := item.SourceText
		if desc == "" {
			desc = "偏好"
		}
		lines = append(lines, fmt.Sprintf("- %s: 得分 %.3f, %s", desc, item.Score, item.Reason))
	}
	return strings.Join(lines, "\n")
}

// matchConstraint 按活动名子串匹配偏好对应的约束，匹配不到时退回第一条
func matchConstraint(pref *planner.TimePreference, constraints []*planner.TimeConstraint) *planner.TimeConstraint {
	target := strings.ToLower(pref.Activity)
	if target != "" {
		for _, c := range constraints {
			activity := strings.ToLower(c.Activity)
			if activity == "" {
				continue
			}
			if strings.Contains(activity, target) || strings.Contains(target, activity) {
				return c
			}
		}
	}
	if len(constraints) > 0 {
		return constraints[0]
	}
	return nil
}

func satisfaction(pref *planner.TimePreference, c *planner.TimeConstraint) (float64, string) {
	if c == nil {
		return 0.5, "缺少对应活动，默认中性评分"
	}

	if pref.Type == "budget" {
		return 0.5, "当前版本尚未支持价格偏好"
	}

	if c.ForwardStart == nil {
		return 0.6, "尚未生成具体行程，暂给中性偏高评分"
	}
	actualStart := *c.ForwardStart

	if pref.Earliest != nil && actualStart < *pref.Earliest {
		diff := *pref.Earliest - actualStart
		// 每偏离 2 小时扣满 1 分
		penalty := math.Min(1.0, float64(diff)/120)
		return math.Max(0, 1.0-penalty), fmt.Sprintf("实际开始早于偏好 %d 分钟", diff)
	}

	if pref.Latest != nil && actualStart > *pref.Latest {
		diff := actualStart - *pref.Latest
		penalty := math.Min(1.0, float64(diff)/120)
		return math.Max(0, 1.0-penalty), fmt.Sprintf("实际开始晚于偏好 %d 分钟", diff)
	}

	return 1.0, "满足偏好窗口"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
