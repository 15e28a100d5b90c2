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

// Package timewindow 时间约束引擎：归一化、可行性校验、前向/后向调度传播
// 与软偏好评分。所有时刻统一用当日零点起的分钟数表示。
package timewindow

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"trip-planner/internal/planner"
)

// Options 引擎参数，零值用 Defaults 补齐
type Options struct {
	// DefaultTravelDuration 推导最晚出发时刻用的默认行程耗时（分钟）
	DefaultTravelDuration int
	// DefaultActivityDuration 无统计数据时的默认活动时长（分钟）
	DefaultActivityDuration int
	// ActivityBuffer 相邻活动之间的缓冲（分钟）
	ActivityBuffer int
}

// Defaults 返回默认参数
func Defaults() Options {
	return Options{
		DefaultTravelDuration:   120,
		DefaultActivityDuration: 30,
		ActivityBuffer:          15,
	}
}

func (o Options) withFallback() Options {
	d := Defaults()
	if o.DefaultTravelDuration <= 0 {
		o.DefaultTravelDuration = d.DefaultTravelDuration
	}
	if o.DefaultActivityDuration <= 0 {
		o.DefaultActivityDuration = d.DefaultActivityDuration
	}
	if o.ActivityBuffer <= 0 {
		o.ActivityBuffer = d.ActivityBuffer
	}
	return o
}

// ToMinutes 解析 HH:MM 为分钟数
func ToMinutes(clock string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(clock), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return h*60 + m, true
}

// ToClock 将分钟数格式化为 HH:MM，负值按 0 处理
func ToClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Violation 单条约束的不可行记录
type Violation struct {
	Activity      string   `json:"activity"`
	SourceText    string   `json:"source_text,omitempty"`
	Messages      []string `json:"messages"`
	LastDeparture *int     `json:"last_departure,omitempty"`
}

// Normalize 归一化约束并做静态可行性校验。
// 对每条带 latest 的约束，按默认行程耗时倒推最晚出发时刻。
func Normalize(constraints []*planner.TimeConstraint, opts Options) ([]*planner.TimeConstraint, []Violation) {
	opts = opts.withFallback()

	normalized := make([]*planner.TimeConstraint, 0, len(constraints))
	var violations []Violation

	for _, c := range constraints {
		n := *c
		if n.WindowType == "" {
			n.WindowType = planner.WindowFlexible
		}

		var msgs []string
		if n.Earliest != nil && n.Latest != nil && *n.Earliest > *n.Latest {
			msgs = append(msgs, "最早时间晚于最晚时间")
		}

		if n.Latest != nil {
			lastDep := *n.Latest - opts.DefaultTravelDuration
			n.LastDeparture = &lastDep
			if lastDep < 0 {
				msgs = append(msgs, "默认行程耗时超过当前约束窗口，需要更早一天出发")
			}
			if n.Earliest != nil && lastDep < *n.Earliest {
				msgs = append(msgs, "最早可出发时间晚于允许的最晚出发时间")
			}
		} else {
			n.LastDeparture = nil
		}

		n.Feasible = len(msgs) == 0
		normalized = append(normalized, &n)

		if len(msgs) > 0 {
			violations = append(violations, Violation{
				Activity:      n.Activity,
				SourceText:    n.SourceText,
				Messages:      msgs,
				LastDeparture: n.LastDeparture,
			})
		}
	}

	return normalized, violations
}

// SummarizeViolations 将冲突整理为用户可读的提示
func SummarizeViolations(violations []Violation) string {
	if len(violations) == 0 {
		return ""
	}
	lines := []string{"检测到以下时间约束不可行："}
	for _, v := range violations {
		activity := v.Activity
		if activity == "" {
			activity = "相关活动"
		}
		detail := strings.Join(v.Messages, "; ")
		if v.LastDeparture != nil {
			detail += fmt.Sprintf("，最晚出发时间约为 %s", ToClock(*v.LastDeparture))
		}
		lines = append(lines, fmt.Sprintf("- %s: %s（%s）", activity, v.SourceText, detail))
	}
	return strings.Join(lines, "\n")
}

var (
	hourPattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*小时`)
	minutePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*分钟`)
	digitsOnly    = regexp.MustCompile(`[^\d]`)
)

// ParseDuration 将多种格式的时长解析为分钟。
// 支持 "4小时30分钟"、纯数字与数字字符串；超过一天的数值按秒处理。
func ParseDuration(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return normalizeDuration(float64(v))
	case int64:
		return normalizeDuration(float64(v))
	case float64:
		return normalizeDuration(v)
	case string:
		total := 0
		if m := hourPattern.FindStringSubmatch(v); m != nil {
			f, _ := strconv.ParseFloat(m[1], 64)
			total += int(math.Floor(f * 60))
		}
		if m := minutePattern.FindStringSubmatch(v); m != nil {
			f, _ := strconv.ParseFloat(m[1], 64)
			total += int(f)
		}
		if total > 0 {
			return total, true
		}
		cleaned := digitsOnly.ReplaceAllString(v, "")
		if cleaned != "" {
			num, err := strconv.Atoi(cleaned)
			if err == nil {
				return normalizeDuration(float64(num))
			}
		}
	}
	return 0, false
}

func normalizeDuration(v float64) (int, bool) {
	if v > 24*60 {
		return int(v / 60), true
	}
	return int(v), true
}

// TimingStats 从工具结果聚合出的时间统计
type TimingStats struct {
	MinArrival   *int `json:"min_arrival,omitempty"`
	MaxDeparture *int `json:"max_departure,omitempty"`
	AvgDuration  *int `json:"avg_duration,omitempty"`
}

// ExtractTimingStats 递归扫描工具结果，聚合 arrival/departure/duration 字段
func ExtractTimingStats(results map[string]*planner.ToolExecution) TimingStats {
	var arrivals, departures, durations []int
	for _, r := range results {
		if r == nil || r.Data == nil {
			continue
		}
		collectTimeFields(r.Data, &arrivals, &departures, &durations)
	}

	var stats TimingStats
	if len(arrivals) > 0 {
		m := arrivals[0]
		for _, v := range arrivals[1:] {
			if v < m {
				m = v
			}
		}
		stats.MinArrival = &m
	}
	if len(departures) > 0 {
		m := departures[0]
		for _, v := range departures[1:] {
			if v > m {
				m = v
			}
		}
		stats.MaxDeparture = &m
	}
	if len(durations) > 0 {
		sum := 0
		for _, v := range durations {
			sum += v
		}
		avg := sum / len(durations)
		stats.AvgDuration = &avg
	}
	return stats
}

func collectTimeFields(payload any, arrivals, departures, durations *[]int) {
	switch p := payload.(type) {
	case map[string]any:
		for key, val := range p {
			keyLower := strings.ToLower(key)
			var clock *int
			if s, ok := val.(string); ok {
				if m, ok := ToMinutes(stripDateComponent(s)); ok {
					clock = &m
				}
			}
			switch {
			case strings.Contains(keyLower, "arrival") && clock != nil:
				*arrivals = append(*arrivals, *clock)
			case strings.Contains(keyLower, "departure") && clock != nil:
				*departures = append(*departures, *clock)
			case strings.Contains(keyLower, "duration"):
				if d, ok := ParseDuration(val); ok {
					*durations = append(*durations, d)
				}
			default:
				switch val.(type) {
				case map[string]any, []any:
					collectTimeFields(val, arrivals, departures, durations)
				}
			}
		}
	case []any:
		for _, item := range p {
			collectTimeFields(item, arrivals, departures, durations)
		}
	}
}

// stripDateComponent 去掉 "2026-09-01 08:00" 里的日期部分
func stripDateComponent(value string) string {
	if i := strings.LastIndex(value, " "); i >= 0 {
		value = value[i+1:]
	}
	return strings.TrimSpace(value)
}

// Propagate 对约束执行前向/后向传播，填充最早开始、最晚开始与松弛度。
// 松弛度为负的约束记为关键路径冲突。
func Propagate(constraints []*planner.TimeConstraint, stats TimingStats, opts Options) []Violation {
	if len(constraints) == 0 {
		return nil
	}
	opts = opts.withFallback()

	defaultDuration := opts.DefaultActivityDuration
	if stats.AvgDuration != nil {
		defaultDuration = *stats.AvgDuration
	}

	ordered := make([]*planner.TimeConstraint, len(constraints))
	copy(ordered, constraints)
	sort.SliceStable(ordered, func(i, j int) bool {
		return earliestOrZero(ordered[i]) < earliestOrZero(ordered[j])
	})

	// 前向传播：最早可开始时间
	var prevFinish *int
	for _, c := range ordered {
		duration := defaultDuration
		if c.ExpectedDuration != nil {
			duration = *c.ExpectedDuration
		}
		var start int
		if c.Earliest == nil {
			if prevFinish != nil {
				start = *prevFinish + opts.ActivityBuffer
			}
		} else {
			start = *c.Earliest
			if prevFinish != nil && *prevFinish+opts.ActivityBuffer > start {
				start = *prevFinish + opts.ActivityBuffer
			}
		}
		finish := start + duration
		c.ForwardStart = intPtr(start)
		c.ForwardFinish = intPtr(finish)
		c.ProjectedDuration = duration
		prevFinish = &finish
	}

	// 后向传播：最晚开始时间与松弛度
	var violations []Violation
	var nextStart *int
	for i := len(ordered) - 1; i >= 0; i-- {
		c := ordered[i]
		duration := c.ProjectedDuration
		if duration == 0 {
			duration = defaultDuration
		}

		var latestFinish *int
		if c.Latest == nil {
			if nextStart != nil {
				latestFinish = intPtr(*nextStart - opts.ActivityBuffer)
			} else {
				latestFinish = c.ForwardFinish
			}
		} else {
			v := *c.Latest
			if nextStart != nil && *nextStart-opts.ActivityBuffer < v {
				v = *nextStart - opts.ActivityBuffer
			}
			latestFinish = &v
		}

		var latestStart *int
		if latestFinish != nil {
			latestStart = intPtr(*latestFinish - duration)
		}
		c.BackwardStart = latestStart
		c.BackwardFinish = latestFinish

		if latestStart != nil && c.ForwardStart != nil {
			slack := *latestStart - *c.ForwardStart
			c.Slack = &slack
			if slack < 0 {
				violations = append(violations, Violation{
					Activity:   c.Activity,
					SourceText: c.SourceText,
					Messages:   []string{"关键路径被压缩，当前日程无法满足该约束"},
				})
			}
		} else {
			c.Slack = nil
		}

		nextStart = latestStart
	}

	return violations
}

// Summarize 生成约束评估的用户可读摘要
func Summarize(constraints []*planner.TimeConstraint) string {
	if len(constraints) == 0 {
		return "尚未收集到硬性时间约束。"
	}
	lines := []string{"时间约束评估："}
	for _, c := range constraints {
		activity := c.Activity
		if activity == "" {
			activity = "相关活动"
		}
		earliest := "未定"
		if c.ForwardStart != nil {
			earliest = ToClock(*c.ForwardStart)
		} else if c.Earliest != nil {
			earliest = ToClock(*c.Earliest)
		}
		latest := "未定"
		if c.BackwardFinish != nil {
			latest = ToClock(*c.BackwardFinish)
		} else if c.Latest != nil {
			latest = ToClock(*c.Latest)
		}
		slackText := "未知"
		if c.Slack != nil {
			slackText = fmt.Sprintf("%d 分钟", *c.Slack)
		}
		lines = append(lines, fmt.Sprintf("- %s: 计划时段 %s - %s，松弛度 %s", activity, earliest, latest, slackText))
	}
	return strings.Join(lines, "\n")
}

func earliestOrZero(c *planner.TimeConstraint) int {
	if c.Earliest != nil {
		return *c.Earliest
	}
	return 0
}

func intPtr(v int) *int { return &v }
