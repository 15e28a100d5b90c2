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

// Package extract 从中文用户文本中抽取结构化信号：时间约束、地点候选与槽位分级。
// 抽取是规则驱动的，LLM 输出只作为补充来源。
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"trip-planner/internal/planner"
)

var (
	sentenceSplit = regexp.MustCompile(`[。！？!?\n]+`)

	rangePattern = regexp.MustCompile(
		`(?P<start_prefix>凌晨|清晨|早上|上午|中午|下午|傍晚|晚上|夜间|夜里)?` +
			`\s*(?P<start_hour>\d{1,2})(?:(?:点|:)(?P<start_min>\d{1,2}))?(?P<start_half>半)?` +
			`\s*(?:到|至|-|~)\s*` +
			`(?P<end_prefix>凌晨|清晨|早上|上午|中午|下午|傍晚|晚上|夜间|夜里)?` +
			`\s*(?P<end_hour>\d{1,2})(?:(?:点|:)(?P<end_min>\d{1,2}))?(?P<end_half>半)?`)

	singlePattern = regexp.MustCompile(
		`(?P<prefix>凌晨|清晨|早上|上午|中午|下午|傍晚|晚上|夜间|夜里)?` +
			`\s*(?P<hour>\d{1,2})(?:(?:点|:)(?P<minute>\d{1,2}))?(?P<half>半)?`)

	activityPattern = regexp.MustCompile(`(到|赶到|抵达|去|回)([^\d，。,.!?]{1,12})`)
)

var (
	hardKeywords       = []string{"必须", "务必", "一定", "最迟", "最晚", "不得", "准时", "前要", "之前要", "前必须"}
	softKeywords       = []string{"尽量", "最好", "不要太", "不想太", "希望", "建议", "偏好", "prefer", "想"}
	upperBoundKeywords = []string{"前", "之前", "最迟", "最晚", "不得晚于", "不晚于"}
	lowerBoundKeywords = []string{"后", "之后", "以后", "不早于", "至少", "起码"}
)

// daypartDefaults 时间段词兜底时刻（分钟）
var daypartDefaults = []struct {
	word    string
	minutes int
}{
	{"凌晨", 5 * 60},
	{"清晨", 6 * 60},
	{"早上", 8 * 60},
	{"上午", 9 * 60},
	{"中午", 12 * 60},
	{"下午", 15 * 60},
	{"傍晚", 18 * 60},
	{"晚上", 19*60 + 30},
	{"夜间", 21*60 + 30},
	{"夜里", 22 * 60},
}

// ParseTimeConstraints 逐句解析文本，返回硬约束与软偏好。
// 约束强弱由关键词判定，未命中时间窗口的句子被跳过。
func ParseTimeConstraints(text string) ([]*planner.TimeConstraint, []*planner.TimePreference) {
	var hard []*planner.TimeConstraint
	var soft []*planner.TimePreference

	for _, sentence := range splitSentences(text) {
		kind := detectConstraintKind(sentence)
		if kind == "" {
			continue
		}

		window := extractTimeWindow(sentence)
		if window.earliest == nil && window.latest == nil {
			continue
		}

		activity := extractActivity(sentence)

		if kind == "hard" {
			hard = append(hard, &planner.TimeConstraint{
				Activity:   activity,
				Earliest:   window.earliest,
				Latest:     window.latest,
				WindowType: window.windowType,
				SourceText: sentence,
				Confidence: window.confidence,
			})
			continue
		}

		soft = append(soft, &planner.TimePreference{
			Activity:   activity,
			Earliest:   window.earliest,
			Latest:     window.latest,
			WindowType: window.windowType,
			Type:       inferPreferenceType(sentence, window),
			Weight:     inferPreferenceWeight(sentence),
			SourceText: sentence,
			Confidence: window.confidence,
		})
	}

	return hard, soft
}

// MergeConstraints 按 source_text 去重合并，重复句子以新记录覆盖旧记录
func MergeConstraints(existing, additions []*planner.TimeConstraint) []*planner.TimeConstraint {
	seen := make(map[string]int)
	merged := make([]*planner.TimeConstraint, len(existing))
	copy(merged, existing)
	for i, c := range merged {
		if c.SourceText != "" {
			seen[c.SourceText] = i
		}
	}
	for _, c := range additions {
		if idx, ok := seen[c.SourceText]; ok && c.SourceText != "" {
			merged[idx] = c
			continue
		}
		merged = append(merged, c)
		if c.SourceText != "" {
			seen[c.SourceText] = len(merged) - 1
		}
	}
	return merged
}

// MergePreferences 软偏好的同款去重合并
func MergePreferences(existing, additions []*planner.TimePreference) []*planner.TimePreference {
	seen := make(map[string]int)
	merged := make([]*planner.TimePreference, len(existing))
	copy(merged, existing)
	for i, p := range merged {
		if p.SourceText != "" {
			seen[p.SourceText] = i
		}
	}
	for _, p := range additions {
		if idx, ok := seen[p.SourceText]; ok && p.SourceText != "" {
			merged[idx] = p
			continue
		}
		merged = append(merged, p)
		if p.SourceText != "" {
			seen[p.SourceText] = len(merged) - 1
		}
	}
	return merged
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func detectConstraintKind(sentence string) string {
	lowered := strings.ToLower(sentence)
	for _, kw := range hardKeywords {
		if strings.Contains(sentence, kw) {
			return "hard"
		}
	}
	for _, kw := range softKeywords {
		if strings.Contains(lowered, kw) || strings.Contains(sentence, kw) {
			return "soft"
		}
	}
	// 出现明显上下界词汇时也按硬约束处理
	for _, kw := range append(append([]string{}, upperBoundKeywords...), lowerBoundKeywords...) {
		if strings.Contains(sentence, kw) {
			return "hard"
		}
	}
	return ""
}

func extractActivity(sentence string) string {
	if m := activityPattern.FindStringSubmatch(sentence); m != nil {
		return strings.TrimSpace(m[2])
	}
	return ""
}

type timeWindow struct {
	earliest   *int
	latest     *int
	windowType planner.WindowType
	confidence float64
}

func extractTimeWindow(sentence string) timeWindow {
	if m := rangePattern.FindStringSubmatch(sentence); m != nil {
		g := namedGroups(rangePattern, m)
		earliest := buildTime(g["start_hour"], g["start_min"], g["start_half"], g["start_prefix"])
		latest := buildTime(g["end_hour"], g["end_min"], g["end_half"], g["end_prefix"])
		wt := planner.WindowFlexible
		if earliest != nil && latest != nil && *earliest == *latest {
			wt = planner.WindowFixed
		}
		return timeWindow{earliest: earliest, latest: latest, windowType: wt, confidence: 0.9}
	}

	if loc := singlePattern.FindStringSubmatchIndex(sentence); loc != nil {
		m := singlePattern.FindStringSubmatch(sentence)
		g := namedGroups(singlePattern, m)
		if g["hour"] != "" {
			t := buildTime(g["hour"], g["minute"], g["half"], g["prefix"])
			switch inferDirection(sentence, loc[0], loc[1]) {
			case "latest":
				return timeWindow{latest: t, windowType: planner.WindowDeadline, confidence: 0.8}
			case "earliest":
				return timeWindow{earliest: t, windowType: planner.WindowOpen, confidence: 0.8}
			}
			return timeWindow{earliest: t, latest: t, windowType: planner.WindowFixed, confidence: 0.7}
		}
	}

	for _, dp := range daypartDefaults {
		if strings.Contains(sentence, dp.word) {
			v := dp.minutes
			return timeWindow{earliest: &v, windowType: planner.WindowOpen, confidence: 0.5}
		}
	}

	return timeWindow{windowType: planner.WindowFlexible}
}

func buildTime(hourStr, minuteStr, halfFlag, prefix string) *int {
	if hourStr == "" {
		return nil
	}
	hour, _ := strconv.Atoi(hourStr)
	minute := 0
	if minuteStr != "" {
		minute, _ = strconv.Atoi(minuteStr)
	}
	if halfFlag != "" {
		minute = 30
	}

	switch prefix {
	case "下午", "傍晚", "晚上", "夜间", "夜里":
		if hour < 12 {
			hour += 12
		}
	case "中午":
		if hour < 12 {
			hour = 12
		}
	case "凌晨", "清晨":
		if hour == 12 {
			hour = 0
		}
	}

	hour = hour % 24
	v := hour*60 + minute
	return &v
}

// inferDirection 在时间表达前后各 6 个字符内寻找上下界词汇
func inferDirection(sentence string, start, end int) string {
	runes := []rune(sentence)
	prefixStart := byteToRuneIndex(sentence, start)
	suffixEnd := byteToRuneIndex(sentence, end)

	lo := prefixStart - 6
	if lo < 0 {
		lo = 0
	}
	hi := suffixEnd + 6
	if hi > len(runes) {
		hi = len(runes)
	}
	combined := string(runes[lo:prefixStart]) + string(runes[suffixEnd:hi])

	for _, kw := range upperBoundKeywords {
		if strings.Contains(combined, kw) {
			return "latest"
		}
	}
	for _, kw := range lowerBoundKeywords {
		if strings.Contains(combined, kw) {
			return "earliest"
		}
	}
	return ""
}

func byteToRuneIndex(s string, byteIdx int) int {
	return len([]rune(s[:byteIdx]))
}

func inferPreferenceType(sentence string, window timeWindow) string {
	switch {
	case strings.Contains(sentence, "便宜") || strings.Contains(sentence, "价格"):
		return "budget"
	case strings.Contains(sentence, "不要太早") || strings.Contains(sentence, "不想太早"):
		return "avoid_early"
	case strings.Contains(sentence, "不要太晚") || strings.Contains(sentence, "太晚"):
		return "avoid_late"
	case window.windowType == planner.WindowOpen && window.earliest != nil:
		return "prefer_after"
	case window.windowType == planner.WindowDeadline && window.latest != nil:
		return "prefer_before"
	}
	return "general_preference"
}

func inferPreferenceWeight(sentence string) float64 {
	if strings.Contains(sentence, "非常") || strings.Contains(sentence, "特别") || strings.Contains(sentence, "很") {
		return 0.8
	}
	if strings.Contains(sentence, "尽量") || strings.Contains(sentence, "最好") {
		return 0.6
	}
	return 0.4
}

func namedGroups(re *regexp.Regexp, match []string) map[string]string {
	out := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			out[name] = match[i]
		}
	}
	return out
}
