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

package extract

import "regexp"

// 槽位分级：L1 缺失阻断规划，L3 缺失仅降低方案质量
var criticalSlots = map[string]bool{
	"origin":      true,
	"destination": true,
	"start_date":  true,
}

var optionalSlots = map[string]bool{
	"end_date":                  true,
	"num_travelers":             true,
	"transportation_preference": true,
	"accommodation_preference":  true,
}

var relativeTimePatterns = []*regexp.Regexp{
	regexp.MustCompile(`下周[一二三四五六日天]?`),
	regexp.MustCompile(`明天`),
	regexp.MustCompile(`后天`),
	regexp.MustCompile(`下个月`),
	regexp.MustCompile(`本周末`),
}

// ClassifyMissingSlots 将缺失槽位按关键程度分级
func ClassifyMissingSlots(missing []string) map[string][]string {
	result := map[string][]string{"L1": {}, "L3": {}, "others": {}}
	for _, slot := range missing {
		switch {
		case criticalSlots[slot]:
			result["L1"] = append(result["L1"], slot)
		case optionalSlots[slot]:
			result["L3"] = append(result["L3"], slot)
		default:
			result["others"] = append(result["others"], slot)
		}
	}
	return result
}

// DetectRelativeTimeAmbiguity 相对日期表达需要向用户澄清具体日期
func DetectRelativeTimeAmbiguity(userInput string) []string {
	for _, pattern := range relativeTimePatterns {
		if pattern.MatchString(userInput) {
			return []string{"请确认具体的日期（例如提供 YYYY-MM-DD）。"}
		}
	}
	return nil
}
