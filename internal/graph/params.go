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
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// correctDateParams 在调用工具前兜底修正日期参数：
// 过去的日期改为明天，酒店退房日期不晚于入住时顺延一天。
// 格式不合法的值原样保留，由工具自身报错。
func correctDateParams(params map[string]any, toolName string, now time.Time) map[string]any {
	corrected := make(map[string]any, len(params))
	for k, v := range params {
		corrected[k] = v
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	fixPast := func(key string) {
		raw, ok := corrected[key].(string)
		if !ok {
			return
		}
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return
		}
		if parsed.Before(today) {
			corrected[key] = tomorrow.Format(dateLayout)
		}
	}

	switch toolName {
	case "train_query":
		fixPast("date")
	case "hotel_query":
		fixPast("check_in")
		fixPast("check_out")

		checkInRaw, okIn := corrected["check_in"].(string)
		checkOutRaw, okOut := corrected["check_out"].(string)
		if okIn && okOut {
			checkIn, errIn := time.Parse(dateLayout, checkInRaw)
			checkOut, errOut := time.Parse(dateLayout, checkOutRaw)
			if errIn == nil && errOut == nil && !checkOut.After(checkIn) {
				corrected["check_out"] = checkIn.AddDate(0, 0, 1).Format(dateLayout)
			}
		}
	}
	return corrected
}

var parameterErrorKeywords = []string{"date", "日期", "cannot be earlier", "不能早于"}

// isParameterError 判断失败是否源于参数问题（典型如日期早于今天）
func isParameterError(resultData any, errorMessage string) bool {
	if errorMessage != "" {
		lower := strings.ToLower(errorMessage)
		for _, kw := range parameterErrorKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	if text, ok := resultData.(string); ok {
		lower := strings.ToLower(text)
		for _, kw := range append(parameterErrorKeywords, "error") {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}
