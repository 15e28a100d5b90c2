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
	"encoding/json"
	"fmt"
	"regexp"
)

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	braceBlockPattern = regexp.MustCompile(`(?s)(\{.*\})`)
)

// decodeJSONResponse 从 LLM 文本输出中提取并解析 JSON。
// 依次尝试：整段直接解析、```json 代码块、首个花括号块。
func decodeJSONResponse(response string, v any) error {
	if err := json.Unmarshal([]byte(response), v); err == nil {
		return nil
	}
	if m := fencedJSONPattern.FindStringSubmatch(response); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}
	if m := braceBlockPattern.FindStringSubmatch(response); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("无法解析JSON响应：%s", truncate(response, 200))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
