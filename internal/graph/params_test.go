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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrectDateParams(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)

	t.Run("过去的车票日期改为明天", func(t *testing.T) {
		params := correctDateParams(map[string]any{"date": "2026-08-30"}, "train_query", now)
		assert.Equal(t, "2026-09-02", params["date"])
	})

	t.Run("今天及未来日期保持不变", func(t *testing.T) {
		params := correctDateParams(map[string]any{"date": "2026-09-01"}, "train_query", now)
		assert.Equal(t, "2026-09-01", params["date"])
	})

	t.Run("格式非法原样保留", func(t *testing.T) {
		params := correctDateParams(map[string]any{"date": "九月一日"}, "train_query", now)
		assert.Equal(t, "九月一日", params["date"])
	})

	t.Run("退房日期不晚于入住时顺延一天", func(t *testing.T) {
		params := correctDateParams(map[string]any{
			"check_in":  "2026-09-05",
			"check_out": "2026-09-05",
		}, "hotel_query", now)
		assert.Equal(t, "2026-09-05", params["check_in"])
		assert.Equal(t, "2026-09-06", params["check_out"])
	})

	t.Run("过去的入住区间整体修正", func(t *testing.T) {
		params := correctDateParams(map[string]any{
			"check_in":  "2026-08-01",
			"check_out": "2026-08-03",
		}, "hotel_query", now)
		assert.Equal(t, "2026-09-02", params["check_in"])
		// 两个日期都被改到明天后，退房再顺延一天
		assert.Equal(t, "2026-09-03", params["check_out"])
	})

	t.Run("不修改原参数表", func(t *testing.T) {
		original := map[string]any{"date": "2020-01-01"}
		correctDateParams(original, "train_query", now)
		assert.Equal(t, "2020-01-01", original["date"])
	})
}

func TestIsParameterError(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		errMsg   string
		expected bool
	}{
		{"中文日期错误", nil, "出发日期不能早于今天", true},
		{"英文日期错误", nil, "date cannot be earlier than today", true},
		{"数据文本含error", "something error happened", "", true},
		{"网络错误不算参数错误", nil, "连接超时", false},
		{"结构化数据不参与判断", map[string]any{"date": "错"}, "", false},
		{"无错误", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isParameterError(tt.data, tt.errMsg))
		})
	}
}

func TestDecodeJSONResponse(t *testing.T) {
	type payload struct {
		IsValid bool   `json:"is_valid"`
		Reason  string `json:"reason"`
	}

	t.Run("直接解析", func(t *testing.T) {
		var p payload
		require.NoError(t, decodeJSONResponse(`{"is_valid": true, "reason": "ok"}`, &p))
		assert.True(t, p.IsValid)
	})

	t.Run("json代码块", func(t *testing.T) {
		var p payload
		response := "好的，以下是结果：\n```json\n{\"is_valid\": true, \"reason\": \"ok\"}\n```\n"
		require.NoError(t, decodeJSONResponse(response, &p))
		assert.True(t, p.IsValid)
		assert.Equal(t, "ok", p.Reason)
	})

	t.Run("正文中的花括号块", func(t *testing.T) {
		var p payload
		response := `校验结论如下 {"is_valid": false, "reason": "缺少出发地"} 请补充。`
		require.NoError(t, decodeJSONResponse(response, &p))
		assert.False(t, p.IsValid)
		assert.Equal(t, "缺少出发地", p.Reason)
	})

	t.Run("无JSON内容", func(t *testing.T) {
		var p payload
		assert.Error(t, decodeJSONResponse("抱歉，我无法处理。", &p))
	})
}
