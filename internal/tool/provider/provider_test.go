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

package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner/internal/planner"
	"trip-planner/internal/timewindow"
	"trip-planner/internal/transport"
	"trip-planner/pkg/log"
)

func testLogger(t *testing.T) *log.Logger {
	t.Helper()
	logger, err := log.NewLogger(nil)
	require.NoError(t, err)
	return logger
}

func TestTrainToolMockData(t *testing.T) {
	tool := NewTrainTool(nil, testLogger(t))

	result := tool.Execute(context.Background(), map[string]any{
		"origin":      "北京",
		"destination": "上海",
		"date":        "2026-09-01",
	})
	require.True(t, result.Succeeded())

	data, ok := result.Data.(map[string]any)
	require.True(t, ok)
	trains, ok := data["trains"].([]any)
	require.True(t, ok)
	require.Len(t, trains, 2)
	first, ok := trains[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "G123", first["train_no"])
	assert.Equal(t, "08:00", first["departure_time"])
}

func TestTrainMockFeedsDecisionEngine(t *testing.T) {
	// 未配置 MCP 服务器时的模拟数据必须和真实路径形状一致，
	// 交通候选提取与时间统计都要能直接消费它
	tool := NewTrainTool(nil, testLogger(t))

	result := tool.Execute(context.Background(), map[string]any{
		"origin":      "北京",
		"destination": "上海",
		"date":        "2026-09-01",
	})
	require.True(t, result.Succeeded())

	results := map[string]*planner.ToolExecution{
		"task_0": {Status: "success", Data: result.Data},
	}

	candidates := transport.ExtractCandidates(results, map[string]string{"task_0": "train_query"})
	require.Len(t, candidates, 2)
	assert.Equal(t, "G123", candidates[0].ID)
	assert.Equal(t, "G456", candidates[1].ID)
	require.NotNil(t, candidates[0].Price)
	assert.Equal(t, 553.0, *candidates[0].Price)

	stats := timewindow.ExtractTimingStats(results)
	require.NotNil(t, stats.MinArrival)
	assert.Equal(t, 12*60+30, *stats.MinArrival)
	require.NotNil(t, stats.MaxDeparture)
	assert.Equal(t, 14*60+20, *stats.MaxDeparture)
	require.NotNil(t, stats.AvgDuration)
	assert.Equal(t, 270, *stats.AvgDuration)
}

func TestTrainToolValidation(t *testing.T) {
	tool := NewTrainTool(nil, testLogger(t))

	tests := []struct {
		name   string
		params map[string]any
	}{
		{"missing origin", map[string]any{"destination": "上海", "date": "2026-09-01"}},
		{"missing destination", map[string]any{"origin": "北京", "date": "2026-09-01"}},
		{"missing date", map[string]any{"origin": "北京", "destination": "上海"}},
		{"bad date format", map[string]any{"origin": "北京", "destination": "上海", "date": "09-01"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := tool.Execute(context.Background(), tc.params)
			assert.False(t, result.Succeeded())
			assert.NotEmpty(t, result.ErrorMessage)
		})
	}
}

func TestMapToolMockRoute(t *testing.T) {
	tool := NewMapTool(nil, testLogger(t))

	result := tool.Execute(context.Background(), map[string]any{
		"origin":      "北京",
		"destination": "上海",
	})
	require.True(t, result.Succeeded())

	data := result.Data.(map[string]any)
	assert.Equal(t, "route", data["query_type"])
	routeInfo, ok := data["route_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "350公里", routeInfo["distance"])
	assert.Equal(t, "4小时20分钟", routeInfo["duration"])
}

func TestMapToolRejectsUnknownQueryType(t *testing.T) {
	tool := NewMapTool(nil, testLogger(t))

	result := tool.Execute(context.Background(), map[string]any{
		"origin":      "北京",
		"destination": "上海",
		"query_type":  "teleport",
	})
	assert.False(t, result.Succeeded())
}

func TestIsCoordinate(t *testing.T) {
	assert.True(t, isCoordinate("116.397428,39.90923"))
	assert.True(t, isCoordinate("116.4, 39.9"))
	assert.False(t, isCoordinate("北京"))
	assert.False(t, isCoordinate("116.4"))
	assert.False(t, isCoordinate("116.4,39.9,10"))
}

func TestHotelToolMockData(t *testing.T) {
	tool := NewHotelTool(nil, testLogger(t))

	result := tool.Execute(context.Background(), map[string]any{
		"city":      "杭州",
		"check_in":  "2026-09-01",
		"check_out": "2026-09-03",
	})
	require.True(t, result.Succeeded())

	data := result.Data.(map[string]any)
	hotels, ok := data["hotels"].([]any)
	require.True(t, ok)
	require.Len(t, hotels, 2)
	first, ok := hotels[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "杭州市中心", first["address"])
}

func TestHotelToolValidation(t *testing.T) {
	tool := NewHotelTool(nil, testLogger(t))

	result := tool.Execute(context.Background(), map[string]any{
		"city":      "杭州",
		"check_in":  "2026/09/01",
		"check_out": "2026-09-03",
	})
	assert.False(t, result.Succeeded())
	assert.Contains(t, result.ErrorMessage, "入住日期格式错误")
}

func TestParsePriceRange(t *testing.T) {
	tests := []struct {
		in      string
		wantMin int
		wantMax int
	}{
		{"200-500", 200, 500},
		{"200, 500", 200, 500},
		{"", 0, 10000},
		{"cheap", 0, 10000},
	}
	for _, tc := range tests {
		minPrice, maxPrice := parsePriceRange(tc.in)
		assert.Equal(t, tc.wantMin, minPrice, tc.in)
		assert.Equal(t, tc.wantMax, maxPrice, tc.in)
	}
}
