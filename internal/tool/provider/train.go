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

// Package provider 实现面向 12306、高德地图、携程的查询工具。
// 未配置 MCP 服务地址时各工具返回内置模拟数据，便于本地联调。
package provider

import (
	"context"
	"fmt"

	"trip-planner/internal/tool"
	"trip-planner/internal/tool/mcp"
	"trip-planner/pkg/log"
)

// TrainTool 12306 火车票查询工具
type TrainTool struct {
	client *mcp.Client
	logger *log.Logger
}

// NewTrainTool 创建火车票查询工具，client 可为 nil（使用模拟数据）
func NewTrainTool(client *mcp.Client, logger *log.Logger) *TrainTool {
	return &TrainTool{client: client, logger: logger}
}

// Name 实现 tool.Tool
func (t *TrainTool) Name() string { return "train_query" }

// Description 实现 tool.Tool
func (t *TrainTool) Description() string {
	return "查询12306火车票信息，包括车次、时间、价格等。参数：origin(出发地), destination(目的地), date(日期，格式：YYYY-MM-DD)"
}

// Schema 实现 tool.Tool
func (t *TrainTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "火车票查询参数",
		Properties: map[string]tool.SchemaProperty{
			"origin":      {Type: "string", Description: "出发地，城市名或车站名"},
			"destination": {Type: "string", Description: "目的地，城市名或车站名"},
			"date":        {Type: "string", Description: "出发日期，格式 YYYY-MM-DD"},
		},
		Required: []string{"origin", "destination", "date"},
	}
}

// ValidateParams 实现 tool.Tool
func (t *TrainTool) ValidateParams(params map[string]any) error {
	origin, _ := params["origin"].(string)
	destination, _ := params["destination"].(string)
	date, _ := params["date"].(string)
	if origin == "" {
		return fmt.Errorf("出发地不能为空")
	}
	if destination == "" {
		return fmt.Errorf("目的地不能为空")
	}
	if date == "" {
		return fmt.Errorf("日期不能为空")
	}
	if err := validateDate(date); err != nil {
		return err
	}
	return nil
}

// Execute 实现 tool.Tool。先把出发地与目的地解析为车站代码，再查余票。
func (t *TrainTool) Execute(ctx context.Context, params map[string]any) tool.Result {
	if err := t.ValidateParams(params); err != nil {
		return tool.Errorf("%v", err)
	}
	origin := params["origin"].(string)
	destination := params["destination"].(string)
	date := params["date"].(string)

	if t.client.Configured() {
		fromCode := t.stationCode(ctx, origin)
		if fromCode == "" {
			return tool.Errorf("无法获取出发地 '%s' 的车站代码", origin)
		}
		toCode := t.stationCode(ctx, destination)
		if toCode == "" {
			return tool.Errorf("无法获取目的地 '%s' 的车站代码", destination)
		}

		return t.client.CallTool(ctx, "get-tickets", map[string]any{
			"fromStation": fromCode,
			"toStation":   toCode,
			"date":        date,
			"format":      "json",
		})
	}

	t.logger.Warn("12306 MCP服务器未配置，返回模拟数据",
		"origin", origin, "destination", destination, "date", date)
	// 与真实 MCP 路径经 json.Unmarshal 得到的形状一致：列表统一为 []any
	return tool.Success(map[string]any{
		"trains": []any{
			map[string]any{
				"train_no":       "G123",
				"departure_time": "08:00",
				"arrival_time":   "12:30",
				"duration":       "4小时30分钟",
				"price":          map[string]any{"二等座": 553, "一等座": 933, "商务座": 1748},
				"available":      true,
			},
			map[string]any{
				"train_no":       "G456",
				"departure_time": "14:20",
				"arrival_time":   "18:50",
				"duration":       "4小时30分钟",
				"price":          map[string]any{"二等座": 553, "一等座": 933, "商务座": 1748},
				"available":      true,
			},
		},
		"query_info": map[string]any{
			"origin":      origin,
			"destination": destination,
			"date":        date,
		},
	})
}

// stationCode 先按城市名查，查不到再按车站名查
func (t *TrainTool) stationCode(ctx context.Context, name string) string {
	result := t.client.CallTool(ctx, "get-station-code-of-citys", map[string]any{"citys": name})
	if code := pickStationCode(result); code != "" {
		return code
	}
	result = t.client.CallTool(ctx, "get-station-code-by-names", map[string]any{"stationNames": name})
	return pickStationCode(result)
}

func pickStationCode(result tool.Result) string {
	if !result.Succeeded() {
		return ""
	}
	data, ok := result.Data.(map[string]any)
	if !ok {
		return ""
	}
	for _, v := range data {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if code, ok := entry["station_code"].(string); ok && code != "" {
			return code
		}
	}
	return ""
}

// validateDate 校验 YYYY-MM-DD 形式
func validateDate(date string) error {
	if len(date) != 10 || date[4] != '-' || date[7] != '-' {
		return fmt.Errorf("日期格式错误，应为YYYY-MM-DD")
	}
	return nil
}
