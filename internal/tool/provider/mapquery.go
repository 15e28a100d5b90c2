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
	"fmt"
	"strconv"
	"strings"

	"trip-planner/internal/tool"
	"trip-planner/internal/tool/mcp"
	"trip-planner/pkg/log"
)

// MapTool 高德地图查询工具，支持路线规划、地点检索与距离计算
type MapTool struct {
	client *mcp.Client
	logger *log.Logger
}

// NewMapTool 创建地图查询工具，client 可为 nil（使用模拟数据）
func NewMapTool(client *mcp.Client, logger *log.Logger) *MapTool {
	return &MapTool{client: client, logger: logger}
}

// Name 实现 tool.Tool
func (t *MapTool) Name() string { return "map_query" }

// Description 实现 tool.Tool
func (t *MapTool) Description() string {
	return "查询高德地图信息，包括路线规划、地点检索、距离计算。参数：origin(起点), destination(终点), query_type(route/poi/distance)"
}

// Schema 实现 tool.Tool
func (t *MapTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "地图查询参数",
		Properties: map[string]tool.SchemaProperty{
			"origin":      {Type: "string", Description: "起点，地址或 经度,纬度"},
			"destination": {Type: "string", Description: "终点，地址或 经度,纬度"},
			"query_type":  {Type: "string", Description: "route 路线规划 / poi 地点查询 / distance 距离计算"},
		},
		Required: []string{"origin", "destination"},
	}
}

// ValidateParams 实现 tool.Tool
func (t *MapTool) ValidateParams(params map[string]any) error {
	origin, _ := params["origin"].(string)
	destination, _ := params["destination"].(string)
	if origin == "" {
		return fmt.Errorf("起点不能为空")
	}
	if destination == "" {
		return fmt.Errorf("终点不能为空")
	}
	if qt, ok := params["query_type"].(string); ok && qt != "" {
		switch qt {
		case "route", "poi", "distance":
		default:
			return fmt.Errorf("查询类型错误，应为 route/poi/distance")
		}
	}
	return nil
}

// Execute 实现 tool.Tool。地址先经地理编码转为坐标，再按类型分派到
// 对应的高德工具。
func (t *MapTool) Execute(ctx context.Context, params map[string]any) tool.Result {
	if err := t.ValidateParams(params); err != nil {
		return tool.Errorf("%v", err)
	}
	origin := params["origin"].(string)
	destination := params["destination"].(string)
	queryType, _ := params["query_type"].(string)
	if queryType == "" {
		queryType = "route"
	}

	if t.client.Configured() {
		originCoord := origin
		if !isCoordinate(origin) {
			originCoord = t.geocode(ctx, origin)
			if originCoord == "" {
				return tool.Errorf("无法将起点 '%s' 转换为经纬度坐标", origin)
			}
		}
		destCoord := destination
		if !isCoordinate(destination) {
			destCoord = t.geocode(ctx, destination)
			if destCoord == "" {
				return tool.Errorf("无法将终点 '%s' 转换为经纬度坐标", destination)
			}
		}

		switch queryType {
		case "poi":
			city, _ := params["city"].(string)
			return t.client.CallTool(ctx, "maps_text_search", map[string]any{
				"keywords": destination,
				"city":     city,
			})
		case "distance":
			return t.client.CallTool(ctx, "maps_distance", map[string]any{
				"origins":     originCoord,
				"destination": destCoord,
				"type":        "1",
			})
		default:
			return t.client.CallTool(ctx, "maps_direction_driving", map[string]any{
				"origin":      originCoord,
				"destination": destCoord,
			})
		}
	}

	t.logger.Warn("高德MCP服务器未配置，返回模拟数据",
		"origin", origin, "destination", destination, "query_type", queryType)

	data := map[string]any{
		"query_type":  queryType,
		"origin":      origin,
		"destination": destination,
	}
	if queryType == "route" {
		data["route_info"] = map[string]any{
			"distance":      "350公里",
			"duration":      "4小时20分钟",
			"toll_distance": "320公里",
			"tolls":         "约150元",
			"paths": []any{
				map[string]any{"distance": 350, "duration": 260, "strategy": "最快路线"},
			},
		}
	}
	if queryType == "poi" {
		data["poi_info"] = map[string]any{
			"name":     destination,
			"address":  destination + "详细地址",
			"location": map[string]any{"lng": 116.397428, "lat": 39.90923},
		}
	}
	return tool.Success(data)
}

// geocode 把地址解析为 "经度,纬度"
func (t *MapTool) geocode(ctx context.Context, address string) string {
	result := t.client.CallTool(ctx, "maps_geo", map[string]any{"address": address})
	if !result.Succeeded() {
		return ""
	}
	data, ok := result.Data.(map[string]any)
	if !ok {
		return ""
	}
	if geocodes, ok := data["geocodes"].([]any); ok && len(geocodes) > 0 {
		if first, ok := geocodes[0].(map[string]any); ok {
			if loc, ok := first["location"].(string); ok {
				return loc
			}
		}
	}
	if results, ok := data["results"].([]any); ok && len(results) > 0 {
		if first, ok := results[0].(map[string]any); ok {
			if loc, ok := first["location"].(string); ok {
				return loc
			}
		}
	}
	return ""
}

// isCoordinate 判断是否为 "经度,纬度" 形式
func isCoordinate(s string) bool {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return false
	}
	for _, p := range parts {
		if _, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err != nil {
			return false
		}
	}
	return true
}
