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

// HotelTool 携程酒店查询工具
type HotelTool struct {
	client *mcp.Client
	logger *log.Logger
}

// NewHotelTool 创建酒店查询工具，client 可为 nil（使用模拟数据）
func NewHotelTool(client *mcp.Client, logger *log.Logger) *HotelTool {
	return &HotelTool{client: client, logger: logger}
}

// Name 实现 tool.Tool
func (t *HotelTool) Name() string { return "hotel_query" }

// Description 实现 tool.Tool
func (t *HotelTool) Description() string {
	return "查询携程酒店信息，包括名称、价格、评分等。参数：city(城市), check_in(入住日期), check_out(退房日期)，可选 price_range(如200-500), hotel_type(如经济型/五星级)"
}

// Schema 实现 tool.Tool
func (t *HotelTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "酒店查询参数",
		Properties: map[string]tool.SchemaProperty{
			"city":        {Type: "string", Description: "城市名称"},
			"check_in":    {Type: "string", Description: "入住日期，格式 YYYY-MM-DD"},
			"check_out":   {Type: "string", Description: "退房日期，格式 YYYY-MM-DD"},
			"price_range": {Type: "string", Description: "价格区间，如 200-500（可选）"},
			"hotel_type":  {Type: "string", Description: "酒店类型，如 经济型/五星级/民宿（可选）"},
		},
		Required: []string{"city", "check_in", "check_out"},
	}
}

// ValidateParams 实现 tool.Tool
func (t *HotelTool) ValidateParams(params map[string]any) error {
	city, _ := params["city"].(string)
	checkIn, _ := params["check_in"].(string)
	checkOut, _ := params["check_out"].(string)
	if city == "" {
		return fmt.Errorf("城市不能为空")
	}
	if checkIn == "" {
		return fmt.Errorf("入住日期不能为空")
	}
	if checkOut == "" {
		return fmt.Errorf("退房日期不能为空")
	}
	if err := validateDate(checkIn); err != nil {
		return fmt.Errorf("入住日期格式错误，应为YYYY-MM-DD")
	}
	if err := validateDate(checkOut); err != nil {
		return fmt.Errorf("退房日期格式错误，应为YYYY-MM-DD")
	}
	return nil
}

// Execute 实现 tool.Tool
func (t *HotelTool) Execute(ctx context.Context, params map[string]any) tool.Result {
	if err := t.ValidateParams(params); err != nil {
		return tool.Errorf("%v", err)
	}
	city := params["city"].(string)
	checkIn := params["check_in"].(string)
	checkOut := params["check_out"].(string)
	priceRange, _ := params["price_range"].(string)
	hotelType, _ := params["hotel_type"].(string)

	if t.client.Configured() {
		// 携程侧日期用斜杠分隔
		args := map[string]any{
			"city":      city,
			"check_in":  strings.ReplaceAll(checkIn, "-", "/"),
			"check_out": strings.ReplaceAll(checkOut, "-", "/"),
		}
		minPrice, maxPrice := parsePriceRange(priceRange)
		args["price_min"] = minPrice
		args["price_max"] = maxPrice
		if hotelType != "" {
			args["keyword"] = hotelType
		}
		return t.client.CallTool(ctx, "ctrip_hotel_search", args)
	}

	t.logger.Warn("携程MCP服务器未配置，返回模拟数据",
		"city", city, "check_in", checkIn, "check_out", checkOut)
	return tool.Success(map[string]any{
		"hotels": []any{
			map[string]any{
				"name":       "XX商务酒店",
				"address":    city + "市中心",
				"price":      298,
				"rating":     4.5,
				"room_types": []any{"标准间", "大床房"},
				"facilities": []any{"WiFi", "停车场", "早餐"},
				"available":  true,
			},
			map[string]any{
				"name":       "XX精品酒店",
				"address":    city + "商业区",
				"price":      458,
				"rating":     4.8,
				"room_types": []any{"豪华间", "套房"},
				"facilities": []any{"WiFi", "停车场", "早餐", "健身房"},
				"available":  true,
			},
		},
		"query_info": map[string]any{
			"city":        city,
			"check_in":    checkIn,
			"check_out":   checkOut,
			"price_range": priceRange,
			"hotel_type":  hotelType,
		},
	})
}

// parsePriceRange 解析 "200-500" 或 "200,500"，空串回退为全区间
func parsePriceRange(s string) (int, int) {
	sep := ""
	switch {
	case strings.Contains(s, "-"):
		sep = "-"
	case strings.Contains(s, ","):
		sep = ","
	}
	if sep != "" {
		parts := strings.SplitN(s, sep, 2)
		minPrice, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		maxPrice, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 == nil && err2 == nil {
			return minPrice, maxPrice
		}
	}
	return 0, 10000
}
