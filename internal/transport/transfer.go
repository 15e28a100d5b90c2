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

package transport

import (
	"fmt"
	"strings"

	"trip-planner/internal/planner"
)

// 换乘类型的时间带与风险标签
type transferBand struct {
	Min  int
	Max  int
	Risk string
}

var transferBands = map[string]transferBand{
	"same_station":    {Min: 5, Max: 15, Risk: "低"},
	"cross_station":   {Min: 30, Max: 60, Risk: "高"},
	"cross_transport": {Min: 10, Max: 30, Risk: "中"},
}

func midpoint(b transferBand) int {
	return (b.Min + b.Max) / 2
}

func segment(label, kind, notes string) *planner.TransferSegment {
	band := transferBands[kind]
	return &planner.TransferSegment{
		Segment:    label,
		Type:       kind,
		MinMinutes: band.Min,
		MaxMinutes: band.Max,
		Minutes:    midpoint(band),
		Risk:       band.Risk,
		Notes:      notes,
	}
}

// BuildTransferSegments 为选中方案合成接驳与换乘段。
// 首末接驳限定打车；一次换乘按站内、多次按跨站处理。
func BuildTransferSegments(best *planner.TransportCandidate, resolved map[string]*planner.LocationCandidate) []*planner.TransferSegment {
	if best == nil {
		return nil
	}

	origin := "出发地"
	if loc := resolved["origin"]; loc != nil {
		origin = loc.Text
	}
	destination := "目的地"
	if loc := resolved["destination"]; loc != nil {
		destination = loc.Text
	}
	mode := best.Mode
	if mode == "" {
		mode = "transport"
	}

	segments := []*planner.TransferSegment{
		segment(fmt.Sprintf("%s → %s出发点", origin, mode), "cross_transport", "接驳方式限定为打车，包含出发段缓冲。"),
	}

	if best.Transfers > 0 {
		kind := "cross_station"
		notes := "预留更长时间跨站移动。"
		if best.Transfers == 1 {
			kind = "same_station"
			notes = "建议提前确认站内指引。"
		}
		segments = append(segments, segment(fmt.Sprintf("%s内部换乘 ×%d", mode, best.Transfers), kind, notes))
	}

	segments = append(segments,
		segment(fmt.Sprintf("%s到达点 → %s", mode, destination), "cross_transport", "仅允许打车接驳，包含到达缓冲。"))

	return segments
}

// SummarizeTransfers 换乘与接驳的摘要
func SummarizeTransfers(segments []*planner.TransferSegment) string {
	if len(segments) == 0 {
		return "暂无换乘/接驳需求。"
	}
	lines := []string{"换乘与接驳规划："}
	total := 0
	for _, seg := range segments {
		total += seg.Minutes
		lines = append(lines, fmt.Sprintf("- %s：%d 分钟，风险%s（%s）", seg.Segment, seg.Minutes, seg.Risk, seg.Notes))
	}
	lines = append(lines, fmt.Sprintf("预计换乘/接驳总耗时：%d 分钟。", total))
	return strings.Join(lines, "\n")
}
