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

// Package commute 通勤耗时估算：按出行方式拆解 出发成本 + 候车 + 在途 + 到达成本，
// 并依据重要性与风险上下文附加缓冲。
package commute

import (
	"fmt"
	"math"

	"trip-planner/internal/planner"
)

// modeConfig 出行方式基础参数
type modeConfig struct {
	SpeedKmh  float64
	Departure float64 // 出发准备（分钟）
	Arrival   float64 // 到达离场（分钟）
	Wait      float64 // 平均候车（分钟）
	Risk      float64 // 方式固有风险系数
}

var modeConfigs = map[string]modeConfig{
	"walk":   {SpeedKmh: 4, Departure: 3, Arrival: 3, Wait: 0, Risk: 1.0},
	"bike":   {SpeedKmh: 12, Departure: 4, Arrival: 4, Wait: 0, Risk: 1.1},
	"metro":  {SpeedKmh: 30, Departure: 8, Arrival: 8, Wait: 5, Risk: 1.2},
	"bus":    {SpeedKmh: 18, Departure: 6, Arrival: 6, Wait: 8, Risk: 1.4},
	"taxi":   {SpeedKmh: 25, Departure: 5, Arrival: 5, Wait: 4, Risk: 1.3},
	"drive":  {SpeedKmh: 28, Departure: 5, Arrival: 5, Wait: 0, Risk: 1.25},
	"train":  {SpeedKmh: 200, Departure: 15, Arrival: 20, Wait: 15, Risk: 1.1},
	"flight": {SpeedKmh: 750, Departure: 30, Arrival: 30, Wait: 25, Risk: 1.5},
}

var timeOfDayFactors = map[string]float64{
	"morning_peak": 1.3,
	"evening_peak": 1.4,
	"off_peak":     1.0,
	"late_night":   1.2,
}

var weatherFactors = map[string]float64{
	"clear": 1.0,
	"rain":  1.2,
	"storm": 1.5,
	"snow":  1.4,
}

var routeRiskFactors = map[string]float64{
	"highway": 1.0,
	"urban":   1.2,
	"unknown": 1.1,
}

func riskFactors(r planner.RiskContext) (float64, float64, float64) {
	tod := lookupFactor(timeOfDayFactors, r.TimeOfDay, "off_peak")
	weather := lookupFactor(weatherFactors, r.Weather, "clear")
	route := lookupFactor(routeRiskFactors, r.RouteType, "unknown")
	return tod, weather, route
}

func lookupFactor(table map[string]float64, key, fallback string) float64 {
	if key == "" {
		key = fallback
	}
	if v, ok := table[key]; ok {
		return v
	}
	return 1.0
}

// InferDistanceKm 没有坐标时按文本层级粗估距离。
// 前两字不同视为跨城，两端均为 POI 视为同城短途。
func InferDistanceKm(origin, destination *planner.LocationCandidate) float64 {
	if origin == nil || destination == nil {
		return 10.0
	}
	originCity := firstRunes(origin.Text, 2)
	destCity := firstRunes(destination.Text, 2)

	if originCity != "" && destCity != "" && originCity != destCity {
		return 1200.0
	}
	if origin.Level == planner.LevelPOI && destination.Level == planner.LevelPOI {
		return 5.0
	}
	if origin.Level == planner.LevelDistrict && destination.Level == planner.LevelDistrict {
		return 12.0
	}
	return 80.0
}

// RecommendModes 按距离档位给出候选出行方式
func RecommendModes(distanceKm float64) []string {
	switch {
	case distanceKm < 1:
		return []string{"walk", "bike"}
	case distanceKm < 3:
		return []string{"bike", "taxi", "drive"}
	case distanceKm < 10:
		return []string{"metro", "taxi", "drive"}
	case distanceKm < 50:
		return []string{"metro", "drive", "taxi"}
	case distanceKm < 300:
		return []string{"train", "drive"}
	}
	return []string{"train", "flight"}
}

// Estimate 单个方式的完整耗时拆解
type Estimate struct {
	Mode          string  `json:"mode"`
	DistanceKm    float64 `json:"distance_km"`
	DepartureCost float64 `json:"departure_cost"`
	WaitTime      float64 `json:"wait_time"`
	CoreTravel    float64 `json:"core_travel_minutes"`
	ArrivalCost   float64 `json:"arrival_cost"`
	Buffer        float64 `json:"buffer_minutes"`
	Total         float64 `json:"total_minutes"`
}

// ComputeTime 估算某方式的门到门耗时。
// importance 取 [0,1]，越重要缓冲越大：缓冲比例 = clamp(0.1+importance*0.4) 再乘最大风险因子。
func ComputeTime(distanceKm float64, mode string, importance float64, risk planner.RiskContext) Estimate {
	cfg, ok := modeConfigs[mode]
	if !ok {
		cfg = modeConfigs["taxi"]
	}

	baseTravel := distanceKm / cfg.SpeedKmh * 60
	tod, weather, route := riskFactors(risk)
	coreTime := baseTravel * cfg.Risk * tod * weather * route
	total := cfg.Departure + cfg.Wait + coreTime + cfg.Arrival

	bufferRatio := math.Max(0.1, math.Min(0.5, 0.1+importance*0.4))
	bufferRatio *= math.Max(tod, math.Max(weather, route))
	buffer := total * bufferRatio

	return Estimate{
		Mode:          mode,
		DistanceKm:    round1(distanceKm),
		DepartureCost: cfg.Departure,
		WaitTime:      cfg.Wait,
		CoreTravel:    round1(coreTime),
		ArrivalCost:   cfg.Arrival,
		Buffer:        round1(buffer),
		Total:         round1(total + buffer),
	}
}

// BuildPlan 为起终点生成通勤评估。preferredModes 为空时按距离推荐。
func BuildPlan(origin, destination *planner.LocationCandidate, importance float64, preferredModes []string, risk planner.RiskContext) *planner.CommutePlan {
	distanceKm := InferDistanceKm(origin, destination)

	modes := preferredModes
	if len(modes) == 0 {
		modes = RecommendModes(distanceKm)
	}

	plan := &planner.CommutePlan{
		DistanceKm: round1(distanceKm),
	}
	if origin != nil {
		plan.From = origin.Text
	}
	if destination != nil {
		plan.To = destination.Text
	}

	bestTotal := math.Inf(1)
	for _, mode := range modes {
		est := ComputeTime(distanceKm, mode, importance, risk)
		plan.Modes = append(plan.Modes, planner.ModeEstimate{
			Mode:    est.Mode,
			Minutes: est.Total,
			Risk:    riskLabel(mode),
		})
		if est.Total < bestTotal {
			bestTotal = est.Total
			plan.Recommended = mode
			plan.BufferMinutes = est.Buffer
		}
	}
	return plan
}

// Summarize 通勤评估的用户可读摘要
func Summarize(plan *planner.CommutePlan) string {
	if plan == nil || len(plan.Modes) == 0 {
		return "尚未生成通勤估算。"
	}
	best := plan.Modes[0]
	for _, m := range plan.Modes[1:] {
		if m.Minutes < best.Minutes {
			best = m
		}
	}
	return fmt.Sprintf("推荐方式：%s，预计耗时 %.1f 分钟 (距离约 %.1fkm，含缓冲 %.1f 分钟)。",
		best.Mode, best.Minutes, plan.DistanceKm, plan.BufferMinutes)
}

func riskLabel(mode string) string {
	cfg, ok := modeConfigs[mode]
	if !ok {
		return "medium"
	}
	switch {
	case cfg.Risk <= 1.1:
		return "low"
	case cfg.Risk <= 1.3:
		return "medium"
	}
	return "high"
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) < n {
		return s
	}
	return string(runes[:n])
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
