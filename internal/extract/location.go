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

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"trip-planner/internal/planner"
)

var citySuffixes = []string{"市", "州", "盟"}

var regionKeywords = []string{"区", "县", "镇", "乡", "开发区", "新区"}

var landmarkKeywords = []string{
	"大厦", "中心", "酒店", "广场", "学院", "大学", "公司",
	"机场", "车站", "地铁站", "火车站", "汽车站",
	"写字楼", "产业园", "公园", "景区",
}

var addressDetails = []string{"路", "街", "巷", "弄", "号", "-", "室", "栋"}

var originPatterns = []*regexp.Regexp{
	regexp.MustCompile(`从(?P<loc>[\x{4e00}-\x{9fa5}A-Za-z0-9·\-\s]{1,20})(?:出发|出门|启程)`),
	regexp.MustCompile(`起点[为是](?P<loc>[\x{4e00}-\x{9fa5}A-Za-z0-9·\-\s]{1,20})`),
}

var destPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:到|去|前往|抵达)(?P<loc>[\x{4e00}-\x{9fa5}A-Za-z0-9·\-\s]{1,20})(?:参加|开会|办理|入住|集合)?`),
	regexp.MustCompile(`目的地[为是](?P<loc>[\x{4e00}-\x{9fa5}A-Za-z0-9·\-\s]{1,20})`),
}

var genericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`在(?P<loc>[\x{4e00}-\x{9fa5}A-Za-z0-9·\-\s]{1,20})(?:附近|周边|这里)?`),
}

// ClassifyLocationLevel 依据文本特征估算地址层级及置信度。
// 含门牌/路名细节判 L3，地标或区县词判 L2，城市后缀或短词判 L1。
func ClassifyLocationLevel(text string) (planner.LocationLevel, float64) {
	for _, kw := range addressDetails {
		if strings.Contains(text, kw) {
			return planner.LevelPOI, 0.9
		}
	}
	for _, kw := range append(append([]string{}, landmarkKeywords...), regionKeywords...) {
		if strings.Contains(text, kw) {
			return planner.LevelDistrict, 0.75
		}
	}
	for _, suffix := range citySuffixes {
		if strings.HasSuffix(text, suffix) {
			return planner.LevelCity, 0.6
		}
	}
	if utf8.RuneCountInString(text) <= 4 {
		return planner.LevelCity, 0.6
	}
	return planner.LevelDistrict, 0.5
}

func buildCandidate(text string, role planner.LocationRole, source string) *planner.LocationCandidate {
	level, confidence := ClassifyLocationLevel(text)
	return &planner.LocationCandidate{
		Text:       strings.TrimSpace(text),
		Role:       role,
		Level:      level,
		Confidence: confidence,
		SourceText: source,
	}
}

// ExtractLocationCandidates 返回 origin/destination/other 三类地点候选。
// 只有在前两类都为空时才尝试泛化的 "在…" 模式。
func ExtractLocationCandidates(userText string) map[string][]*planner.LocationCandidate {
	result := map[string][]*planner.LocationCandidate{
		"origin":      nil,
		"destination": nil,
		"other":       nil,
	}

	for _, pattern := range originPatterns {
		for _, m := range pattern.FindAllStringSubmatch(userText, -1) {
			loc := strings.TrimSpace(m[pattern.SubexpIndex("loc")])
			if loc == "" {
				continue
			}
			result["origin"] = append(result["origin"], buildCandidate(loc, planner.RoleOrigin, "pattern"))
		}
	}

	for _, pattern := range destPatterns {
		for _, m := range pattern.FindAllStringSubmatch(userText, -1) {
			loc := strings.TrimSpace(m[pattern.SubexpIndex("loc")])
			if loc == "" {
				continue
			}
			result["destination"] = append(result["destination"], buildCandidate(loc, planner.RoleDestination, "pattern"))
		}
	}

	if len(result["origin"]) == 0 && len(result["destination"]) == 0 {
		for _, pattern := range genericPatterns {
			for _, m := range pattern.FindAllStringSubmatch(userText, -1) {
				loc := strings.TrimSpace(m[pattern.SubexpIndex("loc")])
				if loc == "" {
					continue
				}
				result["other"] = append(result["other"], buildCandidate(loc, planner.RoleGeneric, "generic"))
			}
		}
	}

	// 同文本去重，保留置信度更高者
	for key, list := range result {
		result[key] = dedupCandidates(list)
	}
	return result
}

func dedupCandidates(list []*planner.LocationCandidate) []*planner.LocationCandidate {
	byText := make(map[string]*planner.LocationCandidate)
	var order []string
	for _, c := range list {
		prev, ok := byText[c.Text]
		if !ok {
			byText[c.Text] = c
			order = append(order, c.Text)
			continue
		}
		if c.Confidence > prev.Confidence {
			byText[c.Text] = c
		}
	}
	out := make([]*planner.LocationCandidate, 0, len(order))
	for _, text := range order {
		out = append(out, byText[text])
	}
	return out
}

var levelPriority = map[planner.LocationLevel]int{
	planner.LevelPOI:      3,
	planner.LevelDistrict: 2,
	planner.LevelCity:     1,
}

// SelectPrimaryLocation 在候选里挑主要地点：origin/destination 优先，
// 同组内按层级 L3 > L2 > L1、再按置信度取最优。
func SelectPrimaryLocation(candidates map[string][]*planner.LocationCandidate, fallbackKey string) *planner.LocationCandidate {
	bestOf := func(items []*planner.LocationCandidate) *planner.LocationCandidate {
		var best *planner.LocationCandidate
		for _, item := range items {
			if best == nil {
				best = item
				continue
			}
			pi, pb := levelPriority[item.Level], levelPriority[best.Level]
			if pi > pb || (pi == pb && item.Confidence > best.Confidence) {
				best = item
			}
		}
		return best
	}

	for _, key := range []string{"origin", "destination", fallbackKey, "other"} {
		if best := bestOf(candidates[key]); best != nil {
			return best
		}
	}
	return nil
}
