package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner/internal/planner"
)

func floatp(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

func trainResults() map[string]*planner.ToolExecution {
	return map[string]*planner.ToolExecution{
		"task_1": {
			Status: "success",
			Data: map[string]any{
				"trains": []any{
					map[string]any{
						"train_no":       "G123",
						"departure_time": "08:00",
						"arrival_time":   "12:30",
						"duration":       "4小时30分钟",
						"price":          map[string]any{"二等座": 553.0, "一等座": 933.0, "商务座": 1748.0},
					},
					map[string]any{
						"train_no":       "G456",
						"departure_time": "14:20",
						"arrival_time":   "18:50",
						"duration":       "4小时30分钟",
						"price":          map[string]any{"二等座": 553.0},
					},
				},
			},
		},
	}
}

func TestInferUserType(t *testing.T) {
	assert.Equal(t, "business", InferUserType(map[string]any{"accommodation_preference": "五星酒店"}))
	assert.Equal(t, "economic", InferUserType(map[string]any{"accommodation_preference": "经济型"}))
	assert.Equal(t, "balanced", InferUserType(map[string]any{"transportation_preference": "自驾"}))
	assert.Equal(t, "balanced", InferUserType(nil))
}

func TestExtractCandidates_Trains(t *testing.T) {
	candidates := ExtractCandidates(trainResults(), map[string]string{"task_1": "train_query"})
	require.Len(t, candidates, 2)

	first := candidates[0]
	if first.ID != "G123" {
		first = candidates[1]
	}
	assert.Equal(t, "train", first.Mode)
	assert.Equal(t, "08:00", first.Departure)
	assert.Equal(t, "12:30", first.Arrival)
	require.NotNil(t, first.Price)
	assert.Equal(t, 553.0, *first.Price) // 档位价取最低
	assert.Equal(t, "train_query", first.ToolName)
}

func TestExtractCandidates_Routes(t *testing.T) {
	results := map[string]*planner.ToolExecution{
		"task_2": {
			Status: "success",
			Data: map[string]any{
				"routes": []any{
					map[string]any{
						"id": "R1", "mode": "bus", "departure_time": "09:00",
						"arrival_time": "11:00", "price": 80.0, "transfers": 1.0,
					},
				},
			},
		},
	}
	candidates := ExtractCandidates(results, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, "bus", candidates[0].Mode)
	assert.Equal(t, 1, candidates[0].Transfers)
}

func TestExtractCandidates_StableOrderAcrossTasks(t *testing.T) {
	// 多个任务返回同分候选时，提取顺序必须与任务 ID 的字典序一致，
	// 不能随 map 遍历顺序漂移
	results := map[string]*planner.ToolExecution{}
	for _, taskID := range []string{"task_3", "task_0", "task_2", "task_1"} {
		results[taskID] = &planner.ToolExecution{
			Status: "success",
			Data: map[string]any{
				"trains": []any{
					map[string]any{
						"train_no":       "G-" + taskID,
						"departure_time": "08:00",
						"arrival_time":   "12:30",
						"price":          553.0,
					},
				},
			},
		}
	}

	for i := 0; i < 20; i++ {
		candidates := ExtractCandidates(results, nil)
		require.Len(t, candidates, 4)
		for j, want := range []string{"task_0", "task_1", "task_2", "task_3"} {
			assert.Equal(t, want, candidates[j].TaskID)
			assert.Equal(t, "G-"+want, candidates[j].ID)
		}
	}
}

func TestSafetyMargin(t *testing.T) {
	cand := &planner.TransportCandidate{Arrival: "12:30", Departure: "08:00"}
	constraints := []*planner.TimeConstraint{{Latest: intp(14 * 60)}}
	commutes := []*planner.CommutePlan{{BufferMinutes: 20}}

	margin := SafetyMargin(cand, constraints, commutes)
	require.NotNil(t, margin)
	// 840 - 750 - 20
	assert.Equal(t, 70.0, *margin)
}

func TestSafetyMargin_NoDeadline(t *testing.T) {
	cand := &planner.TransportCandidate{Arrival: "12:30"}
	assert.Nil(t, SafetyMargin(cand, nil, nil))
}

func TestEvaluate_InfeasibleFilteredOut(t *testing.T) {
	candidates := ExtractCandidates(trainResults(), nil)
	// deadline 14:00：G123 12:30 到达可行，G456 18:50 到达安全余量为负
	constraints := []*planner.TimeConstraint{{Latest: intp(14 * 60)}}

	feasible, infeasible := Evaluate(candidates, constraints, nil, nil)
	require.Len(t, feasible, 1)
	require.Len(t, infeasible, 1)
	assert.Equal(t, "G123", feasible[0].ID)
	assert.True(t, feasible[0].Feasible)
	assert.False(t, infeasible[0].Feasible)
	assert.Equal(t, "安全余量不足", infeasible[0].Reason)
}

func TestEvaluate_ScoresWithinRange(t *testing.T) {
	candidates := ExtractCandidates(trainResults(), nil)
	constraints := []*planner.TimeConstraint{{Latest: intp(23 * 60)}}

	feasible, _ := Evaluate(candidates, constraints, nil, map[string]any{"accommodation_preference": "商务"})
	require.NotEmpty(t, feasible)
	for _, c := range feasible {
		assert.Equal(t, "business", c.UserType)
		for _, s := range []float64{c.Scores.Safety, c.Scores.Price, c.Scores.Comfort, c.Scores.Transfer, c.Overall} {
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
	// 可行列表按综合得分降序
	for i := 1; i < len(feasible); i++ {
		assert.GreaterOrEqual(t, feasible[i-1].Overall, feasible[i].Overall)
	}
}

func TestBuildVariants(t *testing.T) {
	fast := &planner.TransportCandidate{ID: "G1", Mode: "train", Arrival: "10:00", Overall: 0.7}
	best := &planner.TransportCandidate{ID: "G2", Mode: "train", Arrival: "12:00", Overall: 0.9}
	variants := BuildVariants([]*planner.TransportCandidate{best, fast})
	require.Len(t, variants, 2)
	assert.Equal(t, "time_priority", variants[0].Type)
	assert.Equal(t, "G1", variants[0].Candidate.ID)
	assert.Equal(t, "balanced", variants[1].Type)
	assert.Equal(t, "G2", variants[1].Candidate.ID)
}

func TestBuildVariants_Empty(t *testing.T) {
	assert.Nil(t, BuildVariants(nil))
}

func TestBuildTransferSegments(t *testing.T) {
	best := &planner.TransportCandidate{Mode: "train", Transfers: 1}
	resolved := map[string]*planner.LocationCandidate{
		"origin":      {Text: "北京"},
		"destination": {Text: "杭州国际博览中心"},
	}
	segments := BuildTransferSegments(best, resolved)
	require.Len(t, segments, 3)
	assert.Equal(t, "cross_transport", segments[0].Type)
	assert.Equal(t, "same_station", segments[1].Type)
	assert.Equal(t, 10, segments[1].Minutes) // (5+15)/2
	assert.Equal(t, "cross_transport", segments[2].Type)

	multi := &planner.TransportCandidate{Mode: "train", Transfers: 2}
	segments = BuildTransferSegments(multi, resolved)
	assert.Equal(t, "cross_station", segments[1].Type)
	assert.Equal(t, 45, segments[1].Minutes)
}

func TestBuildTransferSegments_NilPlan(t *testing.T) {
	assert.Nil(t, BuildTransferSegments(nil, nil))
}

func TestBuildRiskProfile(t *testing.T) {
	risk := BuildRiskProfile(map[string]any{
		"start_date":                "明天早上",
		"transportation_preference": "高铁",
	})
	assert.Equal(t, "morning_peak", risk.TimeOfDay)
	assert.Equal(t, "highway", risk.RouteType)
	assert.Equal(t, 0.5, risk.Importance)
}

func TestBuildBufferPlan(t *testing.T) {
	plan := BuildBufferPlan(nil, nil)
	assert.Equal(t, 15.0, plan.MinBuffer)
	assert.Equal(t, 60.0, plan.MaxBuffer)

	commutes := []*planner.CommutePlan{
		{BufferMinutes: 12.5},
		{BufferMinutes: 33.0},
	}
	plan = BuildBufferPlan(commutes, &planner.RiskContext{Weather: "rain", TimeOfDay: "morning_peak"})
	assert.Equal(t, 12.5, plan.MinBuffer)
	assert.Equal(t, 33.0, plan.MaxBuffer)
	assert.Contains(t, plan.Suggestion, "33.0")
}
