package commute

import (
	"testing"

	"trip-planner/internal/planner"
)

func TestInferDistanceKm(t *testing.T) {
	cases := []struct {
		name   string
		origin *planner.LocationCandidate
		dest   *planner.LocationCandidate
		want   float64
	}{
		{"missing endpoints", nil, nil, 10.0},
		{
			"cross city",
			&planner.LocationCandidate{Text: "北京", Level: planner.LevelCity},
			&planner.LocationCandidate{Text: "杭州市", Level: planner.LevelCity},
			1200.0,
		},
		{
			"both poi",
			&planner.LocationCandidate{Text: "北京西路1号", Level: planner.LevelPOI},
			&planner.LocationCandidate{Text: "北京东路8号", Level: planner.LevelPOI},
			5.0,
		},
		{
			"both district",
			&planner.LocationCandidate{Text: "上海虹口区", Level: planner.LevelDistrict},
			&planner.LocationCandidate{Text: "上海浦东新区", Level: planner.LevelDistrict},
			12.0,
		},
	}
	for _, tc := range cases {
		if got := InferDistanceKm(tc.origin, tc.dest); got != tc.want {
			t.Errorf("%s: InferDistanceKm = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRecommendModes(t *testing.T) {
	cases := []struct {
		distance float64
		first    string
		count    int
	}{
		{0.5, "walk", 2},
		{2, "bike", 3},
		{8, "metro", 3},
		{40, "metro", 3},
		{200, "train", 2},
		{1200, "train", 2},
	}
	for _, tc := range cases {
		modes := RecommendModes(tc.distance)
		if len(modes) != tc.count || modes[0] != tc.first {
			t.Errorf("RecommendModes(%v) = %v", tc.distance, modes)
		}
	}
}

func TestComputeTime_BufferScalesWithImportance(t *testing.T) {
	low := ComputeTime(10, "taxi", 0.0, planner.RiskContext{})
	high := ComputeTime(10, "taxi", 1.0, planner.RiskContext{})
	if high.Buffer <= low.Buffer {
		t.Errorf("buffer should grow with importance: low=%v high=%v", low.Buffer, high.Buffer)
	}
	// importance=0 时缓冲比例钳制在 0.1
	if low.Buffer <= 0 {
		t.Error("buffer must stay positive at minimal importance")
	}
}

func TestComputeTime_RiskFactorsIncreaseTotal(t *testing.T) {
	clear := ComputeTime(10, "drive", 0.5, planner.RiskContext{Weather: "clear"})
	storm := ComputeTime(10, "drive", 0.5, planner.RiskContext{Weather: "storm", TimeOfDay: "evening_peak"})
	if storm.Total <= clear.Total {
		t.Errorf("storm at peak must cost more: clear=%v storm=%v", clear.Total, storm.Total)
	}
}

func TestComputeTime_UnknownModeFallsBackToTaxi(t *testing.T) {
	unknown := ComputeTime(10, "rocket", 0.5, planner.RiskContext{})
	taxi := ComputeTime(10, "taxi", 0.5, planner.RiskContext{})
	if unknown.Total != taxi.Total {
		t.Errorf("unknown mode should use taxi config: %v vs %v", unknown.Total, taxi.Total)
	}
}

func TestBuildPlan(t *testing.T) {
	origin := &planner.LocationCandidate{Text: "虹桥商务区", Level: planner.LevelDistrict}
	dest := &planner.LocationCandidate{Text: "虹桥机场T2", Level: planner.LevelDistrict}
	plan := BuildPlan(origin, dest, 0.5, nil, planner.RiskContext{})
	if plan.DistanceKm != 12.0 {
		t.Errorf("distance = %v, want 12.0", plan.DistanceKm)
	}
	if len(plan.Modes) == 0 {
		t.Fatal("expected mode estimates")
	}
	if plan.Recommended == "" {
		t.Error("plan must pick a recommended mode")
	}
	// 推荐方式应为耗时最短者
	for _, m := range plan.Modes {
		if m.Mode == plan.Recommended {
			for _, other := range plan.Modes {
				if other.Minutes < m.Minutes {
					t.Errorf("recommended %s (%v min) slower than %s (%v min)",
						m.Mode, m.Minutes, other.Mode, other.Minutes)
				}
			}
		}
	}
}

func TestSummarize(t *testing.T) {
	if got := Summarize(nil); got != "尚未生成通勤估算。" {
		t.Errorf("nil plan summary = %q", got)
	}
	plan := &planner.CommutePlan{
		DistanceKm:    12,
		BufferMinutes: 10,
		Modes: []planner.ModeEstimate{
			{Mode: "metro", Minutes: 50},
			{Mode: "taxi", Minutes: 45},
		},
	}
	got := Summarize(plan)
	if got == "" || got == "尚未生成通勤估算。" {
		t.Errorf("unexpected summary: %q", got)
	}
}
