package temporal

import (
	"math"
	"testing"

	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/spatial"
)

func frameWith(index int, ts float64, obstacles ...obstacle.Obstacle) analysis.FrameAnalysis {
	fa := analysis.Describe(obstacles)
	fa.FrameIndex = index
	fa.Timestamp = ts
	return fa
}

func vehicleAt(distance float64) obstacle.Obstacle {
	return obstacle.Obstacle{
		Category:       obstacle.CategoryVehicle,
		Direction:      spatial.DirectionCenter,
		DistanceMeters: distance,
		Severity:       obstacle.DetermineSeverity(obstacle.CategoryVehicle, distance),
	}
}

func TestClassifyMovement(t *testing.T) {
	tests := []struct {
		name      string
		distances []float64
		want      Pattern
		avg       float64
	}{
		{"approaching", []float64{5, 4, 3, 2}, PatternApproaching, -1.0},
		{"reversed", []float64{2, 3, 4, 5}, PatternMovingAway, 1.0},
		{"stable", []float64{3, 3, 3}, PatternStable, 0},
		{"threshold is stable", []float64{3, 2.5}, PatternStable, -0.5},
		{"single sample", []float64{3}, PatternStable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, avg := ClassifyMovement(tt.distances)
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
			if math.Abs(avg-tt.avg) > 1e-9 {
				t.Errorf("Expected avg %.2f, got %.2f", tt.avg, avg)
			}
		})
	}
}

func TestRiskTrend(t *testing.T) {
	score := map[int]obstacle.Severity{1: obstacle.SeverityLow, 2: obstacle.SeverityMedium, 3: obstacle.SeverityHigh}
	levels := func(scores ...int) []obstacle.Severity {
		out := make([]obstacle.Severity, len(scores))
		for i, s := range scores {
			out[i] = score[s]
		}
		return out
	}

	tests := []struct {
		scores []int
		want   Trend
	}{
		{[]int{1, 1, 1, 3, 3, 3}, TrendIncreasing},
		{[]int{3, 3, 3, 1, 1, 1}, TrendDecreasing},
		{[]int{1, 2, 1, 2, 1, 2}, TrendStable},
		{[]int{1, 3}, TrendInsufficientData},
		{[]int{}, TrendInsufficientData},
		// окна пересекаются при трёх кадрах
		{[]int{1, 2, 3}, TrendStable},
	}

	for _, tt := range tests {
		if got := RiskTrend(levels(tt.scores...)); got != tt.want {
			t.Errorf("RiskTrend(%v): expected %s, got %s", tt.scores, tt.want, got)
		}
	}
}

func TestFrameRisk(t *testing.T) {
	if got := FrameRisk(nil); got != obstacle.SeverityLow {
		t.Errorf("Expected low for no obstacles, got %s", got)
	}

	// high at 1m: 3 * 0.8 = 2.4
	high := obstacle.Obstacle{Severity: obstacle.SeverityHigh, DistanceMeters: 1}
	if got := FrameRisk([]obstacle.Obstacle{high}); got != obstacle.SeverityHigh {
		t.Errorf("Expected high, got %s", got)
	}

	// (2.4 + 0) / 2 = 1.2
	far := obstacle.Obstacle{Severity: obstacle.SeverityLow, DistanceMeters: 5}
	if got := FrameRisk([]obstacle.Obstacle{high, far}); got != obstacle.SeverityMedium {
		t.Errorf("Expected medium, got %s", got)
	}

	// дальше 5 м близость обнуляется
	beyond := obstacle.Obstacle{Severity: obstacle.SeverityHigh, DistanceMeters: 9}
	if got := FrameRiskScore([]obstacle.Obstacle{beyond}); got != 0 {
		t.Errorf("Expected zero score, got %f", got)
	}
}

func TestAverageRisk(t *testing.T) {
	h, m, l := obstacle.SeverityHigh, obstacle.SeverityMedium, obstacle.SeverityLow

	tests := []struct {
		levels []obstacle.Severity
		want   obstacle.Severity
	}{
		{[]obstacle.Severity{h, l, l}, h},
		{[]obstacle.Severity{h, l, l, l}, l},
		{[]obstacle.Severity{m, m, l, l}, m},
		{[]obstacle.Severity{m, l, l, l}, l},
		{nil, l},
	}
	for _, tt := range tests {
		if got := AverageRisk(tt.levels); got != tt.want {
			t.Errorf("AverageRisk(%v): expected %s, got %s", tt.levels, tt.want, got)
		}
	}
}

func TestAnalyze_InsufficientFrames(t *testing.T) {
	r := Analyze([]analysis.FrameAnalysis{frameWith(0, 0)})
	if r.Error != ErrInsufficientFrames {
		t.Errorf("Expected insufficient frames error, got %q", r.Error)
	}
}

func TestAnalyze_ApproachingVehicle(t *testing.T) {
	frames := []analysis.FrameAnalysis{
		frameWith(0, 0, vehicleAt(5)),
		frameWith(1, 1, vehicleAt(4)),
		frameWith(2, 2, vehicleAt(3)),
		frameWith(3, 3, vehicleAt(2)),
	}

	r := Analyze(frames)

	if r.Error != "" {
		t.Fatalf("Unexpected error: %s", r.Error)
	}
	if len(r.MovementPatterns) != 1 {
		t.Fatalf("Expected 1 movement pattern, got %d", len(r.MovementPatterns))
	}
	m := r.MovementPatterns[0]
	if m.Pattern != PatternApproaching || m.AvgDistanceChange != -1.0 {
		t.Errorf("Expected approaching with -1.0, got %s with %.2f", m.Pattern, m.AvgDistanceChange)
	}
	if m.InitialDistance != 5 || m.FinalDistance != 2 || m.TrackLength != 4 {
		t.Errorf("Unexpected movement details: %+v", m)
	}
	if got := r.Approaching(); len(got) != 1 || got[0] != obstacle.CategoryVehicle {
		t.Errorf("Expected vehicle approaching, got %v", got)
	}
	if len(r.RiskTrends) != 4 {
		t.Errorf("Expected 4 risk points, got %d", len(r.RiskTrends))
	}
	if r.TemporalSummary != "Detected 1 types of obstacles. Risk level is stable" {
		t.Errorf("Unexpected summary: %q", r.TemporalSummary)
	}
}

func TestAnalyze_ReversedSequenceMovesAway(t *testing.T) {
	frames := []analysis.FrameAnalysis{
		frameWith(0, 0, vehicleAt(2)),
		frameWith(1, 1, vehicleAt(3)),
		frameWith(2, 2, vehicleAt(4)),
		frameWith(3, 3, vehicleAt(5)),
	}
	r := Analyze(frames)
	if r.MovementPatterns[0].Pattern != PatternMovingAway {
		t.Errorf("Expected moving_away, got %s", r.MovementPatterns[0].Pattern)
	}
}

func TestAnalyze_OrdersByTimestamp(t *testing.T) {
	frames := []analysis.FrameAnalysis{
		frameWith(3, 3, vehicleAt(2)),
		frameWith(0, 0, vehicleAt(5)),
		frameWith(2, 2, vehicleAt(3)),
		frameWith(1, 1, vehicleAt(4)),
	}
	r := Analyze(frames)
	if r.MovementPatterns[0].Pattern != PatternApproaching {
		t.Errorf("Expected approaching after ordering, got %s", r.MovementPatterns[0].Pattern)
	}
	if frames[0].FrameIndex != 3 {
		t.Error("Input slice must not be reordered")
	}
}

func TestAnalyze_TracksFirstSeenOrder(t *testing.T) {
	bench := obstacle.Obstacle{Category: obstacle.CategoryFurniture, Direction: spatial.DirectionLeft, DistanceMeters: 3, Severity: obstacle.SeverityLow}
	tree := obstacle.Obstacle{Category: obstacle.CategoryNature, Direction: spatial.DirectionRight, DistanceMeters: 5, Severity: obstacle.SeverityLow}

	r := Analyze([]analysis.FrameAnalysis{
		frameWith(0, 0, tree),
		frameWith(1, 1, bench, tree),
		frameWith(2, 2, bench),
	})

	if len(r.ObstacleTracks) != 2 {
		t.Fatalf("Expected 2 tracks, got %d", len(r.ObstacleTracks))
	}
	if r.ObstacleTracks[0].Category != obstacle.CategoryNature || r.ObstacleTracks[1].Category != obstacle.CategoryFurniture {
		t.Errorf("Tracks out of first-seen order: %s, %s", r.ObstacleTracks[0].Category, r.ObstacleTracks[1].Category)
	}
	if r.MovementPatterns[0].Category != obstacle.CategoryNature {
		t.Errorf("Movement patterns out of first-seen order: %s", r.MovementPatterns[0].Category)
	}
}

func TestAnalyze_ClearVideo(t *testing.T) {
	r := Analyze([]analysis.FrameAnalysis{frameWith(0, 0), frameWith(1, 1), frameWith(2, 2)})
	if r.TemporalSummary != "Clear path throughout the video" {
		t.Errorf("Unexpected summary: %q", r.TemporalSummary)
	}
	if r.RiskTrend != TrendStable {
		t.Errorf("Expected stable trend, got %s", r.RiskTrend)
	}
}

func TestSummary(t *testing.T) {
	if got := Summary(2, TrendIncreasing); got != "Detected 2 types of obstacles. Risk level is increasing" {
		t.Errorf("Unexpected summary: %q", got)
	}
	if got := Summary(1, TrendInsufficientData); got != "Detected 1 types of obstacles. Risk level is stable" {
		t.Errorf("Unexpected summary: %q", got)
	}
}
