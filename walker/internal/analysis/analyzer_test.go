package analysis

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/Krimson/ai-walker/walker/internal/advisory"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/spatial"
)

func detection(label string, score float64, box spatial.Box) obstacle.Detection {
	return obstacle.Detection{Label: label, Confidence: score, Box: box}
}

// 640x480: left < 211.2, center < 428.8; close < 144, medium < 288
var (
	boxCenterClose = spatial.Box{XMin: 280, YMin: 20, XMax: 360, YMax: 120}
	boxLeftMedium  = spatial.Box{XMin: 20, YMin: 150, XMax: 120, YMax: 250}
	boxRightFar    = spatial.Box{XMin: 500, YMin: 300, XMax: 600, YMax: 460}
)

func TestAnalyze_Empty(t *testing.T) {
	a := NewAnalyzer(0)
	fa := a.Analyze(FrameInput{FrameIndex: 3, Timestamp: 1.5, Width: 640, Height: 480})

	if fa.SceneSummary != "Clear path ahead" {
		t.Errorf("Expected clear path summary, got %q", fa.SceneSummary)
	}
	if fa.RiskLevel != obstacle.SeverityLow {
		t.Errorf("Expected low risk, got %s", fa.RiskLevel)
	}
	if fa.PrimaryObstacle != nil || fa.SpatialInfo.ClosestObstacle != nil {
		t.Error("Expected no primary obstacle")
	}
	if fa.EnvironmentContext != "Safe walking environment" {
		t.Errorf("Unexpected environment context: %q", fa.EnvironmentContext)
	}
	if fa.RoadCondition != "Clear path ahead, road condition is good" {
		t.Errorf("Unexpected road condition: %q", fa.RoadCondition)
	}
	if fa.Guidance.Action != advisory.ActionProceed || fa.Guidance.Confidence != advisory.ConfidenceHigh {
		t.Errorf("Expected proceed/high guidance, got %+v", fa.Guidance)
	}
	if fa.FrameIndex != 3 || fa.Timestamp != 1.5 {
		t.Errorf("Frame index/timestamp not carried over: %d/%f", fa.FrameIndex, fa.Timestamp)
	}
}

func TestAnalyze_ConfidenceFilter(t *testing.T) {
	a := NewAnalyzer(0.3)
	fa := a.Analyze(FrameInput{
		Width:  640,
		Height: 480,
		Detections: []obstacle.Detection{
			detection("car", 0.3, boxLeftMedium),
			detection("car", 0.29, boxLeftMedium),
			detection("car", math.NaN(), boxLeftMedium),
			detection("person", 0.31, boxRightFar),
		},
	})

	if fa.DetectionCount != 4 {
		t.Errorf("Expected 4 raw detections, got %d", fa.DetectionCount)
	}
	if len(fa.Obstacles) != 1 || fa.Obstacles[0].Category != obstacle.CategoryPedestrian {
		t.Fatalf("Expected only the pedestrian to survive, got %+v", fa.Obstacles)
	}
}

func TestAnalyze_Frame(t *testing.T) {
	a := NewAnalyzer(DefaultMinConfidence)
	fa := a.Analyze(FrameInput{
		Width:  640,
		Height: 480,
		Detections: []obstacle.Detection{
			detection("car", 0.9, boxLeftMedium),
			detection("stairs", 0.8, boxCenterClose),
			detection("bench", 0.7, boxRightFar),
		},
	})

	if len(fa.Obstacles) != 3 {
		t.Fatalf("Expected 3 obstacles, got %d", len(fa.Obstacles))
	}
	if fa.SceneSummary != "Obstacles detected ahead: stairs" {
		t.Errorf("Unexpected scene summary: %q", fa.SceneSummary)
	}
	if fa.RiskLevel != obstacle.SeverityHigh {
		t.Errorf("Expected high risk, got %s", fa.RiskLevel)
	}
	if fa.EnvironmentContext != "High-risk environment requiring immediate attention" {
		t.Errorf("Unexpected environment context: %q", fa.EnvironmentContext)
	}
	if fa.RoadCondition != "Stairs detected, look for accessible route" {
		t.Errorf("Unexpected road condition: %q", fa.RoadCondition)
	}
	if fa.Guidance.Action != advisory.ActionTurn || fa.Guidance.Direction != advisory.HeadingRight {
		t.Errorf("Expected turn right (left 1, right 1), got %+v", fa.Guidance)
	}

	if fa.PrimaryObstacle == nil {
		t.Fatal("Expected primary obstacle")
	}
	if fa.PrimaryObstacle != &fa.Obstacles[1] {
		t.Error("Primary obstacle must point into the obstacle collection")
	}
	if fa.PrimaryObstacle.DistanceMeters != spatial.DistanceClose {
		t.Errorf("Expected closest at 1.0m, got %.1f", fa.PrimaryObstacle.DistanceMeters)
	}
	if len(fa.SpatialInfo.Left) != 1 || len(fa.SpatialInfo.Center) != 1 || len(fa.SpatialInfo.Right) != 1 {
		t.Errorf("Unexpected spatial grouping: %+v", fa.SpatialInfo.Buckets)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := NewAnalyzer(0)
	in := FrameInput{
		Width:  640,
		Height: 480,
		Detections: []obstacle.Detection{
			detection("truck", 0.9, boxLeftMedium),
			detection("pothole", 0.6, boxCenterClose),
		},
	}

	first, second := a.Analyze(in), a.Analyze(in)
	if !reflect.DeepEqual(first.Obstacles, second.Obstacles) || first.Guidance != second.Guidance {
		t.Error("Expected identical results for identical detections")
	}
}

func TestDescribe_SceneSummaries(t *testing.T) {
	left := obstacle.Obstacle{Category: obstacle.CategoryVehicle, Direction: spatial.DirectionLeft, DistanceMeters: 3}
	right := obstacle.Obstacle{Category: obstacle.CategoryNature, Direction: spatial.DirectionRight, DistanceMeters: 5}
	right2 := obstacle.Obstacle{Category: obstacle.CategoryFurniture, Direction: spatial.DirectionRight, DistanceMeters: 5}

	tests := []struct {
		in   []obstacle.Obstacle
		want string
	}{
		{[]obstacle.Obstacle{left, right, right2}, "Obstacles on both sides: 1 on left, 2 on right"},
		{[]obstacle.Obstacle{left}, "Obstacles on left side: vehicle"},
		{[]obstacle.Obstacle{right, right2}, "Obstacles on right side: nature, furniture"},
	}
	for _, tt := range tests {
		if got := Describe(tt.in).SceneSummary; got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestRoadCondition(t *testing.T) {
	tests := []struct {
		categories []obstacle.Category
		want       string
	}{
		{[]obstacle.Category{obstacle.CategoryVehicle, obstacle.CategoryConstruction}, "Construction area detected, proceed with caution"},
		{[]obstacle.Category{obstacle.CategoryVehicle, obstacle.CategoryStairs}, "Stairs detected, look for accessible route"},
		{[]obstacle.Category{obstacle.CategoryPedestrian, obstacle.CategoryVehicle}, "Vehicles detected, be aware of traffic"},
		{[]obstacle.Category{obstacle.CategoryNature}, "Minor obstacles detected, proceed with normal caution"},
	}
	for _, tt := range tests {
		var obstacles []obstacle.Obstacle
		for _, c := range tt.categories {
			obstacles = append(obstacles, obstacle.Obstacle{Category: c})
		}
		if got := RoadCondition(obstacles); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestFrameAnalysis_JSONShape(t *testing.T) {
	fa := Describe([]obstacle.Obstacle{
		{Category: obstacle.CategoryStairs, Direction: spatial.DirectionCenter, DistanceMeters: 1, Severity: obstacle.SeverityHigh},
	})
	data, err := json.Marshal(fa)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	text := string(data)
	for _, key := range []string{`"scene_summary"`, `"spatial_info":{"left_obstacles":[]`, `"center_obstacles":[{`, `"closest_obstacle":{`, `"guidance":{"action":"turn"`} {
		if !strings.Contains(text, key) {
			t.Errorf("Expected %s in %s", key, text)
		}
	}
}
