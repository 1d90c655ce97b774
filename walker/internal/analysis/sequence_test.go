package analysis

import (
	"strings"
	"testing"

	"github.com/Krimson/ai-walker/walker/internal/advisory"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
)

func image(detections ...obstacle.Detection) FrameInput {
	return FrameInput{Width: 640, Height: 480, Detections: detections}
}

func TestAnalyzeImages(t *testing.T) {
	a := NewAnalyzer(0)

	result := a.AnalyzeImages([]FrameInput{
		image(detection("car", 0.9, boxCenterClose)),
		image(detection("car", 0.8, boxCenterClose), detection("stairs", 0.9, boxRightFar)),
		image(detection("construction barrier", 0.9, boxCenterClose)),
	})

	if result.Error != "" {
		t.Fatalf("Unexpected error: %s", result.Error)
	}
	if result.AnalysisCount != 3 {
		t.Errorf("Expected 3 analyzed images, got %d", result.AnalysisCount)
	}

	if len(result.Obstacles) != 3 {
		t.Fatalf("Expected 3 merged obstacles, got %d: %+v", len(result.Obstacles), result.Obstacles)
	}
	want := []obstacle.Category{obstacle.CategoryVehicle, obstacle.CategoryStairs, obstacle.CategoryConstruction}
	for i, c := range want {
		if result.Obstacles[i].Category != c {
			t.Errorf("Obstacle %d: expected %s, got %s", i, c, result.Obstacles[i].Category)
		}
	}

	// Состояние дороги - с последнего снимка
	if result.RoadCondition != "Construction area detected, proceed with caution" {
		t.Errorf("Unexpected road condition: %q", result.RoadCondition)
	}
	if result.Guidance.Action != advisory.ActionTurn || result.Guidance.Direction != advisory.HeadingLeft {
		t.Errorf("Expected turn left, got %+v", result.Guidance)
	}
	if result.NavigationInfo != "Avoid the vehicle by moving left." {
		t.Errorf("Unexpected navigation info: %q", result.NavigationInfo)
	}
	if len(result.SafetyNotices) != 3 || !strings.Contains(result.SafetyNotices[0], "construction") {
		t.Errorf("Expected construction notice first, got %v", result.SafetyNotices)
	}
}

func TestAnalyzeImages_Limit(t *testing.T) {
	a := NewAnalyzer(0)

	inputs := make([]FrameInput, 0, MaxImages+1)
	for i := 0; i < MaxImages; i++ {
		inputs = append(inputs, image(detection("car", 0.9, boxLeftMedium)))
	}
	inputs = append(inputs, image(detection("pothole", 0.9, boxCenterClose)))

	result := a.AnalyzeImages(inputs)

	if result.AnalysisCount != MaxImages {
		t.Errorf("Expected %d analyzed images, got %d", MaxImages, result.AnalysisCount)
	}
	if len(result.Obstacles) != 1 || result.Obstacles[0].Category != obstacle.CategoryVehicle {
		t.Errorf("Expected only the left vehicle, got %+v", result.Obstacles)
	}
	if result.RoadCondition != "Vehicles detected, be aware of traffic" {
		t.Errorf("Unexpected road condition: %q", result.RoadCondition)
	}
}

func TestAnalyzeImages_Empty(t *testing.T) {
	result := NewAnalyzer(0).AnalyzeImages(nil)

	if result.Error != ErrNoImages {
		t.Errorf("Expected %q, got %q", ErrNoImages, result.Error)
	}
	if result.Obstacles == nil || result.SafetyNotices == nil {
		t.Error("Expected empty slices, got nil")
	}
}

func TestSequenceAnalysis_PromptSummary(t *testing.T) {
	result := NewAnalyzer(0).AnalyzeImages([]FrameInput{image(detection("car", 0.9, boxLeftMedium))})

	summary := result.PromptSummary()
	if !strings.HasPrefix(summary, "Road condition: Vehicles detected, be aware of traffic\nObstacles:\n- vehicle (Distance: 3.0 meters)") {
		t.Errorf("Unexpected prompt summary: %q", summary)
	}
}
