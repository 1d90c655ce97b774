package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/Krimson/ai-walker/walker/internal/advisory"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/spatial"
)

// Детекции с уверенностью не выше порога отбрасываются
const DefaultMinConfidence = 0.3

// FrameInput - детекции одного кадра
type FrameInput struct {
	FrameIndex int                  `json:"frame_index"`
	Timestamp  float64              `json:"timestamp"`
	Width      float64              `json:"image_width"`
	Height     float64              `json:"image_height"`
	Detections []obstacle.Detection `json:"detections"`
}

type SpatialInfo struct {
	advisory.Buckets
	ClosestObstacle *obstacle.Obstacle `json:"closest_obstacle"`
}

// FrameAnalysis - результат анализа кадра, после создания не меняется
type FrameAnalysis struct {
	FrameIndex         int                 `json:"frame_index"`
	Timestamp          float64             `json:"timestamp"`
	SceneSummary       string              `json:"scene_summary"`
	Obstacles          []obstacle.Obstacle `json:"obstacles"`
	RiskLevel          obstacle.Severity   `json:"risk_level"`
	PrimaryObstacle    *obstacle.Obstacle  `json:"primary_obstacle"`
	SpatialInfo        SpatialInfo         `json:"spatial_info"`
	EnvironmentContext string              `json:"environment_context"`
	RoadCondition      string              `json:"road_condition"`
	DetectionCount     int                 `json:"detection_count"`
	Guidance           advisory.Decision   `json:"guidance"`
}

type Analyzer struct {
	minConfidence float64
}

// NewAnalyzer создает анализатор; порог <= 0 заменяется на DefaultMinConfidence
func NewAnalyzer(minConfidence float64) *Analyzer {
	if minConfidence <= 0 || math.IsNaN(minConfidence) {
		minConfidence = DefaultMinConfidence
	}
	return &Analyzer{minConfidence: minConfidence}
}

func (a *Analyzer) MinConfidence() float64 {
	return a.minConfidence
}

// Analyze классифицирует детекции, оценивает положение и принимает решение по кадру
func (a *Analyzer) Analyze(in FrameInput) FrameAnalysis {
	obstacles := make([]obstacle.Obstacle, 0, len(in.Detections))
	for _, det := range in.Detections {
		if !(det.Confidence > a.minConfidence) {
			continue
		}
		pos := spatial.Resolve(det.Box, in.Width, in.Height)
		obstacles = append(obstacles, obstacle.New(det, pos))
	}

	fa := Describe(obstacles)
	fa.FrameIndex = in.FrameIndex
	fa.Timestamp = in.Timestamp
	fa.DetectionCount = len(in.Detections)
	return fa
}

// Describe строит анализ кадра по готовым препятствиям.
// Срез после вызова принадлежит результату.
func Describe(obstacles []obstacle.Obstacle) FrameAnalysis {
	if obstacles == nil {
		obstacles = []obstacle.Obstacle{}
	}

	buckets := advisory.Bucket(obstacles)
	closest := closestObstacle(obstacles)

	return FrameAnalysis{
		SceneSummary:       sceneSummary(buckets),
		Obstacles:          obstacles,
		RiskLevel:          riskLevel(obstacles),
		PrimaryObstacle:    closest,
		SpatialInfo:        SpatialInfo{Buckets: buckets, ClosestObstacle: closest},
		EnvironmentContext: environmentContext(obstacles),
		RoadCondition:      RoadCondition(obstacles),
		DetectionCount:     len(obstacles),
		Guidance:           advisory.Decide(obstacles),
	}
}

// closestObstacle указывает внутрь obstacles; при равных расстояниях первое
func closestObstacle(obstacles []obstacle.Obstacle) *obstacle.Obstacle {
	if len(obstacles) == 0 {
		return nil
	}
	idx := 0
	for i := 1; i < len(obstacles); i++ {
		if obstacles[i].DistanceMeters < obstacles[idx].DistanceMeters {
			idx = i
		}
	}
	return &obstacles[idx]
}

func riskLevel(obstacles []obstacle.Obstacle) obstacle.Severity {
	return obstacle.MaxSeverity(obstacles)
}

func categoryList(obstacles []obstacle.Obstacle) string {
	names := make([]string, 0, len(obstacles))
	for _, o := range obstacles {
		names = append(names, string(o.Category))
	}
	return strings.Join(names, ", ")
}

func sceneSummary(b advisory.Buckets) string {
	switch {
	case len(b.Center) > 0:
		return "Obstacles detected ahead: " + categoryList(b.Center)
	case len(b.Left) > 0 && len(b.Right) > 0:
		return fmt.Sprintf("Obstacles on both sides: %d on left, %d on right", len(b.Left), len(b.Right))
	case len(b.Left) > 0:
		return "Obstacles on left side: " + categoryList(b.Left)
	case len(b.Right) > 0:
		return "Obstacles on right side: " + categoryList(b.Right)
	default:
		return "Clear path ahead"
	}
}

func environmentContext(obstacles []obstacle.Obstacle) string {
	if len(obstacles) == 0 {
		return "Safe walking environment"
	}
	switch riskLevel(obstacles) {
	case obstacle.SeverityHigh:
		return "High-risk environment requiring immediate attention"
	case obstacle.SeverityMedium:
		return "Moderate-risk environment requiring caution"
	default:
		return "Low-risk environment, proceed normally"
	}
}

// RoadCondition - состояние дороги по главному классу препятствий
func RoadCondition(obstacles []obstacle.Obstacle) string {
	if len(obstacles) == 0 {
		return "Clear path ahead, road condition is good"
	}

	seen := make(map[obstacle.Category]bool)
	for _, o := range obstacles {
		seen[o.Category] = true
	}

	switch {
	case seen[obstacle.CategoryConstruction]:
		return "Construction area detected, proceed with caution"
	case seen[obstacle.CategoryStairs]:
		return "Stairs detected, look for accessible route"
	case seen[obstacle.CategoryVehicle]:
		return "Vehicles detected, be aware of traffic"
	default:
		return "Minor obstacles detected, proceed with normal caution"
	}
}
