package temporal

import (
	"fmt"
	"sort"

	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/spatial"
)

// Pattern - как меняется расстояние до категории препятствий
type Pattern string

const (
	PatternApproaching Pattern = "approaching"
	PatternMovingAway  Pattern = "moving_away"
	PatternStable      Pattern = "stable"
)

type Trend string

const (
	TrendIncreasing       Trend = "increasing"
	TrendDecreasing       Trend = "decreasing"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
)

const (
	movementThreshold = 0.5
	trendThreshold    = 0.5
	trendWindow       = 3

	frameRiskHigh   = 2.0
	frameRiskMedium = 1.0
	maxRiskDistance = 5.0

	// Меньше кадров - анализ по времени не строится
	MinFrames = 2
)

const ErrInsufficientFrames = "Insufficient frames for temporal analysis"

// Sample - наблюдение категории в одном кадре
type Sample struct {
	Frame     int               `json:"frame"`
	Timestamp float64           `json:"timestamp"`
	Distance  float64           `json:"distance"`
	Direction spatial.Direction `json:"direction"`
	Severity  obstacle.Severity `json:"severity"`
}

type Track struct {
	Category obstacle.Category `json:"type"`
	Samples  []Sample          `json:"samples"`
}

// Movement - характер движения для трека минимум из двух наблюдений
type Movement struct {
	Category          obstacle.Category `json:"type"`
	Pattern           Pattern           `json:"pattern"`
	AvgDistanceChange float64           `json:"avg_distance_change"`
	InitialDistance   float64           `json:"initial_distance"`
	FinalDistance     float64           `json:"final_distance"`
	TrackLength       int               `json:"track_length"`
}

type RiskPoint struct {
	Frame     int               `json:"frame"`
	Timestamp float64           `json:"timestamp"`
	RiskLevel obstacle.Severity `json:"risk_level"`
}

// Result - анализ последовательности кадров по времени. Треки и паттерны
// идут в порядке первого появления категории.
type Result struct {
	ObstacleTracks   []Track     `json:"obstacle_tracks,omitempty"`
	RiskTrends       []RiskPoint `json:"risk_trends,omitempty"`
	MovementPatterns []Movement  `json:"movement_patterns,omitempty"`
	RiskTrend        Trend       `json:"risk_trend,omitempty"`
	TemporalSummary  string      `json:"temporal_summary,omitempty"`
	Error            string      `json:"error,omitempty"`
}

func (r Result) Approaching() []obstacle.Category {
	var categories []obstacle.Category
	for _, m := range r.MovementPatterns {
		if m.Pattern == PatternApproaching {
			categories = append(categories, m.Category)
		}
	}
	return categories
}

// Analyze строит треки, паттерны движения и тренд риска. Перед построением
// кадры сортируются по времени, затем по номеру; входной срез не меняется.
func Analyze(frames []analysis.FrameAnalysis) Result {
	if len(frames) < MinFrames {
		return Result{Error: ErrInsufficientFrames}
	}

	ordered := make([]analysis.FrameAnalysis, len(frames))
	copy(ordered, frames)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Timestamp != ordered[j].Timestamp {
			return ordered[i].Timestamp < ordered[j].Timestamp
		}
		return ordered[i].FrameIndex < ordered[j].FrameIndex
	})

	tracks := BuildTracks(ordered)

	risks := make([]RiskPoint, 0, len(ordered))
	levels := make([]obstacle.Severity, 0, len(ordered))
	for _, fa := range ordered {
		level := FrameRisk(fa.Obstacles)
		risks = append(risks, RiskPoint{Frame: fa.FrameIndex, Timestamp: fa.Timestamp, RiskLevel: level})
		levels = append(levels, level)
	}

	trend := RiskTrend(levels)

	return Result{
		ObstacleTracks:   tracks,
		RiskTrends:       risks,
		MovementPatterns: Movements(tracks),
		RiskTrend:        trend,
		TemporalSummary:  Summary(len(tracks), trend),
	}
}

// BuildTracks группирует наблюдения по категориям в порядке появления
func BuildTracks(frames []analysis.FrameAnalysis) []Track {
	index := make(map[obstacle.Category]int)
	var tracks []Track

	for _, fa := range frames {
		for _, o := range fa.Obstacles {
			i, ok := index[o.Category]
			if !ok {
				i = len(tracks)
				index[o.Category] = i
				tracks = append(tracks, Track{Category: o.Category})
			}
			tracks[i].Samples = append(tracks[i].Samples, Sample{
				Frame:     fa.FrameIndex,
				Timestamp: fa.Timestamp,
				Distance:  o.DistanceMeters,
				Direction: o.Direction,
				Severity:  o.Severity,
			})
		}
	}
	return tracks
}

func Movements(tracks []Track) []Movement {
	var movements []Movement
	for _, tr := range tracks {
		if len(tr.Samples) < 2 {
			continue
		}

		distances := make([]float64, len(tr.Samples))
		for i, s := range tr.Samples {
			distances[i] = s.Distance
		}
		pattern, avg := ClassifyMovement(distances)

		movements = append(movements, Movement{
			Category:          tr.Category,
			Pattern:           pattern,
			AvgDistanceChange: avg,
			InitialDistance:   distances[0],
			FinalDistance:     distances[len(distances)-1],
			TrackLength:       len(distances),
		})
	}
	return movements
}

// ClassifyMovement возвращает паттерн и среднее изменение расстояния между
// соседними кадрами. Меньше двух значений - stable.
func ClassifyMovement(distances []float64) (Pattern, float64) {
	if len(distances) < 2 {
		return PatternStable, 0
	}

	var sum float64
	for i := 1; i < len(distances); i++ {
		sum += distances[i] - distances[i-1]
	}
	avg := sum / float64(len(distances)-1)

	switch {
	case avg < -movementThreshold:
		return PatternApproaching, avg
	case avg > movementThreshold:
		return PatternMovingAway, avg
	default:
		return PatternStable, avg
	}
}

// FrameRiskScore - средний вес опасности с учётом близости
func FrameRiskScore(obstacles []obstacle.Obstacle) float64 {
	if len(obstacles) == 0 {
		return 0
	}

	var total float64
	for _, o := range obstacles {
		proximity := (maxRiskDistance - o.DistanceMeters) / maxRiskDistance
		if proximity < 0 {
			proximity = 0
		}
		total += float64(o.Severity.Score()) * proximity
	}
	return total / float64(len(obstacles))
}

func FrameRisk(obstacles []obstacle.Obstacle) obstacle.Severity {
	score := FrameRiskScore(obstacles)
	switch {
	case score > frameRiskHigh:
		return obstacle.SeverityHigh
	case score > frameRiskMedium:
		return obstacle.SeverityMedium
	default:
		return obstacle.SeverityLow
	}
}

// RiskTrend сравнивает среднее трёх последних оценок с тремя первыми
func RiskTrend(levels []obstacle.Severity) Trend {
	if len(levels) < trendWindow {
		return TrendInsufficientData
	}

	var early, recent float64
	for i := 0; i < trendWindow; i++ {
		early += float64(levels[i].Score())
		recent += float64(levels[len(levels)-trendWindow+i].Score())
	}
	early /= trendWindow
	recent /= trendWindow

	switch {
	case recent > early+trendThreshold:
		return TrendIncreasing
	case recent < early-trendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// AverageRisk - средний риск по всем кадрам
func AverageRisk(levels []obstacle.Severity) obstacle.Severity {
	if len(levels) == 0 {
		return obstacle.SeverityLow
	}

	var high, medium int
	for _, l := range levels {
		switch l {
		case obstacle.SeverityHigh:
			high++
		case obstacle.SeverityMedium:
			medium++
		}
	}

	total := float64(len(levels))
	switch {
	case float64(high)/total > 0.3:
		return obstacle.SeverityHigh
	case float64(medium)/total > 0.4:
		return obstacle.SeverityMedium
	default:
		return obstacle.SeverityLow
	}
}

func Summary(categories int, trend Trend) string {
	if categories == 0 {
		return "Clear path throughout the video"
	}

	direction := "stable"
	switch trend {
	case TrendIncreasing:
		direction = "increasing"
	case TrendDecreasing:
		direction = "decreasing"
	}
	return fmt.Sprintf("Detected %d types of obstacles. Risk level is %s", categories, direction)
}
