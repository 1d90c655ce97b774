package video

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Krimson/ai-walker/walker/internal/advisory"
	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/temporal"
)

const (
	maxKeyObstacles     = 5
	minKeyOccurrences   = 2
	multiObstacleFrames = 2
)

// ErrNoFrames возвращается в Report.Error для пустой последовательности
const ErrNoFrames = "No frames provided"

type Summary struct {
	TotalFrames      int               `json:"total_frames"`
	AnalyzedFrames   int               `json:"analyzed_frames"`
	VideoDuration    float64           `json:"video_duration"`
	AverageRiskLevel obstacle.Severity `json:"average_risk_level"`
}

// Advice - рекомендации по всему видео
type Advice struct {
	PrimaryAdvice           string   `json:"primary_advice"`
	SpecificRecommendations []string `json:"specific_recommendations"`
	SafetyWarnings          []string `json:"safety_warnings"`
	OverallAssessment       string   `json:"overall_assessment"`
	ActionItems             []string `json:"action_items"`
}

// KeyObstacle - категория, которая повторяется в кадрах
type KeyObstacle struct {
	Type            obstacle.Category `json:"type"`
	Frequency       int               `json:"frequency"`
	AverageDistance float64           `json:"average_distance"`
	Severity        obstacle.Severity `json:"severity"`
	Description     string            `json:"description"`
}

// Report - полный анализ последовательности кадров
type Report struct {
	VideoSummary              Summary                  `json:"video_summary"`
	TemporalAnalysis          temporal.Result          `json:"temporal_analysis"`
	FrameAnalyses             []analysis.FrameAnalysis `json:"frame_analyses"`
	VideoAdvice               Advice                   `json:"video_advice"`
	KeyObstacles              []KeyObstacle            `json:"key_obstacles"`
	NavigationRecommendations []string                 `json:"navigation_recommendations"`
	Notices                   []string                 `json:"notices"`
	Error                     string                   `json:"error,omitempty"`
}

// Timestamp распределяет n кадров равномерно по duration секунд.
// Без длительности используется номер кадра.
func Timestamp(i, n int, duration float64) float64 {
	if duration > 0 && n > 0 {
		return float64(i) * duration / float64(n)
	}
	return float64(i)
}

// AnalyzeSequence анализирует кадры по порядку и строит отчёт. Номера и
// время кадров из записи сохраняются; если их нет (все нули), номера
// проставляются по порядку, а время распределяется по duration.
func AnalyzeSequence(a *analysis.Analyzer, inputs []analysis.FrameInput, duration float64) Report {
	keepIndexes, keepTimestamps := recordedTiming(inputs)

	frames := make([]analysis.FrameAnalysis, 0, len(inputs))
	for i, in := range inputs {
		if !keepIndexes {
			in.FrameIndex = i
		}
		if !keepTimestamps {
			in.Timestamp = Timestamp(i, len(inputs), duration)
		}
		frames = append(frames, a.Analyze(in))
	}
	return Analyze(frames, duration)
}

func recordedTiming(inputs []analysis.FrameInput) (indexes, timestamps bool) {
	for _, in := range inputs {
		if in.FrameIndex != 0 {
			indexes = true
		}
		if in.Timestamp != 0 {
			timestamps = true
		}
	}
	return indexes, timestamps
}

// Analyze строит отчёт по уже проанализированным кадрам
func Analyze(frames []analysis.FrameAnalysis, duration float64) Report {
	if len(frames) == 0 {
		return Report{Error: ErrNoFrames}
	}

	ta := temporal.Analyze(frames)

	levels := make([]obstacle.Severity, 0, len(frames))
	for _, fa := range frames {
		levels = append(levels, temporal.FrameRisk(fa.Obstacles))
	}
	average := temporal.AverageRisk(levels)

	return Report{
		VideoSummary: Summary{
			TotalFrames:      len(frames),
			AnalyzedFrames:   len(frames),
			VideoDuration:    duration,
			AverageRiskLevel: average,
		},
		TemporalAnalysis: ta,
		FrameAnalyses:    frames,
		VideoAdvice: Advice{
			PrimaryAdvice:           PrimaryAdvice(ta, average),
			SpecificRecommendations: specificRecommendations(ta.MovementPatterns),
			SafetyWarnings:          safetyWarnings(frames, levels, ta.RiskTrend),
			OverallAssessment:       overallAssessment(frames),
			ActionItems:             actionItems(ta),
		},
		KeyObstacles:              KeyObstacles(frames),
		NavigationRecommendations: navigationRecommendations(ta.MovementPatterns),
		Notices:                   notices(ta, frames),
	}
}

func categoryNames(categories []obstacle.Category) string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// PrimaryAdvice: сначала приближающиеся препятствия, потом тренд риска,
// потом средний риск
func PrimaryAdvice(ta temporal.Result, average obstacle.Severity) string {
	if approaching := ta.Approaching(); len(approaching) > 0 {
		return fmt.Sprintf("⚠️ You are approaching %s. Consider changing direction or slowing down.", categoryNames(approaching))
	}

	switch ta.RiskTrend {
	case temporal.TrendIncreasing:
		return "⚠️ Risk level is increasing. Exercise extra caution and consider stopping."
	case temporal.TrendDecreasing:
		return "✅ Risk level is decreasing. You're moving to a safer area."
	}

	switch average {
	case obstacle.SeverityHigh:
		return "🚨 High-risk environment detected. Proceed with extreme caution or find alternative route."
	case obstacle.SeverityMedium:
		return "⚠️ Moderate risk environment. Stay alert and proceed carefully."
	default:
		return "✅ Low-risk environment. You can proceed normally."
	}
}

func specificRecommendations(movements []temporal.Movement) []string {
	var recs []string
	for _, m := range movements {
		switch m.Pattern {
		case temporal.PatternApproaching:
			recs = append(recs, fmt.Sprintf("Slow down when approaching %s", m.Category))
		case temporal.PatternStable:
			recs = append(recs, fmt.Sprintf("Find alternative route around %s", m.Category))
		case temporal.PatternMovingAway:
			recs = append(recs, fmt.Sprintf("Good! You're moving away from %s", m.Category))
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Path appears clear - proceed normally")
	}
	return recs
}

func safetyWarnings(frames []analysis.FrameAnalysis, levels []obstacle.Severity, trend temporal.Trend) []string {
	warnings := []string{}

	var highRisk, crowded int
	for i, fa := range frames {
		if levels[i] == obstacle.SeverityHigh {
			highRisk++
		}
		if len(fa.Obstacles) > multiObstacleFrames {
			crowded++
		}
	}

	if highRisk > 0 {
		warnings = append(warnings, fmt.Sprintf("⚠️ %d high-risk moments detected", highRisk))
	}
	if crowded > 0 {
		warnings = append(warnings, fmt.Sprintf("⚠️ Multiple obstacles detected in %d frames", crowded))
	}
	if trend == temporal.TrendIncreasing {
		warnings = append(warnings, "⚠️ Risk level is trending upward - consider stopping")
	}
	return warnings
}

func overallAssessment(frames []analysis.FrameAnalysis) string {
	var clear int
	for _, fa := range frames {
		if len(fa.Obstacles) == 0 {
			clear++
		}
	}

	pct := float64(clear) / float64(len(frames)) * 100
	switch {
	case pct > 80:
		return "✅ Overall safe path with mostly clear frames"
	case pct > 50:
		return "⚠️ Moderate obstacles detected, proceed with caution"
	default:
		return "🚨 High obstacle density detected, consider alternative route"
	}
}

func actionItems(ta temporal.Result) []string {
	var actions []string
	if len(ta.Approaching()) > 0 {
		actions = append(actions, "STOP and assess the situation", "Look for alternative routes")
	}
	return append(actions,
		"Stay alert and scan your surroundings",
		"Use your mobility aid if available",
		"Ask for assistance if needed",
	)
}

// notices - голосовые оповещения по движению препятствий за всё видео
func notices(ta temporal.Result, frames []analysis.FrameAnalysis) []string {
	byPattern := make(map[temporal.Pattern][]obstacle.Category)
	for _, m := range ta.MovementPatterns {
		byPattern[m.Pattern] = append(byPattern[m.Pattern], m.Category)
	}

	out := []string{}
	if approaching := byPattern[temporal.PatternApproaching]; len(approaching) > 0 {
		kind := advisory.VideoApproaching
		if ta.RiskTrend == temporal.TrendIncreasing {
			kind = advisory.VideoTrendingTowards
		}
		out = append(out, advisory.VideoNotice(kind, approaching...))
	}
	if stable := byPattern[temporal.PatternStable]; len(stable) > 0 {
		out = append(out, advisory.VideoNotice(advisory.VideoStableObstacle, stable...))
	}
	if away := byPattern[temporal.PatternMovingAway]; len(away) > 0 {
		out = append(out, advisory.VideoNotice(advisory.VideoMovingAway, away...))
	}

	var seen, crowded bool
	for _, fa := range frames {
		seen = seen || len(fa.Obstacles) > 0
		crowded = crowded || len(fa.Obstacles) > multiObstacleFrames
	}
	switch {
	case crowded:
		out = append(out, advisory.VideoNotice(advisory.VideoMultipleObstacles))
	case !seen:
		out = append(out, advisory.VideoNotice(advisory.VideoClearPath))
	}
	return out
}

func navigationRecommendations(movements []temporal.Movement) []string {
	var recs []string
	for _, m := range movements {
		switch m.Pattern {
		case temporal.PatternApproaching:
			recs = append(recs, fmt.Sprintf("Change direction to avoid %s", m.Category))
		case temporal.PatternStable:
			recs = append(recs, fmt.Sprintf("Look for alternative route around %s", m.Category))
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Continue on current path")
	}
	return append(recs, "Stay in well-lit areas", "Use pedestrian crossings when available")
}

// KeyObstacles - до пяти категорий, встреченных минимум дважды, самые
// частые первыми. При равенстве - порядок появления.
func KeyObstacles(frames []analysis.FrameAnalysis) []KeyObstacle {
	type tally struct {
		category obstacle.Category
		count    int
		distance float64
		severity obstacle.Severity
	}

	index := make(map[obstacle.Category]int)
	var tallies []tally

	for _, fa := range frames {
		for _, o := range fa.Obstacles {
			i, ok := index[o.Category]
			if !ok {
				i = len(tallies)
				index[o.Category] = i
				tallies = append(tallies, tally{category: o.Category, severity: obstacle.SeverityLow})
			}
			tallies[i].count++
			tallies[i].distance += o.DistanceMeters
			if o.Severity.Score() > tallies[i].severity.Score() {
				tallies[i].severity = o.Severity
			}
		}
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		return tallies[i].count > tallies[j].count
	})

	key := []KeyObstacle{}
	for _, t := range tallies {
		if t.count < minKeyOccurrences {
			continue
		}
		key = append(key, KeyObstacle{
			Type:            t.category,
			Frequency:       t.count,
			AverageDistance: t.distance / float64(t.count),
			Severity:        t.severity,
			Description:     fmt.Sprintf("%s appears in %d frames", t.category, t.count),
		})
		if len(key) == maxKeyObstacles {
			break
		}
	}
	return key
}
