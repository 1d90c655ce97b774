package advisory

import (
	"fmt"
	"strings"

	"github.com/Krimson/ai-walker/walker/internal/obstacle"
)

// Предупреждения по уровню опасности. Подстановки: {obstacle}, {direction}, {distance}
var safetyTemplates = map[obstacle.Severity][]string{
	obstacle.SeverityHigh: {
		"⚠️ WARNING: {obstacle} detected {direction} at {distance}. Please STOP immediately and find an alternative route.",
		"🚨 DANGER: {obstacle} {direction} at {distance}. Do not proceed, seek assistance.",
		"⚠️ CRITICAL: {obstacle} blocking path {direction}. Stop and wait for guidance.",
	},
	obstacle.SeverityMedium: {
		"⚠️ CAUTION: {obstacle} {direction} at {distance}. Proceed with extreme care.",
		"⚠️ ATTENTION: {obstacle} detected {direction}. Slow down and be careful.",
		"⚠️ WARNING: {obstacle} {direction} at {distance}. Exercise caution.",
	},
	obstacle.SeverityLow: {
		"💡 NOTICE: {obstacle} {direction} at {distance}. Be aware and avoid if possible.",
		"💡 TIP: {obstacle} {direction} at {distance}. Proceed normally but stay alert.",
		"💡 INFO: {obstacle} {direction} at {distance}. No immediate danger.",
	},
}

type NavigationKind string

const (
	NavigationAvoid            NavigationKind = "avoid"
	NavigationWait             NavigationKind = "wait"
	NavigationFindAlternative  NavigationKind = "find_alternative"
	NavigationProceedCarefully NavigationKind = "proceed_carefully"
	NavigationStop             NavigationKind = "stop"
)

var navigationTemplates = map[NavigationKind]string{
	NavigationAvoid:            "Avoid the {obstacle} by moving {direction}.",
	NavigationWait:             "Wait for the {obstacle} to clear before proceeding.",
	NavigationFindAlternative:  "Look for an alternative route around the {obstacle}.",
	NavigationProceedCarefully: "Proceed carefully past the {obstacle}.",
	NavigationStop:             "Stop and do not proceed due to {obstacle}.",
}

type VideoKind string

const (
	VideoTrendingTowards   VideoKind = "trending_towards"
	VideoApproaching       VideoKind = "approaching"
	VideoMovingAway        VideoKind = "moving_away"
	VideoStableObstacle    VideoKind = "stable_obstacle"
	VideoClearPath         VideoKind = "clear_path"
	VideoMultipleObstacles VideoKind = "multiple_obstacles"
)

var videoTemplates = map[VideoKind]string{
	VideoTrendingTowards:   "⚠️ You are moving towards {obstacle} - consider changing direction.",
	VideoApproaching:       "🚨 You are approaching {obstacle} - slow down and prepare to stop.",
	VideoMovingAway:        "✅ Good! You are moving away from {obstacle}.",
	VideoStableObstacle:    "⚠️ {obstacle} remains in your path - find alternative route.",
	VideoClearPath:         "✅ Path ahead is clear - you can proceed safely.",
	VideoMultipleObstacles: "⚠️ Multiple obstacles detected - proceed with extreme caution.",
}

func render(template string, fields map[string]string) string {
	pairs := make([]string, 0, len(fields)*2)
	for k, v := range fields {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// SafetyNotice - предупреждение по уровню опасности препятствия.
// variant выбирает формулировку по кругу.
func SafetyNotice(o obstacle.Obstacle, variant int) string {
	templates, ok := safetyTemplates[o.Severity]
	if !ok {
		templates = safetyTemplates[obstacle.SeverityLow]
	}
	if variant < 0 {
		variant = -variant
	}

	return render(templates[variant%len(templates)], map[string]string{
		"obstacle":  string(o.Category),
		"direction": o.DirectionText(),
		"distance":  fmt.Sprintf("%.1f meters", o.DistanceMeters),
	})
}

// NavigationNotice - навигационная инструкция; direction нужен только для avoid
func NavigationNotice(kind NavigationKind, category obstacle.Category, direction Heading) string {
	template, ok := navigationTemplates[kind]
	if !ok {
		template = navigationTemplates[NavigationProceedCarefully]
	}
	return render(template, map[string]string{
		"obstacle":  string(category),
		"direction": string(direction),
	})
}

// VideoNotice - оповещение по видео о перечисленных категориях
func VideoNotice(kind VideoKind, categories ...obstacle.Category) string {
	template, ok := videoTemplates[kind]
	if !ok {
		template = videoTemplates[VideoClearPath]
	}

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	return render(template, map[string]string{"obstacle": strings.Join(names, ", ")})
}

// Navigation переводит решение по кадру в навигационную инструкцию о
// главном препятствии. Без препятствия или при свободном пути пусто.
func Navigation(d Decision, primary *obstacle.Obstacle) string {
	if primary == nil {
		return ""
	}
	switch d.Action {
	case ActionTurn:
		return NavigationNotice(NavigationAvoid, primary.Category, d.Direction)
	case ActionProceedCarefully:
		return NavigationNotice(NavigationProceedCarefully, primary.Category, d.Direction)
	}
	if primary.Severity == obstacle.SeverityHigh {
		return NavigationNotice(NavigationStop, primary.Category, d.Direction)
	}
	return ""
}

// Notices - предупреждения по препятствиям кадра, самые опасные первыми
func Notices(obstacles []obstacle.Obstacle) []string {
	notices := make([]string, 0, len(obstacles))
	for _, severity := range []obstacle.Severity{obstacle.SeverityHigh, obstacle.SeverityMedium, obstacle.SeverityLow} {
		for _, o := range obstacles {
			if obstacle.ParseSeverity(string(o.Severity)) == severity {
				notices = append(notices, SafetyNotice(o, 0))
			}
		}
	}
	return notices
}
