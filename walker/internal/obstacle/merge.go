package obstacle

import (
	"fmt"
	"strings"

	"github.com/Krimson/ai-walker/walker/internal/spatial"
)

type mergeKey struct {
	category  Category
	direction spatial.Direction
}

// Merge убирает повторы препятствий с нескольких снимков одной сцены.
// Препятствия с одинаковой категорией и направлением сливаются в самое
// опасное, при равенстве остаётся первое. Группы идут в порядке появления.
func Merge(obstacles []Obstacle) []Obstacle {
	if len(obstacles) == 0 {
		return []Obstacle{}
	}

	index := make(map[mergeKey]int)
	merged := make([]Obstacle, 0, len(obstacles))

	for _, o := range obstacles {
		key := mergeKey{category: o.Category, direction: o.Direction}
		i, seen := index[key]
		if !seen {
			index[key] = len(merged)
			merged = append(merged, o)
			continue
		}
		if o.Severity.Score() > merged[i].Severity.Score() {
			merged[i] = o
		}
	}

	return merged
}

// FormatList - список препятствий построчно для текста подсказки модели
func FormatList(obstacles []Obstacle) string {
	if len(obstacles) == 0 {
		return "No obstacles detected"
	}

	lines := make([]string, 0, len(obstacles))
	for _, o := range obstacles {
		line := fmt.Sprintf("- %s (Distance: %.1f meters) (Direction: %s) (Danger level: %s)",
			o.Category, o.DistanceMeters, o.DirectionText(), o.Severity)
		if o.Description != "" {
			line += " - " + o.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
