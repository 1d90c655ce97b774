package advisory

import (
	"fmt"

	"github.com/Krimson/ai-walker/walker/internal/obstacle"
	"github.com/Krimson/ai-walker/walker/internal/spatial"
)

type Action string

const (
	ActionProceed          Action = "proceed"
	ActionProceedCarefully Action = "proceed_carefully"
	ActionTurn             Action = "turn"
)

// Heading - куда советуем идти
type Heading string

const (
	HeadingStraight Heading = "straight"
	HeadingLeft     Heading = "left"
	HeadingRight    Heading = "right"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Decision - решение по одному кадру
type Decision struct {
	Action     Action     `json:"action"`
	Direction  Heading    `json:"direction"`
	Message    string     `json:"message"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason,omitempty"`
}

type Buckets struct {
	Left   []obstacle.Obstacle `json:"left_obstacles"`
	Right  []obstacle.Obstacle `json:"right_obstacles"`
	Center []obstacle.Obstacle `json:"center_obstacles"`
}

// Bucket раскладывает препятствия по направлениям с сохранением порядка.
// Неизвестное направление идёт в центр.
func Bucket(obstacles []obstacle.Obstacle) Buckets {
	b := Buckets{
		Left:   []obstacle.Obstacle{},
		Right:  []obstacle.Obstacle{},
		Center: []obstacle.Obstacle{},
	}
	for _, o := range obstacles {
		switch o.Direction {
		case spatial.DirectionLeft:
			b.Left = append(b.Left, o)
		case spatial.DirectionRight:
			b.Right = append(b.Right, o)
		default:
			b.Center = append(b.Center, o)
		}
	}
	return b
}

// Decide применяет правила по приоритету: препятствия впереди важнее
// боковых, опасное препятствие впереди всегда означает поворот.
// При равенстве сторон поворачиваем направо.
func Decide(obstacles []obstacle.Obstacle) Decision {
	if len(obstacles) == 0 {
		return Decision{
			Action:     ActionProceed,
			Direction:  HeadingStraight,
			Message:    "Path is clear, you can proceed straight ahead.",
			Confidence: ConfidenceHigh,
		}
	}

	b := Bucket(obstacles)

	switch {
	case len(b.Center) > 0:
		return decideCenter(b)
	case len(b.Left) > 0 && len(b.Right) > 0:
		return decideBothSides(b)
	case len(b.Left) > 0:
		return Decision{
			Action:     ActionTurn,
			Direction:  HeadingRight,
			Message:    fmt.Sprintf("Turn right to avoid %s on your left.", b.Left[0].Category),
			Confidence: ConfidenceHigh,
			Reason:     fmt.Sprintf("Obstacle on left: %s", b.Left[0].Category),
		}
	case len(b.Right) > 0:
		return Decision{
			Action:     ActionTurn,
			Direction:  HeadingLeft,
			Message:    fmt.Sprintf("Turn left to avoid %s on your right.", b.Right[0].Category),
			Confidence: ConfidenceHigh,
			Reason:     fmt.Sprintf("Obstacle on right: %s", b.Right[0].Category),
		}
	}

	return Decision{
		Action:     ActionProceed,
		Direction:  HeadingStraight,
		Message:    "Path is clear, proceed straight ahead.",
		Confidence: ConfidenceHigh,
		Reason:     "No obstacles detected",
	}
}

func decideCenter(b Buckets) Decision {
	for _, o := range b.Center {
		if o.Severity != obstacle.SeverityHigh {
			continue
		}

		heading := HeadingRight
		if len(b.Left) < len(b.Right) {
			heading = HeadingLeft
		}
		return Decision{
			Action:     ActionTurn,
			Direction:  heading,
			Message:    fmt.Sprintf("High-risk %s ahead. Turn %s to avoid.", o.Category, heading),
			Confidence: ConfidenceHigh,
			Reason:     fmt.Sprintf("High-risk obstacle ahead: %s", o.Category),
		}
	}

	first := b.Center[0]
	return Decision{
		Action:     ActionProceedCarefully,
		Direction:  HeadingStraight,
		Message:    fmt.Sprintf("Proceed carefully past the %s ahead.", first.Category),
		Confidence: ConfidenceMedium,
		Reason:     fmt.Sprintf("Obstacle ahead: %s", first.Category),
	}
}

func decideBothSides(b Buckets) Decision {
	leftHigh := obstacle.MaxSeverity(b.Left) == obstacle.SeverityHigh
	rightHigh := obstacle.MaxSeverity(b.Right) == obstacle.SeverityHigh

	switch {
	case leftHigh && !rightHigh:
		return Decision{
			Action:     ActionTurn,
			Direction:  HeadingRight,
			Message:    "Turn right to avoid high-risk obstacles on your left.",
			Confidence: ConfidenceHigh,
			Reason:     "High-risk obstacles on left",
		}
	case rightHigh && !leftHigh:
		return Decision{
			Action:     ActionTurn,
			Direction:  HeadingLeft,
			Message:    "Turn left to avoid high-risk obstacles on your right.",
			Confidence: ConfidenceHigh,
			Reason:     "High-risk obstacles on right",
		}
	default:
		return Decision{
			Action:     ActionProceed,
			Direction:  HeadingStraight,
			Message:    "Proceed straight, obstacles on sides are manageable.",
			Confidence: ConfidenceMedium,
			Reason:     "Obstacles on both sides",
		}
	}
}
