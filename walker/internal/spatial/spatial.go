package spatial

import "strings"

// Direction - горизонтальная полоса кадра, в которой находится объект
type Direction string

const (
	DirectionLeft   Direction = "left"
	DirectionCenter Direction = "center"
	DirectionRight  Direction = "right"
)

// Зоны расстояния, метры
const (
	DistanceClose  = 1.0
	DistanceMedium = 3.0
	DistanceFar    = 5.0
)

const (
	leftBandLimit   = 0.33
	centerBandLimit = 0.67

	closeBandLimit  = 0.3
	mediumBandLimit = 0.6
)

// Box - рамка в пикселях
type Box struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

func (b Box) Center() (float64, float64) {
	return (b.XMin + b.XMax) / 2, (b.YMin + b.YMax) / 2
}

type Position struct {
	Direction      Direction `json:"horizontal"`
	DistanceMeters float64   `json:"distance_meters"`
	CenterX        float64   `json:"center_x"`
	CenterY        float64   `json:"center_y"`
}

// Resolve переводит рамку в кадре width x height в направление и
// оценку расстояния. Принимается любая рамка, координаты за пределами
// кадра попадают в ближайшую полосу.
func Resolve(box Box, width, height float64) Position {
	cx, cy := box.Center()
	return Position{
		Direction:      HorizontalBand(cx, width),
		DistanceMeters: EstimateDistance(cy, height),
		CenterX:        cx,
		CenterY:        cy,
	}
}

func HorizontalBand(centerX, width float64) Direction {
	switch {
	case centerX < width*leftBandLimit:
		return DirectionLeft
	case centerX < width*centerBandLimit:
		return DirectionCenter
	default:
		return DirectionRight
	}
}

// EstimateDistance оценивает расстояние по вертикали центра рамки.
// Чем выше объект в кадре, тем он ближе.
func EstimateDistance(centerY, height float64) float64 {
	switch {
	case centerY < height*closeBandLimit:
		return DistanceClose
	case centerY < height*mediumBandLimit:
		return DistanceMedium
	default:
		return DistanceFar
	}
}

// DirectionText - направление словами
func DirectionText(d Direction) string {
	switch d {
	case DirectionLeft:
		return "to your left"
	case DirectionRight:
		return "to your right"
	default:
		return "ahead of you"
	}
}

// ParseDirection понимает и имена полос, и словесную форму.
// Всё остальное считается центром.
func ParseDirection(s string) Direction {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "left"):
		return DirectionLeft
	case strings.Contains(s, "right"):
		return DirectionRight
	default:
		return DirectionCenter
	}
}
