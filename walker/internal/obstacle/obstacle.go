package obstacle

import (
	"fmt"
	"strings"

	"github.com/Krimson/ai-walker/walker/internal/spatial"
)

type Category string

const (
	CategoryStairs       Category = "stairs"
	CategoryVehicle      Category = "vehicle"
	CategoryPedestrian   Category = "pedestrian"
	CategoryConstruction Category = "construction"
	CategoryRoadHazard   Category = "road_hazard"
	CategoryTraffic      Category = "traffic"
	CategoryFurniture    Category = "furniture"
	CategoryNature       Category = "nature"
	CategoryUnknown      Category = "unknown"
)

// Severity - уровень опасности препятствия
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Score: high 3, medium 2, остальное 1
func (s Severity) Score() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// ParseSeverity возвращает low для неизвестных значений
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Detection - сырая детекция от внешней модели
type Detection struct {
	Label      string      `json:"label"`
	Confidence float64     `json:"score"`
	Box        spatial.Box `json:"box"`
}

// Obstacle - детекция после классификации и оценки положения
type Obstacle struct {
	Category       Category          `json:"type"`
	Label          string            `json:"original_label,omitempty"`
	Direction      spatial.Direction `json:"direction"`
	DistanceMeters float64           `json:"distance"`
	Severity       Severity          `json:"severity"`
	Confidence     float64           `json:"confidence"`
	Description    string            `json:"description"`
}

func (o Obstacle) DirectionText() string {
	return spatial.DirectionText(o.Direction)
}

// New строит препятствие по детекции и её положению в кадре
func New(det Detection, pos spatial.Position) Obstacle {
	category := Classify(det.Label)
	return Obstacle{
		Category:       category,
		Label:          det.Label,
		Direction:      pos.Direction,
		DistanceMeters: pos.DistanceMeters,
		Severity:       DetermineSeverity(category, pos.DistanceMeters),
		Confidence:     det.Confidence,
		Description:    Describe(category, pos.Direction, pos.DistanceMeters),
	}
}

// Record - препятствие от внешнего источника, любое поле может отсутствовать
type Record struct {
	Type        string   `json:"type"`
	Direction   string   `json:"direction,omitempty"`
	Distance    *float64 `json:"distance,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Normalize дополняет Record до Obstacle: без опасности - low, без
// направления - center, без расстояния - дальняя зона.
func Normalize(r Record) Obstacle {
	category := ParseCategory(r.Type)

	distance := spatial.DistanceFar
	if r.Distance != nil {
		distance = *r.Distance
	}

	direction := spatial.DirectionCenter
	if r.Direction != "" {
		direction = spatial.ParseDirection(r.Direction)
	}

	description := r.Description
	if description == "" {
		description = Describe(category, direction, distance)
	}

	return Obstacle{
		Category:       category,
		Label:          r.Type,
		Direction:      direction,
		DistanceMeters: distance,
		Severity:       ParseSeverity(r.Severity),
		Confidence:     r.Confidence,
		Description:    description,
	}
}

func NormalizeAll(records []Record) []Obstacle {
	obstacles := make([]Obstacle, 0, len(records))
	for _, r := range records {
		obstacles = append(obstacles, Normalize(r))
	}
	return obstacles
}

var descriptionNouns = map[Category]string{
	CategoryStairs:       "Stairs",
	CategoryVehicle:      "Vehicle",
	CategoryPedestrian:   "Person",
	CategoryConstruction: "Construction barrier",
	CategoryRoadHazard:   "Road hazard",
	CategoryTraffic:      "Traffic signal",
	CategoryFurniture:    "Street furniture",
	CategoryNature:       "Natural obstacle",
}

// Describe - короткое описание вида "Stairs ahead of you at 1.0 meters"
func Describe(category Category, direction spatial.Direction, distance float64) string {
	noun, ok := descriptionNouns[category]
	if !ok {
		noun = "Object"
	}
	return fmt.Sprintf("%s %s at %.1f meters", noun, spatial.DirectionText(direction), distance)
}

// MaxSeverity - максимальная опасность, для пустого списка low
func MaxSeverity(obstacles []Obstacle) Severity {
	max := SeverityLow
	for _, o := range obstacles {
		if o.Severity.Score() > max.Score() {
			max = o.Severity
		}
	}
	return max
}
