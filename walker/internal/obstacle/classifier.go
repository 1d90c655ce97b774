package obstacle

import "strings"

type keywordRule struct {
	category Category
	keywords []string
}

// Порядок важен: неоднозначная метка получает первую подходящую категорию
var keywordTable = []keywordRule{
	{CategoryStairs, []string{"stairs", "steps", "escalator"}},
	{CategoryVehicle, []string{"car", "truck", "bus", "motorcycle", "bicycle"}},
	{CategoryPedestrian, []string{"person", "people", "crowd"}},
	{CategoryConstruction, []string{"construction", "barrier", "cone", "sign"}},
	{CategoryRoadHazard, []string{"pothole", "puddle", "debris", "hole"}},
	{CategoryTraffic, []string{"traffic_light", "stop_sign", "crosswalk"}},
	{CategoryFurniture, []string{"bench", "chair", "table", "fence"}},
	{CategoryNature, []string{"tree", "bush", "plant", "rock"}},
}

// Classify определяет категорию по подстроке в метке, без учёта регистра
func Classify(label string) Category {
	label = strings.ToLower(label)
	for _, rule := range keywordTable {
		for _, kw := range rule.keywords {
			if strings.Contains(label, kw) {
				return rule.category
			}
		}
	}
	return CategoryUnknown
}

// Categories - известные категории в порядке классификации
func Categories() []Category {
	categories := make([]Category, 0, len(keywordTable))
	for _, rule := range keywordTable {
		categories = append(categories, rule.category)
	}
	return categories
}

// ParseCategory принимает имя категории или, если не подошло, сырую метку
func ParseCategory(s string) Category {
	name := Category(strings.ToLower(strings.TrimSpace(s)))
	if name == CategoryUnknown {
		return CategoryUnknown
	}
	for _, rule := range keywordTable {
		if rule.category == name {
			return name
		}
	}
	return Classify(s)
}

// Пороги опасности, метры
const (
	hazardHighDistance    = 3.0
	trafficMediumDistance = 5.0
)

// DetermineSeverity оценивает опасность только по категории и расстоянию
func DetermineSeverity(category Category, distance float64) Severity {
	switch category {
	case CategoryStairs, CategoryConstruction, CategoryRoadHazard:
		if distance < hazardHighDistance {
			return SeverityHigh
		}
	case CategoryVehicle, CategoryTraffic:
		if distance < trafficMediumDistance {
			return SeverityMedium
		}
	}
	return SeverityLow
}
