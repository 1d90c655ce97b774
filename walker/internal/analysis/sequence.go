package analysis

import (
	"github.com/Krimson/ai-walker/walker/internal/advisory"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
)

// MaxImages - сколько снимков одной сцены учитывается, остальные отбрасываются
const MaxImages = 5

// ErrNoImages возвращается в SequenceAnalysis.Error для пустого набора
const ErrNoImages = "No images provided"

// SequenceAnalysis - сводный анализ нескольких снимков одной сцены
type SequenceAnalysis struct {
	Obstacles      []obstacle.Obstacle `json:"obstacles"`
	RoadCondition  string              `json:"road_condition"`
	Guidance       advisory.Decision   `json:"guidance"`
	SafetyNotices  []string            `json:"safety_notices"`
	NavigationInfo string              `json:"navigation_info,omitempty"`
	AnalysisCount  int                 `json:"analysis_count"`
	Error          string              `json:"error,omitempty"`
}

// AnalyzeImages анализирует до MaxImages снимков и объединяет препятствия:
// одинаковые по категории и направлению сливаются в самое опасное.
// Состояние дороги берётся с последнего снимка.
func (a *Analyzer) AnalyzeImages(inputs []FrameInput) SequenceAnalysis {
	if len(inputs) == 0 {
		return SequenceAnalysis{Obstacles: []obstacle.Obstacle{}, SafetyNotices: []string{}, Error: ErrNoImages}
	}
	if len(inputs) > MaxImages {
		inputs = inputs[:MaxImages]
	}

	var all []obstacle.Obstacle
	var latest FrameAnalysis
	for _, in := range inputs {
		latest = a.Analyze(in)
		all = append(all, latest.Obstacles...)
	}

	merged := obstacle.Merge(all)
	fa := Describe(merged)

	return SequenceAnalysis{
		Obstacles:      merged,
		RoadCondition:  latest.RoadCondition,
		Guidance:       fa.Guidance,
		SafetyNotices:  advisory.Notices(merged),
		NavigationInfo: advisory.Navigation(fa.Guidance, fa.PrimaryObstacle),
		AnalysisCount:  len(inputs),
	}
}

// PromptSummary - текст сцены для генератора советов
func (s SequenceAnalysis) PromptSummary() string {
	return "Road condition: " + s.RoadCondition + "\nObstacles:\n" + obstacle.FormatList(s.Obstacles)
}
