package video

import (
	"fmt"
	"strings"
)

// Text - текстовая сводка отчёта
func Text(r Report) string {
	if r.Error != "" {
		return "Analysis failed: " + r.Error
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	section := func(header string, items []string) {
		if len(items) == 0 {
			return
		}
		line("\n%s", header)
		for _, item := range items {
			line("- %s", item)
		}
	}

	line("=== VIDEO ANALYSIS SUMMARY ===")
	line("Total frames analyzed: %d", r.VideoSummary.AnalyzedFrames)
	line("Video duration: %.1f seconds", r.VideoSummary.VideoDuration)
	line("Average risk level: %s", r.VideoSummary.AverageRiskLevel)

	primary := r.VideoAdvice.PrimaryAdvice
	if primary == "" {
		primary = "No specific advice available"
	}
	line("\nPRIMARY ADVICE:")
	line("%s", primary)

	obstacles := make([]string, 0, len(r.KeyObstacles))
	for _, k := range r.KeyObstacles {
		obstacles = append(obstacles, fmt.Sprintf("%s: %s", k.Type, k.Description))
	}
	section("KEY OBSTACLES DETECTED:", obstacles)
	section("SPECIFIC RECOMMENDATIONS:", r.VideoAdvice.SpecificRecommendations)
	section("SAFETY WARNINGS:", r.VideoAdvice.SafetyWarnings)
	section("NOTICES:", r.Notices)
	section("IMMEDIATE ACTIONS:", r.VideoAdvice.ActionItems)

	assessment := r.VideoAdvice.OverallAssessment
	if assessment == "" {
		assessment = "Assessment not available"
	}
	line("\nOVERALL ASSESSMENT:")
	b.WriteString(assessment)

	return b.String()
}
