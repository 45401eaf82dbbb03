package lineutil

import "github.com/gochang/agri-notify/internal/project"

// 4-point grid spacing.
const (
	SpacingS = "8px"
	SpacingL = "16px"

	LineSpacingNormal = "6px"
)

const (
	ColorWhite   = "#FFFFFF"
	ColorGray600 = "#777777"
	ColorGray900 = "#111111"
	ColorUrgent  = "#E4362E"
)

// Category header colors.
var categoryColors = map[project.Category]string{
	project.CategoryAgriculture: "#4C9A2A",
	project.CategoryForestry:    "#2E6B3F",
	project.CategoryLivestock:   "#A0642D",
	project.CategoryFishery:     "#1F6FB2",
}

// CategoryColor returns the header color for c, gray for unknown categories.
func CategoryColor(c project.Category) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return ColorGray600
}
