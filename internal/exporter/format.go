package exporter

import "fmt"

// formatFloat formats a float64 value for export with exactly 2 decimal
// places, so 13.4 appears as 13.40.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatFloatPtr renders a nullable statistic; nil exports as an empty
// cell rather than a zero.
func formatFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// formatInt formats an int64 value for export
func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}
