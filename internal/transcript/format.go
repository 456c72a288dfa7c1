package transcript

import "fmt"

// FormatTimestamp converts seconds to MM:SS. Fractional seconds are
// truncated, not rounded, and minutes are unbounded rather than rolling
// into an hour field ("60:00" for one hour).
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatLine renders a single transcript line: "[MM:SS - MM:SS] text".
func FormatLine(start, end float64, text string) string {
	return fmt.Sprintf("[%s - %s] %s", FormatTimestamp(start), FormatTimestamp(end), text)
}
