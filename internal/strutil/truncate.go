// Package strutil holds small string helpers.
package strutil

// Truncate keeps at most maxLen runes of s, appending "..." when it cuts.
// maxLen <= 0 yields "".
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
