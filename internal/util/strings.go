package util

// SafeTruncate safely truncates a string to maxLen bytes without panicking.
// Returns the original string if it's shorter than maxLen, otherwise returns
// the first maxLen bytes. This is used when logging document ids and cursors,
// where only a prefix should be shown.
//
// If maxLen is negative, it's treated as 0 and returns an empty string.
//
// Example:
//
//	SafeTruncate("very-long-document-id", 8) // Returns: "very-lon"
//	SafeTruncate("short", 10)                // Returns: "short"
//	SafeTruncate("test", -1)                 // Returns: ""
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// ClampLimit bounds a requested result-set size to (0, maxLimit].
// A non-positive request means "as many as allowed" and yields maxLimit.
// A non-positive maxLimit disables clamping of positive requests.
//
// Example:
//
//	ClampLimit(500, 100) // Returns: 100
//	ClampLimit(0, 100)   // Returns: 100
//	ClampLimit(25, 100)  // Returns: 25
func ClampLimit(limit, maxLimit int) int {
	if maxLimit <= 0 {
		return limit
	}
	if limit <= 0 || limit > maxLimit {
		return maxLimit
	}
	return limit
}
