package metrics

import "strings"

// norm keeps label values predictable regardless of caller casing.
func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
