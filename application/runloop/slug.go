package runloop

import (
	"path/filepath"
	"strings"
)

// Slug derives a filesystem-safe identifier from a quest path, e.g.
// "quests/Forest Path.qm" -> "forest-path", for the run-summary artifact
// layout.
func Slug(questPath string) string {
	base := filepath.Base(questPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash && b.Len() > 0 {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "quest"
	}
	return out
}
