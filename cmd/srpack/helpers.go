package main

import (
	"fmt"
	"strings"

	"srpack/internal/manifest"
)

// languageList renders model-family language tags with their human-readable
// names, e.g. "cn (Chinese), en (English)".
func languageList(tags []string) string {
	if len(tags) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		name := manifest.DisplayName(tag)
		if name == tag {
			parts = append(parts, tag)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", tag, name))
	}
	return strings.Join(parts, ", ")
}
