package normalize

import "strings"

const (
	lowWebP  = "/low.webp"
	highWebP = "/high.webp"
)

// ImageURL points a TCGdex image base at its low-resolution webp rendition.
// Concrete .webp paths are kept, "/high.webp" is swapped for "/low.webp".
func ImageURL(img string) string {
	if img == "" {
		return ""
	}
	base := strings.TrimRight(img, "/")
	switch {
	case strings.HasSuffix(base, lowWebP):
		return base
	case strings.HasSuffix(base, highWebP):
		return strings.TrimSuffix(base, highWebP) + lowWebP
	case strings.HasSuffix(base, ".webp"):
		return base
	default:
		return base + lowWebP
	}
}

// AssetURL appends ".webp" to a TCGdex logo or symbol base. Empty stays empty.
func AssetURL(base string) string {
	if base == "" {
		return ""
	}
	return base + ".webp"
}
