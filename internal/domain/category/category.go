// Package category models the slash-delimited content taxonomy paths used
// by the classifier (e.g. "/Travel/Hotels & Accommodations") and the match
// policy for testing detections against a target category.
package category

import "strings"

// Segments splits a category path into its normalized (lowercased,
// trimmed) segments. Empty segments are dropped.
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether a detected category satisfies a target category.
//
// Comparison is segment-wise and case-insensitive: the two paths match when
// either is an ancestor of the other (equality included). A detection of
// "/Travel" matches the target "/Travel/Family" — the classifier often stops
// at a parent node even when the content fits a deeper one — and a detection
// of "/Travel/Family/Kids" matches it too. "/TravelDeals" does not: whole
// segments must be equal, not string prefixes.
func Matches(detected, target string) bool {
	d := Segments(detected)
	t := Segments(target)
	if len(d) == 0 || len(t) == 0 {
		return false
	}
	n := len(d)
	if len(t) < n {
		n = len(t)
	}
	for i := 0; i < n; i++ {
		if d[i] != t[i] {
			return false
		}
	}
	return true
}

// Format renders a category path for display, indented by depth.
func Format(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return ""
	}
	return strings.Repeat("  ", len(segs)-1) + segs[len(segs)-1]
}
