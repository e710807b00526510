package category

import "testing"

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		detected string
		target   string
		want     bool
	}{
		{"exact", "/Travel/Family", "/Travel/Family", true},
		{"detected is ancestor of target", "/Travel", "/Travel/Family", true},
		{"detected is descendant of target", "/Travel/Family/Kids", "/Travel/Family", true},
		{"case insensitive", "/travel/FAMILY", "/Travel/Family", true},
		{"disjoint", "/Food & Drink", "/Travel", false},
		{"string prefix is not a segment match", "/TravelDeals", "/Travel", false},
		{"empty detected", "", "/Travel", false},
		{"empty target", "/Travel", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.detected, tt.target); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.detected, tt.target, got, tt.want)
			}
		})
	}
}

func TestMatches_SiblingsDiverge(t *testing.T) {
	// Two children of the same parent are distinct categories.
	if Matches("/Travel/Cruises & Charters", "/Travel/Family") {
		t.Error("siblings under /Travel must not match each other")
	}
}

func TestSegments(t *testing.T) {
	got := Segments("/Travel/Tourist Destinations/Beaches & Islands")
	want := []string{"travel", "tourist destinations", "beaches & islands"}
	if len(got) != len(want) {
		t.Fatalf("Segments returned %d parts, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format("/Travel/Cruises & Charters"); got != "  Cruises & Charters" {
		t.Errorf("Format = %q", got)
	}
	if got := Format(""); got != "" {
		t.Errorf("Format(empty) = %q, want empty", got)
	}
}

func TestAll_SortedDeduplicated(t *testing.T) {
	all := All()
	if len(all) == 0 {
		t.Fatal("All() returned no categories")
	}
	seen := make(map[string]struct{})
	for i, c := range all {
		if _, dup := seen[c]; dup {
			t.Errorf("duplicate category %q", c)
		}
		seen[c] = struct{}{}
		if i > 0 && all[i-1] > c {
			t.Errorf("categories not sorted at index %d: %q > %q", i, all[i-1], c)
		}
	}
	if _, ok := seen["/Travel"]; !ok {
		t.Error("expected /Travel in taxonomy")
	}
}
