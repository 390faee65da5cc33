package sqlxrepos

import "testing"

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		search, want string
	}{
		{search: "jane", want: "%jane%"},
		{search: "100%", want: `%100\%%`},
		{search: "s_01", want: `%s\_01%`},
		{search: `a\b`, want: `%a\\b%`},
		{search: `%_\`, want: `%\%\_\\%`},
	}
	for _, tt := range tests {
		if got := containsPattern(tt.search); got != tt.want {
			t.Errorf("containsPattern(%q) = %q, want %q", tt.search, got, tt.want)
		}
	}
}
