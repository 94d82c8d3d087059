package cmd

import "testing"

func TestParseChoices(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"pipe separated", "Yes | No | Maybe", []string{"Yes", "No", "Maybe"}},
		{"json array", `["Platform", " Mobile "]`, []string{"Platform", "Mobile"}},
		{"single value", "Yes", []string{"Yes"}},
		{"blank entries dropped", "Yes ||  ", []string{"Yes"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseChoices(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("parseChoices(%q) = %v, want %v", tc.in, got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("choice %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}
