package phone

import (
	"sort"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain digits", raw: "6281234567890", want: "6281234567890"},
		{name: "gateway routing suffix", raw: "6281234567890@s.whatsapp.net", want: "6281234567890"},
		{name: "device session suffix", raw: "6281234567890:12", want: "6281234567890"},
		{name: "both suffixes", raw: "6281234567890:3@s.whatsapp.net", want: "6281234567890"},
		{name: "formatted number", raw: "+62 812-3456-7890", want: "6281234567890"},
		{name: "local form", raw: "081234567890", want: "081234567890"},
		{name: "alias id", raw: "123456789012345@lid", want: "123456789012345"},
		{name: "no digits", raw: "not-a-phone", want: ""},
		{name: "empty", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"6281234567890@s.whatsapp.net",
		"+62 (812) 3456-7890",
		"081234567890:44",
		"",
		"abc",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestVariants(t *testing.T) {
	tests := []struct {
		name      string
		canonical string
		want      []string
	}{
		{
			name:      "country code form",
			canonical: "6281234567890",
			want:      []string{"6281234567890", "081234567890"},
		},
		{
			name:      "local zero form",
			canonical: "081234567890",
			want:      []string{"081234567890", "6281234567890"},
		},
		{
			name:      "neither prefix",
			canonical: "81234567890",
			want:      []string{"81234567890"},
		},
		{
			name:      "empty",
			canonical: "",
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Variants(tt.canonical, "62")
			if len(got) != len(tt.want) {
				t.Fatalf("Variants(%q) = %v, want %v", tt.canonical, got, tt.want)
			}
			sort.Strings(got)
			want := append([]string(nil), tt.want...)
			sort.Strings(want)
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("Variants(%q) = %v, want %v", tt.canonical, got, tt.want)
					break
				}
			}
		})
	}
}

func TestVariantsNoDuplicates(t *testing.T) {
	got := Variants("0", "62")
	seen := map[string]bool{}
	for _, v := range got {
		if seen[v] {
			t.Errorf("duplicate variant %q in %v", v, got)
		}
		seen[v] = true
	}
}
