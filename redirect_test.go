package goSession

import "testing"

func TestSanitizeRedirect(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "/login"},
		{"   ", "/login"},
		{"/", "/"},
		{"/dashboard", "/dashboard"},
		{"/tickets/42?tab=notes#top", "/tickets/42?tab=notes#top"},
		{" /settings ", "/settings"},
		{"dashboard", "/login"},
		{"https://evil.example/login", "/login"},
		{"//evil.example", "/login"},
		{"/\\evil.example", "/login"},
		{"/path\\with\\backslash", "/login"},
		{"/line\nbreak", "/login"},
		{"javascript:alert(1)", "/login"},
	}
	for _, tc := range cases {
		if got := SanitizeRedirect(tc.in); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
