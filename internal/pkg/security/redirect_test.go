package security

import "testing"

func TestSafeRedirect(t *testing.T) {
	const origin = "https://app.example.com"
	const fallback = "/user/dashboard"

	tests := []struct {
		name      string
		candidate string
		want      string
	}{
		{name: "bare path", candidate: "/payments/", want: "/payments/"},
		{name: "bare path with query", candidate: "/setup/tier?step=2", want: "/setup/tier?step=2"},
		{name: "empty", candidate: "", want: fallback},
		{name: "whitespace only", candidate: "   ", want: fallback},
		{name: "foreign origin", candidate: "https://evil.com/x", want: fallback},
		{name: "same origin absolute", candidate: "https://app.example.com/payments/", want: "https://app.example.com/payments/"},
		{name: "same host wrong scheme", candidate: "http://app.example.com/payments/", want: fallback},
		{name: "scheme relative same host", candidate: "//app.example.com/payments/", want: "//app.example.com/payments/"},
		{name: "scheme relative foreign host", candidate: "//evil.com/x", want: fallback},
		{name: "path with double slash", candidate: "////evil.com", want: fallback},
		{name: "backslash trick", candidate: "/\\evil.com", want: fallback},
		{name: "javascript scheme", candidate: "javascript:alert(1)", want: fallback},
		{name: "relative without slash", candidate: "payments", want: fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeRedirect(tt.candidate, origin, fallback); got != tt.want {
				t.Fatalf("SafeRedirect(%q) = %q, want %q", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestSafeRedirectBadOrigin(t *testing.T) {
	if got := SafeRedirect("https://app.example.com/x", "", "/home"); got != "/home" {
		t.Fatalf("absolute targets need a parsable origin, got %q", got)
	}
}
