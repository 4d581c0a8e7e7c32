package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"/metrics":                  "/metrics",
		"/api/assets":               "/api/assets",
		"/api/assets/inventory":     "/api/assets/inventory",
		"/api/assets/purchase":      "/api/assets/purchase",
		"/api/assets/01J3ZA9V5N8Q":  "/api/assets/:id",
		"/api/assets/abc?fields=x":  "/api/assets/:id",
		"/api/assets/abc/extra":     "/api/assets/abc/extra",
		"/api/auth/login":           "/api/auth/login",
		"/api/assets/stream":        "/api/assets/stream",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
