package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                        "/",
		"/metrics":                                "/metrics",
		"/employee/reviews/pending":               "/employee/reviews/pending",
		"/employee/reviews/rev-123":               "/employee/reviews/:id",
		"/employee/reviews/rev-123/action":        "/employee/reviews/:id/action",
		"/reviewer/sites/site-7/update-details":   "/reviewer/sites/:id/update-details",
		"/reviewer/geo/areas":                     "/reviewer/geo/areas",
		"/reviewer/geo/areas/4/blocks":            "/reviewer/geo/areas/:id/blocks",
		"/employee/dashboard/metrics":             "/employee/dashboard/metrics",
		"/employee/dashboard/recent-activity?limit=10": "/employee/dashboard/recent-activity",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
