package http

import "testing"

func TestCacheControlFor(t *testing.T) {
	tests := map[string]string{
		"/v1/health":           "no-cache",
		"/v1/healthz":          "public, max-age=60",
		"/metrics":             "no-store",
		"/v1/catalog/items/a1": "public, max-age=60",
		"/v1/pharmacies/yaba":  "public, max-age=600",
		"/docs/openapi.yaml":   "public, max-age=3600",
		"/v1/catalog/search":   "public, max-age=60",
		"/graphql":             "",
	}
	for path, want := range tests {
		if got := cacheControlFor(path); got != want {
			t.Errorf("cacheControlFor(%q) = %q, want %q", path, got, want)
		}
	}
}
