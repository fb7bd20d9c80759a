// internal/requestinfo/middleware_test.go
//
// Unit-tests for the Enrich middleware and ClientIP helper.
//
// Run: go test ./internal/requestinfo -v

package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		xff    string
		xrip   string
		remote string
		want   string
	}{
		{"forwarded chain", "203.0.113.9, 10.0.0.1", "", "10.0.0.1:443", "203.0.113.9"},
		{"real-ip fallback", "", "203.0.113.9", "10.0.0.1:443", "203.0.113.9"},
		{"remote addr fallback", "", "", "198.51.100.4:55001", "198.51.100.4"},
		{"garbage forwarded entry skipped", "banana, 203.0.113.9", "", "10.0.0.1:443", "203.0.113.9"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "http://acme.com/", nil)
		req.RemoteAddr = c.remote
		if c.xff != "" {
			req.Header.Set("X-Forwarded-For", c.xff)
		}
		if c.xrip != "" {
			req.Header.Set("X-Real-Ip", c.xrip)
		}
		if got := ClientIP(req); got == nil || got.String() != c.want {
			t.Errorf("%s: ClientIP = %v, want %s", c.name, got, c.want)
		}
	}
}

func TestEnrich_AttachesRequestInfo(t *testing.T) {
	var info *RequestInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info = FromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "http://acme.com/", nil)
	req.Header.Set("User-Agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	rr := httptest.NewRecorder()

	Enrich(next).ServeHTTP(rr, req)

	if info == nil {
		t.Fatal("RequestInfo missing from context")
	}
	if info.UA.Device != "Desktop" {
		t.Errorf("device = %q, want Desktop", info.UA.Device)
	}
	if info.UA.IsBot {
		t.Error("desktop Chrome flagged as bot")
	}
	if info.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}
