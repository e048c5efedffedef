package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeProvider struct {
	status Status
}

func (p *fakeProvider) HealthCheck() Status { return p.status }

func (p *fakeProvider) Stats() map[string]any {
	return map[string]any{
		"session": map[string]any{"state": p.status.SessionState},
		"router":  map[string]any{"frames_routed": 12},
	}
}

func get(t *testing.T, h http.Handler, path string) (*http.Response, []byte) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	res := rec.Result()
	body, _ := io.ReadAll(res.Body)
	return res, body
}

func TestRoutes(t *testing.T) {
	p := &fakeProvider{status: Status{Status: "healthy", SessionState: "active", Scanning: true}}
	s := New(":0", p, nil)
	r := s.Router()

	tests := []struct {
		name string
		path string
		code int
	}{
		{"liveness", "/health", http.StatusOK},
		{"readiness", "/readiness", http.StatusOK},
		{"stats", "/stats", http.StatusOK},
		{"stats section", "/stats/router", http.StatusOK},
		{"unknown section", "/stats/gpu", http.StatusNotFound},
		{"unknown route", "/metrics", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := get(t, r, tt.path)
			if res.StatusCode != tt.code {
				t.Errorf("GET %s = %d, want %d (%s)", tt.path, res.StatusCode, tt.code, body)
			}
		})
	}

	_, body := get(t, r, "/stats/router")
	var section map[string]any
	if err := json.Unmarshal(body, &section); err != nil {
		t.Fatal(err)
	}
	if section["frames_routed"] != float64(12) {
		t.Errorf("router section = %v", section)
	}
}

func TestReadiness_Unhealthy(t *testing.T) {
	p := &fakeProvider{status: Status{Status: "unhealthy", Error: "camera lost"}}
	res, body := get(t, New(":0", p, nil).Router(), "/readiness")
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", res.StatusCode)
	}
	var got Status
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Error != "camera lost" {
		t.Errorf("body = %+v", got)
	}

	p.status.Status = "degraded"
	if res, _ := get(t, New(":0", p, nil).Router(), "/readiness"); res.StatusCode != http.StatusOK {
		t.Errorf("degraded readiness = %d, want 200", res.StatusCode)
	}
}

func TestStartShutdown(t *testing.T) {
	p := &fakeProvider{status: Status{Status: "healthy"}}
	s := New("127.0.0.1:0", p, nil)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	res, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
	t.Logf("✅ status server served on %s", s.Addr())
}
