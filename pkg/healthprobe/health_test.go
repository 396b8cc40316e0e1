package healthprobe

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestNew(t *testing.T) {
	hc := New()

	if hc == nil {
		t.Fatal("New() returned nil")
	}

	if time.Since(hc.startTime) > 1*time.Second {
		t.Errorf("Start time is too old: %v", hc.startTime)
	}

	if hc.ready.Load() {
		t.Error("HealthChecker should not be ready by default")
	}
}

func TestHealth_AlwaysReturnsOK(t *testing.T) {
	hc := New()
	handler := hc.Health()

	for _, ready := range []bool{false, true} {
		hc.SetReady(ready)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		handler(w, req)

		resp := w.Result()
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Health status = %d, want %d (ready=%v)", resp.StatusCode, http.StatusOK, ready)
		}

		var healthResp HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
			t.Fatalf("Failed to decode health response: %v", err)
		}
		if healthResp.Status != "healthy" {
			t.Errorf("Status = %s, want healthy", healthResp.Status)
		}
		if healthResp.Uptime == "" {
			t.Error("Uptime is empty")
		}
	}
}

func TestReady_StateChanges(t *testing.T) {
	hc := New()
	handler := hc.Ready()

	check := func(wantCode int) {
		t.Helper()

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		handler(w, req)
		if w.Code != wantCode {
			t.Errorf("Ready status = %d, want %d", w.Code, wantCode)
		}
	}

	// Initially not ready
	check(http.StatusServiceUnavailable)

	hc.SetReady(true)
	check(http.StatusOK)

	hc.SetReady(false)
	check(http.StatusServiceUnavailable)
}

func TestReady_NotReadyBody(t *testing.T) {
	hc := New()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	hc.Ready()(w, req)

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode ready response: %v", err)
	}
	if resp.Status != "not_ready" {
		t.Errorf("Status = %s, want not_ready", resp.Status)
	}
	if resp.Message == "" {
		t.Error("Message is empty for not_ready state")
	}
}

func TestHealthChecker_ConcurrentAccess(t *testing.T) {
	hc := New()
	handler := hc.Ready()

	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			hc.SetReady(i%2 == 0)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			handler(w, req)
		}
		done <- true
	}()

	<-done
	<-done
}
