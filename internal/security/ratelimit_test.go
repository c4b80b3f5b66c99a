package security

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d denied inside the limit", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request allowed over the limit")
	}

	// Another key has its own bucket.
	if !rl.Allow("10.0.0.2") {
		t.Error("fresh key denied")
	}

	// The window refills.
	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("10.0.0.1") {
		t.Error("request denied after the window elapsed")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		realIP    string
		remote    string
		want      string
	}{
		{"remote addr only", "", "", "192.168.1.5:1234", "192.168.1.5:1234"},
		{"x-real-ip", "", "203.0.113.7", "10.0.0.1:80", "203.0.113.7"},
		{"x-forwarded-for single", "203.0.113.9", "", "10.0.0.1:80", "203.0.113.9"},
		{"x-forwarded-for chain", "203.0.113.9, 10.0.0.2, 10.0.0.3", "", "10.0.0.1:80", "203.0.113.9"},
		{"forwarded wins over real-ip", "203.0.113.9", "198.51.100.4", "10.0.0.1:80", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %v, want %v", got, tt.want)
			}
		})
	}
}
