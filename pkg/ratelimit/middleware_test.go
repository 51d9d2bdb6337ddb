package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestGetRateLimitType(t *testing.T) {
	tests := []struct {
		path string
		want RateLimitType
	}{
		{"/health", RateLimitTypeHealth},
		{"/status", RateLimitTypeHealth},
		{"/api/v1/admin/logs/jobs", RateLimitTypeAdmin},
		{"/api/v1/statistics/admin-stats", RateLimitTypeAdmin},
		{"/api/v1/auth/login", RateLimitTypeAuth},
		{"/api/v1/tickets/validate", RateLimitTypeScan},
		{"/api/v1/tickets/my-tickets", RateLimitTypeBooking},
		{"/api/v1/payments/verify", RateLimitTypePayment},
		{"/api/v1/bookings/:id/cancel", RateLimitTypeBooking},
		{"/api/v1/spaces/available", RateLimitTypePublic},
		{"/api/v1/cars", RateLimitTypeDefault},
		{"", RateLimitTypeDefault},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := getRateLimitType(tt.path); got != tt.want {
				t.Errorf("getRateLimitType(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:5123", "203.0.113.7"},
		{"garbage forwarded falls back", map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "198.51.100.4"}, "10.0.0.2:5123", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.10:4431", "192.0.2.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			c.Request.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			if got := getClientIP(c); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
