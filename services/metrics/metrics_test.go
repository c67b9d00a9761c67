package metricsvc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/v1/missions/:id", func(ctx echo.Context) error {
		if ctx.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return ctx.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/v1/missions/a", "/v1/missions/b", "/v1/missions/missing"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, promtest.ToFloat64(m.requests.WithLabelValues("GET", "/v1/missions/:id", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.requests.WithLabelValues("GET", "/v1/missions/:id", "404")))
}

func TestCounters(t *testing.T) {
	m := New()
	m.GrantRequested("mission_creator")
	m.GrantDecided("mission_creator", "approved")
	m.GrantDecided("mission_creator", "approved")
	m.SubmissionReviewed("rejected")
	m.Redeemed()

	assert.Equal(t, 1.0, promtest.ToFloat64(m.grantRequests.WithLabelValues("mission_creator")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.grantDecisions.WithLabelValues("mission_creator", "approved")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.submissionReviews.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.redemptions))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Submitted()

	tests := []struct {
		name     string
		token    string
		header   string
		wantCode int
	}{
		{"no token required", "", "", http.StatusOK},
		{"missing token", "s3cr3t", "", http.StatusUnauthorized},
		{"wrong token", "s3cr3t", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "s3cr3t", "Bearer s3cr3t", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			m.Handler(tc.token).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantCode == http.StatusOK {
				assert.True(t, strings.Contains(rec.Body.String(), "cin_submissions_total 1"))
			}
		})
	}
}
