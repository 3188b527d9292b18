package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	metrics.runs.WithLabelValues("success").Inc()

	srv := httptest.NewServer(NewHandler(reg, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_Healthz(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]HealthCheck
		wantCode int
		want     map[string]string
	}{
		{
			name:     "all healthy",
			checks:   map[string]HealthCheck{"database": func(context.Context) error { return nil }},
			wantCode: http.StatusOK,
			want:     map[string]string{"database": "ok"},
		},
		{
			name: "redis down",
			checks: map[string]HealthCheck{
				"database": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return errors.New("connection refused") },
			},
			wantCode: http.StatusServiceUnavailable,
			want:     map[string]string{"database": "ok", "redis": "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHandler(prometheus.NewRegistry(), tt.checks).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
