package ibu

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *prometheus.Registry) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	reg := prometheus.NewRegistry()
	c, err := New(Options{
		BaseURL:    ts.URL,
		Timeout:    2 * time.Second,
		Tracer:     noop.NewTracerProvider().Tracer("test"),
		Registerer: reg,
	})
	require.NoError(t, err)
	return c, reg
}

func TestCurrentSeason_Flagged(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Seasons" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"SeasonId":"2425","SortOrder":10},{"SeasonId":"2526","SortOrder":11,"IsCurrent":true},{"SeasonId":"2627","SortOrder":12}]`))
	})
	got, err := c.CurrentSeason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2526", got)
}

func TestCurrentSeason_FallsBackToSortOrder(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"SeasonId":"2425","SortOrder":10},{"SeasonId":"2526","SortOrder":11}]`))
	})
	got, err := c.CurrentSeason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2526", got)
}

func TestResults_QueryAndDecode(t *testing.T) {
	var gotQuery string
	c, reg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"Competition":{"catId":"SW"},"Results":[{"IBUId":"X","Rank":"1"}]}`))
	})
	rec, err := c.Results(context.Background(), "BT2526SWRLCP01SWSP")
	require.NoError(t, err)
	assert.Equal(t, "RaceId=BT2526SWRLCP01SWSP", gotQuery)
	rows, ok := rec.List("Results")
	require.True(t, ok)
	assert.Len(t, rows, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("Results", "ok")))
	n, err := testutil.GatherAndCount(reg, "biathlon_api_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAnalytic_Query(t *testing.T) {
	var gotPath, gotType string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.URL.Query().Get("TypeId")
		w.Write([]byte(`{"Results":[]}`))
	})
	_, err := c.Analytic(context.Background(), "R1", "RNGT")
	require.NoError(t, err)
	assert.Equal(t, "/AnalyticResults", gotPath)
	assert.Equal(t, "RNGT", gotType)
}

func TestErrors_WrapUnavailable(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"garbage", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`<html>`)) }},
		{"wrong-shape", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`[]`)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.h)
			_, err := c.Results(context.Background(), "R1")
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("err = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestNew_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(Options{Registerer: reg})
	require.NoError(t, err)
	_, err = New(Options{Registerer: reg})
	assert.Error(t, err)
}
