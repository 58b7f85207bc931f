package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordAuth(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordAuth(AuthResultSuccess)
	m.RecordAuth(AuthResultSuccess)
	m.RecordAuth(AuthResultReplay)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HawkAuthTotal.WithLabelValues(AuthResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HawkAuthTotal.WithLabelValues(AuthResultReplay)))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordAuth(AuthResultError) })
}

func TestMetrics_ObserveQuery(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveQuery("list_after", time.Now(), nil)
	m.ObserveQuery("list_after", time.Now(), errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues("list_after")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StoreQueryDuration))
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/data-hub/export-wins/{match_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/data-hub/export-wins/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/data-hub/export-wins/{match_id}", "418")))
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordAuth(AuthResultStale)

	serveMux := http.NewServeMux()
	RegisterMetricsEndpoint(serveMux, registry)

	rec := httptest.NewRecorder()
	serveMux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `winsmi_hawk_auth_total{result="stale"} 1`))
}

func TestMetrics_NonceEarlyEvictions(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.NonceEarlyEvictionsTotal.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NonceEarlyEvictionsTotal))
	count, err := testutil.GatherAndCount(registry, "winsmi_nonce_early_evictions_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
