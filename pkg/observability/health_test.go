package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) HealthCheck(context.Context) error { return f.err }

func TestHealthChecker_Liveness(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthChecker(nil, nil, "test").Liveness(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthChecker_Readiness(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing()

		rec := httptest.NewRecorder()
		NewHealthChecker(db, fakePinger{}, "1.2.3").Readiness(rec, httptest.NewRequest("GET", "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		var status HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, StatusHealthy, status.Status)
		assert.Equal(t, "1.2.3", status.Version)
		assert.Contains(t, status.Dependencies, "database")
		assert.Contains(t, status.Dependencies, "nonce_store")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nonce store down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthChecker(nil, fakePinger{err: errors.New("connection refused")}, "").Readiness(rec, httptest.NewRequest("GET", "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("database down", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing().WillReturnError(errors.New("no route to host"))

		status := NewHealthChecker(db, nil, "").Check(context.Background())
		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Equal(t, "no route to host", status.Dependencies["database"].Message)
	})
}

func TestRegisterHealthRoutes(t *testing.T) {
	serveMux := http.NewServeMux()
	RegisterHealthRoutes(serveMux, NewHealthChecker(nil, nil, ""))

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		serveMux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
