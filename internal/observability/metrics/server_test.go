package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHandler(t *testing.T) {
	handler := Handler()

	t.Run("TC-1: health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	})

	t.Run("TC-2: metrics exposes registered collectors", func(t *testing.T) {
		UpdateSchedulesTotal(3)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "schedules_total 3")
	})
}

type fixedStats sql.DBStats

func (f fixedStats) Stats() sql.DBStats { return sql.DBStats(f) }

func TestCollectDBStats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	CollectDBStats(ctx, fixedStats{InUse: 4, Idle: 2}, time.Hour)

	assert.Equal(t, float64(4), testutil.ToFloat64(DBConnectionsActive))
	assert.Equal(t, float64(2), testutil.ToFloat64(DBConnectionsIdle))
}
