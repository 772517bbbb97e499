package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-delta-sync/models"
)

func TestMetrics_ObserveUpload(t *testing.T) {
	m := New()

	m.ObserveUpload(3, []string{models.ReasonStaleVersion, models.ReasonStaleVersion, "invalid delta: entity: must not be empty"})
	m.ObserveUpload(1, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploads))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.storedDeltas))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.conflicts.WithLabelValues(models.ReasonStaleVersion)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts.WithLabelValues(models.ReasonInvalidDelta)))
}

func TestMetrics_ObserveDownload(t *testing.T) {
	m := New()

	m.ObserveDownload(5)
	m.ObserveDownload(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.downloads))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.downloadedDeltas))
}

func TestMetrics_SetModeKeepsOneActive(t *testing.T) {
	m := New()

	m.SetMode("postgres")
	m.SetMode("degraded")

	assert.Equal(t, 1, testutil.CollectAndCount(m.storeMode))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeMode.WithLabelValues("degraded")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest("/sync/upload", http.MethodPost, http.StatusOK, 20*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `delta_sync_http_requests_total{method="POST",route="/sync/upload",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
