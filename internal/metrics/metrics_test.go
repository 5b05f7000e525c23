package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	m := NewMetrics()

	m.RecordOperation("load_xml", nil, time.Millisecond)
	m.RecordOperation("load_xml", nil, time.Millisecond)
	m.RecordOperation("load_xml", errors.New("bad"), time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.OperationsTotal.WithLabelValues("load_xml", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationsTotal.WithLabelValues("load_xml", "error")))
}

func TestUpdateStoreStats(t *testing.T) {
	m := NewMetrics()
	m.UpdateStoreStats(2, 10, 4)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.DocumentsTotal))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.NodesTotal))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.AttributesTotal))
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RecordRows("selector", 5)

	assert.Equal(t, float64(5), testutil.ToFloat64(a.QueryRowsTotal.WithLabelValues("selector")))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.QueryRowsTotal.WithLabelValues("selector")))
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("/health", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `xmlsql_http_requests_total{route="/health",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
