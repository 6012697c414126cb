package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/parcel-receipt/internal/ledger"
	"github.com/thereceipt/parcel-receipt/internal/printer"
	"github.com/thereceipt/parcel-receipt/internal/session"
)

func TestObserveSession(t *testing.T) {
	m := New()

	m.ObserveSession(session.Event{Kind: session.EventLedger, Totals: ledger.Totals{ItemCount: 3}})
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LedgerItems))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ReceiptsIssued))

	m.ObserveSession(session.Event{Kind: session.EventStamp, Totals: ledger.Totals{ItemCount: 3}})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReceiptsIssued))

	m.ObserveSession(session.Event{Kind: session.EventReset})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LedgerItems))
}

func TestObserveJobAndRequest(t *testing.T) {
	m := New()

	m.ObserveJob(printer.PrintJob{Status: printer.StatusQueued})
	m.ObserveJob(printer.PrintJob{Status: printer.StatusCompleted})
	m.ObserveJob(printer.PrintJob{Status: printer.StatusCompleted})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PrintJobs.WithLabelValues(printer.StatusCompleted)))

	m.ObserveRequest("/receipt", http.MethodGet, http.StatusOK, 12*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/receipt", http.MethodGet, "200")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "parcel_receipt_print_jobs_total")
	assert.Contains(t, rec.Body.String(), "parcel_receipt_http_requests_total")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSession(session.Event{Kind: session.EventStamp})
		m.ObserveJob(printer.PrintJob{})
		m.ObserveRequest("/", http.MethodGet, 200, time.Second)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
