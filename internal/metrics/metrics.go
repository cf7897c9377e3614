// Package metrics exposes the prometheus collectors of the invoicing service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Invoice operations.
const (
	OpCreate       = "create"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpStatusChange = "status_change"
)

// Ledger events.
const (
	LedgerCreated       = "invoice_created"
	LedgerDeleted       = "invoice_deleted"
	LedgerStatusChanged = "status_changed"
	LedgerRecomputed    = "recomputed"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	invoiceOps    *prometheus.CounterVec
	ledgerEvents  *prometheus.CounterVec
	recurring     *prometheus.CounterVec
	reconcileDiff prometheus.Counter
}

// New registers the collectors on registerer (prometheus.DefaultRegisterer when nil).
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicebook_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invoicebook_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		invoiceOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicebook_invoice_operations_total",
			Help: "Invoice store operations by outcome.",
		}, []string{"op", "result"}),
		ledgerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicebook_ledger_events_total",
			Help: "Company ledger adjustments by event.",
		}, []string{"event"}),
		recurring: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicebook_recurring_occurrences_total",
			Help: "Recurring invoice occurrences by result.",
		}, []string{"result"}),
		reconcileDiff: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoicebook_reconcile_drift_total",
			Help: "Companies whose stored revenue differed from their paid invoices.",
		}),
	}
	registerer.MustRegister(m.httpRequests, m.httpDuration, m.invoiceOps, m.ledgerEvents, m.recurring, m.reconcileDiff)
	return m
}

func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) InvoiceOp(op string, err error) {
	if m == nil {
		return
	}
	m.invoiceOps.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) LedgerEvent(event string) {
	if m == nil {
		return
	}
	m.ledgerEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) RecurringOccurrence(err error) {
	if m == nil {
		return
	}
	m.recurring.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ReconcileDrift() {
	if m == nil {
		return
	}
	m.reconcileDiff.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
