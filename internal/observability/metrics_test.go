package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	body := scrape(t, NewMetrics())
	if !strings.Contains(body, "backoffice_payments_applied_total 0") {
		t.Fatalf("expected body to contain backoffice_payments_applied_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "backoffice_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "backoffice_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestBillingMetrics(t *testing.T) {
	metrics := NewMetrics()
	billing := metrics.Billing()
	billing.PaymentApplied()
	billing.PaymentApplied()
	billing.PaymentRejected(RejectOverpayment)
	billing.DocumentNumbered("INVOICE")

	body := scrape(t, metrics)
	for _, want := range []string{
		"backoffice_payments_applied_total 2",
		`backoffice_payments_rejected_total{reason="overpayment"} 1`,
		`backoffice_documents_numbered_total{type="INVOICE"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}

	var nilBilling *BillingMetrics
	nilBilling.PaymentApplied()
	nilBilling.PaymentRejected(RejectCancelled)
	nilBilling.DocumentNumbered("QUOTE")
}

func TestJobMetricsShareRegistry(t *testing.T) {
	metrics := NewMetrics()
	_ = metrics.Jobs().Track("invoices:refresh-status").End(nil)
	body := scrape(t, metrics)
	if !strings.Contains(body, `backoffice_jobs_total{job="invoices:refresh-status",status="success"} 1`) {
		t.Fatalf("expected job run in metrics, got: %s", body)
	}
}
