package observability

import "github.com/prometheus/client_golang/prometheus"

// Payment rejection reasons.
const (
	RejectOverpayment = "overpayment"
	RejectCancelled   = "cancelled"
	RejectInvalid     = "invalid_amount"
	RejectDuplicate   = "duplicate_request"
)

// BillingMetrics counts numbered documents and payment outcomes. A nil
// *BillingMetrics is a no-op.
type BillingMetrics struct {
	paymentsApplied   prometheus.Counter
	paymentsRejected  *prometheus.CounterVec
	documentsNumbered *prometheus.CounterVec
}

// NewBillingMetrics registers the billing collectors.
func NewBillingMetrics(registerer prometheus.Registerer) *BillingMetrics {
	applied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_payments_applied_total",
		Help: "Payments applied to invoices.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_payments_rejected_total",
		Help: "Payments rejected by business rules, by reason.",
	}, []string{"reason"})
	numbered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_documents_numbered_total",
		Help: "Document numbers allocated, by document type.",
	}, []string{"type"})
	registerer.MustRegister(applied, rejected, numbered)
	return &BillingMetrics{paymentsApplied: applied, paymentsRejected: rejected, documentsNumbered: numbered}
}

func (b *BillingMetrics) PaymentApplied() {
	if b == nil {
		return
	}
	b.paymentsApplied.Inc()
}

func (b *BillingMetrics) PaymentRejected(reason string) {
	if b == nil {
		return
	}
	b.paymentsRejected.WithLabelValues(reason).Inc()
}

func (b *BillingMetrics) DocumentNumbered(docType string) {
	if b == nil {
		return
	}
	b.documentsNumbered.WithLabelValues(docType).Inc()
}
