package jobs

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueMail carries outbound mail so a slow SMTP relay never delays maintenance work.
	QueueMail = "mail"

	TaskRefreshInvoiceStatus = "invoices:refresh-status"
	TaskExpireQuotes         = "quotes:expire"
	TaskDashboardWarmup      = "dashboard:warmup"
	TaskIdempotencyCleanup   = "idempotency:cleanup"
	TaskPaymentReceipt       = "mail:payment-receipt"
)

// DefaultIdempotencyRetention is how long processed request keys are kept.
const DefaultIdempotencyRetention = 24 * time.Hour

// PaymentReceiptPayload identifies the payment a confirmation mail is sent for.
type PaymentReceiptPayload struct {
	PaymentID int64 `json:"paymentId"`
}

// IdempotencyCleanupPayload overrides the retention window in hours.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retentionHours,omitempty"`
}

func (p IdempotencyCleanupPayload) retention() time.Duration {
	if p.RetentionHours <= 0 {
		return DefaultIdempotencyRetention
	}
	return time.Duration(p.RetentionHours) * time.Hour
}

// NewPaymentReceiptTask constructs the receipt mail task.
func NewPaymentReceiptTask(paymentID int64) (*asynq.Task, error) {
	if paymentID <= 0 {
		return nil, fmt.Errorf("jobs: payment receipt requires a payment id")
	}
	data, err := json.Marshal(PaymentReceiptPayload{PaymentID: paymentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentReceipt, data, asynq.Queue(QueueMail), asynq.MaxRetry(5)), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task. Zero keeps the default retention.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// NewRefreshInvoiceStatusTask constructs the hourly status refresh.
func NewRefreshInvoiceStatusTask() *asynq.Task {
	return asynq.NewTask(TaskRefreshInvoiceStatus, nil)
}

// NewExpireQuotesTask constructs the daily quote expiry.
func NewExpireQuotesTask() *asynq.Task {
	return asynq.NewTask(TaskExpireQuotes, nil)
}

// NewDashboardWarmupTask constructs the dashboard cache warmup.
func NewDashboardWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskDashboardWarmup, nil)
}

var manualTasks = map[string]func() (*asynq.Task, error){
	TaskRefreshInvoiceStatus: func() (*asynq.Task, error) { return NewRefreshInvoiceStatusTask(), nil },
	TaskExpireQuotes:         func() (*asynq.Task, error) { return NewExpireQuotesTask(), nil },
	TaskDashboardWarmup:      func() (*asynq.Task, error) { return NewDashboardWarmupTask(), nil },
	TaskIdempotencyCleanup:   func() (*asynq.Task, error) { return NewIdempotencyCleanupTask(0) },
}

// TaskByName builds a maintenance task that operators may trigger by hand.
// Receipt mails need a payment id and are not listed.
func TaskByName(name string) (*asynq.Task, error) {
	build, ok := manualTasks[name]
	if !ok {
		return nil, fmt.Errorf("jobs: unknown task %q (known: %v)", name, ManualTaskNames())
	}
	return build()
}

// ManualTaskNames lists the task types accepted by TaskByName.
func ManualTaskNames() []string {
	names := make([]string, 0, len(manualTasks))
	for name := range manualTasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
