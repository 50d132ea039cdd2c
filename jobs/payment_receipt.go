package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/mipyme/backoffice/internal/ar"
	"github.com/mipyme/backoffice/internal/masterdata/companies"
	"github.com/mipyme/backoffice/internal/platform/httpx"
)

// ReceiptSource loads payment confirmation data.
type ReceiptSource interface {
	Receipt(ctx context.Context, paymentID int64) (*ar.Receipt, error)
}

// CompanySource loads the issuing company profile.
type CompanySource interface {
	Get(ctx context.Context) (*companies.Company, error)
}

var receiptLocale = language.MustParse("es-CL")

// PaymentReceiptJob mails a payment confirmation to the invoice customer.
type PaymentReceiptJob struct {
	Runtime
	Receipts  ReceiptSource
	Companies CompanySource
	Mailer    Mailer
}

// NewPaymentReceiptJob wires dependencies for the receipt handler.
func NewPaymentReceiptJob(receipts ReceiptSource, companySource CompanySource, mailer Mailer, rt Runtime) *PaymentReceiptJob {
	return &PaymentReceiptJob{Runtime: rt, Receipts: receipts, Companies: companySource, Mailer: mailer}
}

// Handle processes TaskPaymentReceipt.
func (j *PaymentReceiptJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Receipts == nil || j.Mailer == nil {
		return errors.New("payment receipt: handler not configured")
	}
	var payload PaymentReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.PaymentID <= 0 {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskPaymentReceipt)
	defer func() { err = tracker.End(err) }()

	logger := j.logger(TaskPaymentReceipt).With(slog.Int64("payment_id", payload.PaymentID))
	receipt, err := j.Receipts.Receipt(ctx, payload.PaymentID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			logger.Warn("payment no longer exists, receipt skipped")
			return fmt.Errorf("payment %d: %w", payload.PaymentID, asynq.SkipRetry)
		}
		return err
	}
	if strings.TrimSpace(receipt.CustomerEmail) == "" {
		logger.Info("customer has no email, receipt skipped")
		return nil
	}

	company := companies.Company{Currency: "CLP"}
	if j.Companies != nil {
		found, err := j.Companies.Get(ctx)
		switch {
		case err == nil:
			company = *found
		case errors.Is(err, httpx.ErrNotFound):
		default:
			return err
		}
	}

	msg := ReceiptMessage(*receipt, company)
	if err := j.Mailer.Send(ctx, msg); err != nil {
		logger.Error("send payment receipt", slog.Any("error", err))
		return err
	}
	j.metrics().AddAffected(TaskPaymentReceipt, 1)
	logger.Info("payment receipt sent", slog.String("invoice", receipt.InvoiceNumber))
	return nil
}

// ReceiptMessage renders the confirmation mail for a payment.
func ReceiptMessage(r ar.Receipt, company companies.Company) Message {
	sender := strings.TrimSpace(company.Name)
	if sender == "" {
		sender = "Su proveedor"
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Estimado/a %s,\n\n", r.CustomerName)
	fmt.Fprintf(&body, "Hemos registrado su pago de %s para la factura %s.\n\n",
		FormatAmount(company.Currency, r.Amount), r.InvoiceNumber)
	fmt.Fprintf(&body, "Fecha de pago: %s\n", r.PaidAt.Format("02-01-2006"))
	fmt.Fprintf(&body, "Método: %s\n", methodLabel(r.Method))
	if r.Reference != nil && *r.Reference != "" {
		fmt.Fprintf(&body, "Referencia: %s\n", *r.Reference)
	}
	fmt.Fprintf(&body, "Total factura: %s\n", FormatAmount(company.Currency, r.Total))
	fmt.Fprintf(&body, "Total pagado: %s\n", FormatAmount(company.Currency, r.Paid))
	fmt.Fprintf(&body, "Saldo pendiente: %s\n\n", FormatAmount(company.Currency, r.Balance))
	fmt.Fprintf(&body, "Gracias por su preferencia.\n%s\n", sender)

	return Message{
		To:      []string{r.CustomerEmail},
		Subject: fmt.Sprintf("Confirmación de pago - Factura %s", r.InvoiceNumber),
		Body:    body.String(),
	}
}

// FormatAmount renders an amount with the currency's standard digits and
// Chilean grouping, prefixed by the ISO code.
func FormatAmount(code string, amount decimal.Decimal) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	p := message.NewPrinter(receiptLocale)
	formatted := p.Sprint(number.Decimal(amount.Round(int32(scale)).InexactFloat64(), number.Scale(scale)))
	if code == "" {
		return formatted
	}
	return code + " " + formatted
}

func methodLabel(m ar.PaymentMethod) string {
	switch m {
	case ar.MethodTransfer:
		return "Transferencia"
	case ar.MethodCash:
		return "Efectivo"
	case ar.MethodCard:
		return "Tarjeta"
	case ar.MethodCheck:
		return "Cheque"
	default:
		return "Otro"
	}
}
