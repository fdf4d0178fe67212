package notification

import (
	"bytes"
	"html/template"
	"strconv"
	"strings"
)

type PaymentEmail struct {
	Name          string
	Plan          string
	Amount        int64
	Currency      string
	TransactionID string
	GatewayID     string
}

var successTemplate = template.Must(template.New("payment_success").Parse(`
<h2>Payment Confirmation</h2>
<p>Dear {{.Name}},</p>
<p>Thank you for your payment! Your {{.Plan}} plan subscription is now active.</p>
<p><strong>Transaction Details:</strong></p>
<ul>
  <li>Plan: {{.Plan}}</li>
  <li>Amount: {{.Amount}} {{.Currency}}</li>
  <li>Transaction ID: {{.TransactionID}}</li>
  <li>Gateway ID: {{.GatewayID}}</li>
</ul>
<p>You can access all premium features now.</p>
<p>Best regards,<br/>The Team</p>
`))

var failureTemplate = template.Must(template.New("payment_failed").Parse(`
<h2>Payment Failed</h2>
<p>Dear {{.Name}},</p>
<p>We were unable to process your payment for the {{.Plan}} plan.</p>
<p><strong>Transaction Details:</strong></p>
<ul>
  <li>Plan: {{.Plan}}</li>
  <li>Amount: {{.Amount}} {{.Currency}}</li>
  <li>Transaction ID: {{.TransactionID}}</li>
  <li>Gateway ID: {{.GatewayID}}</li>
</ul>
<p>Please try again or contact support if you need assistance.</p>
<p>Best regards,<br/>The Team</p>
`))

// RenderPaymentEmail returns subject and html body for a verification outcome.
func RenderPaymentEmail(success bool, data PaymentEmail) (string, string, error) {
	plan := strings.ToUpper(data.Plan)
	view := struct {
		Name          string
		Plan          string
		Amount        string
		Currency      string
		TransactionID string
		GatewayID     string
	}{
		Name:          data.Name,
		Plan:          plan,
		Amount:        FormatAmount(data.Amount),
		Currency:      data.Currency,
		TransactionID: data.TransactionID,
		GatewayID:     data.GatewayID,
	}

	tpl := failureTemplate
	subject := "Payment Failed - " + plan + " Plan"
	if success {
		tpl = successTemplate
		subject = "Payment Successful - " + plan + " Plan"
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, view); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}

// FormatAmount groups thousands with dots (id-ID style): 150000 -> 150.000.
func FormatAmount(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
