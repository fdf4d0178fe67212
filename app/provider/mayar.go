package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
)

const (
	defaultMayarBaseURL = "https://api.mayar.id"
	defaultCurrency     = "IDR"
)

type MayarConfig struct {
	APIKey      string
	BaseURL     string
	HTTPTimeout time.Duration
}

type MayarGateway struct {
	cfg    MayarConfig
	client *http.Client
	logger logrus.FieldLogger
}

func NewMayarGateway(cfg MayarConfig) *MayarGateway {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultMayarBaseURL
	}

	logger := factory.NewModuleLogger("mayar-gateway")
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("MAYAR_API_KEY is not set, gateway requests will be rejected by the provider")
	}

	return &MayarGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (g *MayarGateway) Name() string {
	return "mayar"
}

func (g *MayarGateway) CreateInvoice(ctx context.Context, input *InvoiceInput) (*InvoiceResult, error) {
	if input == nil || strings.TrimSpace(input.CorrelationID) == "" {
		return nil, fmt.Errorf("%w: correlation id is required", ErrInvalidArgument)
	}

	returnURL, err := withCorrelationID(input.RedirectURL, input.CorrelationID)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	payload := map[string]interface{}{
		"customer_name":   input.CustomerName,
		"customer_email":  input.CustomerEmail,
		"customer_mobile": input.CustomerMobile,
		"description":     input.Description,
		"amount":          input.Amount,
		"currency":        currency,
		"callback_url":    returnURL,
		"redirect_url":    returnURL,
		"metadata": map[string]string{
			"transactionId": input.CorrelationID,
			"plan":          strings.ToLower(strings.TrimSpace(input.Plan)),
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	body, err := g.do(ctx, http.MethodPost, "/invoices", encoded)
	if err != nil {
		return nil, err
	}

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    *struct {
			ID         string `json:"id"`
			PaymentURL string `json:"payment_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: create invoice: invalid response body: %v", ErrGateway, err)
	}
	if !response.Success || response.Data == nil {
		return nil, fmt.Errorf("%w: create invoice: provider reported failure: %s", ErrGateway, response.Message)
	}

	result := &InvoiceResult{
		ID:         strings.TrimSpace(response.Data.ID),
		PaymentURL: strings.TrimSpace(response.Data.PaymentURL),
		Raw:        json.RawMessage(body),
	}
	if result.ID == "" || result.PaymentURL == "" {
		return nil, fmt.Errorf("%w: create invoice: invoice id or payment url missing", ErrGateway)
	}

	g.logger.WithField("invoice_id", result.ID).WithField("correlation_id", input.CorrelationID).Info("Invoice created")
	return result, nil
}

func (g *MayarGateway) FetchTransactionStatus(ctx context.Context, providerTransactionID string) (*StatusResult, error) {
	providerTransactionID = strings.TrimSpace(providerTransactionID)
	if providerTransactionID == "" {
		return nil, fmt.Errorf("%w: provider transaction id is required", ErrInvalidArgument)
	}
	return g.fetchStatus(ctx, "/transactions/"+url.PathEscape(providerTransactionID))
}

func (g *MayarGateway) FetchByInvoiceOrTransactionID(ctx context.Context, invoiceID, transactionID string) (*StatusResult, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	transactionID = strings.TrimSpace(transactionID)

	switch {
	case transactionID != "":
		return g.fetchStatus(ctx, "/transactions/"+url.PathEscape(transactionID))
	case invoiceID != "":
		return g.fetchStatus(ctx, "/invoices/"+url.PathEscape(invoiceID))
	default:
		return nil, fmt.Errorf("%w: either invoice id or transaction id is required", ErrInvalidArgument)
	}
}

func (g *MayarGateway) fetchStatus(ctx context.Context, path string) (*StatusResult, error) {
	body, err := g.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: fetch status: invalid response body: %v", ErrGateway, err)
	}

	if !response.Success {
		return nil, fmt.Errorf("%w: fetch status: provider reported failure: %s", ErrGateway, truncate(response.Message, 256))
	}

	result := &StatusResult{
		Success: response.Success,
		Message: response.Message,
		Raw:     response.Data,
	}
	if len(response.Data) == 0 || string(response.Data) == "null" {
		return result, nil
	}

	var data struct {
		ID       string      `json:"id"`
		Status   string      `json:"status"`
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
	}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		// Shape we do not understand: keep the raw payload, classification stays false.
		g.logger.WithError(err).WithField("path", path).Warn("Unrecognized status payload")
		result.Success = false
		return result, nil
	}

	result.ID = strings.TrimSpace(data.ID)
	result.Status = data.Status
	result.Amount = parseAmount(data.Amount)
	result.Currency = strings.ToUpper(strings.TrimSpace(data.Currency))
	return result, nil
}

func (g *MayarGateway) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrGateway, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: read body: %v", ErrGateway, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.WithField("path", path).WithField("status", resp.StatusCode).Error("Mayar API error")
		return nil, fmt.Errorf("%w: %s %s: status=%d body=%s", ErrGateway, method, path, resp.StatusCode, truncate(string(body), 512))
	}

	return body, nil
}

func withCorrelationID(target, correlationID string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("%w: redirect url is required", ErrInvalidArgument)
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: redirect url: %v", ErrInvalidArgument, err)
	}
	query := parsed.Query()
	query.Set("transaction_id", correlationID)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func parseAmount(n json.Number) int64 {
	if n == "" {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return v
	}
	if f, err := n.Float64(); err == nil {
		return int64(f)
	}
	return 0
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
