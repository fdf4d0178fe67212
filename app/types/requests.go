package types

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

type ProvisionUserRequest struct {
	Name string `json:"name"`
}

func NewProvisionUserRequestFromContext(ctx echo.Context) (*ProvisionUserRequest, error) {
	var body ProvisionUserRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.Name = strings.TrimSpace(body.Name)
	return &body, nil
}

func (r *ProvisionUserRequest) Validate() error {
	if len(r.Name) > 255 {
		return errors.New("name is too long")
	}
	return nil
}

type CreatePaymentRequest struct {
	Plan string `json:"plan"`
}

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Plan = strings.ToLower(strings.TrimSpace(body.Plan))
	return &body, nil
}

func (r *CreatePaymentRequest) Validate() error {
	if r.Plan == "" {
		return errors.New("plan is required")
	}
	return nil
}

type VerifyPaymentRequest struct {
	TransactionId string
}

func NewVerifyPaymentRequestFromContext(ctx echo.Context) (*VerifyPaymentRequest, error) {
	return &VerifyPaymentRequest{TransactionId: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *VerifyPaymentRequest) Validate() error {
	if r.TransactionId == "" {
		return errors.New("transaction id is required")
	}
	return nil
}

// VerifyLookupRequest is the redirect landing lookup. The transaction id wins
// when both identifiers are present.
type VerifyLookupRequest struct {
	TransactionId string
	InvoiceId     string
}

func NewVerifyLookupRequestFromContext(ctx echo.Context) (*VerifyLookupRequest, error) {
	req := &VerifyLookupRequest{
		TransactionId: strings.TrimSpace(ctx.QueryParam("transaction_id")),
		InvoiceId:     strings.TrimSpace(ctx.QueryParam("invoice_id")),
	}
	if req.InvoiceId == "" {
		req.InvoiceId = strings.TrimSpace(ctx.QueryParam("mayar_invoice_id"))
	}
	return req, nil
}

func (r *VerifyLookupRequest) Validate() error {
	if r.TransactionId == "" && r.InvoiceId == "" {
		return errors.New("transaction_id or invoice_id is required")
	}
	return nil
}

type MayarWebhookRequest struct {
	Event     string          `json:"event"`
	InvoiceId string          `json:"invoice_id"`
	Data      json.RawMessage `json:"data"`
}

type mayarWebhookData struct {
	Id        string `json:"id"`
	InvoiceId string `json:"invoiceId"`
}

// NewMayarWebhookRequestFromContext accepts {"invoice_id": ...} or the
// provider envelope {"event": ..., "data": {"id": ...}}.
func NewMayarWebhookRequestFromContext(ctx echo.Context) (*MayarWebhookRequest, error) {
	var body MayarWebhookRequest
	if err := json.NewDecoder(ctx.Request().Body).Decode(&body); err != nil {
		return nil, err
	}

	body.InvoiceId = strings.TrimSpace(body.InvoiceId)
	if body.InvoiceId == "" && len(body.Data) > 0 {
		var data mayarWebhookData
		if err := json.Unmarshal(body.Data, &data); err == nil {
			body.InvoiceId = strings.TrimSpace(data.InvoiceId)
			if body.InvoiceId == "" {
				body.InvoiceId = strings.TrimSpace(data.Id)
			}
		}
	}

	return &body, nil
}

func (r *MayarWebhookRequest) Validate() error {
	if r.InvoiceId == "" {
		return errors.New("invoice id is required")
	}
	return nil
}

// PageRequest reads ?limit=&offset=. Missing values stay zero and the
// service applies its defaults.
type PageRequest struct {
	Limit  int32
	Offset int32
}

func NewPageRequestFromContext(ctx echo.Context) (*PageRequest, error) {
	req := &PageRequest{}
	if err := echo.QueryParamsBinder(ctx).
		Int32("limit", &req.Limit).
		Int32("offset", &req.Offset).
		BindError(); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *PageRequest) Validate() error {
	if r.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	if r.Offset < 0 {
		return errors.New("offset must not be negative")
	}
	return nil
}

type LogAdminActionRequest struct {
	Action       string `json:"action"`
	TargetUserId string `json:"target_user_id"`
	Details      string `json:"details"`
}

func NewLogAdminActionRequestFromContext(ctx echo.Context) (*LogAdminActionRequest, error) {
	var body LogAdminActionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Action = strings.ToLower(strings.TrimSpace(body.Action))
	body.TargetUserId = strings.TrimSpace(body.TargetUserId)
	body.Details = strings.TrimSpace(body.Details)
	return &body, nil
}

func (r *LogAdminActionRequest) Validate() error {
	if r.Action == "" {
		return errors.New("action is required")
	}
	if r.Details == "" {
		return errors.New("details is required")
	}
	return nil
}
