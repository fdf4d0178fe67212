package types

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(method, target, body string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestCreatePaymentRequestNormalizesPlan(t *testing.T) {
	ctx := newContext(http.MethodPost, "/payments", `{"plan":"  Premium "}`)
	req, err := NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Plan != "premium" {
		t.Fatalf("unexpected plan: %q", req.Plan)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	if err := (&CreatePaymentRequest{}).Validate(); err == nil {
		t.Fatal("expected missing plan to fail validation")
	}
}

func TestProvisionUserRequestAllowsEmptyBody(t *testing.T) {
	ctx := newContext(http.MethodPost, "/users/me", "")
	req, err := NewProvisionUserRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Name != "" || req.Validate() != nil {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestVerifyPaymentRequestFromParam(t *testing.T) {
	ctx := newContext(http.MethodPost, "/payments/tx-1/verify", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues(" tx-1 ")

	req, _ := NewVerifyPaymentRequestFromContext(ctx)
	if req.TransactionId != "tx-1" || req.Validate() != nil {
		t.Fatalf("unexpected request: %+v", req)
	}
	if (&VerifyPaymentRequest{}).Validate() == nil {
		t.Fatal("expected empty id to fail validation")
	}
}

func TestVerifyLookupRequest(t *testing.T) {
	req, _ := NewVerifyLookupRequestFromContext(newContext(http.MethodGet, "/payments/verify?transaction_id=tx-1&invoice_id=inv_1", ""))
	if req.TransactionId != "tx-1" || req.InvoiceId != "inv_1" {
		t.Fatalf("unexpected request: %+v", req)
	}

	req, _ = NewVerifyLookupRequestFromContext(newContext(http.MethodGet, "/payments/verify?mayar_invoice_id=inv_2", ""))
	if req.InvoiceId != "inv_2" || req.Validate() != nil {
		t.Fatalf("expected legacy invoice param to be accepted, got %+v", req)
	}

	req, _ = NewVerifyLookupRequestFromContext(newContext(http.MethodGet, "/payments/verify", ""))
	if req.Validate() == nil {
		t.Fatal("expected missing identifiers to fail validation")
	}
}

func TestMayarWebhookRequestShapes(t *testing.T) {
	cases := map[string]string{
		`{"invoice_id":"inv_1"}`:                            "inv_1",
		`{"event":"payment.received","data":{"id":"inv_1"}}`: "inv_1",
		`{"data":{"id":"trx_1","invoiceId":"inv_1"}}`:        "inv_1",
		`{"event":"ping"}`:                                   "",
	}
	for body, want := range cases {
		req, err := NewMayarWebhookRequestFromContext(newContext(http.MethodPost, "/webhooks/mayar", body))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", body, err)
		}
		if req.InvoiceId != want {
			t.Fatalf("%s: expected %q, got %q", body, want, req.InvoiceId)
		}
		if (req.Validate() == nil) != (want != "") {
			t.Fatalf("%s: unexpected validation result", body)
		}
	}

	if _, err := NewMayarWebhookRequestFromContext(newContext(http.MethodPost, "/webhooks/mayar", "not json")); err == nil {
		t.Fatal("expected malformed body to fail")
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	ctx := newContext(http.MethodGet, "/admin/users?limit=20&offset=40", "")
	req, err := NewPageRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Limit != 20 || req.Offset != 40 {
		t.Fatalf("unexpected page: %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestPageRequestRejectsBadValues(t *testing.T) {
	if _, err := NewPageRequestFromContext(newContext(http.MethodGet, "/admin/users?limit=abc", "")); err == nil {
		t.Fatal("expected bind error for non-numeric limit")
	}

	req, err := NewPageRequestFromContext(newContext(http.MethodGet, "/admin/users?offset=-1", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for negative offset")
	}
}

func TestLogAdminActionRequestNormalizes(t *testing.T) {
	ctx := newContext(http.MethodPost, "/admin/actions", `{"action":" USER_Upgrade ","target_user_id":" user-2 ","details":" comp account "}`)
	req, err := NewLogAdminActionRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Action != "user_upgrade" || req.TargetUserId != "user-2" || req.Details != "comp account" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	empty, _ := NewLogAdminActionRequestFromContext(newContext(http.MethodPost, "/admin/actions", `{"action":"user_edit"}`))
	if err := empty.Validate(); err == nil {
		t.Fatal("expected validation error for missing details")
	}
}
