package dlocalgo

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nimbusvr/trackshop-backend/pkg/config"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), config.DLocalGoConfig{
		APIKey:    "key",
		SecretKey: "secret",
		BaseURL:   baseURL,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), config.DLocalGoConfig{
		APIKey:  "key",
		BaseURL: "https://api-sbx.dlocalgo.com",
	}, nil)
	if err == nil {
		t.Fatalf("expected missing secret to fail at construction")
	}
}

func TestCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key:secret" {
			t.Fatalf("missing gateway authorization header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"PAY-1","redirect_url":"https://pay.example/PAY-1"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.CreatePayment(context.Background(), PaymentIntentRequest{
		OrderID:  "T1",
		Amount:   decimal.NewFromInt(250),
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if result.Token != "PAY-1" || result.RedirectURL == "" {
		t.Fatalf("unexpected handoff %+v", result)
	}
}

func TestGetPaymentMapsHTTPFailureToProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.GetPayment(context.Background(), "PAY-1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeProvider) {
		t.Fatalf("expected PROVIDER_ERROR, got %v", err)
	}
}

func TestVerifySignature(t *testing.T) {
	client := newTestClient(t, "https://api-sbx.dlocalgo.com")
	payload := []byte(`{"payment_id":"PAY-1"}`)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(payload)
	valid := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifySignature(payload, valid) {
		t.Fatalf("expected valid signature to pass")
	}
	if client.VerifySignature(payload, "deadbeef") {
		t.Fatalf("expected forged signature to fail")
	}
	if client.VerifySignature(payload, "") {
		t.Fatalf("expected empty signature to fail")
	}
}

func TestObservationNominalStatuses(t *testing.T) {
	cases := []struct {
		status     int
		successful bool
	}{
		{StatusApproved, true},
		{StatusRejected, false},
		{StatusPending, false},
		{StatusCancelled, false},
		{99, false}, // unknown reads as pending
	}
	for _, tc := range cases {
		obs := Observation(&Payment{
			ID:      "PAY-1",
			OrderID: "T1",
			Status:  tc.status,
			Amount:  decimal.NewFromInt(250),
		})
		if obs.Successful != tc.successful {
			t.Fatalf("status %d: expected successful=%v", tc.status, tc.successful)
		}
	}
}

func TestObservationSettlementOverridesRejectedStatus(t *testing.T) {
	obs := Observation(&Payment{
		ID:      "PAY-2",
		OrderID: "T2",
		Status:  StatusRejected,
		Amount:  decimal.NewFromInt(100),
		PaymentData: &PaymentData{
			Date:   "2026-02-11T10:00:00Z",
			Method: "CARD",
			Amount: "80",
			Fee:    "3.20",
		},
	})
	if !obs.Successful {
		t.Fatalf("complete settlement metadata must override the rejected status")
	}
	if !obs.CapturedAmount.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected settlement amount 80, got %s", obs.CapturedAmount)
	}
	if obs.RawStatus != "2" {
		t.Fatalf("raw status must be preserved for audit, got %q", obs.RawStatus)
	}
}

func TestObservationIncompleteSettlementDoesNotOverride(t *testing.T) {
	obs := Observation(&Payment{
		ID:      "PAY-3",
		OrderID: "T3",
		Status:  StatusRejected,
		PaymentData: &PaymentData{
			Date: "2026-02-11T10:00:00Z",
			// method and amount missing
		},
	})
	if obs.Successful {
		t.Fatalf("partial settlement metadata must not override the status")
	}
}

func TestStatusText(t *testing.T) {
	if StatusText(StatusApproved) != "approved" {
		t.Fatalf("unexpected label for approved")
	}
	if StatusText(42) != "pending" {
		t.Fatalf("unknown codes must read as pending")
	}
}
