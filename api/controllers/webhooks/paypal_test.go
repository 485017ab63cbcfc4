package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/nimbusvr/trackshop-backend/internal/reconciliation"
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
)

type paypalClientStub struct {
	verified bool
	err      error
	calls    int
}

func (s *paypalClientStub) VerifyIPN(context.Context, []byte) (bool, error) {
	s.calls++
	return s.verified, s.err
}

func ipnBody() string {
	values := url.Values{}
	values.Set("payment_status", "Completed")
	values.Set("txn_id", "PAYPAL-TXN-1")
	values.Set("custom", "tx-1")
	values.Set("mc_gross", "250.00")
	values.Set("mc_currency", "USD")
	values.Set("payer_email", "buyer@example.com")
	return values.Encode()
}

func postIPN(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paypal", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPayPalIPNHappyPath(t *testing.T) {
	client := &paypalClientStub{verified: true}
	engine := &reconcilerStub{result: &reconciliation.Result{Outcome: enums.ReconcileOutcomeUpdatedPending}}
	guard := &guardStub{fresh: true}

	rec := postIPN(t, PayPalIPN(client, engine, guard, nil, testLogger()), ipnBody())

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if client.calls != 1 {
		t.Fatalf("expected one verification round-trip, got %d", client.calls)
	}
	if engine.calls != 1 {
		t.Fatalf("expected one reconcile call, got %d", engine.calls)
	}
	if engine.obs.TransactionID != "tx-1" {
		t.Fatalf("the custom field must win as correlation key, got %q", engine.obs.TransactionID)
	}
	if !engine.obs.Successful {
		t.Fatalf("a Completed IPN must be successful")
	}
}

func TestPayPalIPNUnverifiedNeverTouchesStore(t *testing.T) {
	client := &paypalClientStub{verified: false}
	engine := &reconcilerStub{}
	guard := &guardStub{fresh: true}

	rec := postIPN(t, PayPalIPN(client, engine, guard, nil, testLogger()), ipnBody())

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unverified ipn must be rejected, got %d", rec.Code)
	}
	if engine.calls != 0 || guard.marks != 0 {
		t.Fatalf("unverified ipn must stop before any other work")
	}
}

func TestPayPalIPNVerificationOutageIsRetryable(t *testing.T) {
	client := &paypalClientStub{err: pkgerrors.New(pkgerrors.CodeProvider, "paypal unreachable")}
	engine := &reconcilerStub{}

	rec := postIPN(t, PayPalIPN(client, engine, &guardStub{fresh: true}, nil, testLogger()), ipnBody())

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("verification outages must answer non-200, got %d", rec.Code)
	}
	if engine.calls != 0 {
		t.Fatalf("verification outages must not reconcile")
	}
}

func TestPayPalIPNStoreFailureAnswersNon200(t *testing.T) {
	client := &paypalClientStub{verified: true}
	engine := &reconcilerStub{err: pkgerrors.New(pkgerrors.CodeDependency, "store unavailable")}
	guard := &guardStub{fresh: true}

	rec := postIPN(t, PayPalIPN(client, engine, guard, nil, testLogger()), ipnBody())

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("persistence failures must make paypal retry, got %d", rec.Code)
	}
	if guard.releases != 1 {
		t.Fatalf("a failed reconcile must release the replay mark")
	}
}

func TestPayPalIPNReplayAcknowledged(t *testing.T) {
	client := &paypalClientStub{verified: true}
	engine := &reconcilerStub{}
	guard := &guardStub{fresh: false}

	rec := postIPN(t, PayPalIPN(client, engine, guard, nil, testLogger()), ipnBody())

	if rec.Code != http.StatusOK {
		t.Fatalf("replays are acknowledged, got %d", rec.Code)
	}
	if engine.calls != 0 {
		t.Fatalf("replays must not reconcile again")
	}
}
