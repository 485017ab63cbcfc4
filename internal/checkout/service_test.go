package checkout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nimbusvr/trackshop-backend/internal/tracking"
	"github.com/nimbusvr/trackshop-backend/pkg/config"
	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
	"github.com/nimbusvr/trackshop-backend/pkg/dlocalgo"
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/identity"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/paypal"
)

type repoStub struct {
	created *models.TrackingRecord
	updates map[string]any
	err     error
}

func (s *repoStub) Create(_ context.Context, record *models.TrackingRecord) (*models.TrackingRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = record
	return record, nil
}

func (s *repoStub) Update(_ context.Context, _ uuid.UUID, fields map[string]any) error {
	s.updates = fields
	return nil
}

type dlocalgoStub struct {
	intent dlocalgo.PaymentIntentRequest
	result *dlocalgo.CreatePaymentResult
	err    error
	calls  int
}

func (s *dlocalgoStub) CreatePayment(_ context.Context, intent dlocalgo.PaymentIntentRequest) (*dlocalgo.CreatePaymentResult, error) {
	s.calls++
	s.intent = intent
	return s.result, s.err
}

type paypalStub struct {
	intent paypal.OrderIntentRequest
	result *paypal.CreateOrderResult
	err    error
	calls  int
}

func (s *paypalStub) CreateOrder(_ context.Context, intent paypal.OrderIntentRequest) (*paypal.CreateOrderResult, error) {
	s.calls++
	s.intent = intent
	return s.result, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func newTestService(t *testing.T, repo *repoStub, redirect *dlocalgoStub, wallet *paypalStub) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Repo:      repo,
		Factory:   tracking.NewFactory(),
		DLocalGo:  redirect,
		PayPal:    wallet,
		PublicURL: "https://shop.example.com",
		Checkout:  config.CheckoutConfig{SuccessPath: "/comprar/success", CancelPath: "/comprar/cancel"},
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return service
}

func validRequest(method string) StartRequest {
	return StartRequest{
		DisplayName:     "Nube",
		TrackerCount:    6,
		TotalUSD:        decimal.NewFromInt(250),
		ShippingCountry: "MX",
		PaymentMethod:   method,
	}
}

func TestStartRedirectGatewayFlow(t *testing.T) {
	repo := &repoStub{}
	redirect := &dlocalgoStub{result: &dlocalgo.CreatePaymentResult{
		Token:       "pay-token",
		RedirectURL: "https://gateway.example.com/pay/pay-token",
	}}
	wallet := &paypalStub{}

	result, err := newTestService(t, repo, redirect, wallet).Start(context.Background(), validRequest("dlocalgo"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RedirectURL != "https://gateway.example.com/pay/pay-token" {
		t.Fatalf("unexpected redirect url %q", result.RedirectURL)
	}
	if result.TrackingHash != identity.ComputeHash("Nube") {
		t.Fatalf("expected tracking hash of the created record")
	}
	if wallet.calls != 0 {
		t.Fatalf("wallet provider must not be called for the redirect method")
	}

	if repo.created == nil {
		t.Fatalf("expected a pending record to be persisted")
	}
	if repo.created.OrderStatus != enums.OrderStatusPendingPayment || !repo.created.IsPendingPayment {
		t.Fatalf("checkout records must start pending")
	}
	if repo.created.PaymentTransactionID == nil || *repo.created.PaymentTransactionID != result.TransactionID {
		t.Fatalf("the record must carry the transaction id handed to the provider")
	}
	if redirect.intent.OrderID != result.TransactionID {
		t.Fatalf("provider order id must be the transaction id")
	}
	if redirect.intent.NotificationURL != "https://shop.example.com/api/v1/webhooks/dlocalgo" {
		t.Fatalf("unexpected notification url %q", redirect.intent.NotificationURL)
	}
	if repo.updates["provider_order_id"] != "pay-token" {
		t.Fatalf("provider token must be stored after the handoff, got %v", repo.updates)
	}
}

func TestStartWalletFlow(t *testing.T) {
	repo := &repoStub{}
	redirect := &dlocalgoStub{}
	wallet := &paypalStub{result: &paypal.CreateOrderResult{
		Token:      "order-1",
		ApproveURL: "https://paypal.example.com/approve/order-1",
	}}

	result, err := newTestService(t, repo, redirect, wallet).Start(context.Background(), validRequest("paypal"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RedirectURL != "https://paypal.example.com/approve/order-1" {
		t.Fatalf("unexpected approve url %q", result.RedirectURL)
	}
	if redirect.calls != 0 {
		t.Fatalf("redirect provider must not be called for the wallet method")
	}
	if wallet.intent.TransactionID != result.TransactionID {
		t.Fatalf("wallet order must carry the transaction id")
	}
	if wallet.intent.ReturnURL != "https://shop.example.com"+PayPalReturnPath {
		t.Fatalf("the return url must hit the capture endpoint, got %q", wallet.intent.ReturnURL)
	}
	if wallet.intent.CancelURL != "https://shop.example.com/comprar/cancel" {
		t.Fatalf("unexpected cancel url %q", wallet.intent.CancelURL)
	}
}

func TestStartValidationFailureSkipsProviders(t *testing.T) {
	repo := &repoStub{}
	redirect := &dlocalgoStub{}
	wallet := &paypalStub{}

	req := validRequest("dlocalgo")
	req.DisplayName = ""

	_, err := newTestService(t, repo, redirect, wallet).Start(context.Background(), req)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok || details["nombreUsuario"] == "" {
		t.Fatalf("expected field-level details, got %v", pkgerrors.As(err).Details())
	}
	if repo.created != nil || redirect.calls != 0 || wallet.calls != 0 {
		t.Fatalf("invalid requests must not reach the store or providers")
	}
}

func TestStartRejectsNonPositiveTotal(t *testing.T) {
	req := validRequest("dlocalgo")
	req.TotalUSD = decimal.Zero

	_, err := newTestService(t, &repoStub{}, &dlocalgoStub{}, &paypalStub{}).Start(context.Background(), req)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartProviderFailureLeavesRecordPending(t *testing.T) {
	repo := &repoStub{}
	redirect := &dlocalgoStub{err: pkgerrors.New(pkgerrors.CodeProvider, "gateway returned 500")}

	_, err := newTestService(t, repo, redirect, &paypalStub{}).Start(context.Background(), validRequest("dlocalgo"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if repo.created == nil {
		t.Fatalf("the pending record must already exist when the handoff fails")
	}
	if repo.created.OrderStatus != enums.OrderStatusPendingPayment {
		t.Fatalf("the record must stay pending after a provider failure")
	}
}

func TestStartStoreFailurePropagates(t *testing.T) {
	repo := &repoStub{err: errors.New("connection refused")}

	_, err := newTestService(t, repo, &dlocalgoStub{}, &paypalStub{}).Start(context.Background(), validRequest("dlocalgo"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
