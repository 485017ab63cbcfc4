package checkout

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nimbusvr/trackshop-backend/internal/tracking"
	"github.com/nimbusvr/trackshop-backend/pkg/config"
	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
	"github.com/nimbusvr/trackshop-backend/pkg/dlocalgo"
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/paypal"
)

const (
	webhookBasePath = "/api/v1/webhooks"

	// PayPalReturnPath is where PayPal sends the buyer back after approval.
	// The handler there captures the order; pointing the return URL at the
	// storefront directly would leave approved orders uncaptured.
	PayPalReturnPath = "/api/v1/payments/paypal/return"
)

// redirectProvider is the slice of the dLocal Go client checkout needs.
type redirectProvider interface {
	CreatePayment(ctx context.Context, intent dlocalgo.PaymentIntentRequest) (*dlocalgo.CreatePaymentResult, error)
}

// walletProvider is the slice of the PayPal client checkout needs.
type walletProvider interface {
	CreateOrder(ctx context.Context, intent paypal.OrderIntentRequest) (*paypal.CreateOrderResult, error)
}

// checkoutRepository is the slice of the tracking store checkout needs.
type checkoutRepository interface {
	Create(ctx context.Context, record *models.TrackingRecord) (*models.TrackingRecord, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

// ServiceParams wires the checkout collaborators.
type ServiceParams struct {
	Repo      checkoutRepository
	Factory   *tracking.Factory
	DLocalGo  redirectProvider
	PayPal    walletProvider
	PublicURL string
	Checkout  config.CheckoutConfig
	Logger    *logger.Logger
	Validator *validator.Validate
}

// Service starts payments: it persists the pending record first so the
// provider callback always has something to reconcile against, then hands the
// buyer off to the provider's hosted flow.
type Service struct {
	repo      checkoutRepository
	factory   *tracking.Factory
	dlocalgo  redirectProvider
	paypal    walletProvider
	publicURL string
	checkout  config.CheckoutConfig
	log       *logger.Logger
	validate  *validator.Validate
}

// NewService validates collaborators and builds the checkout service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tracking repository required")
	}
	if params.Factory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "record factory required")
	}
	if params.DLocalGo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dlocalgo client required")
	}
	if params.PayPal == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.PublicURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "public url required")
	}
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	return &Service{
		repo:      params.Repo,
		factory:   params.Factory,
		dlocalgo:  params.DLocalGo,
		paypal:    params.PayPal,
		publicURL: strings.TrimRight(params.PublicURL, "/"),
		checkout:  params.Checkout,
		log:       params.Logger,
		validate:  validate,
	}, nil
}

// Start validates the intent, persists a pending record keyed by a fresh
// transaction id, registers the payment with the selected provider and
// returns the buyer redirect URL. A provider failure leaves the pending
// record behind; it simply never completes.
func (s *Service) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout request").
			WithDetails(fieldErrors(err))
	}
	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	if !req.TotalUSD.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total must be positive").
			WithDetails(map[string]string{"totalUsd": "must be positive"})
	}

	txID := uuid.NewString()
	ctx = s.log.WithTransactionID(s.log.WithProvider(ctx, method.String()), txID)

	record := s.factory.Build(tracking.NewRecordIntent{
		DisplayName:     req.DisplayName,
		TrackerCount:    req.TrackerCount,
		Sensor:          req.Sensor,
		Magnetometer:    req.Magnetometer,
		CaseColor:       req.CaseColor,
		CoverColor:      req.CoverColor,
		TotalUSD:        req.TotalUSD,
		Extras:          req.Extras,
		ShippingCountry: req.ShippingCountry,
		ShippingAddress: req.ShippingAddress,
		VRChatUsername:  req.VRChatUsername,
		PaymentMethod:   method,
		Currency:        req.Currency,
	})
	record.PaymentTransactionID = &txID

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist checkout record")
	}
	ctx = s.log.WithRecordID(ctx, created.ID.String())

	redirectURL, providerOrderID, err := s.registerPayment(ctx, method, created, txID)
	if err != nil {
		s.log.Warn(ctx, "provider handoff failed, record stays pending")
		return nil, err
	}

	if providerOrderID != "" {
		if err := s.repo.Update(ctx, created.ID, map[string]any{"provider_order_id": providerOrderID}); err != nil {
			// The webhook carries the order id too, so losing this write is
			// recoverable. The buyer redirect matters more.
			s.log.Warn(s.log.WithField(ctx, "update_error", err.Error()), "storing provider order id failed")
		}
	}

	s.log.Info(ctx, "checkout started")
	return &StartResult{
		RedirectURL:   redirectURL,
		TrackingHash:  created.UserHash,
		TransactionID: txID,
	}, nil
}

func (s *Service) registerPayment(ctx context.Context, method enums.PaymentMethod, record *models.TrackingRecord, txID string) (string, string, error) {
	switch method {
	case enums.PaymentMethodDLocalGo:
		result, err := s.dlocalgo.CreatePayment(ctx, dlocalgo.PaymentIntentRequest{
			OrderID:         txID,
			Amount:          record.TotalUSD,
			Currency:        record.PaymentCurrency,
			Description:     paymentDescription(record),
			Country:         record.ShippingCountry,
			SuccessURL:      s.publicURL + s.checkout.SuccessPath,
			BackURL:         s.publicURL + s.checkout.CancelPath,
			NotificationURL: s.publicURL + webhookBasePath + "/dlocalgo",
		})
		if err != nil {
			return "", "", err
		}
		return result.RedirectURL, result.Token, nil

	case enums.PaymentMethodPayPal:
		result, err := s.paypal.CreateOrder(ctx, paypal.OrderIntentRequest{
			TransactionID: txID,
			Amount:        record.TotalUSD,
			Currency:      record.PaymentCurrency,
			Description:   paymentDescription(record),
			ReturnURL:     s.publicURL + PayPalReturnPath,
			CancelURL:     s.publicURL + s.checkout.CancelPath,
		})
		if err != nil {
			return "", "", err
		}
		return result.ApproveURL, result.Token, nil
	}
	return "", "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
}

func paymentDescription(record *models.TrackingRecord) string {
	return "Motion trackers order for " + record.DisplayName
}

// NewValidator builds a validator that reports violations under the JSON
// field names the storefront sends.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// fieldErrors flattens validator violations into a field to message map.
func fieldErrors(err error) map[string]string {
	details := map[string]string{}
	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return details
	}
	for _, violation := range violations {
		details[violation.Field()] = "failed on " + violation.Tag()
	}
	return details
}
