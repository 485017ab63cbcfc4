// Package dlocalgo wraps the dLocal Go redirect gateway: payment creation,
// status retrieval, callback signature verification, and normalization of the
// gateway's status codes into provider-agnostic payment observations.
package dlocalgo

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimbusvr/trackshop-backend/pkg/config"
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

// SignatureHeader carries the HMAC of callback payloads.
const SignatureHeader = "X-Dlocalgo-Signature"

var (
	errAPIKeyRequired = errors.New("dlocalgo api key is required")
	errSecretRequired = errors.New("dlocalgo secret key is required")
	errBaseURLMissing = errors.New("dlocalgo base url is required")
)

// Client talks to the dLocal Go REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	secretKey  string
	logger     *logger.Logger
}

// NewClient validates the credentials once, at construction time.
func NewClient(ctx context.Context, cfg config.DLocalGoConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLMissing
	}

	if logg != nil {
		logg.Info(ctx, "dlocalgo client initialized")
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		secretKey:  secretKey,
		logger:     logg,
	}, nil
}

// PaymentIntentRequest describes the checkout intent sent to the gateway.
type PaymentIntentRequest struct {
	OrderID         string          `json:"order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description,omitempty"`
	Country         string          `json:"country,omitempty"`
	SuccessURL      string          `json:"success_url"`
	BackURL         string          `json:"back_url"`
	NotificationURL string          `json:"notification_url"`
}

// CreatePaymentResult is the redirect handoff returned by the gateway.
type CreatePaymentResult struct {
	Token       string `json:"id"`
	RedirectURL string `json:"redirect_url"`
}

// PaymentData is the gateway's settlement block. When fully populated the
// charge settled, whatever the nominal status code claims.
type PaymentData struct {
	Date   string `json:"date"`
	Method string `json:"payment_method_type"`
	Amount string `json:"amount"`
	Fee    string `json:"fee"`
}

// Payment is the raw payment resource as the gateway reports it.
type Payment struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	Status      int             `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PayerEmail  string          `json:"payer_email"`
	PaymentData *PaymentData    `json:"payment_data"`
}

// Nominal status codes as documented by the gateway.
const (
	StatusApproved  = 1
	StatusRejected  = 2
	StatusPending   = 3
	StatusCancelled = 4
)

// StatusText maps a nominal status code to the user-facing label used by the
// status-poll endpoint. Unknown codes read as pending.
func StatusText(status int) string {
	switch status {
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusPending:
		return "pending"
	case StatusCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// CreatePayment registers the intent and returns the buyer redirect URL.
func (c *Client) CreatePayment(ctx context.Context, intent PaymentIntentRequest) (*CreatePaymentResult, error) {
	body, err := json.Marshal(intent)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment intent")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payment request")
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	var result CreatePaymentResult
	if err := c.do(ctx, req, "create_payment", &result); err != nil {
		return nil, err
	}
	if result.Token == "" || result.RedirectURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "gateway returned incomplete payment handoff")
	}
	return &result, nil
}

// GetPayment fetches the raw payment resource by gateway token.
func (c *Client) GetPayment(ctx context.Context, token string) (*Payment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+token, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payment lookup")
	}
	c.authorize(req)

	var payment Payment
	if err := c.do(ctx, req, "get_payment", &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// VerifySignature checks the callback HMAC. Callers MUST reject the callback
// without touching any record when this returns false.
func (c *Client) VerifySignature(payload []byte, header string) bool {
	header = strings.TrimSpace(header)
	if header == "" || c.secretKey == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

// Observation normalizes a raw payment into the provider-agnostic shape.
//
// Known upstream quirk: the gateway sometimes reports a nominal "rejected"
// status while attaching a fully populated settlement block (date, method,
// amount). In practice those charges did settle, so a complete settlement
// block wins over the nominal code. Downstream callers rely on this being
// handled here, once, for every path.
func Observation(p *Payment) types.PaymentObservation {
	obs := types.PaymentObservation{
		Provider:        enums.PaymentMethodDLocalGo,
		ProviderOrderID: p.ID,
		TransactionID:   p.TransactionID(),
		Currency:        p.Currency,
		PayerIdentifier: p.PayerEmail,
		RawStatus:       fmt.Sprintf("%d", p.Status),
	}

	if p.PaymentData != nil {
		obs.Settlement = types.SettlementMeta{
			Date:   p.PaymentData.Date,
			Method: p.PaymentData.Method,
			Amount: p.PaymentData.Amount,
			Fee:    p.PaymentData.Fee,
		}
	}

	obs.Successful = p.Status == StatusApproved || obs.Settlement.Complete()

	// Settlement amount is provider-attested; prefer it over the nominal one.
	obs.CapturedAmount = p.Amount
	if obs.Settlement.Amount != "" {
		if settled, err := decimal.NewFromString(obs.Settlement.Amount); err == nil {
			obs.CapturedAmount = settled
		}
	}

	return obs
}

// TransactionID returns the merchant correlation key for the payment.
func (p *Payment) TransactionID() string {
	return strings.TrimSpace(p.OrderID)
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey+":"+c.secretKey)
}

func (c *Client) do(ctx context.Context, req *http.Request, operation string, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, operation, map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, operation)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "read gateway response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log(ctx, operation, map[string]any{"status": resp.StatusCode})
		return pkgerrors.New(pkgerrors.CodeProvider, fmt.Sprintf("%s: gateway returned %d", operation, resp.StatusCode)).
			WithDetails(map[string]any{"body": string(payload)})
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode gateway response")
	}
	return nil
}

func (c *Client) log(ctx context.Context, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	fields["operation"] = operation
	ctx = c.logger.WithFields(ctx, fields)
	c.logger.Warn(ctx, "dlocalgo call failed")
}
