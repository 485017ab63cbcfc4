// Package paypal wraps the PayPal REST API (orders v2) and classic IPN
// verification, normalizing both into provider-agnostic payment observations.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimbusvr/trackshop-backend/pkg/config"
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

const verifiedResponse = "VERIFIED"

var (
	errClientIDRequired = errors.New("paypal client id is required")
	errSecretRequired   = errors.New("paypal secret is required")
	errBaseURLMissing   = errors.New("paypal base url is required")
)

// Client talks to the PayPal REST API with cached OAuth credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	ipnURL     string
	clientID   string
	secret     string
	logger     *logger.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient validates the credentials once, at construction time.
func NewClient(ctx context.Context, cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errSecretRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLMissing
	}
	ipnURL := strings.TrimSpace(cfg.IPNURL)
	if ipnURL == "" {
		ipnURL = "https://ipnpb.paypal.com/cgi-bin/webscr"
	}

	if logg != nil {
		logg.Info(ctx, "paypal client initialized")
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		ipnURL:     ipnURL,
		clientID:   clientID,
		secret:     secret,
		logger:     logg,
	}, nil
}

// OrderIntentRequest describes the checkout intent sent to PayPal.
type OrderIntentRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	ReturnURL     string
	CancelURL     string
}

// CreateOrderResult is the redirect handoff returned by PayPal.
type CreateOrderResult struct {
	Token      string
	ApproveURL string
}

// Order is the raw order resource as PayPal reports it.
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	Payer         Payer          `json:"payer"`
}

// PurchaseUnit is one order line; checkout always sends exactly one, carrying
// the correlation transaction id in reference_id and custom_id.
type PurchaseUnit struct {
	ReferenceID string        `json:"reference_id"`
	CustomID    string        `json:"custom_id"`
	Amount      Amount        `json:"amount"`
	Payments    *UnitPayments `json:"payments"`
}

// UnitPayments holds the captures recorded against a purchase unit.
type UnitPayments struct {
	Captures []Capture `json:"captures"`
}

// Capture is one settled payment against an order.
type Capture struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Amount     Amount `json:"amount"`
	CreateTime string `json:"create_time"`
}

// Amount is PayPal's currency/value pair.
type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// Payer identifies the buyer account that approved the order.
type Payer struct {
	EmailAddress string `json:"email_address"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// CreateOrder registers a CAPTURE-intent order and returns the approve URL.
func (c *Client) CreateOrder(ctx context.Context, intent OrderIntentRequest) (*CreateOrderResult, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": intent.TransactionID,
			"custom_id":    intent.TransactionID,
			"description":  intent.Description,
			"amount": map[string]string{
				"currency_code": intent.Currency,
				"value":         intent.Amount.StringFixed(2),
			},
		}},
		"application_context": map[string]string{
			"return_url": intent.ReturnURL,
			"cancel_url": intent.CancelURL,
		},
	}

	var resp struct {
		ID    string `json:"id"`
		Links []link `json:"links"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", payload, "create_order", &resp); err != nil {
		return nil, err
	}

	approve := ""
	for _, l := range resp.Links {
		if l.Rel == "approve" {
			approve = l.Href
		}
	}
	if resp.ID == "" || approve == "" {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "paypal returned incomplete order handoff")
	}
	return &CreateOrderResult{Token: resp.ID, ApproveURL: approve}, nil
}

// GetOrder fetches the raw order resource by PayPal order id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var order Order
	if err := c.doJSON(ctx, http.MethodGet, "/v2/checkout/orders/"+orderID, nil, "get_order", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CaptureOrder captures an approved order and returns its final state.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var order Order
	if err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", map[string]any{}, "capture_order", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifyIPN performs the mandatory out-of-band round-trip: the raw IPN body
// is posted back to PayPal and only the literal VERIFIED response is trusted.
func (c *Client) VerifyIPN(ctx context.Context, rawBody []byte) (bool, error) {
	form := "cmd=_notify-validate&" + string(rawBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ipnURL, strings.NewReader(form))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build ipn verification")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "verify ipn")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "read ipn verification")
	}
	return strings.TrimSpace(string(body)) == verifiedResponse, nil
}

// Observation normalizes a raw order into the provider-agnostic shape.
//
// PayPal exhibits the same upstream ambiguity as the redirect gateway: an
// order can carry a non-COMPLETED nominal status while its purchase unit
// already holds a completed capture with timestamp, method and amount. The
// settlement block wins over the nominal status here too.
func Observation(o *Order) types.PaymentObservation {
	obs := types.PaymentObservation{
		Provider:        enums.PaymentMethodPayPal,
		ProviderOrderID: o.ID,
		PayerIdentifier: o.Payer.EmailAddress,
		RawStatus:       o.Status,
	}

	if len(o.PurchaseUnits) > 0 {
		unit := o.PurchaseUnits[0]
		obs.TransactionID = unit.ReferenceID
		if obs.TransactionID == "" {
			obs.TransactionID = unit.CustomID
		}
		obs.Currency = unit.Amount.CurrencyCode
		if v, err := decimal.NewFromString(unit.Amount.Value); err == nil {
			obs.CapturedAmount = v
		}

		if unit.Payments != nil && len(unit.Payments.Captures) > 0 {
			settled := unit.Payments.Captures[0]
			obs.Settlement = types.SettlementMeta{
				Date:   settled.CreateTime,
				Method: "PAYPAL",
				Amount: settled.Amount.Value,
			}
			if settled.Amount.CurrencyCode != "" {
				obs.Currency = settled.Amount.CurrencyCode
			}
			if v, err := decimal.NewFromString(settled.Amount.Value); err == nil {
				obs.CapturedAmount = v
			}
		}
	}

	obs.Successful = strings.EqualFold(o.Status, "COMPLETED") || obs.Settlement.Complete()
	return obs
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, operation string, dest any) error {
	token, err := c.accessTokenValue(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode paypal request")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paypal request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, operation, map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, operation)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "read paypal response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log(ctx, operation, map[string]any{"status": resp.StatusCode})
		return pkgerrors.New(pkgerrors.CodeProvider, fmt.Sprintf("%s: paypal returned %d", operation, resp.StatusCode)).
			WithDetails(map[string]any{"body": string(raw)})
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode paypal response")
	}
	return nil
}

func (c *Client) accessTokenValue(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build token request")
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeProvider, err, "fetch access token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeProvider, fmt.Sprintf("token endpoint returned %d", resp.StatusCode))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode access token")
	}
	if token.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeProvider, "token endpoint returned empty token")
	}

	c.accessToken = token.AccessToken
	// renew a minute early to avoid using a token mid-expiry
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

func (c *Client) log(ctx context.Context, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	fields["operation"] = operation
	ctx = c.logger.WithFields(ctx, fields)
	c.logger.Warn(ctx, "paypal call failed")
}
