package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nimbusvr/trackshop-backend/pkg/config"
	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
)

const sendgridMailURL = "https://api.sendgrid.com/v3/mail/send"

// Dispatcher pushes an operator notification after a record is finalized by a
// successful payment. Delivery is best-effort: reconciliation outcomes never
// depend on it.
type Dispatcher interface {
	NotifyOrderPaid(ctx context.Context, record *models.TrackingRecord) error
}

// NewDispatcher picks the SendGrid dispatcher when credentials are configured
// and falls back to a logging no-op otherwise.
func NewDispatcher(cfg config.SendgridConfig, log *logger.Logger) Dispatcher {
	if cfg.APIKey == "" || cfg.OperatorTo == "" {
		return &NoopDispatcher{log: log}
	}
	return &SendGridDispatcher{
		apiKey: cfg.APIKey,
		from:   cfg.DefaultFrom,
		to:     cfg.OperatorTo,
		url:    sendgridMailURL,
		http:   &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// SendGridDispatcher delivers order notifications through the SendGrid v3
// mail API.
type SendGridDispatcher struct {
	apiKey string
	from   string
	to     string
	url    string
	http   *http.Client
	log    *logger.Logger
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendgridMail struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
}

func (d *SendGridDispatcher) NotifyOrderPaid(ctx context.Context, record *models.TrackingRecord) error {
	if record == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "record required for notification")
	}

	txID := ""
	if record.PaymentTransactionID != nil {
		txID = *record.PaymentTransactionID
	}
	body := sendgridMail{
		Personalizations: []sendgridPersonalization{{To: []sendgridAddress{{Email: d.to}}}},
		From:             sendgridAddress{Email: d.from},
		Subject:          fmt.Sprintf("New paid order: %s (%d trackers)", record.DisplayName, record.TrackerCount),
		Content: []sendgridContent{{
			Type: "text/plain",
			Value: fmt.Sprintf(
				"Order %s is paid.\n\nUser: %s\nTrackers: %d\nSensor: %s\nPaid: %s %s via %s\nTransaction: %s\nCountry: %s\n",
				record.ID, record.DisplayName, record.TrackerCount, record.Sensor,
				record.PaidUSD.StringFixed(2), record.PaymentCurrency, record.PaymentMethod,
				txID, record.ShippingCountry,
			),
		}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build notification request")
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send notification")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("sendgrid returned status %d", resp.StatusCode))
	}

	if d.log != nil {
		d.log.Info(d.log.WithRecordID(ctx, record.ID.String()), "order notification sent")
	}
	return nil
}

// NoopDispatcher logs the notification instead of delivering it. Used when no
// mail credentials are configured, which keeps local and test environments
// quiet.
type NoopDispatcher struct {
	log *logger.Logger
}

func (d *NoopDispatcher) NotifyOrderPaid(ctx context.Context, record *models.TrackingRecord) error {
	if d.log != nil && record != nil {
		d.log.Info(d.log.WithRecordID(ctx, record.ID.String()), "order notification skipped, mail not configured")
	}
	return nil
}
