// Package payments runs the online and bank transfer payment paths for
// confirmed orders and moves orders to paid once a transaction settles.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Payer identifies who pays. The gateway needs an email or a phone number.
type Payer struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type SubmitRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Description string
	Payer       Payer
}

type Submission struct {
	TrackingID  string
	RedirectURL string
}

type GatewayStatus string

const (
	GatewayCompleted GatewayStatus = "completed"
	GatewayFailed    GatewayStatus = "failed"
	GatewayPending   GatewayStatus = "pending"
)

type StatusResult struct {
	Status      GatewayStatus
	Description string
}

// Gateway is the external online payment provider.
type Gateway interface {
	Submit(ctx context.Context, req SubmitRequest) (*Submission, error)
	Status(ctx context.Context, trackingID string) (*StatusResult, error)
}

type PesapalConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	NotificationID string
	CallbackURL    string
	Currency       string
	CountryCode    string
}

const DefaultPesapalBaseURL = "https://pay.pesapal.com/v3"

// PesapalGateway talks to the Pesapal v3 REST API.
type PesapalGateway struct {
	cfg    PesapalConfig
	client *resty.Client
	logger *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewPesapalGateway(cfg PesapalConfig, logger *zap.Logger) *PesapalGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPesapalBaseURL
	}
	if cfg.Currency == "" {
		cfg.Currency = "KES"
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "KE"
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	return &PesapalGateway{cfg: cfg, client: client, logger: logger}
}

type pesapalError struct {
	ErrorType string `json:"error_type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (e *pesapalError) err() error {
	if e == nil || (e.Code == "" && e.Message == "" && e.ErrorType == "") {
		return nil
	}
	return fmt.Errorf("pesapal %s: %s", e.Code, e.Message)
}

type tokenResponse struct {
	Token      string        `json:"token"`
	ExpiryDate string        `json:"expiryDate"`
	Error      *pesapalError `json:"error"`
}

func (g *PesapalGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != "" && time.Now().Before(g.tokenExpiry) {
		return g.token, nil
	}

	if g.cfg.ConsumerKey == "" || g.cfg.ConsumerSecret == "" {
		return "", errors.New("pesapal consumer credentials are not set")
	}

	var out tokenResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"consumer_key":    g.cfg.ConsumerKey,
			"consumer_secret": g.cfg.ConsumerSecret,
		}).
		SetResult(&out).
		Post("/api/Auth/RequestToken")
	if err != nil {
		return "", fmt.Errorf("pesapal token request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("pesapal token request failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	if err := out.Error.err(); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("pesapal token missing from response")
	}

	g.token = out.Token
	// tokens live five minutes; refresh a little early
	g.tokenExpiry = time.Now().Add(4 * time.Minute)
	if expiry, err := time.Parse(time.RFC3339Nano, out.ExpiryDate); err == nil {
		g.tokenExpiry = expiry.Add(-30 * time.Second)
	}
	return g.token, nil
}

type submitResponse struct {
	OrderTrackingID   string        `json:"order_tracking_id"`
	MerchantReference string        `json:"merchant_reference"`
	RedirectURL       string        `json:"redirect_url"`
	Error             *pesapalError `json:"error"`
}

func (g *PesapalGateway) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	if g.cfg.NotificationID == "" {
		return nil, errors.New("pesapal notification id is not set")
	}
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"id":              req.Reference,
		"currency":        g.cfg.Currency,
		"amount":          req.Amount.Round(2).InexactFloat64(),
		"description":     req.Description,
		"callback_url":    g.cfg.CallbackURL,
		"notification_id": g.cfg.NotificationID,
		"billing_address": map[string]any{
			"email_address": req.Payer.Email,
			"phone_number":  req.Payer.Phone,
			"country_code":  g.cfg.CountryCode,
			"first_name":    req.Payer.FirstName,
			"last_name":     req.Payer.LastName,
		},
	}

	var out submitResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&out).
		Post("/api/Transactions/SubmitOrderRequest")
	if err != nil {
		return nil, fmt.Errorf("pesapal submit order: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("pesapal submit order failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	if err := out.Error.err(); err != nil {
		return nil, err
	}
	if out.OrderTrackingID == "" || out.RedirectURL == "" {
		return nil, errors.New("incomplete response from payment gateway")
	}

	g.logger.Info("pesapal order submitted",
		zap.String("reference", req.Reference),
		zap.String("trackingId", out.OrderTrackingID))
	return &Submission{TrackingID: out.OrderTrackingID, RedirectURL: out.RedirectURL}, nil
}

type statusResponse struct {
	PaymentStatusDescription string        `json:"payment_status_description"`
	StatusCode               int           `json:"status_code"`
	Description              string        `json:"description"`
	Error                    *pesapalError `json:"error"`
}

func (g *PesapalGateway) Status(ctx context.Context, trackingID string) (*StatusResult, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var out statusResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("orderTrackingId", trackingID).
		SetResult(&out).
		Get("/api/Transactions/GetTransactionStatus")
	if err != nil {
		return nil, fmt.Errorf("pesapal transaction status: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("pesapal transaction status failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	if err := out.Error.err(); err != nil {
		return nil, err
	}

	return &StatusResult{
		Status:      mapPesapalStatus(out.PaymentStatusDescription),
		Description: out.PaymentStatusDescription,
	}, nil
}

func mapPesapalStatus(description string) GatewayStatus {
	switch strings.ToUpper(strings.TrimSpace(description)) {
	case "COMPLETED":
		return GatewayCompleted
	case "FAILED", "INVALID", "REVERSED":
		return GatewayFailed
	default:
		return GatewayPending
	}
}
