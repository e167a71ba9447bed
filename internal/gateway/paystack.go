package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tomiwa-dev/creatorpay/internal/infrastructure/observability"
	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// minorUnitFactor converts naira to kobo; the provider only accepts
// amounts in the minor unit.
const minorUnitFactor = 100

type PaystackClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewPaystackClient(baseURL, secretKey string) *PaystackClient {
	return &PaystackClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type initializeRequest struct {
	Amount    int64             `json:"amount"`
	Email     string            `json:"email"`
	Reference string            `json:"reference"`
	Currency  string            `json:"currency"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (c *PaystackClient) InitializeTransaction(ctx context.Context, amount int64, email, reference string, metadata map[string]string) (string, error) {
	tracer := otel.Tracer("paystack-gateway")
	ctx, span := tracer.Start(ctx, "InitializeTransaction")
	span.SetAttributes(attribute.String("reference", reference), attribute.Int64("amount", amount))
	defer span.End()

	if amount <= 0 {
		return "", pkgerrors.ErrInvalidAmount
	}

	body := initializeRequest{
		Amount:    amount * minorUnitFactor,
		Email:     email,
		Reference: reference,
		Currency:  "NGN",
		Metadata:  metadata,
	}

	var resp initializeResponse
	if err := c.post(ctx, "/transaction/initialize", body, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "initialize failed")
		observability.GatewayCalls.WithLabelValues("initialize", "error").Inc()
		return "", err
	}
	if !resp.Status {
		err := fmt.Errorf("%w: %s", pkgerrors.ErrGateway, resp.Message)
		span.SetStatus(codes.Error, resp.Message)
		observability.GatewayCalls.WithLabelValues("initialize", "declined").Inc()
		slog.Error("payment initialization declined", "reference", reference, "message", resp.Message)
		return "", err
	}

	observability.GatewayCalls.WithLabelValues("initialize", "success").Inc()
	slog.Info("payment initialized", "reference", reference, "amount", amount)
	return resp.Data.AuthorizationURL, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

func (c *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (*ProviderStatus, error) {
	tracer := otel.Tracer("paystack-gateway")
	ctx, span := tracer.Start(ctx, "VerifyTransaction")
	span.SetAttributes(attribute.String("reference", reference))
	defer span.End()

	var resp verifyResponse
	if err := c.get(ctx, "/transaction/verify/"+reference, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify failed")
		observability.GatewayCalls.WithLabelValues("verify", "error").Inc()
		return nil, err
	}
	if !resp.Status {
		err := fmt.Errorf("%w: %s", pkgerrors.ErrGateway, resp.Message)
		span.SetStatus(codes.Error, resp.Message)
		observability.GatewayCalls.WithLabelValues("verify", "declined").Inc()
		return nil, err
	}

	observability.GatewayCalls.WithLabelValues("verify", "success").Inc()
	return &ProviderStatus{
		Reference: resp.Data.Reference,
		Status:    resp.Data.Status,
		Amount:    resp.Data.Amount,
		Email:     resp.Data.Customer.Email,
	}, nil
}

type transferRequest struct {
	Source    string `json:"source"`
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
	Currency  string `json:"currency"`
}

type transferResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		TransferCode string `json:"transfer_code"`
		Reference    string `json:"reference"`
		Status       string `json:"status"`
	} `json:"data"`
}

func (c *PaystackClient) CreateTransfer(ctx context.Context, recipientCode string, amount int64, currency string) (string, error) {
	tracer := otel.Tracer("paystack-gateway")
	ctx, span := tracer.Start(ctx, "CreateTransfer")
	span.SetAttributes(attribute.String("recipient", recipientCode), attribute.Int64("amount", amount))
	defer span.End()

	if amount <= 0 {
		return "", pkgerrors.ErrInvalidAmount
	}

	body := transferRequest{
		Source:    "balance",
		Amount:    amount * minorUnitFactor,
		Recipient: recipientCode,
		Currency:  currency,
	}

	var resp transferResponse
	if err := c.post(ctx, "/transfer", body, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transfer failed")
		observability.GatewayCalls.WithLabelValues("transfer", "error").Inc()
		return "", err
	}
	if !resp.Status {
		err := fmt.Errorf("%w: %s", pkgerrors.ErrGateway, resp.Message)
		span.SetStatus(codes.Error, resp.Message)
		observability.GatewayCalls.WithLabelValues("transfer", "declined").Inc()
		slog.Error("transfer declined", "recipient", recipientCode, "message", resp.Message)
		return "", err
	}

	observability.GatewayCalls.WithLabelValues("transfer", "success").Inc()
	slog.Info("transfer created", "recipient", recipientCode, "reference", resp.Data.Reference, "provider_status", resp.Data.Status)
	return resp.Data.Reference, nil
}

func (c *PaystackClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *PaystackClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, out)
}

func (c *PaystackClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", pkgerrors.ErrGateway, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: provider returned %d", pkgerrors.ErrGateway, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", pkgerrors.ErrGateway, err)
	}
	return nil
}
