package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/tomiwa-dev/creatorpay/internal/gateway"
	"github.com/tomiwa-dev/creatorpay/internal/infrastructure/kafka"
	"github.com/tomiwa-dev/creatorpay/internal/infrastructure/observability"
	"github.com/tomiwa-dev/creatorpay/internal/infrastructure/redis"
	"github.com/tomiwa-dev/creatorpay/internal/models"
	"github.com/tomiwa-dev/creatorpay/internal/repository"
	"github.com/tomiwa-dev/creatorpay/internal/webhook"
	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Outcome classifies one settlement attempt. AlreadyProcessed and
// TransactionNotFound are defined results, not failures: the webhook
// endpoint answers 200 for both so the provider stops redelivering.
// Pending means the provider has not reached a decision and nothing
// was finalized.
type Outcome string

const (
	OutcomeSuccess             Outcome = "success"
	OutcomeFailure             Outcome = "failure"
	OutcomeAlreadyProcessed    Outcome = "already_processed"
	OutcomeTransactionNotFound Outcome = "transaction_not_found"
	OutcomePending             Outcome = "pending"
)

const (
	settledKeyTTL    = 24 * time.Hour
	settlementsTopic = "settlements"
)

type InitiateResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

type SettlementService interface {
	InitiatePayment(ctx context.Context, amount int64, email, name string, kind models.TransactionKind, walletID, requestID *int64) (*InitiateResult, error)
	ProcessNotification(ctx context.Context, n *webhook.Notification) (Outcome, error)
	VerifyPayment(ctx context.Context, reference string) (Outcome, error)
	StoreCard(ctx context.Context, card *models.CardAuthorization) error
	WalletStatement(ctx context.Context, walletID int64) (*models.Wallet, []models.WalletEntry, error)
}

type settlementService struct {
	transactionRepo repository.TransactionRepository
	walletRepo      repository.WalletRepository
	requestRepo     repository.RequestRepository
	cardRepo        repository.CardRepository
	gateway         gateway.PaymentGateway
	redisClient     redis.RedisClient
	kafkaProducer   kafka.KafkaProducer
}

func NewSettlementService(
	transactionRepo repository.TransactionRepository,
	walletRepo repository.WalletRepository,
	requestRepo repository.RequestRepository,
	cardRepo repository.CardRepository,
	gw gateway.PaymentGateway,
	redisClient redis.RedisClient,
	kafkaProducer kafka.KafkaProducer,
) *settlementService {
	return &settlementService{
		transactionRepo: transactionRepo,
		walletRepo:      walletRepo,
		requestRepo:     requestRepo,
		cardRepo:        cardRepo,
		gateway:         gw,
		redisClient:     redisClient,
		kafkaProducer:   kafkaProducer,
	}
}

func (s *settlementService) InitiatePayment(ctx context.Context, amount int64, email, name string, kind models.TransactionKind, walletID, requestID *int64) (*InitiateResult, error) {
	tracer := otel.Tracer("settlement-service")
	ctx, span := tracer.Start(ctx, "InitiatePayment")
	defer span.End()

	if amount <= 0 {
		span.SetStatus(codes.Error, "invalid amount")
		return nil, pkgerrors.ErrInvalidAmount
	}
	if email == "" || name == "" {
		span.SetStatus(codes.Error, "missing email or name")
		return nil, fmt.Errorf("%w: amount, email, and name are required", pkgerrors.ErrInvalidInput)
	}
	switch kind {
	case models.KindWalletFunding:
		if walletID == nil {
			return nil, fmt.Errorf("%w: wallet id is required for wallet funding", pkgerrors.ErrInvalidInput)
		}
	case models.KindRequestPayment:
		if requestID == nil {
			return nil, fmt.Errorf("%w: request id is required for request payment", pkgerrors.ErrInvalidInput)
		}
	default:
		return nil, pkgerrors.ErrInvalidKind
	}

	reference := uuid.NewString()
	span.SetAttributes(attribute.String("reference", reference), attribute.Int64("amount", amount))

	authorizationURL, err := s.gateway.InitializeTransaction(ctx, amount, email, reference, map[string]string{"name": name})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway initialize failed")
		slog.Error("failed to initialize payment", "reference", reference, "email", email, "error", err)
		return nil, err
	}

	tx := &models.Transaction{
		Reference: reference,
		Amount:    amount,
		Currency:  "NGN",
		Email:     email,
		WalletID:  walletID,
		RequestID: requestID,
		Kind:      kind,
	}
	if _, err := s.transactionRepo.Create(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction persist failed")
		slog.Error("failed to persist pending transaction", "reference", reference, "error", err)
		return nil, err
	}

	slog.Info("payment initiated", "reference", reference, "email", email, "kind", kind, "amount", amount)
	return &InitiateResult{Reference: reference, AuthorizationURL: authorizationURL}, nil
}

func (s *settlementService) ProcessNotification(ctx context.Context, n *webhook.Notification) (Outcome, error) {
	tracer := otel.Tracer("settlement-service")
	ctx, span := tracer.Start(ctx, "ProcessNotification")
	span.SetAttributes(attribute.String("reference", n.Reference), attribute.String("provider_status", n.Status))
	defer span.End()

	return s.settle(ctx, "webhook", n.Reference, n.Status, n)
}

func (s *settlementService) VerifyPayment(ctx context.Context, reference string) (Outcome, error) {
	tracer := otel.Tracer("settlement-service")
	ctx, span := tracer.Start(ctx, "VerifyPayment")
	span.SetAttributes(attribute.String("reference", reference))
	defer span.End()

	status, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway verify failed")
		slog.Error("failed to verify payment with provider", "reference", reference, "error", err)
		return "", err
	}

	return s.settle(ctx, "verify", reference, status.Status, nil)
}

// settle applies one provider-reported result exactly once. The guarded
// status transition in the ledger is the idempotency boundary; the redis
// marker only short-circuits redeliveries that already lost.
func (s *settlementService) settle(ctx context.Context, source, reference, providerStatus string, n *webhook.Notification) (Outcome, error) {
	settledKey := fmt.Sprintf("txn:%s:settled", reference)
	if _, err := s.redisClient.Get(ctx, settledKey); err == nil {
		slog.Info("settlement replay short-circuited", "source", source, "reference", reference)
		observability.SettlementOutcomes.WithLabelValues(string(OutcomeAlreadyProcessed), source).Inc()
		return OutcomeAlreadyProcessed, nil
	}

	var terminal models.TransactionStatus
	switch providerStatus {
	case "success":
		terminal = models.StatusSuccess
	case "failed":
		terminal = models.StatusFailed
	default:
		// "pending", "abandoned", "ongoing": the provider has not
		// decided. The ledger stays untouched so the later terminal
		// report can still win the transition.
		slog.Info("provider status not terminal, transaction left pending", "source", source, "reference", reference, "provider_status", providerStatus)
		observability.SettlementOutcomes.WithLabelValues(string(OutcomePending), source).Inc()
		return OutcomePending, nil
	}

	tx, err := s.transactionRepo.FinalizeByReference(ctx, reference, terminal)
	if stderrors.Is(err, pkgerrors.ErrTransactionNotFound) {
		slog.Warn("settlement for unknown reference", "source", source, "reference", reference)
		observability.SettlementOutcomes.WithLabelValues(string(OutcomeTransactionNotFound), source).Inc()
		return OutcomeTransactionNotFound, nil
	}
	if stderrors.Is(err, pkgerrors.ErrAlreadyProcessed) {
		observability.SettlementOutcomes.WithLabelValues(string(OutcomeAlreadyProcessed), source).Inc()
		return OutcomeAlreadyProcessed, nil
	}
	if err != nil {
		slog.Error("failed to finalize transaction", "source", source, "reference", reference, "error", err)
		return "", err
	}

	if terminal == models.StatusFailed {
		slog.Info("transaction marked failed", "source", source, "reference", reference)
		s.markSettled(ctx, settledKey, tx)
		observability.SettlementOutcomes.WithLabelValues(string(OutcomeFailure), source).Inc()
		return OutcomeFailure, nil
	}

	if err := s.applyCredit(ctx, tx); err != nil {
		slog.Error("failed to apply settlement credit", "source", source, "reference", reference, "error", err)
		return "", err
	}

	if n != nil && n.HasCardAuthorization() {
		s.storeCardFromNotification(ctx, n)
	}

	s.markSettled(ctx, settledKey, tx)
	observability.SettlementOutcomes.WithLabelValues(string(OutcomeSuccess), source).Inc()
	slog.Info("transaction settled", "source", source, "reference", reference, "kind", tx.Kind, "amount", tx.Amount)
	return OutcomeSuccess, nil
}

// applyCredit routes the financial effect by the transaction's kind.
// The credit is tagged with the payment reference, so a replay that
// somehow got past the status guard still cannot double-apply.
func (s *settlementService) applyCredit(ctx context.Context, tx *models.Transaction) error {
	switch tx.Kind {
	case models.KindRequestPayment:
		if tx.RequestID == nil {
			return fmt.Errorf("%w: request payment without request id", pkgerrors.ErrInvalidKind)
		}
		req, err := s.requestRepo.GetByID(ctx, *tx.RequestID)
		if err != nil {
			return err
		}
		creatorWallet, err := s.walletRepo.GetByUserID(ctx, req.CreatorID)
		if err != nil {
			return err
		}
		total := req.Amount + req.FastTrackFee
		if _, err := s.walletRepo.Credit(ctx, creatorWallet.ID, total, tx.Reference); err != nil {
			if stderrors.Is(err, pkgerrors.ErrEntryAlreadyApplied) {
				slog.Info("creator credit already applied", "reference", tx.Reference, "wallet_id", creatorWallet.ID)
				return nil
			}
			return err
		}
		if err := s.requestRepo.MarkPaid(ctx, req.ID); err != nil {
			// The credit is already applied and the status guard stops
			// a redelivery from reaching this point again, so the paid
			// flag has to be reconciled from this signal.
			slog.Error("request credit applied but paid flag not set, needs reconciliation", "request_id", req.ID, "reference", tx.Reference, "error", err)
			return nil
		}
		slog.Info("creator wallet credited", "reference", tx.Reference, "creator_id", req.CreatorID, "amount", total)
		return nil

	case models.KindWalletFunding:
		if tx.WalletID == nil {
			return fmt.Errorf("%w: wallet funding without wallet id", pkgerrors.ErrInvalidKind)
		}
		if _, err := s.walletRepo.Credit(ctx, *tx.WalletID, tx.Amount, tx.Reference); err != nil {
			if stderrors.Is(err, pkgerrors.ErrEntryAlreadyApplied) {
				slog.Info("wallet credit already applied", "reference", tx.Reference, "wallet_id", *tx.WalletID)
				return nil
			}
			return err
		}
		slog.Info("wallet credited", "reference", tx.Reference, "wallet_id", *tx.WalletID, "amount", tx.Amount)
		return nil

	default:
		return pkgerrors.ErrInvalidKind
	}
}

func (s *settlementService) storeCardFromNotification(ctx context.Context, n *webhook.Notification) {
	card := &models.CardAuthorization{
		AuthorizationCode: n.AuthorizationCode,
		Email:             n.Email,
		CardType:          n.CardType,
		Last4:             n.Last4,
		ExpMonth:          n.ExpMonth,
		ExpYear:           n.ExpYear,
		Bank:              n.Bank,
		AccountName:       n.AccountName,
		Reusable:          n.Reusable,
		CountryCode:       n.CountryCode,
		Bin:               n.Bin,
		Channel:           n.Channel,
	}
	if err := s.cardRepo.StoreIfAbsent(ctx, card); err != nil {
		if stderrors.Is(err, pkgerrors.ErrCardAlreadyStored) {
			slog.Info("card already stored", "email", n.Email)
			return
		}
		// Card storage is ancillary to settlement; the credit stands.
		slog.Error("failed to store card authorization", "email", n.Email, "error", err)
	}
}

func (s *settlementService) StoreCard(ctx context.Context, card *models.CardAuthorization) error {
	tracer := otel.Tracer("settlement-service")
	ctx, span := tracer.Start(ctx, "StoreCard")
	defer span.End()

	err := s.cardRepo.StoreIfAbsent(ctx, card)
	if stderrors.Is(err, pkgerrors.ErrCardAlreadyStored) {
		// One reusable card per account: a repeat store is a no-op
		// success, not a failure.
		slog.Info("card already stored", "email", card.Email)
		return pkgerrors.ErrCardAlreadyStored
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "card store failed")
		return err
	}
	return nil
}

func (s *settlementService) WalletStatement(ctx context.Context, walletID int64) (*models.Wallet, []models.WalletEntry, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.walletRepo.Entries(ctx, walletID)
	if err != nil {
		return nil, nil, err
	}
	return wallet, entries, nil
}

func (s *settlementService) markSettled(ctx context.Context, key string, tx *models.Transaction) {
	// SetNX: a raced marker write keeps the first status.
	if _, err := s.redisClient.SetNX(ctx, key, string(tx.Status), settledKeyTTL); err != nil {
		slog.Error("failed to set settled marker", "reference", tx.Reference, "error", err)
	}

	event := map[string]interface{}{
		"reference":  tx.Reference,
		"status":     tx.Status,
		"kind":       tx.Kind,
		"amount":     tx.Amount,
		"wallet_id":  tx.WalletID,
		"request_id": tx.RequestID,
		"settled_at": time.Now().UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal settlement event", "reference", tx.Reference, "error", err)
		return
	}
	if err := s.kafkaProducer.Send(ctx, settlementsTopic, tx.Reference, eventBytes); err != nil {
		slog.Error("failed to send settlement event", "reference", tx.Reference, "error", err)
	}
}
