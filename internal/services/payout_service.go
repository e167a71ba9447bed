package service

import (
	"context"
	"fmt"
	"log/slog"

	stderrors "errors"

	"github.com/tomiwa-dev/creatorpay/internal/gateway"
	"github.com/tomiwa-dev/creatorpay/internal/models"
	"github.com/tomiwa-dev/creatorpay/internal/repository"
	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PayoutService interface {
	RequestWithdrawal(ctx context.Context, userID string, amount int64, currency, recipientCode string) (*models.Transfer, error)
	ConfirmTransfer(ctx context.Context, reference, status string) error
}

type payoutService struct {
	transferRepo repository.TransferRepository
	walletRepo   repository.WalletRepository
	gateway      gateway.PaymentGateway
}

func NewPayoutService(
	transferRepo repository.TransferRepository,
	walletRepo repository.WalletRepository,
	gw gateway.PaymentGateway,
) *payoutService {
	return &payoutService{
		transferRepo: transferRepo,
		walletRepo:   walletRepo,
		gateway:      gw,
	}
}

// RequestWithdrawal records the transfer, debits the wallet, then asks
// the provider to move the money. A gateway failure leaves the transfer
// pending with the error surfaced; retrying is the caller's call, since
// a blind retry here could double-submit the provider request.
func (s *payoutService) RequestWithdrawal(ctx context.Context, userID string, amount int64, currency, recipientCode string) (*models.Transfer, error) {
	tracer := otel.Tracer("payout-service")
	ctx, span := tracer.Start(ctx, "RequestWithdrawal")
	span.SetAttributes(attribute.String("user_id", userID), attribute.Int64("amount", amount))
	defer span.End()

	if amount <= 0 {
		span.SetStatus(codes.Error, "invalid amount")
		return nil, pkgerrors.ErrInvalidAmount
	}

	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "wallet lookup failed")
		slog.Error("failed to look up wallet", "user_id", userID, "error", err)
		return nil, err
	}

	transfer := &models.Transfer{
		UserID:   userID,
		Amount:   amount,
		Currency: currency,
	}
	if _, err := s.transferRepo.Create(ctx, transfer); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transfer persist failed")
		return nil, err
	}

	debitTag := fmt.Sprintf("transfer:%d", transfer.ID)
	if _, err := s.walletRepo.Debit(ctx, wallet.ID, amount, debitTag); err != nil {
		if stderrors.Is(err, pkgerrors.ErrInsufficientFunds) {
			if finErr := s.transferRepo.FinalizeByID(ctx, transfer.ID, models.StatusFailed); finErr != nil {
				slog.Error("failed to reject transfer", "transfer_id", transfer.ID, "error", finErr)
			}
			span.SetStatus(codes.Error, "insufficient funds")
			slog.Error("insufficient funds for withdrawal", "user_id", userID, "wallet_id", wallet.ID, "amount", amount)
			return nil, pkgerrors.ErrInsufficientFunds
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "debit failed")
		slog.Error("failed to debit wallet", "wallet_id", wallet.ID, "transfer_id", transfer.ID, "error", err)
		return nil, err
	}

	reference, err := s.gateway.CreateTransfer(ctx, recipientCode, amount, currency)
	if err != nil {
		// Transfer stays pending; the caller decides whether to retry.
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway transfer failed")
		slog.Error("provider transfer failed, transfer left pending", "transfer_id", transfer.ID, "error", err)
		return nil, err
	}

	if err := s.transferRepo.SetReference(ctx, transfer.ID, reference); err != nil {
		span.RecordError(err)
		slog.Error("failed to record transfer reference", "transfer_id", transfer.ID, "reference", reference, "error", err)
		return nil, err
	}
	transfer.Reference = reference

	slog.Info("withdrawal requested", "transfer_id", transfer.ID, "user_id", userID, "amount", amount, "reference", reference)
	return transfer, nil
}

// ConfirmTransfer finalizes a payout on an explicit terminal signal from
// the provider; non-terminal statuses are a no-op. A failure confirmation
// refunds the debit under a tagged credit, so a replayed confirmation
// cannot refund twice.
func (s *payoutService) ConfirmTransfer(ctx context.Context, reference, status string) error {
	tracer := otel.Tracer("payout-service")
	ctx, span := tracer.Start(ctx, "ConfirmTransfer")
	span.SetAttributes(attribute.String("reference", reference), attribute.String("status", status))
	defer span.End()

	var terminal models.TransactionStatus
	switch status {
	case "success":
		terminal = models.StatusSuccess
	case "failed", "reversed":
		terminal = models.StatusFailed
	default:
		// "pending", "processing": the provider is still working the
		// transfer. Finalizing (and refunding) here would pay out
		// twice once the provider completes it.
		slog.Info("ignoring non-terminal transfer status", "reference", reference, "status", status)
		return nil
	}

	transfer, err := s.transferRepo.GetByReference(ctx, reference)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transfer lookup failed")
		return err
	}

	if err := s.transferRepo.FinalizeByID(ctx, transfer.ID, terminal); err != nil {
		if stderrors.Is(err, pkgerrors.ErrAlreadyProcessed) {
			return pkgerrors.ErrAlreadyProcessed
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "transfer finalize failed")
		return err
	}

	if terminal == models.StatusFailed {
		wallet, err := s.walletRepo.GetByUserID(ctx, transfer.UserID)
		if err != nil {
			slog.Error("failed to look up wallet for refund", "transfer_id", transfer.ID, "error", err)
			return err
		}
		refundTag := fmt.Sprintf("transfer:%d:refund", transfer.ID)
		if _, err := s.walletRepo.Credit(ctx, wallet.ID, transfer.Amount, refundTag); err != nil && !stderrors.Is(err, pkgerrors.ErrEntryAlreadyApplied) {
			slog.Error("failed to refund wallet", "transfer_id", transfer.ID, "wallet_id", wallet.ID, "error", err)
			return err
		}
		slog.Info("transfer failed, wallet refunded", "transfer_id", transfer.ID, "wallet_id", wallet.ID, "amount", transfer.Amount)
		return nil
	}

	slog.Info("transfer confirmed", "transfer_id", transfer.ID, "reference", reference)
	return nil
}
