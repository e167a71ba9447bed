package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/tomiwa-dev/creatorpay/internal/infrastructure/auth"
	"github.com/tomiwa-dev/creatorpay/internal/models"
	service "github.com/tomiwa-dev/creatorpay/internal/services"
	"github.com/tomiwa-dev/creatorpay/internal/webhook"
	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
)

const signatureHeader = "x-paystack-signature"

type Handler struct {
	settlement service.SettlementService
	payout     service.PayoutService
	verifier   *webhook.Verifier
}

func NewHandler(settlement service.SettlementService, payout service.PayoutService, verifier *webhook.Verifier) *Handler {
	return &Handler{settlement: settlement, payout: payout, verifier: verifier}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/paystack/webhook", h.PaystackWebhook).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/payments/initiate", h.InitiatePayment).Methods("POST")
	r.HandleFunc("/payments/verify/{reference}", h.VerifyPayment).Methods("GET")
	r.HandleFunc("/cards", h.StoreCard).Methods("POST")
	r.HandleFunc("/withdrawals", h.RequestWithdrawal).Methods("POST")
	r.HandleFunc("/wallets/{id}", h.GetWallet).Methods("GET")
}

// PaystackWebhook answers 200 for every classified settlement outcome,
// including already_processed and transaction_not_found, so the provider
// stops redelivering. Only structurally invalid or unauthenticated
// payloads get a 400; transient internal failures get a 5xx so the
// provider's own retry can recover delivery.
func (h *Handler) PaystackWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"status": "invalid_payload"})
		return
	}

	n, err := h.verifier.Verify(rawBody, r.Header.Get(signatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrSignatureMismatch):
			slog.Error("webhook rejected: bad signature")
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"status": "invalid_signature"})
		case errors.Is(err, pkgerrors.ErrMalformedPayload):
			slog.Error("webhook rejected: malformed payload", "error", err)
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"status": "missing_data"})
		default:
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"status": "invalid_payload"})
		}
		return
	}

	outcome, err := h.settlement.ProcessNotification(r.Context(), n)
	if err != nil {
		slog.Error("webhook settlement failed", "reference", n.Reference, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}

func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.VerifiedEmail(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("verified email claim required"))
		return
	}

	var req struct {
		Amount    int64  `json:"amount"`
		Name      string `json:"name"`
		Kind      string `json:"kind"`
		WalletID  *int64 `json:"wallet_id,omitempty"`
		RequestID *int64 `json:"request_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.settlement.InitiatePayment(r.Context(), req.Amount, email, req.Name, models.TransactionKind(req.Kind), req.WalletID, req.RequestID)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrInvalidAmount), errors.Is(err, pkgerrors.ErrInvalidInput), errors.Is(err, pkgerrors.ErrInvalidKind):
			h.writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, pkgerrors.ErrGateway):
			h.writeError(w, http.StatusBadGateway, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]
	if reference == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("reference is required"))
		return
	}

	outcome, err := h.settlement.VerifyPayment(r.Context(), reference)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrGateway) {
			h.writeError(w, http.StatusBadGateway, err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": outcome == service.OutcomeSuccess || outcome == service.OutcomeAlreadyProcessed,
		"message": string(outcome),
	})
}

func (h *Handler) StoreCard(w http.ResponseWriter, r *http.Request) {
	var card models.CardAuthorization
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	err := h.settlement.StoreCard(r.Context(), &card)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrCardAlreadyStored) {
			// Dedupe is policy, not failure.
			h.writeJSON(w, http.StatusOK, map[string]string{"status": "card_already_stored"})
			return
		}
		if errors.Is(err, pkgerrors.ErrInvalidInput) || errors.Is(err, pkgerrors.ErrNilCard) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}

func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string `json:"user_id"`
		Amount        int64  `json:"amount"`
		Currency      string `json:"currency"`
		RecipientCode string `json:"recipient_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	transfer, err := h.payout.RequestWithdrawal(r.Context(), req.UserID, req.Amount, req.Currency, req.RecipientCode)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrInsufficientFunds), errors.Is(err, pkgerrors.ErrInvalidAmount):
			h.writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, pkgerrors.ErrWalletNotFound):
			h.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, pkgerrors.ErrGateway):
			h.writeError(w, http.StatusBadGateway, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusAccepted, transfer)
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid wallet id"))
		return
	}

	wallet, entries, err := h.settlement.WalletStatement(r.Context(), id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrWalletNotFound) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallet":  wallet,
		"entries": entries,
	})
}
