package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mkravets/txn-webhooks/internal/errors"
	http2 "github.com/mkravets/txn-webhooks/internal/infrastructure/api/http"
	"github.com/mkravets/txn-webhooks/internal/usecases/dtos"
	"github.com/mkravets/txn-webhooks/internal/usecases/interactor"
	"github.com/mkravets/txn-webhooks/pkg/log"
)

type TransactionHandler struct {
	interactor *interactor.TransactionInteractor
	logger     *zerolog.Logger
}

func NewTransactionHandler(interactor *interactor.TransactionInteractor) *TransactionHandler {
	logger := log.GetLogger()
	return &TransactionHandler{interactor: interactor, logger: &logger}
}

// HandleWebhook accepts a transaction notification. Responds 202 for both
// first-seen and repeated deliveries, without waiting for finalization.
func (h *TransactionHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var dto dtos.TransactionWebhookDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.logger.Error().Err(err).Msg(errors.ErrFailedDecodeRequestBody)
		errors.HandleHTTPError(w, errors.NewBadRequestError(errors.ErrInvalidRequestBody))
		return
	}

	if err := dto.NormalizeAmount(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to normalize amount")
		errors.HandleHTTPError(w, errors.NewBadRequestError("invalid amount"))
		return
	}

	if _, err := h.interactor.Submit(r.Context(), &dto); err != nil {
		h.logger.Error().Err(err).Str("transaction_id", dto.TransactionID).Msg(errors.ErrFailedProcessWebhook)
		errors.HandleHTTPError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// GetTransaction returns the current record for a transaction id.
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, http2.TransactionIDParam)

	transaction, err := h.interactor.Get(r.Context(), transactionID)
	if err != nil {
		var notFound *errors.NotFoundError
		if !errors.As(err, &notFound) {
			h.logger.Error().Err(err).Str("transaction_id", transactionID).Msg(errors.ErrFailedGetTransaction)
		}
		errors.HandleHTTPError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dtos.NewTransactionResponse(transaction))
}
