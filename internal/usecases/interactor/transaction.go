package interactor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mkravets/txn-webhooks/internal/domain/models"
	"github.com/mkravets/txn-webhooks/internal/domain/repositories"
	apperrors "github.com/mkravets/txn-webhooks/internal/errors"
	"github.com/mkravets/txn-webhooks/internal/usecases/dtos"
	"github.com/mkravets/txn-webhooks/pkg/log"
)

const submitTimeout = 5 * time.Second

// FinalizeDispatcher hands finalize requests to the worker side. Enqueue is
// fire-and-forget with at-least-once delivery downstream.
type FinalizeDispatcher interface {
	Enqueue(ctx context.Context, transactionID string) error
}

type TransactionInteractor struct {
	transactionRepository repositories.TransactionRepository
	dispatcher            FinalizeDispatcher
	validate              *validator.Validate
	logger                *zerolog.Logger
}

func NewTransactionInteractor(transactionRepository repositories.TransactionRepository, dispatcher FinalizeDispatcher) *TransactionInteractor {
	l := log.GetLogger()
	return &TransactionInteractor{
		transactionRepository: transactionRepository,
		dispatcher:            dispatcher,
		validate:              validator.New(),
		logger:                &l,
	}
}

// Submit records an incoming webhook transaction idempotently and, when this
// call created the record, enqueues its finalize request. Returns whether
// the record was created by this call; a duplicate submission is not an
// error. Validation failures leave no trace in the store.
func (i *TransactionInteractor) Submit(ctx context.Context, dto *dtos.TransactionWebhookDTO) (bool, error) {
	if err := i.validate.Struct(dto); err != nil {
		var verrs validator.ValidationErrors
		if apperrors.As(err, &verrs) && len(verrs) > 0 {
			return false, apperrors.NewBadRequestError(fmt.Sprintf("invalid %s", strings.ToLower(verrs[0].Field())))
		}
		return false, apperrors.NewBadRequestError(apperrors.ErrInvalidRequestBody)
	}

	amount, err := decimal.NewFromString(dto.Amount)
	if err != nil {
		return false, apperrors.NewBadRequestError("invalid amount")
	}
	if amount.IsNegative() {
		return false, apperrors.NewBadRequestError("amount must be non-negative")
	}

	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	transaction := &models.Transaction{
		TransactionID:      dto.TransactionID,
		SourceAccount:      dto.SourceAccount,
		DestinationAccount: dto.DestinationAccount,
		Amount:             amount.Round(2),
		Currency:           dto.Currency,
		State:              models.StatePending,
		CreatedAt:          time.Now().UTC(),
	}

	created, err := i.transactionRepository.InsertIfAbsent(ctx, transaction)
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	if !created {
		// repeated delivery of an already recorded transaction
		return false, nil
	}

	if err = i.dispatcher.Enqueue(ctx, transaction.TransactionID); err != nil {
		// The record is durable but no finalize request went out. The
		// reconciliation sweep re-enqueues it later, so the submission is
		// still accepted; the failure is surfaced here for alerting.
		i.logger.Error().Err(err).
			Str("transaction_id", transaction.TransactionID).
			Msg(apperrors.ErrFailedDispatchFinalize)
	}

	return true, nil
}

// Get returns the stored transaction or a NotFoundError.
func (i *TransactionInteractor) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	transaction, err := i.transactionRepository.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if transaction == nil {
		return nil, apperrors.NewNotFoundError("Transaction")
	}

	return transaction, nil
}
