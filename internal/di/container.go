package di

import (
	"time"

	"github.com/mkravets/txn-webhooks/internal/domain/repositories"
	"github.com/mkravets/txn-webhooks/internal/infrastructure/api/handlers"
	"github.com/mkravets/txn-webhooks/internal/usecases/interactor"
)

type Container struct {
	TransactionHandler  *handlers.TransactionHandler
	HealthHandler       *handlers.HealthHandler
	FinalizeInteractor  *interactor.FinalizeInteractor
	ReconcileInteractor *interactor.ReconcileInteractor
}

// NewContainer wires the use cases and handlers around an explicitly
// injected record store and dispatcher, so tests can substitute either.
func NewContainer(repo repositories.TransactionRepository, dispatcher interactor.FinalizeDispatcher, processingDelay, reconcileAge time.Duration, reconcileBatch int) *Container {
	transactionInteractor := interactor.NewTransactionInteractor(repo, dispatcher)
	transactionHandler := handlers.NewTransactionHandler(transactionInteractor)

	healthHandler := handlers.NewHealthHandler()

	finalizeInteractor := interactor.NewFinalizeInteractor(repo, processingDelay)
	reconcileInteractor := interactor.NewReconcileInteractor(repo, dispatcher, reconcileAge, reconcileBatch)

	return &Container{
		TransactionHandler:  transactionHandler,
		HealthHandler:       healthHandler,
		FinalizeInteractor:  finalizeInteractor,
		ReconcileInteractor: reconcileInteractor,
	}
}
