package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mkravets/txn-webhooks/internal/domain/models"
	"github.com/mkravets/txn-webhooks/internal/domain/repositories"
	"github.com/mkravets/txn-webhooks/pkg/log"
)

type TransactionRepositoryImpl struct {
	db     *pgxpool.Pool
	logger *zerolog.Logger
}

// NewTransactionRepositoryImpl creates new instance of TransactionRepositoryImpl.
func NewTransactionRepositoryImpl(db *pgxpool.Pool) repositories.TransactionRepository {
	l := log.GetLogger()
	return &TransactionRepositoryImpl{
		db:     db,
		logger: &l,
	}
}

const insertTransaction = `
INSERT INTO transactions (transaction_id, source_account, destination_account, amount, currency, status, created_at)
VALUES ($1, $2, $3, $4::NUMERIC(20,2), $5, $6, $7)
ON CONFLICT (transaction_id) DO NOTHING`

// InsertIfAbsent inserts the record unless the transaction id is already
// taken. The ON CONFLICT clause makes the dedup decision inside a single
// statement; there is no read-then-write window for concurrent submissions
// to slip through. A unique violation (SQLSTATE 23505) surfacing anyway, for
// example from a conflict on a different constraint ordering, is classified
// as "existed" rather than as an error.
func (r *TransactionRepositoryImpl) InsertIfAbsent(ctx context.Context, transaction *models.Transaction) (bool, error) {
	tag, err := r.db.Exec(ctx, insertTransaction,
		transaction.TransactionID,
		transaction.SourceAccount,
		transaction.DestinationAccount,
		transaction.Amount,
		transaction.Currency,
		string(transaction.State),
		transaction.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert transaction: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

const selectTransaction = `
SELECT transaction_id, source_account, destination_account, amount, currency, status, created_at, completed_at
FROM transactions
WHERE transaction_id = $1`

// GetByTransactionID returns the record by transaction id, or (nil, nil)
// when no record exists.
func (r *TransactionRepositoryImpl) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	var state string
	err := r.db.QueryRow(ctx, selectTransaction, transactionID).Scan(
		&transaction.TransactionID,
		&transaction.SourceAccount,
		&transaction.DestinationAccount,
		&transaction.Amount,
		&transaction.Currency,
		&state,
		&transaction.CreatedAt,
		&transaction.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	transaction.State = models.TransactionState(state)

	return transaction, nil
}

const completeTransaction = `
UPDATE transactions
SET status = $2, completed_at = $3
WHERE transaction_id = $1 AND status = $4`

// MarkCompleted flips the record to COMPLETED only while it is still
// PENDING. The WHERE clause is the whole dedup guarantee on the finalize
// side: concurrent redeliveries race on it and exactly one wins.
func (r *TransactionRepositoryImpl) MarkCompleted(ctx context.Context, transactionID string, completedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, completeTransaction,
		transactionID,
		string(models.StateCompleted),
		completedAt,
		string(models.StatePending),
	)
	if err != nil {
		return false, fmt.Errorf("complete transaction: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

const selectStalePending = `
SELECT transaction_id
FROM transactions
WHERE status = $1 AND created_at < $2
ORDER BY created_at
LIMIT $3`

// ListPendingOlderThan returns ids of records still PENDING created before
// cutoff, oldest first.
func (r *TransactionRepositoryImpl) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, selectStalePending, string(models.StatePending), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}

	return ids, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == repositories.UniqueViolationError
}
