package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionState is the lifecycle state of a transaction record.
// The only transition is PENDING -> COMPLETED; COMPLETED is terminal.
type TransactionState string

const (
	StatePending   TransactionState = "PENDING"
	StateCompleted TransactionState = "COMPLETED"
)

// Terminal reports whether no further state transition is possible.
func (s TransactionState) Terminal() bool {
	return s == StateCompleted
}

// Transaction is the persisted record of one webhook-delivered transaction.
// TransactionID is the caller-supplied dedup key; every field except State
// and CompletedAt is immutable after the first successful insert.
type Transaction struct {
	TransactionID      string           `db:"transaction_id"`
	SourceAccount      string           `db:"source_account"`
	DestinationAccount string           `db:"destination_account"`
	Amount             decimal.Decimal  `db:"amount"`
	Currency           string           `db:"currency"`
	State              TransactionState `db:"status"`
	CreatedAt          time.Time        `db:"created_at"`
	CompletedAt        *time.Time       `db:"completed_at"`
}
