package dtos

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkravets/txn-webhooks/internal/domain/models"
)

// TransactionWebhookDTO is the payload of POST /v1/webhooks/transactions.
// The amount is captured raw because upstream systems send it either as a
// JSON string or as a bare number.
type TransactionWebhookDTO struct {
	TransactionID      string          `json:"transaction_id" validate:"required,max=255"`
	SourceAccount      string          `json:"source_account" validate:"required,max=255"`
	DestinationAccount string          `json:"destination_account" validate:"required,max=255"`
	Currency           string          `json:"currency" validate:"required,min=3,max=10"`
	RawAmount          json.RawMessage `json:"amount" validate:"required"`
	Amount             string          `json:"-"`
}

// NormalizeAmount resolves the raw JSON amount into the Amount string.
// A missing amount is left for struct validation to report.
func (d *TransactionWebhookDTO) NormalizeAmount() error {
	if len(d.RawAmount) == 0 {
		return nil
	}

	var value interface{}
	if err := json.Unmarshal(d.RawAmount, &value); err != nil {
		return err
	}

	switch value.(type) {
	case string:
		var s string
		if err := json.Unmarshal(d.RawAmount, &s); err != nil {
			return err
		}
		d.Amount = s
	case float64:
		// keep the exact decimal literal from the wire, not a float round-trip
		d.Amount = string(d.RawAmount)
	default:
		return fmt.Errorf("unsupported amount type %T", value)
	}

	return nil
}

// TransactionResponse is the body of GET /v1/transactions/{id}.
type TransactionResponse struct {
	TransactionID      string     `json:"transaction_id"`
	SourceAccount      string     `json:"source_account"`
	DestinationAccount string     `json:"destination_account"`
	Amount             string     `json:"amount"`
	Currency           string     `json:"currency"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at"`
}

func NewTransactionResponse(transaction *models.Transaction) *TransactionResponse {
	return &TransactionResponse{
		TransactionID:      transaction.TransactionID,
		SourceAccount:      transaction.SourceAccount,
		DestinationAccount: transaction.DestinationAccount,
		Amount:             transaction.Amount.StringFixed(2),
		Currency:           transaction.Currency,
		Status:             string(transaction.State),
		CreatedAt:          transaction.CreatedAt,
		CompletedAt:        transaction.CompletedAt,
	}
}

// HealthResponse is the body of GET /v1/health.
type HealthResponse struct {
	Status      string    `json:"status"`
	CurrentTime time.Time `json:"current_time"`
}
