package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
)

// LedgerUpdate is the notification payload published to downstream consumers
// (consent ledger, reporting) after a ledger write commits
type LedgerUpdate struct {
	LedgerID      uuid.UUID       `json:"ledger_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	TransactionID string          `json:"transaction_id"`
	EventType     string          `json:"event_type"`
	Amount        decimal.Decimal `json:"amount"`
	TotalDebits   decimal.Decimal `json:"total_debits"`
	TotalCredits  decimal.Decimal `json:"total_credits"`
	Balance       decimal.Decimal `json:"balance"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Message stores a ledger update for reliable publishing via the outbox table
type Message struct {
	ID            int64               `json:"id"`
	LedgerID      uuid.UUID           `json:"ledger_id"`
	TransactionID string              `json:"transaction_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a ledger update as a pending outbox message
func NewMessage(update *LedgerUpdate) (*Message, error) {
	payload, err := json.Marshal(update)
	if err != nil {
		return nil, err
	}

	return &Message{
		LedgerID:      update.LedgerID,
		TransactionID: update.TransactionID,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		Attempts:      0,
		CreatedAt:     time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetLedgerUpdate extracts the ledger update from the payload
func (m *Message) GetLedgerUpdate() (*LedgerUpdate, error) {
	var update LedgerUpdate
	if err := json.Unmarshal(m.Payload, &update); err != nil {
		return nil, err
	}
	return &update, nil
}
