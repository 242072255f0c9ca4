package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
)

var (
	ErrInvalidRequestKind = errors.New("invalid transaction request kind")
	ErrMissingLedgerID    = errors.New("ledger id is required")
)

// LedgerTransactionRequest is the Kafka message asking the processor to
// record one transaction on a ledger. Kind selects the recording operation;
// the subtype/arrears fields are read only for the matching kind.
type LedgerTransactionRequest struct {
	TransactionID     string                `json:"transaction_id"`
	LedgerID          uuid.UUID             `json:"ledger_id"`
	Kind              RequestKind           `json:"kind"`
	Amount            decimal.Decimal       `json:"amount"`
	FundingSourceCode string                `json:"funding_source_code,omitempty"`
	HudCategoryCode   string                `json:"hud_category_code,omitempty"`
	PaymentSubtype    ledger.PaymentSubtype `json:"payment_subtype,omitempty"`
	ArrearsType       ledger.ArrearsType    `json:"arrears_type,omitempty"`
	AssistanceID      string                `json:"assistance_id,omitempty"`
	PayeeID           string                `json:"payee_id,omitempty"`
	PayeeName         string                `json:"payee_name,omitempty"`
	DepositSource     string                `json:"deposit_source,omitempty"`
	PaymentDate       time.Time             `json:"payment_date"`
	PeriodStart       *time.Time            `json:"period_start,omitempty"`
	PeriodEnd         *time.Time            `json:"period_end,omitempty"`
	RecordedBy        string                `json:"recorded_by"`
	CorrelationID     string                `json:"correlation_id,omitempty"`
	Timestamp         time.Time             `json:"timestamp"`
}

// Validate performs the static checks shared by the API gateway and the
// processor: a recognized kind, a target ledger, and a positive amount.
// Ledger state dependent rules are enforced by the aggregate itself.
func (r *LedgerTransactionRequest) Validate() error {
	switch r.Kind {
	case RequestKindPayment, RequestKindDeposit, RequestKindArrears:
	default:
		return ErrInvalidRequestKind
	}
	if r.LedgerID == uuid.Nil {
		return ErrMissingLedgerID
	}
	if !r.Amount.IsPositive() {
		return ledger.ErrInvalidAmount
	}
	if r.TransactionID == "" {
		return ledger.ErrMissingTransactionID
	}
	return nil
}
