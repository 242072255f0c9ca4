package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common validation errors
var (
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrMissingEntryType       = errors.New("entry type is required")
	ErrMissingAccount         = errors.New("account classification is required")
	ErrMissingTransactionID   = errors.New("transaction id is required")
	ErrLedgerClosed           = errors.New("cannot record transactions on closed ledger")
	ErrLedgerAlreadyClosed    = errors.New("ledger is already closed")
	ErrLedgerUnbalanced       = errors.New("cannot close unbalanced ledger")
	ErrArrearsPeriodInFuture  = errors.New("arrears period cannot be in the future")
	ErrArrearsPeriodRequired  = errors.New("arrears must specify period start and end dates")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrUnknownPaymentSubtype  = errors.New("unknown payment subtype")
	ErrUnknownArrearsType     = errors.New("unknown arrears type")
)

// Entry is one side of a double-entry transaction pair. Entries are immutable
// once appended; corrections require a new offsetting transaction.
type Entry struct {
	EntryID               uuid.UUID             `json:"entry_id" bson:"entry_id"`
	TransactionID         string                `json:"transaction_id" bson:"transaction_id"`
	EntryType             EntryType             `json:"entry_type" bson:"entry_type"`
	AccountClassification AccountClassification `json:"account_classification" bson:"account_classification"`
	Amount                decimal.Decimal       `json:"amount" bson:"amount"`
	Description           string                `json:"description" bson:"description"`
	FundingSourceCode     string                `json:"funding_source_code,omitempty" bson:"funding_source_code,omitempty"`
	HudCategoryCode       string                `json:"hud_category_code,omitempty" bson:"hud_category_code,omitempty"`
	PayeeID               string                `json:"payee_id,omitempty" bson:"payee_id,omitempty"`
	PayeeName             string                `json:"payee_name,omitempty" bson:"payee_name,omitempty"`
	PeriodStart           *time.Time            `json:"period_start,omitempty" bson:"period_start,omitempty"`
	PeriodEnd             *time.Time            `json:"period_end,omitempty" bson:"period_end,omitempty"`
	RecordedBy            string                `json:"recorded_by" bson:"recorded_by"`
	RecordedAt            time.Time             `json:"recorded_at" bson:"recorded_at"`
}

// NewEntry validates and builds a ledger entry
func NewEntry(entryID uuid.UUID, transactionID string, entryType EntryType,
	account AccountClassification, amount decimal.Decimal, description string,
	fundingSourceCode, hudCategoryCode, payeeID, payeeName string,
	periodStart, periodEnd *time.Time, recordedBy string, recordedAt time.Time) (Entry, error) {

	if !amount.IsPositive() {
		return Entry{}, ErrInvalidAmount
	}
	if entryType != EntryTypeDebit && entryType != EntryTypeCredit {
		return Entry{}, ErrMissingEntryType
	}
	if account == "" {
		return Entry{}, ErrMissingAccount
	}
	if transactionID == "" {
		return Entry{}, ErrMissingTransactionID
	}

	return Entry{
		EntryID:               entryID,
		TransactionID:         transactionID,
		EntryType:             entryType,
		AccountClassification: account,
		Amount:                amount,
		Description:           description,
		FundingSourceCode:     fundingSourceCode,
		HudCategoryCode:       hudCategoryCode,
		PayeeID:               payeeID,
		PayeeName:             payeeName,
		PeriodStart:           periodStart,
		PeriodEnd:             periodEnd,
		RecordedBy:            recordedBy,
		RecordedAt:            recordedAt,
	}, nil
}
