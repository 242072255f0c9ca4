package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is the closed set of state changes a financial ledger can undergo.
// Aggregate state is always the left fold of its event stream.
type Event interface {
	EventType() string
	OccurredAt() time.Time
}

// Event type discriminators, stable across persistence
const (
	EventTypeCreated               = "LEDGER_CREATED"
	EventTypeTransactionRecorded   = "LEDGER_TRANSACTION_RECORDED"
	EventTypeCommunicationRecorded = "LANDLORD_COMMUNICATION_RECORDED"
	EventTypeDocumentAttached      = "DOCUMENT_ATTACHED"
	EventTypeClosed                = "LEDGER_CLOSED"
)

// Created is the first event of every ledger stream
type Created struct {
	LedgerID        uuid.UUID
	ClientID        uuid.UUID
	EnrollmentID    uuid.UUID
	HouseholdID     uuid.UUID
	LedgerName      string
	IsVawaProtected bool
	CreatedBy       string
	At              time.Time
}

func (e Created) EventType() string     { return EventTypeCreated }
func (e Created) OccurredAt() time.Time { return e.At }

// TransactionRecorded carries both sides of one double-entry pair. The debit
// and credit accounts are derived from the transaction type before the event
// is applied, so replay never consults the mapping tables.
type TransactionRecorded struct {
	LedgerID          uuid.UUID
	TransactionID     string
	TransactionType   TransactionType
	Amount            decimal.Decimal
	FundingSourceCode string
	HudCategoryCode   string
	Description       string
	PayeeID           string
	PayeeName         string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	DebitEntryID      uuid.UUID
	DebitAccount      AccountClassification
	CreditEntryID     uuid.UUID
	CreditAccount     AccountClassification
	RecordedBy        string
	At                time.Time
}

func (e TransactionRecorded) EventType() string     { return EventTypeTransactionRecorded }
func (e TransactionRecorded) OccurredAt() time.Time { return e.At }

// CommunicationRecorded keeps landlord contact metadata on the ledger. It does
// not affect balances. Content arrives already sanitized for VAWA ledgers.
type CommunicationRecorded struct {
	LedgerID          uuid.UUID
	CommunicationID   string
	LandlordID        string
	LandlordName      string
	CommunicationType CommunicationType
	Subject           string
	Content           string
	CommunicationDate time.Time
	RecordedBy        string
	At                time.Time
}

func (e CommunicationRecorded) EventType() string     { return EventTypeCommunicationRecorded }
func (e CommunicationRecorded) OccurredAt() time.Time { return e.At }

// DocumentAttached records a supporting document. Content is zeroed for VAWA
// ledgers before the event is applied.
type DocumentAttached struct {
	LedgerID     uuid.UUID
	DocumentID   string
	DocumentName string
	DocumentType string
	Content      []byte
	UploadedBy   string
	At           time.Time
}

func (e DocumentAttached) EventType() string     { return EventTypeDocumentAttached }
func (e DocumentAttached) OccurredAt() time.Time { return e.At }

// Closed terminates a ledger stream; no further events may follow it
type Closed struct {
	LedgerID     uuid.UUID
	Reason       string
	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
	Balance      decimal.Decimal
	ClosedBy     string
	At           time.Time
}

func (e Closed) EventType() string     { return EventTypeClosed }
func (e Closed) OccurredAt() time.Time { return e.At }

// Communication is the replayed projection of a CommunicationRecorded event
type Communication struct {
	CommunicationID   string            `json:"communication_id" bson:"communication_id"`
	LandlordID        string            `json:"landlord_id" bson:"landlord_id"`
	LandlordName      string            `json:"landlord_name" bson:"landlord_name"`
	CommunicationType CommunicationType `json:"communication_type" bson:"communication_type"`
	Subject           string            `json:"subject" bson:"subject"`
	Content           string            `json:"content" bson:"content"`
	CommunicationDate time.Time         `json:"communication_date" bson:"communication_date"`
	RecordedBy        string            `json:"recorded_by" bson:"recorded_by"`
	RecordedAt        time.Time         `json:"recorded_at" bson:"recorded_at"`
}

// Document is the replayed projection of a DocumentAttached event
type Document struct {
	DocumentID   string    `json:"document_id" bson:"document_id"`
	DocumentName string    `json:"document_name" bson:"document_name"`
	DocumentType string    `json:"document_type" bson:"document_type"`
	Content      []byte    `json:"-" bson:"content,omitempty"`
	UploadedBy   string    `json:"uploaded_by" bson:"uploaded_by"`
	UploadedAt   time.Time `json:"uploaded_at" bson:"uploaded_at"`
}
