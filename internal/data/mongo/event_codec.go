package mongo

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
)

// eventDoc is the flat stored form of a ledger event. One struct covers every
// variant; the type discriminator decides which fields are meaningful.
// Decimal amounts are stored as strings to keep exact precision in BSON.
type eventDoc struct {
	Type string    `bson:"type"`
	At   time.Time `bson:"at"`

	LedgerID        string `bson:"ledger_id"`
	ClientID        string `bson:"client_id,omitempty"`
	EnrollmentID    string `bson:"enrollment_id,omitempty"`
	HouseholdID     string `bson:"household_id,omitempty"`
	LedgerName      string `bson:"ledger_name,omitempty"`
	IsVawaProtected bool   `bson:"is_vawa_protected,omitempty"`
	CreatedBy       string `bson:"created_by,omitempty"`

	TransactionID     string     `bson:"transaction_id,omitempty"`
	TransactionType   string     `bson:"transaction_type,omitempty"`
	Amount            string     `bson:"amount,omitempty"`
	FundingSourceCode string     `bson:"funding_source_code,omitempty"`
	HudCategoryCode   string     `bson:"hud_category_code,omitempty"`
	Description       string     `bson:"description,omitempty"`
	PayeeID           string     `bson:"payee_id,omitempty"`
	PayeeName         string     `bson:"payee_name,omitempty"`
	PeriodStart       *time.Time `bson:"period_start,omitempty"`
	PeriodEnd         *time.Time `bson:"period_end,omitempty"`
	DebitEntryID      string     `bson:"debit_entry_id,omitempty"`
	DebitAccount      string     `bson:"debit_account,omitempty"`
	CreditEntryID     string     `bson:"credit_entry_id,omitempty"`
	CreditAccount     string     `bson:"credit_account,omitempty"`
	RecordedBy        string     `bson:"recorded_by,omitempty"`

	CommunicationID   string     `bson:"communication_id,omitempty"`
	LandlordID        string     `bson:"landlord_id,omitempty"`
	LandlordName      string     `bson:"landlord_name,omitempty"`
	CommunicationType string     `bson:"communication_type,omitempty"`
	Subject           string     `bson:"subject,omitempty"`
	Content           string     `bson:"content,omitempty"`
	CommunicationDate *time.Time `bson:"communication_date,omitempty"`

	DocumentID      string `bson:"document_id,omitempty"`
	DocumentName    string `bson:"document_name,omitempty"`
	DocumentType    string `bson:"document_type,omitempty"`
	DocumentContent []byte `bson:"document_content,omitempty"`
	UploadedBy      string `bson:"uploaded_by,omitempty"`

	Reason       string `bson:"reason,omitempty"`
	TotalDebits  string `bson:"total_debits,omitempty"`
	TotalCredits string `bson:"total_credits,omitempty"`
	Balance      string `bson:"balance,omitempty"`
	ClosedBy     string `bson:"closed_by,omitempty"`
}

func toEventDoc(ev ledger.Event) (eventDoc, error) {
	switch e := ev.(type) {
	case ledger.Created:
		return eventDoc{
			Type:            e.EventType(),
			At:              e.At,
			LedgerID:        e.LedgerID.String(),
			ClientID:        e.ClientID.String(),
			EnrollmentID:    e.EnrollmentID.String(),
			HouseholdID:     e.HouseholdID.String(),
			LedgerName:      e.LedgerName,
			IsVawaProtected: e.IsVawaProtected,
			CreatedBy:       e.CreatedBy,
		}, nil

	case ledger.TransactionRecorded:
		return eventDoc{
			Type:              e.EventType(),
			At:                e.At,
			LedgerID:          e.LedgerID.String(),
			TransactionID:     e.TransactionID,
			TransactionType:   string(e.TransactionType),
			Amount:            e.Amount.String(),
			FundingSourceCode: e.FundingSourceCode,
			HudCategoryCode:   e.HudCategoryCode,
			Description:       e.Description,
			PayeeID:           e.PayeeID,
			PayeeName:         e.PayeeName,
			PeriodStart:       e.PeriodStart,
			PeriodEnd:         e.PeriodEnd,
			DebitEntryID:      e.DebitEntryID.String(),
			DebitAccount:      string(e.DebitAccount),
			CreditEntryID:     e.CreditEntryID.String(),
			CreditAccount:     string(e.CreditAccount),
			RecordedBy:        e.RecordedBy,
		}, nil

	case ledger.CommunicationRecorded:
		commDate := e.CommunicationDate
		return eventDoc{
			Type:              e.EventType(),
			At:                e.At,
			LedgerID:          e.LedgerID.String(),
			CommunicationID:   e.CommunicationID,
			LandlordID:        e.LandlordID,
			LandlordName:      e.LandlordName,
			CommunicationType: string(e.CommunicationType),
			Subject:           e.Subject,
			Content:           e.Content,
			CommunicationDate: &commDate,
			RecordedBy:        e.RecordedBy,
		}, nil

	case ledger.DocumentAttached:
		return eventDoc{
			Type:            e.EventType(),
			At:              e.At,
			LedgerID:        e.LedgerID.String(),
			DocumentID:      e.DocumentID,
			DocumentName:    e.DocumentName,
			DocumentType:    e.DocumentType,
			DocumentContent: e.Content,
			UploadedBy:      e.UploadedBy,
		}, nil

	case ledger.Closed:
		return eventDoc{
			Type:         e.EventType(),
			At:           e.At,
			LedgerID:     e.LedgerID.String(),
			Reason:       e.Reason,
			TotalDebits:  e.TotalDebits.String(),
			TotalCredits: e.TotalCredits.String(),
			Balance:      e.Balance.String(),
			ClosedBy:     e.ClosedBy,
		}, nil

	default:
		return eventDoc{}, fmt.Errorf("unknown ledger event type %T", ev)
	}
}

func fromEventDoc(doc eventDoc) (ledger.Event, error) {
	ledgerID, err := uuid.Parse(doc.LedgerID)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger id %q: %w", doc.LedgerID, err)
	}

	switch doc.Type {
	case ledger.EventTypeCreated:
		clientID, err := uuid.Parse(doc.ClientID)
		if err != nil {
			return nil, fmt.Errorf("invalid client id %q: %w", doc.ClientID, err)
		}
		enrollmentID, err := uuid.Parse(doc.EnrollmentID)
		if err != nil {
			return nil, fmt.Errorf("invalid enrollment id %q: %w", doc.EnrollmentID, err)
		}
		householdID, err := uuid.Parse(doc.HouseholdID)
		if err != nil {
			return nil, fmt.Errorf("invalid household id %q: %w", doc.HouseholdID, err)
		}
		return ledger.Created{
			LedgerID:        ledgerID,
			ClientID:        clientID,
			EnrollmentID:    enrollmentID,
			HouseholdID:     householdID,
			LedgerName:      doc.LedgerName,
			IsVawaProtected: doc.IsVawaProtected,
			CreatedBy:       doc.CreatedBy,
			At:              doc.At,
		}, nil

	case ledger.EventTypeTransactionRecorded:
		amount, err := decimalFromDoc(doc.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", doc.Amount, err)
		}
		debitEntryID, err := uuid.Parse(doc.DebitEntryID)
		if err != nil {
			return nil, fmt.Errorf("invalid debit entry id %q: %w", doc.DebitEntryID, err)
		}
		creditEntryID, err := uuid.Parse(doc.CreditEntryID)
		if err != nil {
			return nil, fmt.Errorf("invalid credit entry id %q: %w", doc.CreditEntryID, err)
		}
		return ledger.TransactionRecorded{
			LedgerID:          ledgerID,
			TransactionID:     doc.TransactionID,
			TransactionType:   ledger.TransactionType(doc.TransactionType),
			Amount:            amount,
			FundingSourceCode: doc.FundingSourceCode,
			HudCategoryCode:   doc.HudCategoryCode,
			Description:       doc.Description,
			PayeeID:           doc.PayeeID,
			PayeeName:         doc.PayeeName,
			PeriodStart:       doc.PeriodStart,
			PeriodEnd:         doc.PeriodEnd,
			DebitEntryID:      debitEntryID,
			DebitAccount:      ledger.AccountClassification(doc.DebitAccount),
			CreditEntryID:     creditEntryID,
			CreditAccount:     ledger.AccountClassification(doc.CreditAccount),
			RecordedBy:        doc.RecordedBy,
			At:                doc.At,
		}, nil

	case ledger.EventTypeCommunicationRecorded:
		commDate := doc.At
		if doc.CommunicationDate != nil {
			commDate = *doc.CommunicationDate
		}
		return ledger.CommunicationRecorded{
			LedgerID:          ledgerID,
			CommunicationID:   doc.CommunicationID,
			LandlordID:        doc.LandlordID,
			LandlordName:      doc.LandlordName,
			CommunicationType: ledger.CommunicationType(doc.CommunicationType),
			Subject:           doc.Subject,
			Content:           doc.Content,
			CommunicationDate: commDate,
			RecordedBy:        doc.RecordedBy,
			At:                doc.At,
		}, nil

	case ledger.EventTypeDocumentAttached:
		return ledger.DocumentAttached{
			LedgerID:     ledgerID,
			DocumentID:   doc.DocumentID,
			DocumentName: doc.DocumentName,
			DocumentType: doc.DocumentType,
			Content:      doc.DocumentContent,
			UploadedBy:   doc.UploadedBy,
			At:           doc.At,
		}, nil

	case ledger.EventTypeClosed:
		totalDebits, err := decimalFromDoc(doc.TotalDebits)
		if err != nil {
			return nil, fmt.Errorf("invalid total debits %q: %w", doc.TotalDebits, err)
		}
		totalCredits, err := decimalFromDoc(doc.TotalCredits)
		if err != nil {
			return nil, fmt.Errorf("invalid total credits %q: %w", doc.TotalCredits, err)
		}
		balance, err := decimalFromDoc(doc.Balance)
		if err != nil {
			return nil, fmt.Errorf("invalid balance %q: %w", doc.Balance, err)
		}
		return ledger.Closed{
			LedgerID:     ledgerID,
			Reason:       doc.Reason,
			TotalDebits:  totalDebits,
			TotalCredits: totalCredits,
			Balance:      balance,
			ClosedBy:     doc.ClosedBy,
			At:           doc.At,
		}, nil

	default:
		return nil, fmt.Errorf("unknown stored event type %q", doc.Type)
	}
}
