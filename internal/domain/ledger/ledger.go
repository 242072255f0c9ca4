package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Redaction placeholders used when projecting VAWA-protected data outward
const (
	RedactedTransactionID = "[REDACTED]"
	RedactedDescription   = "[VAWA PROTECTED - DETAILS REDACTED]"
	RedactedContent       = "[VAWA PROTECTED - CONTENT REDACTED]"
	RedactedRecordedBy    = "[SYSTEM]"
)

// FinancialLedger is the aggregate root for a client's financial assistance
// ledger. State is rebuilt by folding the event stream; all mutation goes
// through the transaction-recording operations, which append events.
//
// The aggregate holds no locks. Callers must serialize mutations per ledger,
// typically via the repository's optimistic version check.
type FinancialLedger struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	EnrollmentID    uuid.UUID
	HouseholdID     uuid.UUID
	LedgerName      string
	Status          LedgerStatus
	Entries         []Entry
	Communications  []Communication
	Documents       []Document
	TotalDebits     decimal.Decimal
	TotalCredits    decimal.Decimal
	Balance         decimal.Decimal
	IsVawaProtected bool
	RedactionLevel  VawaRedactionLevel
	CreatedAt       time.Time
	LastModified    time.Time
	CreatedBy       string

	// Version counts applied events and backs optimistic concurrency in the store
	Version int64

	uncommitted []Event
	now         func() time.Time
}

// Create starts a new, empty, active ledger
func Create(clientID, enrollmentID, householdID uuid.UUID, ledgerName string,
	isVawaProtected bool, createdBy string) *FinancialLedger {

	l := &FinancialLedger{now: time.Now}
	l.raise(Created{
		LedgerID:        uuid.New(),
		ClientID:        clientID,
		EnrollmentID:    enrollmentID,
		HouseholdID:     householdID,
		LedgerName:      ledgerName,
		IsVawaProtected: isVawaProtected,
		CreatedBy:       createdBy,
		At:              l.now(),
	})
	return l
}

// Replay rebuilds a ledger from its persisted event stream
func Replay(events []Event) (*FinancialLedger, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("cannot replay empty event stream")
	}
	l := &FinancialLedger{now: time.Now}
	for _, ev := range events {
		if err := l.mutate(ev); err != nil {
			return nil, err
		}
		l.Version++
	}
	return l, nil
}

// WithNow overrides the clock, used by tests and backdated corrections
func (l *FinancialLedger) WithNow(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// UncommittedEvents returns events raised since load, in order
func (l *FinancialLedger) UncommittedEvents() []Event {
	return l.uncommitted
}

// MarkCommitted clears the uncommitted event list after a successful save
func (l *FinancialLedger) MarkCommitted() {
	l.uncommitted = nil
}

// RecordTransaction appends one matched debit/credit pair. This is the sole
// balance-affecting mutation; the higher-level recording operations all reduce
// to a call into it.
func (l *FinancialLedger) RecordTransaction(transactionID string, transactionType TransactionType,
	amount decimal.Decimal, fundingSourceCode, hudCategoryCode, description,
	payeeID, payeeName string, periodStart, periodEnd *time.Time, recordedBy string) error {

	if l.Status == LedgerStatusClosed {
		return ErrLedgerClosed
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if transactionID == "" {
		return ErrMissingTransactionID
	}

	debitAccount, err := DebitAccountFor(transactionType)
	if err != nil {
		return err
	}
	creditAccount, err := CreditAccountFor(transactionType)
	if err != nil {
		return err
	}

	return l.raise(TransactionRecorded{
		LedgerID:          l.ID,
		TransactionID:     transactionID,
		TransactionType:   transactionType,
		Amount:            amount,
		FundingSourceCode: fundingSourceCode,
		HudCategoryCode:   hudCategoryCode,
		Description:       description,
		PayeeID:           payeeID,
		PayeeName:         payeeName,
		PeriodStart:       periodStart,
		PeriodEnd:         periodEnd,
		DebitEntryID:      uuid.New(),
		DebitAccount:      debitAccount,
		CreditEntryID:     uuid.New(),
		CreditAccount:     creditAccount,
		RecordedBy:        recordedBy,
		At:                l.now(),
	})
}

// RecordPayment records an assistance payment, mapping its subtype onto a
// ledger transaction type and generating a readable description
func (l *FinancialLedger) RecordPayment(paymentID, assistanceID string, amount decimal.Decimal,
	fundingSourceCode, hudCategoryCode string, subtype PaymentSubtype,
	payeeID, payeeName string, paymentDate time.Time,
	periodStart, periodEnd *time.Time, recordedBy string) error {

	transactionType, err := TransactionTypeForSubtype(subtype)
	if err != nil {
		return err
	}

	description := fmt.Sprintf("%s payment on %s", subtype.DisplayName(), paymentDate.Format("2006-01-02"))
	if periodStart != nil && periodEnd != nil {
		description += fmt.Sprintf(" for period %s to %s",
			periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"))
	}

	return l.RecordTransaction(paymentID, transactionType, amount, fundingSourceCode,
		hudCategoryCode, description, payeeID, payeeName, periodStart, periodEnd, recordedBy)
}

// RecordDeposit records a funding deposit from a grant or program source
func (l *FinancialLedger) RecordDeposit(depositID string, amount decimal.Decimal,
	fundingSourceCode, depositSource string, depositDate time.Time, recordedBy string) error {

	description := fmt.Sprintf("Deposit from %s on %s", depositSource, depositDate.Format("2006-01-02"))
	day := depositDate
	return l.RecordTransaction(depositID, TransactionTypeFundingDeposit, amount,
		fundingSourceCode, "", description, "", depositSource, &day, &day, recordedBy)
}

// RecordArrears records a retroactively-owed rent or utility balance for a
// past period. The period must not start in the future.
func (l *FinancialLedger) RecordArrears(arrearsID string, amount decimal.Decimal,
	arrearsType ArrearsType, payeeID, payeeName string,
	periodStart, periodEnd *time.Time, recordedBy string) error {

	if periodStart == nil || periodEnd == nil {
		return ErrArrearsPeriodRequired
	}
	if periodStart.After(l.now()) {
		return ErrArrearsPeriodInFuture
	}

	transactionType, err := TransactionTypeForArrears(arrearsType)
	if err != nil {
		return err
	}
	hudCategory, err := HudCategoryForArrears(arrearsType)
	if err != nil {
		return err
	}

	description := fmt.Sprintf("%s arrears for period %s to %s", arrearsType,
		periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"))

	return l.RecordTransaction(arrearsID, transactionType, amount, "", hudCategory,
		description, payeeID, payeeName, periodStart, periodEnd, recordedBy)
}

// RecordLandlordCommunication keeps communication metadata on the ledger.
// Content is replaced with a placeholder on VAWA-protected ledgers.
func (l *FinancialLedger) RecordLandlordCommunication(communicationID, landlordID, landlordName string,
	communicationType CommunicationType, subject, content string,
	communicationDate time.Time, recordedBy string) error {

	if l.Status == LedgerStatusClosed {
		return ErrLedgerClosed
	}

	if l.IsVawaProtected {
		content = RedactedContent
	}

	return l.raise(CommunicationRecorded{
		LedgerID:          l.ID,
		CommunicationID:   communicationID,
		LandlordID:        landlordID,
		LandlordName:      landlordName,
		CommunicationType: communicationType,
		Subject:           subject,
		Content:           content,
		CommunicationDate: communicationDate,
		RecordedBy:        recordedBy,
		At:                l.now(),
	})
}

// AttachDocument records a supporting document. Document content is fully
// suppressed on VAWA-protected ledgers.
func (l *FinancialLedger) AttachDocument(documentID, documentName, documentType,
	uploadedBy string, content []byte) error {

	if l.Status == LedgerStatusClosed {
		return ErrLedgerClosed
	}

	if l.IsVawaProtected {
		content = []byte{}
	}

	return l.raise(DocumentAttached{
		LedgerID:     l.ID,
		DocumentID:   documentID,
		DocumentName: documentName,
		DocumentType: documentType,
		Content:      content,
		UploadedBy:   uploadedBy,
		At:           l.now(),
	})
}

// Close freezes the ledger. Closing is rejected while debits and credits
// disagree so an unbalanced ledger is always surfaced for reconciliation.
func (l *FinancialLedger) Close(reason, closedBy string) error {
	if l.Status == LedgerStatusClosed {
		return ErrLedgerAlreadyClosed
	}
	if !l.IsBalanced() {
		return fmt.Errorf("%w: debits %s, credits %s", ErrLedgerUnbalanced,
			l.TotalDebits.String(), l.TotalCredits.String())
	}

	return l.raise(Closed{
		LedgerID:     l.ID,
		Reason:       reason,
		TotalDebits:  l.TotalDebits,
		TotalCredits: l.TotalCredits,
		Balance:      l.Balance,
		ClosedBy:     closedBy,
		At:           l.now(),
	})
}

// IsBalanced reports whether total debits equal total credits
func (l *FinancialLedger) IsBalanced() bool {
	return l.TotalDebits.Equal(l.TotalCredits)
}

// EntriesForPayee returns the raw entries whose payee matches payeeID
func (l *FinancialLedger) EntriesForPayee(payeeID string) []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if e.PayeeID != "" && e.PayeeID == payeeID {
			out = append(out, e)
		}
	}
	return out
}

// EntriesForLandlordView returns the entries a landlord may see. On a
// VAWA-protected ledger each entry is redacted: amounts, classification,
// payee identity and period are preserved so the landlord can reconcile
// payments, while identifiers that could expose the client are stripped.
func (l *FinancialLedger) EntriesForLandlordView(landlordID string) []Entry {
	matched := l.EntriesForPayee(landlordID)
	if !l.IsVawaProtected {
		return matched
	}

	redacted := make([]Entry, 0, len(matched))
	for _, e := range matched {
		r := e
		r.TransactionID = RedactedTransactionID
		r.Description = RedactedDescription
		r.FundingSourceCode = ""
		r.RecordedBy = RedactedRecordedBy
		redacted = append(redacted, r)
	}
	return redacted
}

// raise applies a new event and queues it for persistence
func (l *FinancialLedger) raise(ev Event) error {
	if err := l.mutate(ev); err != nil {
		return err
	}
	l.Version++
	l.uncommitted = append(l.uncommitted, ev)
	return nil
}

// mutate is the single exhaustive reducer folding events into aggregate state
func (l *FinancialLedger) mutate(ev Event) error {
	switch e := ev.(type) {
	case Created:
		l.ID = e.LedgerID
		l.ClientID = e.ClientID
		l.EnrollmentID = e.EnrollmentID
		l.HouseholdID = e.HouseholdID
		l.LedgerName = e.LedgerName
		l.IsVawaProtected = e.IsVawaProtected
		l.RedactionLevel = RedactionNone
		if e.IsVawaProtected {
			l.RedactionLevel = RedactionFull
		}
		l.Status = LedgerStatusActive
		l.TotalDebits = decimal.Zero
		l.TotalCredits = decimal.Zero
		l.Balance = decimal.Zero
		l.CreatedBy = e.CreatedBy
		l.CreatedAt = e.At
		l.LastModified = e.At

	case TransactionRecorded:
		debit, err := NewEntry(e.DebitEntryID, e.TransactionID, EntryTypeDebit,
			e.DebitAccount, e.Amount, e.Description, e.FundingSourceCode,
			e.HudCategoryCode, e.PayeeID, e.PayeeName, e.PeriodStart, e.PeriodEnd,
			e.RecordedBy, e.At)
		if err != nil {
			return err
		}
		credit, err := NewEntry(e.CreditEntryID, e.TransactionID, EntryTypeCredit,
			e.CreditAccount, e.Amount, e.Description, e.FundingSourceCode,
			e.HudCategoryCode, e.PayeeID, e.PayeeName, e.PeriodStart, e.PeriodEnd,
			e.RecordedBy, e.At)
		if err != nil {
			return err
		}
		l.Entries = append(l.Entries, debit, credit)
		l.TotalDebits = l.TotalDebits.Add(e.Amount)
		l.TotalCredits = l.TotalCredits.Add(e.Amount)
		l.Balance = l.TotalCredits.Sub(l.TotalDebits)
		l.LastModified = e.At

	case CommunicationRecorded:
		l.Communications = append(l.Communications, Communication{
			CommunicationID:   e.CommunicationID,
			LandlordID:        e.LandlordID,
			LandlordName:      e.LandlordName,
			CommunicationType: e.CommunicationType,
			Subject:           e.Subject,
			Content:           e.Content,
			CommunicationDate: e.CommunicationDate,
			RecordedBy:        e.RecordedBy,
			RecordedAt:        e.At,
		})
		l.LastModified = e.At

	case DocumentAttached:
		l.Documents = append(l.Documents, Document{
			DocumentID:   e.DocumentID,
			DocumentName: e.DocumentName,
			DocumentType: e.DocumentType,
			Content:      e.Content,
			UploadedBy:   e.UploadedBy,
			UploadedAt:   e.At,
		})
		l.LastModified = e.At

	case Closed:
		l.Status = LedgerStatusClosed
		l.LastModified = e.At

	default:
		return fmt.Errorf("unhandled ledger event type %T", ev)
	}
	return nil
}
