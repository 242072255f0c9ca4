// Package vawa applies Violence Against Women Act redaction rules when
// ledger data is projected to landlords or other external parties. It is a
// pure read-time transformation; stored entries are never mutated.
package vawa

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
)

// RedactedClientName replaces client identity on protected landlord views
const RedactedClientName = "[CONFIDENTIAL CLIENT]"

var (
	amountPattern = regexp.MustCompile(`\$[0-9,.]+ `)
	datePattern   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	grantPattern  = regexp.MustCompile(`Grant\s+\w+`)
	fundPattern   = regexp.MustCompile(`Fund\s+\w+`)
)

// LandlordView is the external projection of a ledger for one landlord.
// ClientID is nil and ClientName redacted when the ledger is VAWA-protected.
type LandlordView struct {
	LedgerID        uuid.UUID       `json:"ledger_id"`
	ClientID        *uuid.UUID      `json:"client_id,omitempty"`
	ClientName      string          `json:"client_name"`
	LandlordID      string          `json:"landlord_id"`
	VisibleEntries  []ledger.Entry  `json:"visible_entries"`
	VisibleBalance  decimal.Decimal `json:"visible_balance"`
	IsVawaProtected bool            `json:"is_vawa_protected"`
}

// VisibleTransactionCount returns the number of entries in the view
func (v LandlordView) VisibleTransactionCount() int {
	return len(v.VisibleEntries)
}

// VisiblePaymentTotal sums the credit entries visible to the landlord
func (v LandlordView) VisiblePaymentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, e := range v.VisibleEntries {
		if e.EntryType == ledger.EntryTypeCredit {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// CreateLandlordView projects a ledger for landlord access, applying the
// ledger's redaction level when it is VAWA-protected
func CreateLandlordView(l *ledger.FinancialLedger, landlordID string) LandlordView {
	if !l.IsVawaProtected {
		entries := l.EntriesForPayee(landlordID)
		clientID := l.ClientID
		return LandlordView{
			LedgerID:        l.ID,
			ClientID:        &clientID,
			ClientName:      l.LedgerName,
			LandlordID:      landlordID,
			VisibleEntries:  entries,
			VisibleBalance:  landlordBalance(entries),
			IsVawaProtected: false,
		}
	}

	redacted := RedactEntriesForLandlord(l.EntriesForPayee(landlordID), l.RedactionLevel, landlordID)
	return LandlordView{
		LedgerID:        l.ID,
		ClientID:        nil,
		ClientName:      RedactedClientName,
		LandlordID:      landlordID,
		VisibleEntries:  redacted,
		VisibleBalance:  redactedBalance(redacted, l.RedactionLevel),
		IsVawaProtected: true,
	}
}

// RedactEntriesForLandlord filters and transforms entries per redaction level
func RedactEntriesForLandlord(entries []ledger.Entry, level ledger.VawaRedactionLevel, landlordID string) []ledger.Entry {
	out := make([]ledger.Entry, 0, len(entries))
	for _, e := range entries {
		if !visibleToLandlord(e, level) {
			continue
		}
		out = append(out, redactEntry(e, level))
	}
	return out
}

func visibleToLandlord(e ledger.Entry, level ledger.VawaRedactionLevel) bool {
	switch level {
	case ledger.RedactionNone:
		return true
	case ledger.RedactionPartial, ledger.RedactionFull:
		return e.PayeeID != ""
	default: // COMPLETE
		return false
	}
}

func redactEntry(e ledger.Entry, level ledger.VawaRedactionLevel) ledger.Entry {
	switch level {
	case ledger.RedactionNone:
		return e

	case ledger.RedactionPartial:
		// Amount stays visible; identifying details are scrubbed
		r := e
		r.TransactionID = ledger.RedactedTransactionID
		r.Description = RedactDescription(e.Description)
		r.FundingSourceCode = ""
		r.RecordedBy = ledger.RedactedRecordedBy
		return r

	default: // FULL
		r := e
		r.TransactionID = ledger.RedactedTransactionID
		r.AccountClassification = ledger.AccountOtherExpense
		r.Amount = decimal.Zero
		r.Description = ledger.RedactedDescription
		r.FundingSourceCode = ""
		r.HudCategoryCode = ""
		r.PeriodStart = nil
		r.PeriodEnd = nil
		r.RecordedBy = ledger.RedactedRecordedBy
		return r
	}
}

// RedactDescription scrubs amounts, dates, and funding references from a
// description while keeping the basic payment narrative readable
func RedactDescription(description string) string {
	if description == "" {
		return ""
	}
	s := amountPattern.ReplaceAllString(description, "$$[AMOUNT] ")
	s = datePattern.ReplaceAllString(s, "[DATE]")
	s = grantPattern.ReplaceAllString(s, "Grant [REDACTED]")
	s = fundPattern.ReplaceAllString(s, "Fund [REDACTED]")
	return s
}

func landlordBalance(entries []ledger.Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.EntryType == ledger.EntryTypeCredit {
			total = total.Add(e.Amount)
		} else {
			total = total.Sub(e.Amount)
		}
	}
	return total
}

func redactedBalance(entries []ledger.Entry, level ledger.VawaRedactionLevel) decimal.Decimal {
	if level == ledger.RedactionFull || level == ledger.RedactionComplete {
		return decimal.Zero
	}
	return landlordBalance(entries)
}
