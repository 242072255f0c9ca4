package ledger

import "fmt"

// LedgerStatus defines the lifecycle states of a financial ledger
type LedgerStatus string

const (
	LedgerStatusActive LedgerStatus = "ACTIVE"
	LedgerStatusClosed LedgerStatus = "CLOSED"
)

// EntryType identifies which side of a double-entry pair an entry is
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// AccountClassification categorizes ledger entries for accounting purposes
type AccountClassification string

const (
	AccountRentExpense          AccountClassification = "RENT_EXPENSE"
	AccountUtilityExpense       AccountClassification = "UTILITY_EXPENSE"
	AccountSecurityDepositAsset AccountClassification = "SECURITY_DEPOSIT_ASSET"
	AccountMovingExpense        AccountClassification = "MOVING_EXPENSE"
	AccountCashAsset            AccountClassification = "CASH_ASSET"
	AccountFundingLiability     AccountClassification = "FUNDING_LIABILITY"
	AccountOtherExpense         AccountClassification = "OTHER_EXPENSE"
)

// TransactionType defines the balance-affecting operations a ledger supports
type TransactionType string

const (
	TransactionTypeRentPayment     TransactionType = "RENT_PAYMENT"
	TransactionTypeRentArrears     TransactionType = "RENT_ARREARS"
	TransactionTypeUtilityPayment  TransactionType = "UTILITY_PAYMENT"
	TransactionTypeUtilityArrears  TransactionType = "UTILITY_ARREARS"
	TransactionTypeSecurityDeposit TransactionType = "SECURITY_DEPOSIT"
	TransactionTypeMovingCosts     TransactionType = "MOVING_COSTS"
	TransactionTypeFundingDeposit  TransactionType = "FUNDING_DEPOSIT"
	TransactionTypeOtherPayment    TransactionType = "OTHER_PAYMENT"
)

// PaymentSubtype classifies payments coming from the assistance workflows
type PaymentSubtype string

const (
	PaymentSubtypeRentCurrent     PaymentSubtype = "RENT_CURRENT"
	PaymentSubtypeRentArrears     PaymentSubtype = "RENT_ARREARS"
	PaymentSubtypeUtilityCurrent  PaymentSubtype = "UTILITY_CURRENT"
	PaymentSubtypeUtilityArrears  PaymentSubtype = "UTILITY_ARREARS"
	PaymentSubtypeSecurityDeposit PaymentSubtype = "SECURITY_DEPOSIT"
	PaymentSubtypeMovingCosts     PaymentSubtype = "MOVING_COSTS"
	PaymentSubtypeOther           PaymentSubtype = "OTHER"
)

// ArrearsType distinguishes retroactive rent from retroactive utility balances
type ArrearsType string

const (
	ArrearsTypeRent    ArrearsType = "RENT"
	ArrearsTypeUtility ArrearsType = "UTILITY"
)

// CommunicationType categorizes landlord communications kept on the ledger
type CommunicationType string

const (
	CommunicationTypeEmail  CommunicationType = "EMAIL"
	CommunicationTypePhone  CommunicationType = "PHONE"
	CommunicationTypeLetter CommunicationType = "LETTER"
	CommunicationTypeInApp  CommunicationType = "IN_APP"
)

// VawaRedactionLevel controls how aggressively external views are redacted
type VawaRedactionLevel string

const (
	RedactionNone     VawaRedactionLevel = "NONE"
	RedactionPartial  VawaRedactionLevel = "PARTIAL"
	RedactionFull     VawaRedactionLevel = "FULL"
	RedactionComplete VawaRedactionLevel = "COMPLETE"
)

// HUD funding category codes for arrears reporting
const (
	HudCategoryRentArrears    = "4.02"
	HudCategoryUtilityArrears = "4.03"
)

// DebitAccountFor returns the account debited for a given transaction type.
// Every transaction type must map; an unknown type is a programming error.
func DebitAccountFor(t TransactionType) (AccountClassification, error) {
	switch t {
	case TransactionTypeRentPayment, TransactionTypeRentArrears:
		return AccountRentExpense, nil
	case TransactionTypeUtilityPayment, TransactionTypeUtilityArrears:
		return AccountUtilityExpense, nil
	case TransactionTypeSecurityDeposit:
		return AccountSecurityDepositAsset, nil
	case TransactionTypeMovingCosts:
		return AccountMovingExpense, nil
	case TransactionTypeFundingDeposit:
		return AccountCashAsset, nil
	case TransactionTypeOtherPayment:
		return AccountOtherExpense, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTransactionType, t)
	}
}

// CreditAccountFor returns the account credited for a given transaction type.
// Funding deposits credit the funding liability; everything else draws down cash.
func CreditAccountFor(t TransactionType) (AccountClassification, error) {
	switch t {
	case TransactionTypeFundingDeposit:
		return AccountFundingLiability, nil
	case TransactionTypeRentPayment, TransactionTypeRentArrears,
		TransactionTypeUtilityPayment, TransactionTypeUtilityArrears,
		TransactionTypeSecurityDeposit, TransactionTypeMovingCosts,
		TransactionTypeOtherPayment:
		return AccountCashAsset, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTransactionType, t)
	}
}

// TransactionTypeForSubtype maps an assistance payment subtype to the ledger
// transaction type recorded for it
func TransactionTypeForSubtype(s PaymentSubtype) (TransactionType, error) {
	switch s {
	case PaymentSubtypeRentCurrent:
		return TransactionTypeRentPayment, nil
	case PaymentSubtypeRentArrears:
		return TransactionTypeRentArrears, nil
	case PaymentSubtypeUtilityCurrent:
		return TransactionTypeUtilityPayment, nil
	case PaymentSubtypeUtilityArrears:
		return TransactionTypeUtilityArrears, nil
	case PaymentSubtypeSecurityDeposit:
		return TransactionTypeSecurityDeposit, nil
	case PaymentSubtypeMovingCosts:
		return TransactionTypeMovingCosts, nil
	case PaymentSubtypeOther:
		return TransactionTypeOtherPayment, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownPaymentSubtype, s)
	}
}

// TransactionTypeForArrears maps an arrears type to its ledger transaction type
func TransactionTypeForArrears(a ArrearsType) (TransactionType, error) {
	switch a {
	case ArrearsTypeRent:
		return TransactionTypeRentArrears, nil
	case ArrearsTypeUtility:
		return TransactionTypeUtilityArrears, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownArrearsType, a)
	}
}

// HudCategoryForArrears returns the HUD funding category code reported for arrears
func HudCategoryForArrears(a ArrearsType) (string, error) {
	switch a {
	case ArrearsTypeRent:
		return HudCategoryRentArrears, nil
	case ArrearsTypeUtility:
		return HudCategoryUtilityArrears, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownArrearsType, a)
	}
}

// DisplayName returns the human-readable label used in generated descriptions
func (s PaymentSubtype) DisplayName() string {
	switch s {
	case PaymentSubtypeRentCurrent:
		return "Rent"
	case PaymentSubtypeRentArrears:
		return "Rent arrears"
	case PaymentSubtypeUtilityCurrent:
		return "Utility"
	case PaymentSubtypeUtilityArrears:
		return "Utility arrears"
	case PaymentSubtypeSecurityDeposit:
		return "Security deposit"
	case PaymentSubtypeMovingCosts:
		return "Moving costs"
	case PaymentSubtypeOther:
		return "Other"
	default:
		return string(s)
	}
}
