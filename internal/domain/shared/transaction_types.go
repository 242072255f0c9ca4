package shared

// RequestKind identifies which ledger recording operation a transaction
// request maps onto
type RequestKind string

const (
	RequestKindPayment RequestKind = "PAYMENT"
	RequestKindDeposit RequestKind = "DEPOSIT"
	RequestKindArrears RequestKind = "ARREARS"
)

// FailureReason defines ledger transaction processing failure categories
type FailureReason string

const (
	FailureReasonLedgerNotFound        FailureReason = "LEDGER_NOT_FOUND"
	FailureReasonLedgerClosed          FailureReason = "LEDGER_CLOSED"
	FailureReasonInvalidAmount         FailureReason = "INVALID_AMOUNT"
	FailureReasonArrearsPeriodInFuture FailureReason = "ARREARS_PERIOD_IN_FUTURE"
	FailureReasonVersionConflict       FailureReason = "VERSION_CONFLICT"
	FailureReasonUnknownError          FailureReason = "UNKNOWN_ERROR"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
