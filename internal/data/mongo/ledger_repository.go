package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
)

const (
	// LedgerCollectionName is the name of the ledger collection in MongoDB
	LedgerCollectionName = "financial_ledgers"
)

// LedgerRepository implements the ledger.Repository interface for MongoDB.
// Each ledger is one document holding its full event stream plus denormalized
// summary fields that power the diagnostic queries. Appends are guarded by the
// aggregate version for optimistic concurrency.
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) ledger.Repository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// ledgerDoc is the stored form of one ledger aggregate. Everything outside
// events is denormalized from the replayed state and rewritten on every save.
type ledgerDoc struct {
	ID                 string     `bson:"_id"`
	ClientID           string     `bson:"client_id"`
	EnrollmentID       string     `bson:"enrollment_id"`
	HouseholdID        string     `bson:"household_id"`
	LedgerName         string     `bson:"ledger_name"`
	Status             string     `bson:"status"`
	IsVawaProtected    bool       `bson:"is_vawa_protected"`
	TotalDebits        string     `bson:"total_debits"`
	TotalCredits       string     `bson:"total_credits"`
	Balance            string     `bson:"balance"`
	IsBalanced         bool       `bson:"is_balanced"`
	FundingSourceCodes []string   `bson:"funding_source_codes"`
	PayeeIDs           []string   `bson:"payee_ids"`
	FirstArrearsAt     *time.Time `bson:"first_arrears_at,omitempty"`
	FirstDepositAt     *time.Time `bson:"first_deposit_at,omitempty"`
	ExpenseEntryCount  int        `bson:"expense_entry_count"`
	Version            int64      `bson:"version"`
	CreatedAt          time.Time  `bson:"created_at"`
	LastModified       time.Time  `bson:"last_modified"`
	Events             []eventDoc `bson:"events"`
}

// Save inserts a new stream or appends uncommitted events to an existing one.
// The append is filtered on the expected version; a missed match on an
// existing document means a concurrent writer won and ErrVersionConflict is
// returned. The caller marks events committed on success.
func (r *LedgerRepository) Save(ctx context.Context, l *ledger.FinancialLedger) error {
	uncommitted := l.UncommittedEvents()
	if len(uncommitted) == 0 {
		return nil
	}

	collection := r.db.Collection(LedgerCollectionName)

	newEvents := make([]eventDoc, 0, len(uncommitted))
	for _, ev := range uncommitted {
		doc, err := toEventDoc(ev)
		if err != nil {
			return fmt.Errorf("failed to encode ledger event: %w", err)
		}
		newEvents = append(newEvents, doc)
	}

	expectedVersion := l.Version - int64(len(uncommitted))

	if expectedVersion == 0 {
		doc := r.summarize(l)
		doc.Events = newEvents
		if _, err := collection.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ledger.ErrVersionConflict{LedgerID: l.ID}
			}
			r.logger.Error("Failed to insert financial ledger",
				"ledger_id", l.ID.String(),
				"error", err)
			return fmt.Errorf("failed to insert financial ledger: %w", err)
		}
		l.MarkCommitted()
		return nil
	}

	summary := r.summarize(l)
	filter := bson.M{"_id": l.ID.String(), "version": expectedVersion}
	update := bson.M{
		"$push": bson.M{"events": bson.M{"$each": newEvents}},
		"$set": bson.M{
			"status":               summary.Status,
			"total_debits":         summary.TotalDebits,
			"total_credits":        summary.TotalCredits,
			"balance":              summary.Balance,
			"is_balanced":          summary.IsBalanced,
			"funding_source_codes": summary.FundingSourceCodes,
			"payee_ids":            summary.PayeeIDs,
			"first_arrears_at":     summary.FirstArrearsAt,
			"first_deposit_at":     summary.FirstDepositAt,
			"expense_entry_count":  summary.ExpenseEntryCount,
			"version":              summary.Version,
			"last_modified":        summary.LastModified,
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to append ledger events",
			"ledger_id", l.ID.String(),
			"expected_version", expectedVersion,
			"error", err)
		return fmt.Errorf("failed to append ledger events: %w", err)
	}

	if result.MatchedCount == 0 {
		count, err := collection.CountDocuments(ctx, bson.M{"_id": l.ID.String()})
		if err != nil {
			return fmt.Errorf("failed to check ledger existence: %w", err)
		}
		if count == 0 {
			return ledger.ErrLedgerNotFound{LedgerID: l.ID}
		}
		return ledger.ErrVersionConflict{LedgerID: l.ID}
	}

	l.MarkCommitted()
	return nil
}

// FindByID loads one ledger by replaying its stored event stream.
// Returns ErrLedgerNotFound if no stream exists for the given ID.
func (r *LedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.FinancialLedger, error) {
	collection := r.db.Collection(LedgerCollectionName)

	var doc ledgerDoc
	err := collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrLedgerNotFound{LedgerID: id}
		}
		r.logger.Error("Failed to get financial ledger",
			"ledger_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get financial ledger: %w", err)
	}

	return r.replayDoc(doc)
}

// FindByClientID retrieves every ledger belonging to a client, oldest first
func (r *LedgerRepository) FindByClientID(ctx context.Context, clientID uuid.UUID) ([]*ledger.FinancialLedger, error) {
	return r.findAll(ctx, bson.M{"client_id": clientID.String()})
}

// FindByClientIDAndStatus retrieves one ledger in the given status for a
// client. Returns nil, nil when no ledger matches.
func (r *LedgerRepository) FindByClientIDAndStatus(ctx context.Context, clientID uuid.UUID, status ledger.LedgerStatus) (*ledger.FinancialLedger, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"client_id": clientID.String(), "status": string(status)}
	var doc ledgerDoc
	err := collection.FindOne(ctx, filter, options.FindOne().SetSort(bson.M{"created_at": -1})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get financial ledger by client and status",
			"client_id", clientID.String(),
			"status", string(status),
			"error", err)
		return nil, fmt.Errorf("failed to get financial ledger by client and status: %w", err)
	}

	return r.replayDoc(doc)
}

// FindActiveByPayeeID retrieves active ledgers with entries for the payee
func (r *LedgerRepository) FindActiveByPayeeID(ctx context.Context, payeeID string) ([]*ledger.FinancialLedger, error) {
	return r.findAll(ctx, bson.M{
		"status":    string(ledger.LedgerStatusActive),
		"payee_ids": payeeID,
	})
}

// FindByFundingSourceCode retrieves ledgers that drew on a funding source
func (r *LedgerRepository) FindByFundingSourceCode(ctx context.Context, fundingSourceCode string) ([]*ledger.FinancialLedger, error) {
	return r.findAll(ctx, bson.M{"funding_source_codes": fundingSourceCode})
}

// FindUnbalancedLedgers retrieves ledgers whose debits and credits disagree
func (r *LedgerRepository) FindUnbalancedLedgers(ctx context.Context) ([]*ledger.FinancialLedger, error) {
	return r.findAll(ctx, bson.M{"is_balanced": false})
}

// FindLedgersWithOverdueArrears retrieves active ledgers whose earliest
// arrears entry was recorded before the cutoff
func (r *LedgerRepository) FindLedgersWithOverdueArrears(ctx context.Context, olderThan time.Time) ([]*ledger.FinancialLedger, error) {
	return r.findAll(ctx, bson.M{
		"status":           string(ledger.LedgerStatusActive),
		"first_arrears_at": bson.M{"$lte": olderThan},
	})
}

// FindLedgersWithUnmatchedDeposits retrieves active ledgers that received
// funding before the cutoff but never recorded an expense against it
func (r *LedgerRepository) FindLedgersWithUnmatchedDeposits(ctx context.Context, olderThan time.Time) ([]*ledger.FinancialLedger, error) {
	return r.findAll(ctx, bson.M{
		"status":              string(ledger.LedgerStatusActive),
		"expense_entry_count": 0,
		"first_deposit_at":    bson.M{"$lte": olderThan},
	})
}

func (r *LedgerRepository) findAll(ctx context.Context, filter bson.M) ([]*ledger.FinancialLedger, error) {
	collection := r.db.Collection(LedgerCollectionName)

	cursor, err := collection.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		r.logger.Error("Failed to query financial ledgers",
			"filter", fmt.Sprintf("%v", filter),
			"error", err)
		return nil, fmt.Errorf("failed to query financial ledgers: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []ledgerDoc
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode financial ledgers",
			"error", err)
		return nil, fmt.Errorf("failed to decode financial ledgers: %w", err)
	}

	ledgers := make([]*ledger.FinancialLedger, 0, len(docs))
	for _, doc := range docs {
		l, err := r.replayDoc(doc)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, nil
}

func (r *LedgerRepository) replayDoc(doc ledgerDoc) (*ledger.FinancialLedger, error) {
	events := make([]ledger.Event, 0, len(doc.Events))
	for _, ed := range doc.Events {
		ev, err := fromEventDoc(ed)
		if err != nil {
			r.logger.Error("Failed to decode ledger event",
				"ledger_id", doc.ID,
				"event_type", ed.Type,
				"error", err)
			return nil, fmt.Errorf("failed to decode ledger event: %w", err)
		}
		events = append(events, ev)
	}

	l, err := ledger.Replay(events)
	if err != nil {
		return nil, fmt.Errorf("failed to replay ledger %s: %w", doc.ID, err)
	}
	return l, nil
}

// summarize derives the denormalized query fields from the replayed aggregate
func (r *LedgerRepository) summarize(l *ledger.FinancialLedger) ledgerDoc {
	fundingCodes := make([]string, 0)
	payeeIDs := make([]string, 0)
	seenFunding := map[string]bool{}
	seenPayee := map[string]bool{}

	var firstArrearsAt, firstDepositAt *time.Time
	expenseCount := 0

	for i := range l.Entries {
		e := &l.Entries[i]
		if e.FundingSourceCode != "" && !seenFunding[e.FundingSourceCode] {
			seenFunding[e.FundingSourceCode] = true
			fundingCodes = append(fundingCodes, e.FundingSourceCode)
		}
		if e.PayeeID != "" && !seenPayee[e.PayeeID] {
			seenPayee[e.PayeeID] = true
			payeeIDs = append(payeeIDs, e.PayeeID)
		}

		if e.EntryType == ledger.EntryTypeDebit {
			switch e.AccountClassification {
			case ledger.AccountCashAsset:
				// Deposit debit, not an expense
			default:
				expenseCount++
			}
			isArrears := e.HudCategoryCode == ledger.HudCategoryRentArrears ||
				e.HudCategoryCode == ledger.HudCategoryUtilityArrears
			if isArrears && (firstArrearsAt == nil || e.RecordedAt.Before(*firstArrearsAt)) {
				at := e.RecordedAt
				firstArrearsAt = &at
			}
		}

		if e.EntryType == ledger.EntryTypeCredit &&
			e.AccountClassification == ledger.AccountFundingLiability &&
			(firstDepositAt == nil || e.RecordedAt.Before(*firstDepositAt)) {
			at := e.RecordedAt
			firstDepositAt = &at
		}
	}

	return ledgerDoc{
		ID:                 l.ID.String(),
		ClientID:           l.ClientID.String(),
		EnrollmentID:       l.EnrollmentID.String(),
		HouseholdID:        l.HouseholdID.String(),
		LedgerName:         l.LedgerName,
		Status:             string(l.Status),
		IsVawaProtected:    l.IsVawaProtected,
		TotalDebits:        l.TotalDebits.String(),
		TotalCredits:       l.TotalCredits.String(),
		Balance:            l.Balance.String(),
		IsBalanced:         l.IsBalanced(),
		FundingSourceCodes: fundingCodes,
		PayeeIDs:           payeeIDs,
		FirstArrearsAt:     firstArrearsAt,
		FirstDepositAt:     firstDepositAt,
		ExpenseEntryCount:  expenseCount,
		Version:            l.Version,
		CreatedAt:          l.CreatedAt,
		LastModified:       l.LastModified,
	}
}

// decimalFromDoc parses a stored decimal string, defaulting empty to zero
func decimalFromDoc(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
