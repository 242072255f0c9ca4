package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
)

// FundingSourceReconciliation totals deposits received against expenses paid
// out for one funding source across every ledger that touched it
type FundingSourceReconciliation struct {
	FundingSourceCode string          `json:"funding_source_code"`
	LedgerCount       int             `json:"ledger_count"`
	TotalDeposits     decimal.Decimal `json:"total_deposits"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	Remaining         decimal.Decimal `json:"remaining"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// UnbalancedLedgerInfo identifies a ledger whose debit and credit totals
// disagree, with the size of the discrepancy
type UnbalancedLedgerInfo struct {
	LedgerID     uuid.UUID       `json:"ledger_id"`
	ClientID     uuid.UUID       `json:"client_id"`
	Status       string          `json:"status"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
	Discrepancy  decimal.Decimal `json:"discrepancy"`
	LastModified time.Time       `json:"last_modified"`
}

// DailyReconciliationSummary is the end-of-day control report: per funding
// source totals plus every unbalanced ledger found
type DailyReconciliationSummary struct {
	ReportDate        time.Time                      `json:"report_date"`
	FundingSources    []*FundingSourceReconciliation `json:"funding_sources"`
	UnbalancedLedgers []*UnbalancedLedgerInfo        `json:"unbalanced_ledgers"`
	AllBalanced       bool                           `json:"all_balanced"`
}

// ReconciliationServiceImpl implements the ReconciliationService interface
type ReconciliationServiceImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
	now        func() time.Time
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(logger *slog.Logger, ledgerRepo ledger.Repository) ReconciliationService {
	return &ReconciliationServiceImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// WithNow overrides the clock, for tests
func (s *ReconciliationServiceImpl) WithNow(now func() time.Time) {
	s.now = now
}

// ReconcileFundingSource totals all activity attributed to one funding
// source. Deposits are credit entries against the funding liability account;
// spending is debit entries on the expense and asset accounts within the same
// funding source.
func (s *ReconciliationServiceImpl) ReconcileFundingSource(ctx context.Context, fundingSourceCode string) (*FundingSourceReconciliation, error) {
	ledgers, err := s.ledgerRepo.FindByFundingSourceCode(ctx, fundingSourceCode)
	if err != nil {
		return nil, err
	}

	rec := &FundingSourceReconciliation{
		FundingSourceCode: fundingSourceCode,
		LedgerCount:       len(ledgers),
		TotalDeposits:     decimal.Zero,
		TotalSpent:        decimal.Zero,
		GeneratedAt:       s.now(),
	}

	for _, l := range ledgers {
		for _, e := range l.Entries {
			if e.FundingSourceCode != fundingSourceCode {
				continue
			}
			switch {
			case e.EntryType == ledger.EntryTypeCredit && e.AccountClassification == ledger.AccountFundingLiability:
				rec.TotalDeposits = rec.TotalDeposits.Add(e.Amount)
			case e.EntryType == ledger.EntryTypeDebit && e.AccountClassification != ledger.AccountCashAsset:
				rec.TotalSpent = rec.TotalSpent.Add(e.Amount)
			}
		}
	}
	rec.Remaining = rec.TotalDeposits.Sub(rec.TotalSpent)

	s.logger.Info("Funding source reconciled",
		"funding_source_code", fundingSourceCode,
		"ledger_count", rec.LedgerCount,
		"total_deposits", rec.TotalDeposits.String(),
		"total_spent", rec.TotalSpent.String(),
	)
	return rec, nil
}

// DailySummary builds the daily control report over the given funding sources
func (s *ReconciliationServiceImpl) DailySummary(ctx context.Context, fundingSourceCodes []string) (*DailyReconciliationSummary, error) {
	summary := &DailyReconciliationSummary{
		ReportDate:     s.now(),
		FundingSources: make([]*FundingSourceReconciliation, 0, len(fundingSourceCodes)),
	}

	for _, code := range fundingSourceCodes {
		rec, err := s.ReconcileFundingSource(ctx, code)
		if err != nil {
			return nil, err
		}
		summary.FundingSources = append(summary.FundingSources, rec)
	}

	unbalanced, err := s.FindUnbalancedLedgers(ctx)
	if err != nil {
		return nil, err
	}
	summary.UnbalancedLedgers = unbalanced
	summary.AllBalanced = len(unbalanced) == 0

	return summary, nil
}

// FindUnbalancedLedgers lists every ledger whose totals disagree
func (s *ReconciliationServiceImpl) FindUnbalancedLedgers(ctx context.Context) ([]*UnbalancedLedgerInfo, error) {
	ledgers, err := s.ledgerRepo.FindUnbalancedLedgers(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]*UnbalancedLedgerInfo, 0, len(ledgers))
	for _, l := range ledgers {
		infos = append(infos, &UnbalancedLedgerInfo{
			LedgerID:     l.ID,
			ClientID:     l.ClientID,
			Status:       string(l.Status),
			TotalDebits:  l.TotalDebits,
			TotalCredits: l.TotalCredits,
			Discrepancy:  l.TotalDebits.Sub(l.TotalCredits).Abs(),
			LastModified: l.LastModified,
		})
	}

	if len(infos) > 0 {
		s.logger.Warn("Unbalanced ledgers detected during reconciliation",
			"count", len(infos),
		)
	}
	return infos, nil
}
