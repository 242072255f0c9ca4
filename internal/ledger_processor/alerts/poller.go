package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haven-hmis/haven-ledger/internal/config"
	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/platform/messaging/producers"
)

// Alert types raised by the diagnostic sweeps
const (
	AlertTypeOverdueArrears    = "OVERDUE_ARREARS"
	AlertTypeUnmatchedDeposits = "UNMATCHED_DEPOSITS"
	AlertTypeLedgerImbalance   = "LEDGER_IMBALANCE"
)

// Alert is the notification payload published to the alerts topic
type Alert struct {
	AlertType    string          `json:"alert_type"`
	LedgerID     uuid.UUID       `json:"ledger_id"`
	ClientID     uuid.UUID       `json:"client_id"`
	LedgerName   string          `json:"ledger_name"`
	Balance      decimal.Decimal `json:"balance"`
	Discrepancy  decimal.Decimal `json:"discrepancy,omitempty"`
	Detail       string          `json:"detail"`
	DetectedAt   time.Time       `json:"detected_at"`
	LastModified time.Time       `json:"last_modified"`
}

// Poller runs the diagnostic ledger queries on a fixed interval and
// publishes an alert for every finding
type Poller struct {
	ledgerRepo            ledger.Repository
	publisher             producers.MessagePublisher
	logger                *slog.Logger
	pollInterval          time.Duration
	arrearsOverdueAfter   time.Duration
	depositUnmatchedAfter time.Duration
	now                   func() time.Time
}

func NewPoller(
	cfg *config.AlertsConfig,
	ledgerRepo ledger.Repository,
	publisher producers.MessagePublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		ledgerRepo:            ledgerRepo,
		publisher:             publisher,
		logger:                logger,
		pollInterval:          cfg.PollingInterval,
		arrearsOverdueAfter:   cfg.ArrearsOverdueAfter,
		depositUnmatchedAfter: cfg.DepositUnmatchedAfter,
		now:                   func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock, used by tests
func (p *Poller) WithNow(now func() time.Time) *Poller {
	p.now = now
	return p
}

// Start begins the diagnostic sweeps until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting financial alerts poller",
		"poll_interval", p.pollInterval.String(),
		"arrears_overdue_after", p.arrearsOverdueAfter.String(),
		"deposit_unmatched_after", p.depositUnmatchedAfter.String(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Financial alerts poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.RunSweep(ctx); err != nil {
				p.logger.Error("Error during financial alerts sweep", "error", err)
			}
		}
	}
}

// RunSweep executes all diagnostic queries once and publishes the findings
func (p *Poller) RunSweep(ctx context.Context) error {
	detectedAt := p.now()

	overdue, err := p.ledgerRepo.FindLedgersWithOverdueArrears(ctx, detectedAt.Add(-p.arrearsOverdueAfter))
	if err != nil {
		p.logger.Error("Failed to query ledgers with overdue arrears", "error", err)
	} else {
		for _, l := range overdue {
			p.publishAlert(ctx, Alert{
				AlertType:    AlertTypeOverdueArrears,
				LedgerID:     l.ID,
				ClientID:     l.ClientID,
				LedgerName:   l.LedgerName,
				Balance:      l.Balance,
				Detail:       "Arrears recorded but not resolved within the configured window",
				DetectedAt:   detectedAt,
				LastModified: l.LastModified,
			})
		}
	}

	unmatched, err := p.ledgerRepo.FindLedgersWithUnmatchedDeposits(ctx, detectedAt.Add(-p.depositUnmatchedAfter))
	if err != nil {
		p.logger.Error("Failed to query ledgers with unmatched deposits", "error", err)
	} else {
		for _, l := range unmatched {
			p.publishAlert(ctx, Alert{
				AlertType:    AlertTypeUnmatchedDeposits,
				LedgerID:     l.ID,
				ClientID:     l.ClientID,
				LedgerName:   l.LedgerName,
				Balance:      l.Balance,
				Detail:       "Funding deposited but no disbursements recorded within the configured window",
				DetectedAt:   detectedAt,
				LastModified: l.LastModified,
			})
		}
	}

	unbalanced, err := p.ledgerRepo.FindUnbalancedLedgers(ctx)
	if err != nil {
		p.logger.Error("Failed to query unbalanced ledgers", "error", err)
	} else {
		for _, l := range unbalanced {
			p.publishAlert(ctx, Alert{
				AlertType:    AlertTypeLedgerImbalance,
				LedgerID:     l.ID,
				ClientID:     l.ClientID,
				LedgerName:   l.LedgerName,
				Balance:      l.Balance,
				Discrepancy:  l.TotalDebits.Sub(l.TotalCredits).Abs(),
				Detail:       "Total debits do not equal total credits",
				DetectedAt:   detectedAt,
				LastModified: l.LastModified,
			})
		}
	}

	return nil
}

func (p *Poller) publishAlert(ctx context.Context, alert Alert) {
	if err := p.publisher.Publish(ctx, alert.LedgerID.String(), alert); err != nil {
		p.logger.Error("Failed to publish financial alert",
			"alert_type", alert.AlertType, "ledger_id", alert.LedgerID, "error", err,
		)
		return
	}
	p.logger.Info("Published financial alert",
		"alert_type", alert.AlertType, "ledger_id", alert.LedgerID, "client_id", alert.ClientID,
	)
}
