package jobs

import (
	"context"
	"time"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/lifecycle"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"go.uber.org/zap"
)

// InvariantAuditJobName is the name of the ledger invariant audit job
const InvariantAuditJobName = "invariant_audit"

const auditBatchSize = 200

// AuditReport summarizes one audit run
type AuditReport struct {
	Contracts        int
	Invoices         int
	ProductInstances int
	Findings         []lifecycle.Finding
}

// InvariantAuditJob replays every ledger and reports the entities whose
// history breaks a lifecycle rule. It only reads.
type InvariantAuditJob struct {
	store   *repository.Store
	logger  *zap.Logger
	timeout time.Duration
}

// NewInvariantAuditJob creates the audit job. The timeout bounds one run.
func NewInvariantAuditJob(store *repository.Store, logger *zap.Logger, timeout time.Duration) *InvariantAuditJob {
	return &InvariantAuditJob{
		store:   store,
		logger:  logger,
		timeout: timeout,
	}
}

// Run executes one audit. This is called by the scheduler according to the cron expression.
func (j *InvariantAuditJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	j.logger.Info("starting invariant audit job")

	report, err := j.Audit(ctx)
	if err != nil {
		j.logger.Error("invariant audit failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	for _, f := range report.Findings {
		j.logger.Warn("ledger invariant violated",
			zap.String("owner_type", string(f.Owner.Kind)),
			zap.Uint("owner_id", f.Owner.ID),
			zap.String("rule", f.Rule),
			zap.String("detail", f.Detail))
	}

	j.logger.Info("invariant audit job completed",
		zap.Int("contracts", report.Contracts),
		zap.Int("invoices", report.Invoices),
		zap.Int("product_instances", report.ProductInstances),
		zap.Int("findings", len(report.Findings)),
		zap.Duration("duration", time.Since(start)))
}

// Audit walks contracts, invoices and product instances batch by batch
func (j *InvariantAuditJob) Audit(ctx context.Context) (*AuditReport, error) {
	report := &AuditReport{}

	err := j.store.Contracts.ForEach(ctx, auditBatchSize, func(batch []domain.Contract) error {
		for i := range batch {
			report.Findings = append(report.Findings, lifecycle.AuditContract(&batch[i])...)
		}
		report.Contracts += len(batch)
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	err = j.store.Invoices.ForEach(ctx, auditBatchSize, func(batch []domain.Invoice) error {
		for i := range batch {
			report.Findings = append(report.Findings, lifecycle.AuditInvoice(&batch[i])...)
		}
		report.Invoices += len(batch)
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	err = j.store.ProductInstances.ForEach(ctx, auditBatchSize, func(batch []domain.ProductInstance) error {
		for i := range batch {
			report.Findings = append(report.Findings, lifecycle.AuditProductInstance(&batch[i])...)
		}
		report.ProductInstances += len(batch)
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// RegisterInvariantAuditJob registers the audit job with the scheduler.
// If runOnStartup is true, one audit also runs immediately in a background goroutine.
func RegisterInvariantAuditJob(scheduler *Scheduler, store *repository.Store, logger *zap.Logger, cronExpr string, timeout time.Duration, runOnStartup bool) error {
	job := NewInvariantAuditJob(store, logger, timeout)

	if runOnStartup {
		go job.Run()
	}

	return scheduler.AddJob(InvariantAuditJobName, cronExpr, job.Run)
}
