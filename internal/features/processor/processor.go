package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	common_models "crm-workflow/internal/common/models"
	"crm-workflow/internal/features/audit"
	"crm-workflow/internal/features/ownership"
	"crm-workflow/internal/features/snapshot"
	"crm-workflow/internal/features/transition"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Processor drains the transition queue with a bounded pool of workers. Each
// worker leases one item at a time; the only blocking call it makes is the
// ownership mutation, bounded by CallTimeout.
type Processor struct {
	cfg       Config
	repo      transition.TransitionRepository
	snapshots snapshot.SnapshotRepository
	mutator   ownership.Mutator
	audit     audit.AuditService
	hub       *transition.Hub
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	cancel    context.CancelFunc
	scheduler *cron.Cron
	wg        sync.WaitGroup
}

func NewProcessor(cfg Config, repo transition.TransitionRepository, snapshots snapshot.SnapshotRepository, mutator ownership.Mutator, auditService audit.AuditService, hub *transition.Hub, logger *zap.Logger) *Processor {
	effective := cfg.withDefaults()
	if cfg.CallTimeout > 0 && effective.CallTimeout != cfg.CallTimeout {
		logger.Warn("CALL_TIMEOUT must be shorter than LEASE_DURATION; clamped",
			zap.Duration("call_timeout", cfg.CallTimeout),
			zap.Duration("lease_duration", effective.LeaseDuration),
			zap.Duration("effective_call_timeout", effective.CallTimeout))
	}
	return &Processor{
		cfg:       effective,
		repo:      repo,
		snapshots: snapshots,
		mutator:   mutator,
		audit:     auditService,
		hub:       hub,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the workers and the lease sweep. It returns once they are
// running; Stop shuts them down.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("processor already started")
	}

	scheduler := cron.New()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if _, err := scheduler.AddFunc(p.cfg.SweepSchedule, func() { p.sweepJob(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid sweep schedule %q: %w", p.cfg.SweepSchedule, err)
	}

	// Leases left behind by a previous process are recovered right away.
	p.sweepJob(runCtx)

	for i := 0; i < p.cfg.Workers; i++ {
		workerID := uuid.NewString()
		p.wg.Add(1)
		go p.work(runCtx, workerID)
	}
	scheduler.Start()

	p.cancel = cancel
	p.scheduler = scheduler
	p.logger.Info("Queue processor started",
		zap.Int("workers", p.cfg.Workers),
		zap.Duration("lease", p.cfg.LeaseDuration),
		zap.Int("max_attempts", p.cfg.MaxAttempts),
		zap.String("sweep", p.cfg.SweepSchedule))
	return nil
}

// Stop cancels the workers and waits for in-flight attempts to return.
// Items interrupted mid-call keep their lease and are recovered by the sweep.
func (p *Processor) Stop() {
	p.mu.Lock()
	cancel, scheduler := p.cancel, p.scheduler
	p.cancel, p.scheduler = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-scheduler.Stop().Done()
	p.wg.Wait()
	p.logger.Info("Queue processor stopped")
}

func (p *Processor) work(ctx context.Context, workerID string) {
	defer p.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		processed, err := p.ProcessOne(ctx, workerID)
		if err != nil && ctx.Err() == nil {
			p.logger.Error("Queue worker error", zap.String("worker", workerID), zap.Error(err))
		}
		if processed && err == nil {
			timer.Reset(0)
			continue
		}
		timer.Reset(p.cfg.PollInterval)
	}
}

// ProcessOne leases and applies a single item. It reports whether an item was
// leased.
func (p *Processor) ProcessOne(ctx context.Context, workerID string) (bool, error) {
	item, err := p.repo.Lease(ctx, workerID, p.cfg.LeaseDuration, p.now())
	if errors.Is(err, transition.ErrNoPending) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lease: %w", err)
	}

	log := p.logger.With(
		zap.String("transition_id", item.ID.Hex()),
		zap.String("workflow_id", item.WorkflowID.Hex()),
		zap.String("entity_type", item.EntityType),
		zap.String("entity_id", item.EntityID),
		zap.String("worker", workerID),
	)
	p.hub.Publish(transition.NewEvent(item, transition.StatusProcessing, p.now()))

	if !item.SnapshotID.IsZero() {
		if _, err := p.snapshots.GetByID(ctx, item.SnapshotID); err != nil {
			log.Warn("Snapshot unavailable for transition", zap.String("snapshot_id", item.SnapshotID.Hex()), zap.Error(err))
		}
	}

	callErr := p.apply(ctx, item)
	if callErr != nil && ctx.Err() != nil {
		// Shutting down: leave the lease to expire so the sweep hands the
		// item to another worker without spending an attempt.
		log.Info("Attempt interrupted by shutdown")
		return true, ctx.Err()
	}

	if callErr == nil {
		return true, p.succeed(ctx, item, workerID, log)
	}
	return true, p.fail(ctx, item, workerID, callErr, log)
}

func (p *Processor) apply(ctx context.Context, item *transition.Transition) error {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	err := p.mutator.ReassignGroup(callCtx, item.EntityType, item.EntityID, item.SourceUserGroupID, item.TargetUserGroupID)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("ownership call timed out after %s: %w", p.cfg.CallTimeout, err)
	}
	return err
}

func (p *Processor) succeed(ctx context.Context, item *transition.Transition, workerID string, log *zap.Logger) error {
	now := p.now()
	if err := p.repo.Complete(ctx, item.ID, workerID, now); err != nil {
		if errors.Is(err, transition.ErrLeaseLost) {
			// The sweep reclaimed the item; the next holder reapplies idempotently.
			log.Warn("Lease lost before completion")
			return nil
		}
		return fmt.Errorf("complete: %w", err)
	}

	item.Status = transition.StatusSuccess
	log.Info("Transition applied",
		zap.String("from_group", item.SourceUserGroupID),
		zap.String("to_group", item.TargetUserGroupID))
	p.record(ctx, item, transition.StatusProcessing, transition.StatusSuccess, "", log)
	p.hub.Publish(transition.NewEvent(item, transition.StatusSuccess, now))
	return nil
}

func (p *Processor) fail(ctx context.Context, item *transition.Transition, workerID string, callErr error, log *zap.Logger) error {
	now := p.now()
	attempts := item.AttemptCount + 1
	msg := callErr.Error()

	item.AttemptCount = attempts
	item.ErrorMessage = msg
	p.record(ctx, item, transition.StatusProcessing, transition.StatusFailed, msg, log)
	p.hub.Publish(transition.NewEvent(item, transition.StatusFailed, now))

	next := transition.NextOnFailure(attempts, p.cfg.MaxAttempts)
	if permanent(callErr) {
		next = transition.StatusDead
	}

	if next == transition.StatusDead {
		if err := p.repo.Bury(ctx, item.ID, workerID, attempts, msg, now); err != nil {
			if errors.Is(err, transition.ErrLeaseLost) {
				log.Warn("Lease lost before marking dead")
				return nil
			}
			return fmt.Errorf("bury: %w", err)
		}
		item.Status = transition.StatusDead
		log.Error("Transition dead",
			zap.Int("attempts", attempts),
			zap.Error(callErr))
		p.record(ctx, item, transition.StatusFailed, transition.StatusDead, msg, log)
		p.hub.Publish(transition.NewEvent(item, transition.StatusDead, now))
		return nil
	}

	delay := Backoff(attempts, p.cfg.BackoffBase, p.cfg.BackoffMax)
	if err := p.repo.Retry(ctx, item.ID, workerID, attempts, msg, now.Add(delay), now); err != nil {
		if errors.Is(err, transition.ErrLeaseLost) {
			log.Warn("Lease lost before scheduling retry")
			return nil
		}
		return fmt.Errorf("retry: %w", err)
	}
	item.Status = transition.StatusPending
	log.Warn("Transition attempt failed, retrying",
		zap.Int("attempts", attempts),
		zap.Duration("backoff", delay),
		zap.Error(callErr))
	p.hub.Publish(transition.NewEvent(item, transition.StatusPending, now))
	return nil
}

// permanent errors cannot succeed on retry.
func permanent(err error) bool {
	return errors.Is(err, ownership.ErrOwnershipConflict) || errors.Is(err, ownership.ErrEntityNotFound)
}

func (p *Processor) record(ctx context.Context, item *transition.Transition, from, to transition.Status, errMsg string, log *zap.Logger) {
	changes := map[string]common_models.Change{
		"status":        {Old: from, New: to},
		"attempt_count": {New: item.AttemptCount},
	}
	if errMsg != "" {
		changes["error_message"] = common_models.Change{New: errMsg}
	}
	if err := p.audit.LogChange(ctx, common_models.AuditActionTransition, "transition", item.ID.Hex(), changes); err != nil {
		log.Warn("Failed to write transition audit entry", zap.Error(err))
	}
}

// Sweep returns items whose lease expired to pending. Attempt counts are left
// alone: a crashed worker's attempt never reported an outcome.
func (p *Processor) Sweep(ctx context.Context) (int64, error) {
	n, err := p.repo.RequeueExpired(ctx, p.now())
	if err != nil {
		return 0, fmt.Errorf("requeue expired: %w", err)
	}
	if n > 0 {
		p.logger.Warn("Recovered expired leases", zap.Int64("count", n))
	}
	return n, nil
}

func (p *Processor) sweepJob(ctx context.Context) {
	if _, err := p.Sweep(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("Lease sweep failed", zap.Error(err))
	}
}
