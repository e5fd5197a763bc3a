package sweep

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rahulbagri/phonelot-backend/pkg/logger"
	"github.com/rahulbagri/phonelot-backend/pkg/metrics"
)

const defaultExpiryBatch = 100

// LockExpiryJobParams configure the expired lead lock sweeper.
type LockExpiryJobParams struct {
	Logger    *logger.Logger
	Locks     expiredLockReader
	Machine   lockExpirer
	Metrics   *metrics.JobMetrics
	BatchSize int
}

type expiredLockReader interface {
	ExpiredOrderIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
}

type lockExpirer interface {
	ExpireLock(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// NewLockExpiryJob builds the job that returns leads with lapsed locks to
// the marketplace.
func NewLockExpiryJob(params LockExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock reader required")
	}
	if params.Machine == nil {
		return nil, fmt.Errorf("lock expirer required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &lockExpiryJob{
		logg:    params.Logger,
		locks:   params.Locks,
		machine: params.Machine,
		metrics: params.Metrics,
		batch:   batch,
	}, nil
}

type lockExpiryJob struct {
	logg    *logger.Logger
	locks   expiredLockReader
	machine lockExpirer
	metrics *metrics.JobMetrics
	batch   int
}

func (j *lockExpiryJob) Name() string { return "lead-lock-expiry" }

// Run drains expired locks in batches. Each order heals in its own
// transaction so one contended row cannot stall the rest of the batch.
func (j *lockExpiryJob) Run(ctx context.Context) error {
	total := 0
	for {
		orderIDs, err := j.locks.ExpiredOrderIDs(ctx, j.batch)
		if err != nil {
			return fmt.Errorf("query expired locks: %w", err)
		}
		if len(orderIDs) == 0 {
			break
		}
		released := 0
		for _, orderID := range orderIDs {
			expired, err := j.machine.ExpireLock(ctx, orderID)
			if err != nil {
				logCtx := j.logg.WithOrderID(ctx, orderID.String())
				j.logg.Error(logCtx, "failed to expire lead lock", err)
				continue
			}
			if expired {
				released++
			}
		}
		total += released
		j.metrics.AddExpiredLocks(released)
		// A partially healed batch means other writers are racing on the
		// same rows; stop and let the next cycle retry.
		if released < len(orderIDs) {
			break
		}
		if len(orderIDs) < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"released": total})
	j.logg.Info(logCtx, "lead lock expiry sweep complete")
	return nil
}
