package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"userapi/internal/users"
	"userapi/pkg/logger"
	"userapi/pkg/notifier"
	"userapi/pkg/serrors"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// UserCreatedWorker delivers a notifier.UserCreatedEvent for every
// users.CreatedJobArgs job.
//
// When the receiver throttles, the worker remembers the reset time and snoozes
// every job picked up before it instead of calling the receiver again.
// A permanent rejection cancels the job. Other errors are returned so River
// retries with its backoff.
type UserCreatedWorker struct {
	river.WorkerDefaults[users.CreatedJobArgs]

	notifier notifier.Client
	timeout  time.Duration
	now      func() time.Time

	// mu guards resumeAt.
	mu       sync.Mutex
	resumeAt time.Time
}

// NewUserCreatedWorker constructs a UserCreatedWorker. A zero timeout keeps
// River's default job timeout.
func NewUserCreatedWorker(notifier notifier.Client, timeout time.Duration) *UserCreatedWorker {
	return &UserCreatedWorker{
		notifier: notifier,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (u *UserCreatedWorker) Timeout(*river.Job[users.CreatedJobArgs]) time.Duration {
	return u.timeout
}

func (u *UserCreatedWorker) Work(ctx context.Context, job *river.Job[users.CreatedJobArgs]) error {
	ctx = logger.WithFields(ctx,
		zap.Int64("jobID", job.ID),
		zap.Int64("userID", int64(job.Args.UserID)))

	if wait := u.pausedFor(); wait > 0 {
		logger.Debug(ctx, "receiver is throttling, snoozing", zap.Duration("wait", wait))

		return river.JobSnooze(wait) //nolint: wrapcheck
	}

	event := notifier.NewUserCreatedEvent(job.Args.UserID, job.Args.AccountNumber, job.CreatedAt)
	rl, err := u.notifier.UserCreated(ctx, event)
	if err != nil {
		if errors.Is(err, serrors.ErrConflict) {
			logger.Warn(ctx, "user creation notification rejected", zap.Error(err))

			return river.JobCancel(err) //nolint: wrapcheck
		}

		logger.Error(ctx, "error in notifying user creation", zap.Error(err))

		if errors.Is(err, serrors.ErrRateLimited) {
			u.pauseUntil(rl.ResetAt)

			return river.JobSnooze(max(u.pausedFor(), 0)) //nolint: wrapcheck
		}

		return fmt.Errorf("could not notify user creation: %w", err)
	}

	logger.Info(ctx, "user creation notified")

	return nil
}

func (u *UserCreatedWorker) pausedFor() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.resumeAt.Sub(u.now())
}

// pauseUntil only ever moves resumeAt forward.
func (u *UserCreatedWorker) pauseUntil(t time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if t.After(u.resumeAt) {
		u.resumeAt = t
	}
}
