// Package memory implements storage.Storage in process memory. It backs the
// "memory" storage driver used for local runs and end-to-end tests.
//
// Transactions are serialized: at most one is open at a time, and writes made
// through it are staged until Commit.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"userapi/pkg/domain"
	"userapi/pkg/storage"

	"github.com/riverqueue/river"
)

// maxRetainedJobs bounds the jobs kept for inspection.
const maxRetainedJobs = 1024

// Job is a job enqueued through AddJob.
type Job struct {
	Args river.JobArgs
	Opts *river.InsertOpts
}

// Storage is the committed state. The zero value is not usable; use New.
type Storage struct {
	// sem holds a token while a transaction is open.
	sem chan struct{}
	// now is the clock used for CreatedAt.
	now func() time.Time

	mu            sync.RWMutex
	users         map[domain.UserID]domain.User
	numbers       map[string]struct{}
	jobs          []Job
	nextUserID    int64
	nextAccountID int64
}

var _ storage.Storage = (*Storage)(nil)

// New creates an empty Storage.
func New() *Storage {
	return &Storage{
		sem:     make(chan struct{}, 1),
		now:     time.Now,
		users:   make(map[domain.UserID]domain.User),
		numbers: make(map[string]struct{}),
	}
}

// Jobs returns the committed jobs, oldest first.
func (s *Storage) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.jobs)
}

func (s *Storage) Close() error { return nil }

// Begin waits until no other transaction is open, or ctx is done.
func (s *Storage) Begin(ctx context.Context) (storage.TxStorage, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("could not begin tx: %w", ctx.Err())
	}

	return &Tx{parent: s}, nil
}

func (s *Storage) WithTx(ctx context.Context, cb func(storage storage.AllStorage) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	// a panicking cb must not leave the tx open
	finished := false
	defer func() {
		if !finished {
			_ = tx.Rollback()
		}
	}()

	err = cb(tx)
	finished = true
	if err != nil {
		_ = tx.Rollback()

		return err
	}

	return tx.Commit()
}

func (s *Storage) UserByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}

	return &u, nil
}

func (s *Storage) AccountNumberExists(_ context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.numbers[number]

	return ok, nil
}

// StoreUser runs in a transaction of its own.
func (s *Storage) StoreUser(ctx context.Context, user domain.User) (*domain.User, error) {
	var stored *domain.User
	err := s.WithTx(ctx, func(tx storage.AllStorage) error {
		var err error
		stored, err = tx.StoreUser(ctx, user)

		return err //nolint: wrapcheck
	})

	return stored, err
}

// AddJob runs in a transaction of its own.
func (s *Storage) AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error) {
	var added bool
	err := s.WithTx(ctx, func(tx storage.AllStorage) error {
		var err error
		added, err = tx.AddJob(ctx, args, opts)

		return err //nolint: wrapcheck
	})

	return added, err
}

// allocate reserves the next user and account IDs. Like database sequences,
// IDs of rolled back transactions are not reused.
func (s *Storage) allocate() (domain.UserID, domain.AccountID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	s.nextAccountID++

	return domain.UserID(s.nextUserID), domain.AccountID(s.nextAccountID)
}

func (s *Storage) apply(users []domain.User, jobs []Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range users {
		s.users[u.ID] = u
		s.numbers[u.Account.Number] = struct{}{}
	}

	s.jobs = append(s.jobs, jobs...)
	if over := len(s.jobs) - maxRetainedJobs; over > 0 {
		s.jobs = slices.Delete(s.jobs, 0, over)
	}
}

// Tx is a transactional handle returned by Storage.Begin.
type Tx struct {
	parent *Storage

	users []domain.User
	jobs  []Job
	done  bool
}

var _ storage.TxStorage = (*Tx)(nil)

func (t *Tx) finish() error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true
	<-t.parent.sem

	return nil
}

func (t *Tx) Commit() error {
	users, jobs := t.users, t.jobs
	if err := t.finish(); err != nil {
		return err
	}
	t.parent.apply(users, jobs)

	return nil
}

func (t *Tx) Rollback() error {
	return t.finish()
}

func (t *Tx) UserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	if t.done {
		return nil, storage.ErrTxDone
	}
	for _, u := range t.users {
		if u.ID == id {
			return &u, nil
		}
	}

	return t.parent.UserByID(ctx, id)
}

func (t *Tx) AccountNumberExists(ctx context.Context, number string) (bool, error) {
	if t.done {
		return false, storage.ErrTxDone
	}
	for _, u := range t.users {
		if u.Account.Number == number {
			return true, nil
		}
	}

	return t.parent.AccountNumberExists(ctx, number)
}

func (t *Tx) StoreUser(ctx context.Context, user domain.User) (*domain.User, error) {
	exists, err := t.AccountNumberExists(ctx, user.Account.Number)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("could not store account %q: %w", user.Account.Number, storage.ErrDuplicate)
	}

	user.ID, user.Account.ID = t.parent.allocate()
	user.CreatedAt = t.parent.now().UTC()
	t.users = append(t.users, user)

	return &user, nil
}

func (t *Tx) AddJob(_ context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error) {
	if t.done {
		return false, storage.ErrTxDone
	}
	t.jobs = append(t.jobs, Job{Args: args, Opts: opts})

	return true, nil
}
