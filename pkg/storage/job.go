package storage

import (
	"context"

	"github.com/riverqueue/river"
)

// JobStorage enqueues background jobs. Inserts made through a transactional
// handle only become visible to workers once the transaction commits.
type JobStorage interface {
	// AddJob enqueues a job with the given arguments. The returned bool is
	// false when the backend skipped the insert as a duplicate of an
	// existing unique job.
	AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error)
}
