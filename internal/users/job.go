package users

import (
	"userapi/pkg/domain"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// CreatedJobArgs are the arguments of the job enqueued for every created user.
// The worker turns it into a webhook notification.
type CreatedJobArgs struct {
	// UserID identifies the created user. It is the uniqueness key, so a user
	// is never announced twice.
	UserID domain.UserID `json:"userId" river:"unique"`
	// AccountNumber of the created user.
	AccountNumber string `json:"accountNumber"`

	maxAttempts int
}

func (args CreatedJobArgs) Kind() string { return "UserCreated" }

func (args CreatedJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: args.maxAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStateCompleted,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}
