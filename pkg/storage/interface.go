// Package storage defines the persistence interfaces the services rely on.
// Concrete backends live in sub packages (postgres, memory).
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import "context"

// AllStorage groups every domain-specific storage capability.
type AllStorage interface {
	UserStorage
	JobStorage
}

// TxStorage is a storage handle bound to an open transaction. It becomes
// unusable after Commit or Rollback.
type TxStorage interface {
	AllStorage

	// Commit persists every change made through this handle.
	Commit() error
	// Rollback discards every change made through this handle.
	Rollback() error
}

// Storage is the non-transactional handle created at startup.
type Storage interface {
	AllStorage

	// Close releases the resources held by the backend.
	Close() error

	// Begin starts a new transaction.
	Begin(ctx context.Context) (TxStorage, error)
	// WithTx runs cb inside a transaction, committing when cb returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, cb func(storage AllStorage) error) error
}
