// Package cache decorates a storage.Storage with a Redis read-through cache
// for users. Users never change once stored, so entries are only evicted by TTL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"userapi/pkg/domain"
	"userapi/pkg/logger"
	"userapi/pkg/storage"

	"github.com/go-faster/jx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix = "userapi:user:"
	// loadTimeout bounds a shared storage read, which no caller can cancel.
	loadTimeout = 30 * time.Second
)

// Options configure the cache.
type Options struct {
	// TTL is how long a user stays cached. Zero keeps entries until Redis evicts them.
	TTL time.Duration
}

// Storage serves UserByID from Redis and delegates everything else.
// Redis failures are logged and the call falls through to the wrapped storage.
type Storage struct {
	storage.Storage

	rdb     redis.UniversalClient
	options Options
	group   singleflight.Group
}

var _ storage.Storage = (*Storage)(nil)

// New wraps next. The caller owns rdb.
func New(next storage.Storage, rdb redis.UniversalClient, options Options) *Storage {
	return &Storage{
		Storage: next,
		rdb:     rdb,
		options: options,
	}
}

// Key returns the Redis key a user is cached under.
func Key(id domain.UserID) string {
	return keyPrefix + strconv.FormatInt(int64(id), 10)
}

func (s *Storage) UserByID(ctx context.Context, ID domain.UserID) (*domain.User, error) {
	key := Key(ID)

	b, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		u, err := decode(b)
		if err == nil {
			return u, nil
		}
		logger.Warn(ctx, "dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
	case !errors.Is(err, redis.Nil):
		logger.Warn(ctx, "could not read user from cache", zap.String("key", key), zap.Error(err))
	}

	// concurrent misses for the same user share one storage read. The read
	// outlives the caller that started it; each caller waits on its own ctx.
	ch := s.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		u, err := s.Storage.UserByID(loadCtx, ID)
		if err != nil || u == nil {
			return u, err //nolint: wrapcheck
		}
		s.store(loadCtx, key, u)

		return u, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("could not load user: %w", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err //nolint: wrapcheck
	}

	u, _ := res.Val.(*domain.User)
	if u == nil {
		return nil, nil
	}
	cp := *u

	return &cp, nil
}

// StoreUser warms the cache with the stored user.
func (s *Storage) StoreUser(ctx context.Context, user domain.User) (*domain.User, error) {
	u, err := s.Storage.StoreUser(ctx, user)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}
	s.store(ctx, Key(u.ID), u)

	return u, nil
}

func (s *Storage) store(ctx context.Context, key string, u *domain.User) {
	if err := s.rdb.Set(ctx, key, encode(u), s.options.TTL).Err(); err != nil {
		logger.Warn(ctx, "could not write user to cache", zap.String("key", key), zap.Error(err))
	}
}

func encode(u *domain.User) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(int64(u.ID))
	e.FieldStart("name")
	e.Str(u.Name)
	e.FieldStart("accountId")
	e.Int64(int64(u.Account.ID))
	e.FieldStart("accountNumber")
	e.Str(u.Account.Number)
	e.FieldStart("agency")
	e.Str(u.Account.Agency)
	e.FieldStart("createdAt")
	e.Str(u.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()

	return e.Bytes()
}

func decode(b []byte) (*domain.User, error) {
	var u domain.User
	if err := jx.DecodeBytes(b).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			var v int64
			v, err = d.Int64()
			u.ID = domain.UserID(v)
		case "name":
			u.Name, err = d.Str()
		case "accountId":
			var v int64
			v, err = d.Int64()
			u.Account.ID = domain.AccountID(v)
		case "accountNumber":
			u.Account.Number, err = d.Str()
		case "agency":
			u.Account.Agency, err = d.Str()
		case "createdAt":
			var s string
			if s, err = d.Str(); err == nil {
				u.CreatedAt, err = time.Parse(time.RFC3339Nano, s)
			}
		default:
			err = d.Skip()
		}

		return err
	}); err != nil {
		return nil, fmt.Errorf("could not decode cached user: %w", err)
	}

	return &u, nil
}
