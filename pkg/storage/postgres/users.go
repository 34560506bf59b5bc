package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"userapi/pkg/domain"
	"userapi/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	usersTable    = "users"
	accountsTable = "accounts"
)

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// UserByID fetches a user joined with its account. It returns nil when the
// user does not exist.
func (p *PgSQL) UserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var row PgUserRow
	found, err := p.Builder.From(goqu.T(usersTable).As("u")).
		InnerJoin(goqu.T(accountsTable).As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("u.account_id")))).
		Select(
			goqu.I("u.id").As("id"),
			goqu.I("u.name").As("name"),
			goqu.I("u.created_at").As("created_at"),
			goqu.I("a.id").As("account_id"),
			goqu.I("a.number").As("account_number"),
			goqu.I("a.agency").As("account_agency"),
		).
		Where(goqu.I("u.id").Eq(int64(id))).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch user by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// StoreUser inserts the account and then the user referencing it. Outside a
// transaction both inserts run in one of their own.
func (p *PgSQL) StoreUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if _, inTx := p.DB.(*sql.Tx); !inTx {
		var stored *domain.User
		err := p.WithTx(ctx, func(tx storage.AllStorage) error {
			var err error
			stored, err = tx.StoreUser(ctx, user)

			return err //nolint: wrapcheck
		})

		return stored, err
	}

	var account PgAccount
	account.FromDomain(user.Account)
	account.ID = 0

	var storedAccount PgAccount
	if _, err := p.Builder.Insert(accountsTable).
		Rows(account).
		Returning(&PgAccount{}).
		Executor().ScanStructContext(ctx, &storedAccount); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("could not store account into pg: %w: %w", storage.ErrDuplicate, err)
		}

		return nil, fmt.Errorf("could not store account into pg: %w", err)
	}

	var storedUser PgUser
	if _, err := p.Builder.Insert(usersTable).
		Rows(PgUser{Name: nullString(user.Name), AccountID: storedAccount.ID}).
		Returning(&PgUser{}).
		Executor().ScanStructContext(ctx, &storedUser); err != nil {
		return nil, fmt.Errorf("could not store user into pg: %w", err)
	}

	return storedUser.ToDomain(storedAccount), nil
}

// AccountNumberExists reports whether an account with number is stored.
func (p *PgSQL) AccountNumberExists(ctx context.Context, number string) (bool, error) {
	var one int
	found, err := p.Builder.From(accountsTable).
		Select(goqu.L("1")).
		Where(goqu.I("number").Eq(number)).
		Limit(1).
		Executor().ScanValContext(ctx, &one)
	if err != nil {
		return false, fmt.Errorf("could not check account number in pg: %w", err)
	}

	return found, nil
}
