package postgres

import (
	"database/sql"
	"time"

	"userapi/pkg/domain"
)

// PgAccount maps a row of the accounts table.
type PgAccount struct {
	ID        int64          `db:"id"         goqu:"skipinsert"`
	Number    string         `db:"number"`
	Agency    sql.NullString `db:"agency"`
	CreatedAt time.Time      `db:"created_at" goqu:"skipinsert"`
}

// PgUser maps a row of the users table.
type PgUser struct {
	ID        int64          `db:"id"         goqu:"skipinsert"`
	Name      sql.NullString `db:"name"`
	AccountID int64          `db:"account_id"`
	CreatedAt time.Time      `db:"created_at" goqu:"skipinsert"`
}

// PgUserRow is a user joined with its account.
type PgUserRow struct {
	ID            int64          `db:"id"`
	Name          sql.NullString `db:"name"`
	CreatedAt     time.Time      `db:"created_at"`
	AccountID     int64          `db:"account_id"`
	AccountNumber string         `db:"account_number"`
	AccountAgency sql.NullString `db:"account_agency"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (a *PgAccount) FromDomain(account domain.Account) {
	*a = PgAccount{
		ID:     int64(account.ID),
		Number: account.Number,
		Agency: nullString(account.Agency),
	}
}

func (a *PgAccount) ToDomain() domain.Account {
	return domain.Account{
		ID:     domain.AccountID(a.ID),
		Number: a.Number,
		Agency: a.Agency.String,
	}
}

func (u *PgUser) ToDomain(account PgAccount) *domain.User {
	return &domain.User{
		ID:        domain.UserID(u.ID),
		Name:      u.Name.String,
		Account:   account.ToDomain(),
		CreatedAt: u.CreatedAt,
	}
}

func (r *PgUserRow) ToDomain() *domain.User {
	return &domain.User{
		ID:   domain.UserID(r.ID),
		Name: r.Name.String,
		Account: domain.Account{
			ID:     domain.AccountID(r.AccountID),
			Number: r.AccountNumber,
			Agency: r.AccountAgency.String,
		},
		CreatedAt: r.CreatedAt,
	}
}
