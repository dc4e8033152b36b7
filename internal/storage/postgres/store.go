// Package postgres provides a pgx-backed storage implementation satisfying the
// repository and writer interfaces used by the services.
//
// Migrations creating the expected schema live under db/migrations. The schema
// carries the constraints the services rely on: a unique index on
// lower(accounts.email), a unique (account_id, film_id) pair on purchases, and
// restrictive foreign keys from purchases to accounts and films. Driver
// failures are translated into the shared error taxonomy before they leave
// this package.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/filmstore/internal/errs"
	"github.com/tinoosan/filmstore/internal/filmstore"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "parse database config", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.Wrap(errs.KindInternal, "ping database", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Postgres error codes the schema can raise.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// mapPgError translates driver failures into the shared error taxonomy.
// Anything unrecognized stays as-is and surfaces as internal at the boundary.
func mapPgError(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.NotFound(notFoundMsg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return errs.Wrap(errs.KindConflict, "duplicate record", err)
		case codeForeignKeyViolation:
			return errs.Wrap(errs.KindInvalid, "referenced record violates a constraint", err)
		}
	}
	return err
}

// --- Accounts ---

func (s *Store) CreateAccount(ctx context.Context, a filmstore.Account) (filmstore.Account, error) {
	_, err := s.pool.Exec(ctx, `
		insert into accounts (id, email, name, created_at, updated_at)
		values ($1,$2,$3,$4,$5)
	`, a.ID, a.Email, a.Name, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return filmstore.Account{}, mapPgError(err, "account not found")
	}
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (filmstore.Account, error) {
	var a filmstore.Account
	err := s.pool.QueryRow(ctx, `
		select id, email, name, created_at, updated_at
		from accounts
		where id = $1
	`, id).Scan(&a.ID, &a.Email, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return filmstore.Account{}, mapPgError(err, "account not found")
	}
	return a, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (filmstore.Account, error) {
	var a filmstore.Account
	err := s.pool.QueryRow(ctx, `
		select id, email, name, created_at, updated_at
		from accounts
		where lower(email) = lower($1)
	`, email).Scan(&a.ID, &a.Email, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return filmstore.Account{}, mapPgError(err, "account not found")
	}
	return a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a filmstore.Account) (filmstore.Account, error) {
	ct, err := s.pool.Exec(ctx, `
		update accounts
		set email=$1, name=$2, updated_at=$3
		where id=$4
	`, a.Email, a.Name, a.UpdatedAt, a.ID)
	if err != nil {
		return filmstore.Account{}, mapPgError(err, "account not found")
	}
	if ct.RowsAffected() == 0 {
		return filmstore.Account{}, errs.NotFound("account not found")
	}
	return a, nil
}

func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from accounts where id = $1`, id)
	if err != nil {
		return mapPgError(err, "account not found")
	}
	if ct.RowsAffected() == 0 {
		return errs.NotFound("account not found")
	}
	return nil
}

// ListAccounts fetches the total and the page inside one transaction so the
// pair reflects a single snapshot.
func (s *Store) ListAccounts(ctx context.Context, page filmstore.PageRequest) ([]filmstore.Account, int64, error) {
	page = page.Normalize()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var total int64
	if err := tx.QueryRow(ctx, `select count(*) from accounts`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := tx.Query(ctx, `
		select id, email, name, created_at, updated_at
		from accounts
		order by created_at desc, id desc
		limit $1 offset $2
	`, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]filmstore.Account, 0, page.PageSize)
	for rows.Next() {
		var a filmstore.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// --- Films ---

func (s *Store) CreateFilm(ctx context.Context, f filmstore.Film) (filmstore.Film, error) {
	_, err := s.pool.Exec(ctx, `
		insert into films (id, title, description, price_minor, currency, content_url, registrant_id, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, f.ID, f.Title, f.Description, f.PriceMinor, f.Currency, f.ContentURL, f.RegistrantID, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return filmstore.Film{}, mapPgError(err, "film not found")
	}
	return f, nil
}

func (s *Store) GetFilm(ctx context.Context, id uuid.UUID) (filmstore.Film, error) {
	var f filmstore.Film
	err := s.pool.QueryRow(ctx, `
		select id, title, description, price_minor, currency, content_url, registrant_id, created_at, updated_at
		from films
		where id = $1
	`, id).Scan(&f.ID, &f.Title, &f.Description, &f.PriceMinor, &f.Currency, &f.ContentURL, &f.RegistrantID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return filmstore.Film{}, mapPgError(err, "film not found")
	}
	return f, nil
}

func (s *Store) UpdateFilm(ctx context.Context, f filmstore.Film) (filmstore.Film, error) {
	ct, err := s.pool.Exec(ctx, `
		update films
		set title=$1, description=$2, price_minor=$3, currency=$4, content_url=$5, updated_at=$6
		where id=$7
	`, f.Title, f.Description, f.PriceMinor, f.Currency, f.ContentURL, f.UpdatedAt, f.ID)
	if err != nil {
		return filmstore.Film{}, mapPgError(err, "film not found")
	}
	if ct.RowsAffected() == 0 {
		return filmstore.Film{}, errs.NotFound("film not found")
	}
	return f, nil
}

func (s *Store) DeleteFilm(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from films where id = $1`, id)
	if err != nil {
		return mapPgError(err, "film not found")
	}
	if ct.RowsAffected() == 0 {
		return errs.NotFound("film not found")
	}
	return nil
}

func (s *Store) ListFilms(ctx context.Context, page filmstore.PageRequest) ([]filmstore.Film, int64, error) {
	page = page.Normalize()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var total int64
	if err := tx.QueryRow(ctx, `select count(*) from films`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := tx.Query(ctx, `
		select id, title, description, price_minor, currency, content_url, registrant_id, created_at, updated_at
		from films
		order by created_at desc, id desc
		limit $1 offset $2
	`, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]filmstore.Film, 0, page.PageSize)
	for rows.Next() {
		var f filmstore.Film
		if err := rows.Scan(&f.ID, &f.Title, &f.Description, &f.PriceMinor, &f.Currency, &f.ContentURL, &f.RegistrantID, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) CountPurchasesByFilm(ctx context.Context, filmID uuid.UUID) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `select count(*) from purchases where film_id = $1`, filmID).Scan(&n)
	return n, err
}

// --- Purchases ---

func (s *Store) CreatePurchase(ctx context.Context, p filmstore.Purchase) (filmstore.Purchase, error) {
	_, err := s.pool.Exec(ctx, `
		insert into purchases (id, account_id, film_id, created_at)
		values ($1,$2,$3,$4)
	`, p.ID, p.AccountID, p.FilmID, p.CreatedAt)
	if err != nil {
		return filmstore.Purchase{}, mapPgError(err, "purchase not found")
	}
	return p, nil
}

func (s *Store) GetPurchaseByAccountAndFilm(ctx context.Context, accountID, filmID uuid.UUID) (filmstore.Purchase, error) {
	var p filmstore.Purchase
	err := s.pool.QueryRow(ctx, `
		select id, account_id, film_id, created_at
		from purchases
		where account_id = $1 and film_id = $2
	`, accountID, filmID).Scan(&p.ID, &p.AccountID, &p.FilmID, &p.CreatedAt)
	if err != nil {
		return filmstore.Purchase{}, mapPgError(err, "purchase not found")
	}
	return p, nil
}

func (s *Store) CountPurchasesByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `select count(*) from purchases where account_id = $1`, accountID).Scan(&n)
	return n, err
}

func (s *Store) ListPurchases(ctx context.Context, accountID uuid.UUID) ([]filmstore.PurchaseWithFilm, error) {
	rows, err := s.pool.Query(ctx, `
		select p.id, p.account_id, p.film_id, p.created_at,
		       f.id, f.title, f.description, f.price_minor, f.currency, f.content_url, f.registrant_id, f.created_at, f.updated_at
		from purchases p
		join films f on f.id = p.film_id
		where p.account_id = $1
		order by p.created_at desc, p.id desc
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]filmstore.PurchaseWithFilm, 0)
	for rows.Next() {
		var p filmstore.PurchaseWithFilm
		if err := rows.Scan(
			&p.ID, &p.AccountID, &p.FilmID, &p.CreatedAt,
			&p.Film.ID, &p.Film.Title, &p.Film.Description, &p.Film.PriceMinor, &p.Film.Currency,
			&p.Film.ContentURL, &p.Film.RegistrantID, &p.Film.CreatedAt, &p.Film.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPurchasedFilms pages through the films an account purchased, newest
// purchase first, with count and page taken from one transaction.
func (s *Store) ListPurchasedFilms(ctx context.Context, accountID uuid.UUID, page filmstore.PageRequest) ([]filmstore.Film, int64, error) {
	page = page.Normalize()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var total int64
	if err := tx.QueryRow(ctx, `select count(*) from purchases where account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := tx.Query(ctx, `
		select f.id, f.title, f.description, f.price_minor, f.currency, f.content_url, f.registrant_id, f.created_at, f.updated_at
		from purchases p
		join films f on f.id = p.film_id
		where p.account_id = $1
		order by p.created_at desc, p.id desc
		limit $2 offset $3
	`, accountID, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]filmstore.Film, 0, page.PageSize)
	for rows.Next() {
		var f filmstore.Film
		if err := rows.Scan(&f.ID, &f.Title, &f.Description, &f.PriceMinor, &f.Currency, &f.ContentURL, &f.RegistrantID, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
