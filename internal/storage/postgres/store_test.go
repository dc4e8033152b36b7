package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/filmstore/internal/errs"
	"github.com/tinoosan/filmstore/internal/filmstore"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func applyInitSQL(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Resolve init SQL path relative to this test file so CWD doesn't matter
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	path := filepath.Join(repoRoot, "db", "migrations", "0001_init.sql")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
}

func truncateAll(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = s.pool.Exec(ctx, `truncate table purchases, films, accounts cascade`)
}

func seedAccount(t *testing.T, ctx context.Context, s *Store, email string) filmstore.Account {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	a, err := s.CreateAccount(ctx, filmstore.Account{
		ID: uuid.New(), Email: email, Name: "Test Account", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func seedFilm(t *testing.T, ctx context.Context, s *Store, title string, price int64) filmstore.Film {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	f, err := s.CreateFilm(ctx, filmstore.Film{
		ID: uuid.New(), Title: title, PriceMinor: price, Currency: "USD",
		ContentURL: "https://cdn.example.com/" + uuid.NewString(),
		CreatedAt:  now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create film: %v", err)
	}
	return f
}

func TestStore_AccountsFilmsPurchases(t *testing.T) {
	dsn := getTestDSN(t)
	s := mustOpen(t, dsn)
	defer s.Close()
	applyInitSQL(t, s)
	truncateAll(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}

	// Accounts: create, fetch by id and (case-insensitive) email, update.
	acct := seedAccount(t, ctx, s, "buyer@example.com")
	if _, err := s.GetAccount(ctx, acct.ID); err != nil {
		t.Fatalf("get account: %v", err)
	}
	byEmail, err := s.GetAccountByEmail(ctx, "BUYER@example.com")
	if err != nil || byEmail.ID != acct.ID {
		t.Fatalf("get by email: %v (id=%s)", err, byEmail.ID)
	}
	acct.Name = "Renamed"
	acct.UpdatedAt = time.Now().UTC()
	if _, err := s.UpdateAccount(ctx, acct); err != nil {
		t.Fatalf("update account: %v", err)
	}

	// Duplicate email hits the unique index and maps to conflict.
	_, err = s.CreateAccount(ctx, filmstore.Account{
		ID: uuid.New(), Email: "Buyer@Example.com", Name: "Dupe",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	})
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("duplicate email: kind = %v, want conflict", errs.KindOf(err))
	}

	// Films: create, list snapshot count, update.
	f1 := seedFilm(t, ctx, s, "First", 500)
	f2 := seedFilm(t, ctx, s, "Second", 750)
	films, total, err := s.ListFilms(ctx, filmstore.PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list films: %v", err)
	}
	if total != 2 || len(films) != 2 {
		t.Fatalf("list films: total=%d len=%d", total, len(films))
	}
	f1.PriceMinor = 550
	f1.UpdatedAt = time.Now().UTC()
	if _, err := s.UpdateFilm(ctx, f1); err != nil {
		t.Fatalf("update film: %v", err)
	}

	// Purchases: create, pair lookup, duplicate pair maps to conflict.
	p, err := s.CreatePurchase(ctx, filmstore.Purchase{
		ID: uuid.New(), AccountID: acct.ID, FilmID: f1.ID, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	got, err := s.GetPurchaseByAccountAndFilm(ctx, acct.ID, f1.ID)
	if err != nil || got.ID != p.ID {
		t.Fatalf("pair lookup: %v (id=%s)", err, got.ID)
	}
	_, err = s.CreatePurchase(ctx, filmstore.Purchase{
		ID: uuid.New(), AccountID: acct.ID, FilmID: f1.ID, CreatedAt: time.Now().UTC(),
	})
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("duplicate pair: kind = %v, want conflict", errs.KindOf(err))
	}

	// Purchase of a missing account violates the foreign key.
	_, err = s.CreatePurchase(ctx, filmstore.Purchase{
		ID: uuid.New(), AccountID: uuid.New(), FilmID: f1.ID, CreatedAt: time.Now().UTC(),
	})
	if errs.KindOf(err) != errs.KindInvalid {
		t.Fatalf("missing account: kind = %v, want validation_error", errs.KindOf(err))
	}

	// Counts and joins.
	if n, err := s.CountPurchasesByFilm(ctx, f1.ID); err != nil || n != 1 {
		t.Fatalf("count by film: n=%d err=%v", n, err)
	}
	if n, err := s.CountPurchasesByAccount(ctx, acct.ID); err != nil || n != 1 {
		t.Fatalf("count by account: n=%d err=%v", n, err)
	}
	joined, err := s.ListPurchases(ctx, acct.ID)
	if err != nil || len(joined) != 1 || joined[0].Film.ID != f1.ID {
		t.Fatalf("list purchases: %v (%+v)", err, joined)
	}
	purchased, total, err := s.ListPurchasedFilms(ctx, acct.ID, filmstore.PageRequest{Page: 1, PageSize: 10})
	if err != nil || total != 1 || len(purchased) != 1 {
		t.Fatalf("list purchased films: total=%d len=%d err=%v", total, len(purchased), err)
	}

	// Deleting a referenced film trips the restrictive foreign key; an
	// unreferenced one goes away cleanly.
	if err := s.DeleteFilm(ctx, f1.ID); err == nil {
		t.Fatalf("delete referenced film: expected error")
	}
	if err := s.DeleteFilm(ctx, f2.ID); err != nil {
		t.Fatalf("delete film: %v", err)
	}
	if _, err := s.GetFilm(ctx, f2.ID); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("get deleted film: kind = %v, want not_found", errs.KindOf(err))
	}
}

func TestStore_NotFoundMapping(t *testing.T) {
	dsn := getTestDSN(t)
	s := mustOpen(t, dsn)
	defer s.Close()
	applyInitSQL(t, s)
	truncateAll(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.GetAccount(ctx, uuid.New()); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("get account: kind = %v, want not_found", errs.KindOf(err))
	}
	if _, err := s.UpdateFilm(ctx, filmstore.Film{ID: uuid.New(), Currency: "USD", ContentURL: "https://x"}); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("update film: kind = %v, want not_found", errs.KindOf(err))
	}
	if err := s.DeleteAccount(ctx, uuid.New()); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("delete account: kind = %v, want not_found", errs.KindOf(err))
	}
}
