// Package memory provides an in-memory store used for development and tests.
// It reproduces the uniqueness and referential constraints the Postgres schema
// enforces, so services see identical error kinds from either backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tinoosan/filmstore/internal/errs"
	"github.com/tinoosan/filmstore/internal/filmstore"
)

// pairKey identifies the unique (account, film) purchase pair.
type pairKey struct {
	accountID uuid.UUID
	filmID    uuid.UUID
}

// Store implements the repository and writer interfaces used by the services.
// It is guarded by an RWMutex, so every list/count pair observes one snapshot.
type Store struct {
	mu        sync.RWMutex
	accounts  map[uuid.UUID]filmstore.Account
	emailIdx  map[string]uuid.UUID
	films     map[uuid.UUID]filmstore.Film
	purchases map[uuid.UUID]filmstore.Purchase
	pairIdx   map[pairKey]uuid.UUID
}

// New constructs an empty store.
func New() *Store {
	return &Store{
		accounts:  make(map[uuid.UUID]filmstore.Account),
		emailIdx:  make(map[string]uuid.UUID),
		films:     make(map[uuid.UUID]filmstore.Film),
		purchases: make(map[uuid.UUID]filmstore.Purchase),
		pairIdx:   make(map[pairKey]uuid.UUID),
	}
}

// Seed helpers for local dev/tests. They bypass constraint checks.
func (s *Store) SeedAccount(a filmstore.Account) {
	s.mu.Lock()
	s.accounts[a.ID] = a
	s.emailIdx[strings.ToLower(a.Email)] = a.ID
	s.mu.Unlock()
}

func (s *Store) SeedFilm(f filmstore.Film) {
	s.mu.Lock()
	s.films[f.ID] = f
	s.mu.Unlock()
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.accounts = map[uuid.UUID]filmstore.Account{}
	s.emailIdx = map[string]uuid.UUID{}
	s.films = map[uuid.UUID]filmstore.Film{}
	s.purchases = map[uuid.UUID]filmstore.Purchase{}
	s.pairIdx = map[pairKey]uuid.UUID{}
	s.mu.Unlock()
}

// --- Accounts ---

func (s *Store) CreateAccount(_ context.Context, a filmstore.Account) (filmstore.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[a.ID]; exists {
		return filmstore.Account{}, errs.Conflict("account id already exists")
	}
	email := strings.ToLower(a.Email)
	if _, exists := s.emailIdx[email]; exists {
		return filmstore.Account{}, errs.Conflict("email already registered")
	}
	s.accounts[a.ID] = a
	s.emailIdx[email] = a.ID
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (filmstore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return filmstore.Account{}, errs.NotFound("account not found")
	}
	return a, nil
}

func (s *Store) GetAccountByEmail(_ context.Context, email string) (filmstore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emailIdx[strings.ToLower(email)]
	if !ok {
		return filmstore.Account{}, errs.NotFound("account not found")
	}
	return s.accounts[id], nil
}

func (s *Store) UpdateAccount(_ context.Context, a filmstore.Account) (filmstore.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.accounts[a.ID]
	if !ok {
		return filmstore.Account{}, errs.NotFound("account not found")
	}
	email := strings.ToLower(a.Email)
	if owner, exists := s.emailIdx[email]; exists && owner != a.ID {
		return filmstore.Account{}, errs.Conflict("email already registered")
	}
	delete(s.emailIdx, strings.ToLower(current.Email))
	s.emailIdx[email] = a.ID
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) DeleteAccount(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return errs.NotFound("account not found")
	}
	for _, p := range s.purchases {
		if p.AccountID == id {
			return errs.Invalid("account is referenced by purchases")
		}
	}
	delete(s.emailIdx, strings.ToLower(a.Email))
	delete(s.accounts, id)
	return nil
}

func (s *Store) ListAccounts(_ context.Context, page filmstore.PageRequest) ([]filmstore.Account, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]filmstore.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() > all[j].ID.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	lo, hi := pageBounds(page, len(all))
	return append([]filmstore.Account(nil), all[lo:hi]...), total, nil
}

// --- Films ---

func (s *Store) CreateFilm(_ context.Context, f filmstore.Film) (filmstore.Film, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.films[f.ID]; exists {
		return filmstore.Film{}, errs.Conflict("film id already exists")
	}
	s.films[f.ID] = f
	return f, nil
}

func (s *Store) GetFilm(_ context.Context, id uuid.UUID) (filmstore.Film, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.films[id]
	if !ok {
		return filmstore.Film{}, errs.NotFound("film not found")
	}
	return f, nil
}

func (s *Store) UpdateFilm(_ context.Context, f filmstore.Film) (filmstore.Film, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.films[f.ID]; !ok {
		return filmstore.Film{}, errs.NotFound("film not found")
	}
	s.films[f.ID] = f
	return f, nil
}

func (s *Store) DeleteFilm(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.films[id]; !ok {
		return errs.NotFound("film not found")
	}
	for _, p := range s.purchases {
		if p.FilmID == id {
			return errs.Invalid("film is referenced by purchases")
		}
	}
	delete(s.films, id)
	return nil
}

func (s *Store) ListFilms(_ context.Context, page filmstore.PageRequest) ([]filmstore.Film, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]filmstore.Film, 0, len(s.films))
	for _, f := range s.films {
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() > all[j].ID.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	lo, hi := pageBounds(page, len(all))
	return append([]filmstore.Film(nil), all[lo:hi]...), total, nil
}

func (s *Store) CountPurchasesByFilm(_ context.Context, filmID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.purchases {
		if p.FilmID == filmID {
			n++
		}
	}
	return n, nil
}

// --- Purchases ---

func (s *Store) CreatePurchase(_ context.Context, p filmstore.Purchase) (filmstore.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Referential checks mirror the restrictive foreign keys.
	if _, ok := s.accounts[p.AccountID]; !ok {
		return filmstore.Purchase{}, errs.Invalid("account does not exist")
	}
	if _, ok := s.films[p.FilmID]; !ok {
		return filmstore.Purchase{}, errs.Invalid("film does not exist")
	}
	key := pairKey{accountID: p.AccountID, filmID: p.FilmID}
	if _, exists := s.pairIdx[key]; exists {
		return filmstore.Purchase{}, errs.Conflict("purchase already exists for account and film")
	}
	s.purchases[p.ID] = p
	s.pairIdx[key] = p.ID
	return p, nil
}

func (s *Store) GetPurchaseByAccountAndFilm(_ context.Context, accountID, filmID uuid.UUID) (filmstore.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.pairIdx[pairKey{accountID: accountID, filmID: filmID}]
	if !ok {
		return filmstore.Purchase{}, errs.NotFound("purchase not found")
	}
	return s.purchases[id], nil
}

func (s *Store) CountPurchasesByAccount(_ context.Context, accountID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.purchases {
		if p.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListPurchases(_ context.Context, accountID uuid.UUID) ([]filmstore.PurchaseWithFilm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.purchasesWithFilmsLocked(accountID), nil
}

func (s *Store) ListPurchasedFilms(_ context.Context, accountID uuid.UUID, page filmstore.PageRequest) ([]filmstore.Film, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	joined := s.purchasesWithFilmsLocked(accountID)
	total := int64(len(joined))
	lo, hi := pageBounds(page, len(joined))
	films := make([]filmstore.Film, 0, hi-lo)
	for _, p := range joined[lo:hi] {
		films = append(films, p.Film)
	}
	return films, total, nil
}

// purchasesWithFilmsLocked joins an account's purchases with their films,
// newest purchase first. Caller must hold s.mu.
func (s *Store) purchasesWithFilmsLocked(accountID uuid.UUID) []filmstore.PurchaseWithFilm {
	out := make([]filmstore.PurchaseWithFilm, 0)
	for _, p := range s.purchases {
		if p.AccountID != accountID {
			continue
		}
		out = append(out, filmstore.PurchaseWithFilm{Purchase: p, Film: s.films[p.FilmID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// pageBounds clamps a normalized page request to [0, n].
func pageBounds(page filmstore.PageRequest, n int) (int, int) {
	page = page.Normalize()
	lo := page.Offset()
	if lo > n {
		lo = n
	}
	hi := lo + page.PageSize
	if hi > n {
		hi = n
	}
	return lo, hi
}
