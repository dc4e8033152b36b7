// Package account implements the account service rules: structural email
// validation, case-insensitive email uniqueness, purchase lookups and
// statistics aggregation.
package account

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/filmstore/internal/errs"
	"github.com/tinoosan/filmstore/internal/filmstore"
)

// emailPattern checks the local@domain.tld shape. Deliverability is out of scope.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Repo interface {
	GetAccount(ctx context.Context, id uuid.UUID) (filmstore.Account, error)
	// GetAccountByEmail expects an already-lowercased address.
	GetAccountByEmail(ctx context.Context, email string) (filmstore.Account, error)
	ListAccounts(ctx context.Context, page filmstore.PageRequest) ([]filmstore.Account, int64, error)
	// ListPurchasedFilms returns films the account purchased, ordered by
	// purchase time descending, with the total from the same snapshot.
	ListPurchasedFilms(ctx context.Context, accountID uuid.UUID, page filmstore.PageRequest) ([]filmstore.Film, int64, error)
	// ListPurchases returns all purchases joined with their film, newest first.
	ListPurchases(ctx context.Context, accountID uuid.UUID) ([]filmstore.PurchaseWithFilm, error)
	CountPurchasesByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type Writer interface {
	CreateAccount(ctx context.Context, a filmstore.Account) (filmstore.Account, error)
	UpdateAccount(ctx context.Context, a filmstore.Account) (filmstore.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

// CreateInput carries the fields accepted at registration. ID is optional;
// when nil the identity is generated.
type CreateInput struct {
	Email string
	Name  string
	ID    *uuid.UUID
}

// UpdateInput uses nil to mean "leave untouched".
type UpdateInput struct {
	Email *string
	Name  *string
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (filmstore.Account, error)
	Get(ctx context.Context, id uuid.UUID) (filmstore.Account, error)
	GetByEmail(ctx context.Context, email string) (filmstore.Account, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (filmstore.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, page filmstore.PageRequest) ([]filmstore.Account, filmstore.PageInfo, error)
	PurchasedFilms(ctx context.Context, accountID uuid.UUID, page filmstore.PageRequest) ([]filmstore.Film, filmstore.PageInfo, error)
	Stats(ctx context.Context, accountID uuid.UUID) (filmstore.AccountStats, error)
	PurchaseHistory(ctx context.Context, accountID uuid.UUID) ([]filmstore.PurchaseWithFilm, error)
}

type service struct {
	repo   Repo
	writer Writer
	now    func() time.Time
}

func New(repo Repo, writer Writer) Service {
	return &service{repo: repo, writer: writer, now: time.Now}
}

func (s *service) Create(ctx context.Context, in CreateInput) (filmstore.Account, error) {
	email, name, err := normalize(in.Email, in.Name)
	if err != nil {
		return filmstore.Account{}, err
	}
	// Pre-check for a friendly message; the unique index on lower(email) is
	// the backstop under concurrent registration.
	if _, err := s.repo.GetAccountByEmail(ctx, email); err == nil {
		return filmstore.Account{}, errs.Conflict("email already registered")
	} else if errs.KindOf(err) != errs.KindNotFound {
		return filmstore.Account{}, err
	}

	id := uuid.New()
	if in.ID != nil && *in.ID != uuid.Nil {
		id = *in.ID
	}
	now := s.now().UTC()
	a := filmstore.Account{ID: id, Email: email, Name: name, CreatedAt: now, UpdatedAt: now}
	return s.writer.CreateAccount(ctx, a)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (filmstore.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *service) GetByEmail(ctx context.Context, email string) (filmstore.Account, error) {
	return s.repo.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (filmstore.Account, error) {
	current, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return filmstore.Account{}, err
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !emailPattern.MatchString(email) {
			return filmstore.Account{}, errs.Invalid("email must be a valid address")
		}
		if email != current.Email {
			// Uniqueness check excludes the account's own record.
			if other, err := s.repo.GetAccountByEmail(ctx, email); err == nil && other.ID != id {
				return filmstore.Account{}, errs.Conflict("email already registered")
			} else if err != nil && errs.KindOf(err) != errs.KindNotFound {
				return filmstore.Account{}, err
			}
		}
		current.Email = email
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return filmstore.Account{}, errs.Invalid("name must not be empty")
		}
		current.Name = name
	}
	current.UpdatedAt = s.now().UTC()
	return s.writer.UpdateAccount(ctx, current)
}

// Delete refuses to remove an account with purchase history, mirroring the
// film deletion guard. The restrictive foreign key is the storage backstop.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetAccount(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountPurchasesByAccount(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return errs.Conflict("account has purchases and cannot be deleted")
	}
	return s.writer.DeleteAccount(ctx, id)
}

func (s *service) List(ctx context.Context, page filmstore.PageRequest) ([]filmstore.Account, filmstore.PageInfo, error) {
	page = page.Normalize()
	accounts, total, err := s.repo.ListAccounts(ctx, page)
	if err != nil {
		return nil, filmstore.PageInfo{}, err
	}
	return accounts, filmstore.NewPageInfo(page, total), nil
}

func (s *service) PurchasedFilms(ctx context.Context, accountID uuid.UUID, page filmstore.PageRequest) ([]filmstore.Film, filmstore.PageInfo, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, filmstore.PageInfo{}, err
	}
	page = page.Normalize()
	films, total, err := s.repo.ListPurchasedFilms(ctx, accountID, page)
	if err != nil {
		return nil, filmstore.PageInfo{}, err
	}
	return films, filmstore.NewPageInfo(page, total), nil
}

// Stats aggregates over the account's purchases. Total spent reflects each
// film's current price, not the price at purchase time.
func (s *service) Stats(ctx context.Context, accountID uuid.UUID) (filmstore.AccountStats, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return filmstore.AccountStats{}, err
	}
	purchases, err := s.repo.ListPurchases(ctx, accountID)
	if err != nil {
		return filmstore.AccountStats{}, err
	}

	stats := filmstore.AccountStats{AccountID: accountID, TotalPurchases: int64(len(purchases))}
	var total money.Amount
	mixed := false
	for i, p := range purchases {
		t := p.CreatedAt
		if stats.FirstPurchase == nil || t.Before(*stats.FirstPurchase) {
			first := t
			stats.FirstPurchase = &first
		}
		if stats.LastPurchase == nil || t.After(*stats.LastPurchase) {
			last := t
			stats.LastPurchase = &last
		}
		stats.TotalSpentMinor += p.Film.PriceMinor
		if mixed {
			continue
		}
		amt, err := money.NewAmountFromMinorUnits(p.Film.Currency, p.Film.PriceMinor)
		if err != nil {
			mixed = true
			continue
		}
		if i == 0 {
			total = amt
			continue
		}
		if total, err = total.Add(amt); err != nil {
			// Purchases span currencies; only the raw minor-unit sum is reported.
			mixed = true
		}
	}
	if len(purchases) > 0 && !mixed {
		stats.Currency = total.Curr().Code()
	}
	return stats, nil
}

func (s *service) PurchaseHistory(ctx context.Context, accountID uuid.UUID) ([]filmstore.PurchaseWithFilm, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.ListPurchases(ctx, accountID)
}

// normalize validates and canonicalizes registration input.
func normalize(email, name string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", "", errs.Invalid("email must be a valid address")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", errs.Invalid("name is required")
	}
	return email, name, nil
}
