// Package purchase orchestrates the cross-entity purchase flow: film lookup,
// account lookup with optional auto-provisioning, and the one-purchase-per-pair
// rule backed by the storage uniqueness constraint.
package purchase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/filmstore/internal/errs"
	"github.com/tinoosan/filmstore/internal/filmstore"
)

type FilmRepo interface {
	GetFilm(ctx context.Context, id uuid.UUID) (filmstore.Film, error)
}

type AccountRepo interface {
	GetAccount(ctx context.Context, id uuid.UUID) (filmstore.Account, error)
}

type AccountWriter interface {
	CreateAccount(ctx context.Context, a filmstore.Account) (filmstore.Account, error)
}

type Repo interface {
	GetPurchaseByAccountAndFilm(ctx context.Context, accountID, filmID uuid.UUID) (filmstore.Purchase, error)
}

type Writer interface {
	CreatePurchase(ctx context.Context, p filmstore.Purchase) (filmstore.Purchase, error)
}

type Service interface {
	Purchase(ctx context.Context, accountID, filmID uuid.UUID) (filmstore.PurchaseWithFilm, error)
}

type service struct {
	films      FilmRepo
	accounts   AccountRepo
	accWriter  AccountWriter
	repo       Repo
	writer     Writer
	autoCreate bool
	now        func() time.Time
}

// New wires the workflow. autoCreate controls whether a purchase for an
// unknown account provisions a placeholder account instead of failing.
func New(films FilmRepo, accounts AccountRepo, accWriter AccountWriter, repo Repo, writer Writer, autoCreate bool) Service {
	return &service{
		films:      films,
		accounts:   accounts,
		accWriter:  accWriter,
		repo:       repo,
		writer:     writer,
		autoCreate: autoCreate,
		now:        time.Now,
	}
}

func (s *service) Purchase(ctx context.Context, accountID, filmID uuid.UUID) (filmstore.PurchaseWithFilm, error) {
	if accountID == uuid.Nil || filmID == uuid.Nil {
		return filmstore.PurchaseWithFilm{}, errs.Invalid("account_id and film_id are required")
	}
	film, err := s.films.GetFilm(ctx, filmID)
	if err != nil {
		return filmstore.PurchaseWithFilm{}, err
	}

	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		if errs.KindOf(err) != errs.KindNotFound {
			return filmstore.PurchaseWithFilm{}, err
		}
		if !s.autoCreate {
			return filmstore.PurchaseWithFilm{}, err
		}
		acct, err = s.provision(ctx, accountID)
		if err != nil {
			return filmstore.PurchaseWithFilm{}, err
		}
	}

	// Pre-check for a friendly message. Steps here are not atomic; the unique
	// (account_id, film_id) constraint is the correctness backstop.
	if _, err := s.repo.GetPurchaseByAccountAndFilm(ctx, acct.ID, film.ID); err == nil {
		return filmstore.PurchaseWithFilm{}, errs.Conflict("already purchased")
	} else if errs.KindOf(err) != errs.KindNotFound {
		return filmstore.PurchaseWithFilm{}, err
	}

	p := filmstore.Purchase{
		ID:        uuid.New(),
		AccountID: acct.ID,
		FilmID:    film.ID,
		CreatedAt: s.now().UTC(),
	}
	created, err := s.writer.CreatePurchase(ctx, p)
	if err != nil {
		if errs.KindOf(err) == errs.KindConflict {
			// Lost the race against a concurrent purchase of the same pair.
			return filmstore.PurchaseWithFilm{}, errs.Conflict("already purchased")
		}
		return filmstore.PurchaseWithFilm{}, err
	}
	return filmstore.PurchaseWithFilm{Purchase: created, Film: film}, nil
}

// provision creates a placeholder account carrying the caller-supplied id and
// a synthesized address, so first-time buyers can skip registration.
func (s *service) provision(ctx context.Context, accountID uuid.UUID) (filmstore.Account, error) {
	now := s.now().UTC()
	a := filmstore.Account{
		ID:        accountID,
		Email:     accountID.String() + "@buyers.filmstore.local",
		Name:      "Buyer " + shortID(accountID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.accWriter.CreateAccount(ctx, a)
	if err != nil {
		if errs.KindOf(err) == errs.KindConflict {
			// A concurrent purchase provisioned the same account first.
			return s.accounts.GetAccount(ctx, accountID)
		}
		return filmstore.Account{}, err
	}
	return created, nil
}

func shortID(id uuid.UUID) string {
	str := id.String()
	if i := strings.IndexByte(str, '-'); i > 0 {
		return str[:i]
	}
	return str
}
