// Package catalog implements the film catalog rules: validation on create and
// update, deletion guarded by purchase history, and paginated listing.
package catalog

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/filmstore/internal/errs"
	"github.com/tinoosan/filmstore/internal/filmstore"
)

type Repo interface {
	GetFilm(ctx context.Context, id uuid.UUID) (filmstore.Film, error)
	// ListFilms returns one page ordered by creation time descending together
	// with the total count, both taken from a single storage snapshot.
	ListFilms(ctx context.Context, page filmstore.PageRequest) ([]filmstore.Film, int64, error)
	CountPurchasesByFilm(ctx context.Context, filmID uuid.UUID) (int64, error)
}

type Writer interface {
	CreateFilm(ctx context.Context, f filmstore.Film) (filmstore.Film, error)
	UpdateFilm(ctx context.Context, f filmstore.Film) (filmstore.Film, error)
	DeleteFilm(ctx context.Context, id uuid.UUID) error
}

// CreateInput carries the fields accepted when registering a film.
type CreateInput struct {
	Title       string
	Description string
	PriceMinor  int64
	Currency    string
	ContentURL  string
	RegistrantID uuid.UUID
}

// UpdateInput distinguishes absent fields from zero values: nil means
// untouched, a pointer to the zero value means "set to empty".
type UpdateInput struct {
	Title       *string
	Description *string
	PriceMinor  *int64
	ContentURL  *string
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (filmstore.Film, error)
	Get(ctx context.Context, id uuid.UUID) (filmstore.Film, error)
	List(ctx context.Context, page filmstore.PageRequest) ([]filmstore.Film, filmstore.PageInfo, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (filmstore.Film, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, id uuid.UUID) (filmstore.FilmStats, error)
}

type service struct {
	repo   Repo
	writer Writer
	now    func() time.Time
}

func New(repo Repo, writer Writer) Service {
	return &service{repo: repo, writer: writer, now: time.Now}
}

// DefaultCurrency is applied when a film is registered without one.
const DefaultCurrency = "USD"

func (s *service) Create(ctx context.Context, in CreateInput) (filmstore.Film, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return filmstore.Film{}, errs.Invalid("title is required")
	}
	if in.PriceMinor < 0 {
		return filmstore.Film{}, errs.Invalid("price must not be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if _, err := money.NewAmountFromMinorUnits(currency, in.PriceMinor); err != nil {
		return filmstore.Film{}, errs.Invalid("unsupported currency code")
	}
	contentURL := strings.TrimSpace(in.ContentURL)
	if !validContentURL(contentURL) {
		return filmstore.Film{}, errs.Invalid("content_url must be a valid absolute URL")
	}

	now := s.now().UTC()
	f := filmstore.Film{
		ID:           uuid.New(),
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		PriceMinor:   in.PriceMinor,
		Currency:     currency,
		ContentURL:   contentURL,
		RegistrantID: in.RegistrantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.writer.CreateFilm(ctx, f)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (filmstore.Film, error) {
	return s.repo.GetFilm(ctx, id)
}

func (s *service) List(ctx context.Context, page filmstore.PageRequest) ([]filmstore.Film, filmstore.PageInfo, error) {
	page = page.Normalize()
	films, total, err := s.repo.ListFilms(ctx, page)
	if err != nil {
		return nil, filmstore.PageInfo{}, err
	}
	return films, filmstore.NewPageInfo(page, total), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (filmstore.Film, error) {
	if in.PriceMinor != nil && *in.PriceMinor < 0 {
		return filmstore.Film{}, errs.Invalid("price must not be negative")
	}
	current, err := s.repo.GetFilm(ctx, id)
	if err != nil {
		return filmstore.Film{}, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return filmstore.Film{}, errs.Invalid("title must not be empty")
		}
		current.Title = title
	}
	if in.Description != nil {
		current.Description = strings.TrimSpace(*in.Description)
	}
	if in.PriceMinor != nil {
		current.PriceMinor = *in.PriceMinor
	}
	if in.ContentURL != nil {
		contentURL := strings.TrimSpace(*in.ContentURL)
		if !validContentURL(contentURL) {
			return filmstore.Film{}, errs.Invalid("content_url must be a valid absolute URL")
		}
		current.ContentURL = contentURL
	}
	current.UpdatedAt = s.now().UTC()
	return s.writer.UpdateFilm(ctx, current)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetFilm(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountPurchasesByFilm(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return errs.Conflict("film has purchases and cannot be deleted")
	}
	return s.writer.DeleteFilm(ctx, id)
}

func (s *service) Stats(ctx context.Context, id uuid.UUID) (filmstore.FilmStats, error) {
	if _, err := s.repo.GetFilm(ctx, id); err != nil {
		return filmstore.FilmStats{}, err
	}
	n, err := s.repo.CountPurchasesByFilm(ctx, id)
	if err != nil {
		return filmstore.FilmStats{}, err
	}
	return filmstore.FilmStats{FilmID: id, TotalPurchases: n}, nil
}

// validContentURL accepts absolute http(s) URLs. The locator is stored, never
// fetched, so no further validation applies.
func validContentURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
