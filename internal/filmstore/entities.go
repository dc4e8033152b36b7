// Package filmstore defines the domain entities shared across services and
// storage backends.
package filmstore

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered identity capable of purchasing films.
type Account struct {
	ID uuid.UUID
	// Email is globally unique, compared case-insensitively and stored lowercase.
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Film is a catalog entry representing a purchasable digital work.
type Film struct {
	ID    uuid.UUID
	Title string
	Description string
	// PriceMinor is the price in the smallest unit of Currency.
	PriceMinor int64
	Currency   string
	// ContentURL locates the film's content. The URL is stored, not fetched.
	ContentURL   string
	RegistrantID uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Purchase links one account to one film. It is immutable once created and
// unique per (AccountID, FilmID) pair.
type Purchase struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	FilmID    uuid.UUID
	CreatedAt time.Time
}

// PurchaseWithFilm joins a purchase with the film it refers to.
type PurchaseWithFilm struct {
	Purchase
	Film Film
}

// FilmStats summarizes the purchase history of a film.
type FilmStats struct {
	FilmID         uuid.UUID
	TotalPurchases int64
}

// AccountStats aggregates over all of an account's purchases.
// TotalSpentMinor is computed from each film's price at query time; prices are
// not snapshotted into purchases.
type AccountStats struct {
	AccountID       uuid.UUID
	TotalPurchases  int64
	TotalSpentMinor int64
	Currency        string
	FirstPurchase   *time.Time
	LastPurchase    *time.Time
}

const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

// PageRequest carries 1-indexed pagination parameters.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize replaces non-positive values with the defaults.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Offset returns the number of records preceding the requested page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PageInfo describes the page returned by a list operation.
type PageInfo struct {
	Page       int
	PageSize   int
	TotalItems int64
	TotalPages int
}

// NewPageInfo derives page metadata from a normalized request and a total count.
func NewPageInfo(req PageRequest, total int64) PageInfo {
	pages := int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	return PageInfo{
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalItems: total,
		TotalPages: pages,
	}
}
