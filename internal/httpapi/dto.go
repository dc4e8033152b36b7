package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/filmstore/internal/filmstore"
)

// Accounts

type createAccountRequest struct {
	Email string     `json:"email"`
	Name  string     `json:"name"`
	ID    *uuid.UUID `json:"id,omitempty"`
}

type updateAccountRequest struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

type accountResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAccountResponse(a filmstore.Account) accountResponse {
	return accountResponse{ID: a.ID, Email: a.Email, Name: a.Name, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
}

// Films

type createFilmRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PriceMinor   int64     `json:"price_minor"`
	Currency     string    `json:"currency"`
	ContentURL   string    `json:"content_url"`
	RegistrantID uuid.UUID `json:"registrant_id"`
}

type updateFilmRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	PriceMinor  *int64  `json:"price_minor"`
	ContentURL  *string `json:"content_url"`
}

type filmResponse struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PriceMinor   int64     `json:"price_minor"`
	Currency     string    `json:"currency"`
	ContentURL   string    `json:"content_url"`
	RegistrantID uuid.UUID `json:"registrant_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toFilmResponse(f filmstore.Film) filmResponse {
	return filmResponse{
		ID:           f.ID,
		Title:        f.Title,
		Description:  f.Description,
		PriceMinor:   f.PriceMinor,
		Currency:     f.Currency,
		ContentURL:   f.ContentURL,
		RegistrantID: f.RegistrantID,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Purchases

type createPurchaseRequest struct {
	AccountID uuid.UUID `json:"account_id"`
	FilmID    uuid.UUID `json:"film_id"`
}

type purchaseResponse struct {
	ID        uuid.UUID     `json:"id"`
	AccountID uuid.UUID     `json:"account_id"`
	FilmID    uuid.UUID     `json:"film_id"`
	CreatedAt time.Time     `json:"created_at"`
	Film      *filmResponse `json:"film,omitempty"`
}

func toPurchaseResponse(p filmstore.PurchaseWithFilm) purchaseResponse {
	film := toFilmResponse(p.Film)
	return purchaseResponse{
		ID:        p.ID,
		AccountID: p.AccountID,
		FilmID:    p.FilmID,
		CreatedAt: p.CreatedAt,
		Film:      &film,
	}
}

// Stats

type filmStatsResponse struct {
	FilmID         uuid.UUID `json:"film_id"`
	TotalPurchases int64     `json:"total_purchases"`
}

type accountStatsResponse struct {
	AccountID       uuid.UUID  `json:"account_id"`
	TotalPurchases  int64      `json:"total_purchases"`
	TotalSpentMinor int64      `json:"total_spent_minor"`
	Currency        string     `json:"currency,omitempty"`
	FirstPurchase   *time.Time `json:"first_purchase"`
	LastPurchase    *time.Time `json:"last_purchase"`
}

// Pagination

type pageResponse struct {
	Items      any   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

func toPageResponse(items any, info filmstore.PageInfo) pageResponse {
	return pageResponse{
		Items:      items,
		Page:       info.Page,
		PageSize:   info.PageSize,
		TotalItems: info.TotalItems,
		TotalPages: info.TotalPages,
	}
}
