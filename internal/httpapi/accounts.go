package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/filmstore/internal/errs"
	"github.com/tinoosan/filmstore/internal/service/account"
)

// createAccount handles POST /v1/accounts.
func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req createAccountRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, errs.Invalid("invalid JSON: "+err.Error()))
		return
	}
	acct, err := s.accounts.Create(r.Context(), account.CreateInput{Email: req.Email, Name: req.Name, ID: req.ID})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, toAccountResponse(acct))
}

// getAccount handles GET /v1/accounts/{id}. A lookup by email is supported via
// GET /v1/accounts?email= on the list endpoint.
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "invalid account id")
	if !ok {
		return
	}
	acct, err := s.accounts.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toAccountResponse(acct))
}

// listAccounts handles GET /v1/accounts. With ?email= it resolves a single
// account by address instead of paging.
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	if email := r.URL.Query().Get("email"); email != "" {
		acct, err := s.accounts.GetByEmail(r.Context(), email)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, toAccountResponse(acct))
		return
	}
	accounts, info, err := s.accounts.List(r.Context(), parsePage(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	items := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, toAccountResponse(a))
	}
	respondData(w, http.StatusOK, toPageResponse(items, info))
}

// updateAccount handles PATCH /v1/accounts/{id}. Only supplied fields change.
func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, ok := s.pathID(w, r, "invalid account id")
	if !ok {
		return
	}
	var req updateAccountRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, errs.Invalid("invalid JSON: "+err.Error()))
		return
	}
	acct, err := s.accounts.Update(r.Context(), id, account.UpdateInput{Email: req.Email, Name: req.Name})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toAccountResponse(acct))
}

// deleteAccount handles DELETE /v1/accounts/{id}.
func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "invalid account id")
	if !ok {
		return
	}
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "account deleted")
}

// accountFilms handles GET /v1/accounts/{id}/films.
func (s *Server) accountFilms(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "invalid account id")
	if !ok {
		return
	}
	films, info, err := s.accounts.PurchasedFilms(r.Context(), id, parsePage(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	items := make([]filmResponse, 0, len(films))
	for _, f := range films {
		items = append(items, toFilmResponse(f))
	}
	respondData(w, http.StatusOK, toPageResponse(items, info))
}

// accountStats handles GET /v1/accounts/{id}/stats.
func (s *Server) accountStats(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "invalid account id")
	if !ok {
		return
	}
	stats, err := s.accounts.Stats(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, accountStatsResponse{
		AccountID:       stats.AccountID,
		TotalPurchases:  stats.TotalPurchases,
		TotalSpentMinor: stats.TotalSpentMinor,
		Currency:        stats.Currency,
		FirstPurchase:   stats.FirstPurchase,
		LastPurchase:    stats.LastPurchase,
	})
}

// accountPurchases handles GET /v1/accounts/{id}/purchases.
func (s *Server) accountPurchases(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "invalid account id")
	if !ok {
		return
	}
	history, err := s.accounts.PurchaseHistory(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	items := make([]purchaseResponse, 0, len(history))
	for _, p := range history {
		items = append(items, toPurchaseResponse(p))
	}
	respondData(w, http.StatusOK, items)
}

// pathID parses the {id} URL parameter, rendering a validation error when it
// is not a UUID.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, errs.Invalid(msg))
		return uuid.Nil, false
	}
	return id, true
}
