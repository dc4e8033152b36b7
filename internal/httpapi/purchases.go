package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/tinoosan/filmstore/internal/errs"
)

// createPurchase handles POST /v1/purchases.
func (s *Server) createPurchase(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req createPurchaseRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, errs.Invalid("invalid JSON: "+err.Error()))
		return
	}
	p, err := s.purchases.Purchase(r.Context(), req.AccountID, req.FilmID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toPurchaseResponse(p))
}
