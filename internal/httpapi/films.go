package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/tinoosan/filmstore/internal/errs"
	"github.com/tinoosan/filmstore/internal/service/catalog"
)

// createFilm handles POST /v1/films.
func (s *Server) createFilm(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req createFilmRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, errs.Invalid("invalid JSON: "+err.Error()))
		return
	}
	film, err := s.catalog.Create(r.Context(), catalog.CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		PriceMinor:   req.PriceMinor,
		Currency:     req.Currency,
		ContentURL:   req.ContentURL,
		RegistrantID: req.RegistrantID,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, toFilmResponse(film))
}

// getFilm handles GET /v1/films/{id}.
func (s *Server) getFilm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "invalid film id")
	if !ok {
		return
	}
	film, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toFilmResponse(film))
}

// listFilms handles GET /v1/films.
func (s *Server) listFilms(w http.ResponseWriter, r *http.Request) {
	films, info, err := s.catalog.List(r.Context(), parsePage(r))
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

// updateFilm handles PATCH /v1/films/{id}. Only supplied fields change.
func (s *Server) updateFilm(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, ok := s.pathID(w, r, "invalid film id")
	if !ok {
		return
	}
	var req updateFilmRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, errs.Invalid("invalid JSON: "+err.Error()))
		return
	}
	film, err := s.catalog.Update(r.Context(), id, catalog.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		PriceMinor:  req.PriceMinor,
		ContentURL:  req.ContentURL,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toFilmResponse(film))
}

// deleteFilm handles DELETE /v1/films/{id}.
func (s *Server) deleteFilm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "invalid film id")
	if !ok {
		return
	}
	if err := s.catalog.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "film deleted")
}

// filmStats handles GET /v1/films/{id}/stats.
func (s *Server) filmStats(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "invalid film id")
	if !ok {
		return
	}
	stats, err := s.catalog.Stats(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, filmStatsResponse{FilmID: stats.FilmID, TotalPurchases: stats.TotalPurchases})
}
