package httpapi

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/filmstore/internal/errs"
)

// respondError renders err through the error taxonomy. Operational errors keep
// their message and are logged at WARN; internal errors are logged at ERROR
// and their detail is withheld from callers outside development.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := kind.HTTPStatus()
	msg := err.Error()

	reqID := chimw.GetReqID(r.Context())
	if errs.Operational(err) {
		s.log.Warn("request failed", "req_id", reqID, "code", string(kind), "status", status, "err", err)
	} else {
		s.log.Error("internal error", "req_id", reqID, "method", r.Method, "path", r.URL.Path, "err", err)
		if !s.dev {
			msg = "internal server error"
		}
	}
	toJSON(w, status, envelope{Success: false, Error: &errorBody{Message: msg, Code: string(kind)}})
}
