package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindInvalid, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindTooManyRequests, http.StatusTooManyRequests},
		{KindInternal, http.StatusInternalServerError},
		{Kind("unknown"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.kind.HTTPStatus(); got != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestIs_MatchesByKind(t *testing.T) {
	err := NotFound("film not found")
	if !errors.Is(err, NotFound("")) {
		t.Errorf("empty-message target should match any not_found")
	}
	if !errors.Is(err, NotFound("film not found")) {
		t.Errorf("same-message target should match")
	}
	if errors.Is(err, NotFound("account not found")) {
		t.Errorf("different message should not match")
	}
	if errors.Is(err, Conflict("")) {
		t.Errorf("different kind should not match")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(Invalid("bad input")); got != KindInvalid {
		t.Errorf("kind = %v", got)
	}
	// Wrapped taxonomy errors keep their kind through fmt.Errorf chains.
	wrapped := fmt.Errorf("calling service: %w", Conflict("already purchased"))
	if got := KindOf(wrapped); got != KindConflict {
		t.Errorf("wrapped kind = %v", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("plain error kind = %v", got)
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindInternal, "query accounts", cause)
	if !errors.Is(err, cause) {
		t.Errorf("cause not reachable via Unwrap")
	}
	if err.Error() != "query accounts: connection reset" {
		t.Errorf("message = %q", err.Error())
	}
	if Operational(err) {
		t.Errorf("internal error reported as operational")
	}
	if !Operational(Conflict("dup")) {
		t.Errorf("conflict should be operational")
	}
}
