package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "ringside/pkg/domain"
	"ringside/pkg/requestcontext"
)

type stubVerifier struct {
	identity *id.Identity
	err      error
	got      string
}

func (s *stubVerifier) Verify(token string) (*id.Identity, error) {
	s.got = token
	return s.identity, s.err
}

func TestAuthenticate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen *id.Identity
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = requestcontext.Identity(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	run := func(v *stubVerifier, header string) *httptest.ResponseRecorder {
		called, seen = false, nil
		req := httptest.NewRequest(http.MethodPost, "/v1/tokens/x/redeem", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		Authenticate(v, logger)(next).ServeHTTP(rec, req)
		return rec
	}

	t.Run("no header passes through anonymous", func(t *testing.T) {
		rec := run(&stubVerifier{}, "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, called)
		assert.Nil(t, seen)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		v := &stubVerifier{identity: &id.Identity{UID: "coach-1"}}
		rec := run(v, "Bearer abc.def")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "abc.def", v.got)
		if assert.NotNil(t, seen) {
			assert.Equal(t, id.UserID("coach-1"), seen.UID)
		}
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		rec := run(&stubVerifier{err: errors.New("bad signature")}, "Bearer abc.def")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
		assert.JSONEq(t, `{"error":"unauthenticated","error_description":"Invalid or expired token"}`, rec.Body.String())
	})

	t.Run("non-bearer scheme is rejected", func(t *testing.T) {
		rec := run(&stubVerifier{}, "Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
	})
}
