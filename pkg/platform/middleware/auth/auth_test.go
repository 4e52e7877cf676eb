package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pixkeys/pkg/domain"
	"pixkeys/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
	got    *string
}

func (v stubValidator) ValidateToken(token string) (*JWTClaims, error) {
	if v.got != nil {
		*v.got = token
	}
	return v.claims, v.err
}

func TestRequireAuth(t *testing.T) {
	owner := uuid.New()
	valid := &JWTClaims{OwnerID: owner.String(), JTI: "jti-1"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name      string
		header    string
		validator stubValidator
		want      int
		wantToken string
	}{
		{"valid token", "Bearer tok", stubValidator{claims: valid}, http.StatusNoContent, "tok"},
		{"scheme is case-insensitive", "bearer  tok ", stubValidator{claims: valid}, http.StatusNoContent, "tok"},
		{"missing header", "", stubValidator{}, http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", stubValidator{}, http.StatusUnauthorized, ""},
		{"scheme without token", "Bearer ", stubValidator{}, http.StatusUnauthorized, ""},
		{"invalid token", "Bearer tok", stubValidator{err: errors.New("expired")}, http.StatusUnauthorized, "tok"},
		{"token without owner", "Bearer tok", stubValidator{claims: &JWTClaims{JTI: "jti-2"}}, http.StatusUnauthorized, "tok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen id.OwnerID
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = requestcontext.OwnerID(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})
			var gotToken string
			tt.validator.got = &gotToken

			r := httptest.NewRequest(http.MethodGet, "/keys", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			RequireAuth(tt.validator, logger)(next).ServeHTTP(rec, r)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.wantToken, gotToken)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, id.OwnerID(owner), seen)
				return
			}
			assert.True(t, seen.IsNil())
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body["error"])
		})
	}
}
