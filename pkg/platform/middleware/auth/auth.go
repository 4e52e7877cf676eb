package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
	"pixkeys/pkg/platform/httputil"
	"pixkeys/pkg/requestcontext"
)

// JWTValidator checks a raw bearer token.
type JWTValidator interface {
	ValidateToken(token string) (*JWTClaims, error)
}

// JWTClaims is the subset of token claims the API relies on.
type JWTClaims struct {
	OwnerID string
	JTI     string
}

// bearerToken returns the credentials of an Authorization header using the
// Bearer scheme. The scheme name is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAuth admits requests carrying a valid token that names an owner and
// stores that owner in the request context. Everything else gets 401.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				logger.WarnContext(ctx, "rejected request without bearer token", "path", r.URL.Path)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "rejected bearer token", "error", err)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ownerID, err := id.ParseOwnerID(claims.OwnerID)
			if err != nil {
				logger.WarnContext(ctx, "rejected token without owner", "jti", claims.JTI)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token does not name an owner"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithOwnerID(ctx, ownerID)))
		})
	}
}
