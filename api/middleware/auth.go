package middleware

import (
	"net/http"
	"strings"

	"github.com/subtrack-app/subtrack-backend/api/responses"
	"github.com/subtrack-app/subtrack-backend/pkg/db"
	pkgerrors "github.com/subtrack-app/subtrack-backend/pkg/errors"
	"github.com/subtrack-app/subtrack-backend/pkg/logger"
)

// Auth validates a Firebase ID token and seeds the request context with the
// resolved user id. All subscription data is scoped under that id.
func Auth(verifier db.TokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			uid, err := verifier.Verify(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if uid == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing subject"))
				return
			}

			ctx := WithUserID(r.Context(), uid)
			if logg != nil {
				ctx = logg.WithUserID(ctx, uid)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
