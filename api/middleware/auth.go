package middleware

import (
	"net/http"
	"strings"

	"github.com/danielhargrove/shopflow-backend/api/responses"
	pkgauth "github.com/danielhargrove/shopflow-backend/pkg/auth"
	"github.com/danielhargrove/shopflow-backend/pkg/config"
	pkgerrors "github.com/danielhargrove/shopflow-backend/pkg/errors"
	"github.com/danielhargrove/shopflow-backend/pkg/logger"
)

// Identity decodes an optional bearer credential into the request context.
// No credential means guest and the request proceeds; a credential that is
// present but invalid is rejected.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID, claims.Email, claims.Role)

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
