package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/nimbusvr/trackshop-backend/api/responses"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
)

const apiKeyHeader = "X-Api-Key"

// AdminAPIKey gates the admin surface behind a static operator key.
func AdminAPIKey(expected string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if expected == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin api key not configured"))
				return
			}

			presented := r.Header.Get(apiKeyHeader)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "invalid api key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
