package middlewares

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"spendly/internal/services"
	"spendly/internal/utils"
)

// AuthMiddleware rejects requests without a valid session and puts the user id in
// the request context for the handlers.
func AuthMiddleware(auth services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := auth.Authenticate(r)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Unauthenticated request")
				utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithUserID(r.Context(), userID)))
		})
	}
}
