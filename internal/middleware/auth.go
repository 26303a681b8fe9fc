package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/josh-kwaku/grey-bank-client/internal/auth"
	"github.com/josh-kwaku/grey-bank-client/internal/handler"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
)

type revocationList interface {
	IsRevoked(tokenID string) bool
}

// Auth admits requests carrying a valid bearer token of the given kind.
// Expired and revoked tokens get 401; anything unparsable gets 422.
func Auth(secret string, kind auth.TokenKind, revoked revocationList) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken)
				return
			}

			claims, err := auth.ValidateToken(token, secret, kind)
			if err != nil {
				logging.FromContext(r.Context()).Debug("token rejected", "error", err)
				if errors.Is(err, jwt.ErrTokenExpired) {
					handler.RespondAppError(w, handler.ErrTokenExpired)
					return
				}
				handler.RespondAppError(w, handler.ErrInvalidToken)
				return
			}
			if revoked != nil && revoked.IsRevoked(claims.ID) {
				handler.RespondAppError(w, handler.ErrTokenRevoked)
				return
			}

			ctx := auth.ContextWithClaims(r.Context(), claims)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
