package auth

import (
	"context"
	"net/http"
	"strings"

	"noshow-predictor/internal/httpjson"
)

type contextKey string

const UsernameKey = contextKey("username")

func JWTMiddleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httpjson.Error(w, http.StatusUnauthorized, "missing token")
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				httpjson.Error(w, http.StatusUnauthorized, "invalid token format")
				return
			}
			claims, err := tokens.Parse(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				httpjson.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), claims.Username)))
		})
	}
}

func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}

func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok && username != ""
}
