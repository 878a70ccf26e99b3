package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// Middleware rejects requests without a valid bearer token and stores the
// user id in the request context.
func Middleware(issuer *Issuer, onError func(w http.ResponseWriter, status int, msg string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				onError(w, http.StatusUnauthorized, "missing auth token")
				return
			}

			userID, err := issuer.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				slog.WarnContext(r.Context(), "Rejected bearer token", "path", r.URL.Path, "error", err)
				onError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int64, error) {
	uid, ok := ctx.Value(userIDKey).(int64)
	if !ok {
		return 0, errors.New("user not authenticated")
	}
	return uid, nil
}
