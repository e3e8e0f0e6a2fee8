package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sakif/cultural-expo/internal/apperror"
)

// contextKey is unexported so no other package can read or shadow the
// subject stored under it.
type contextKey string

const subjectKey contextKey = "subject"

// RequireAuth rejects requests without a valid bearer token with 401 and
// stores the token subject in the request context otherwise.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := extractSubject(r, tokens)
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("request rejected")
				writeUnauthorized(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the token subject of an authenticated request.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)
	return sub, ok && sub != ""
}

func extractSubject(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperror.Unauthorized("missing bearer token")
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperror.Unauthorized("authorization header must be \"Bearer <token>\"")
	}

	subject, err := tokens.Validate(strings.TrimSpace(token))
	if err != nil {
		return "", apperror.Unauthorized(err.Error())
	}
	return subject, nil
}

// writeUnauthorized answers in the API's common error shape.
func writeUnauthorized(w http.ResponseWriter, err error) {
	msg := "valid authentication required"
	if appErr, ok := err.(*apperror.AppError); ok {
		msg = appErr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="cultural-expo"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": msg,
	})
}
