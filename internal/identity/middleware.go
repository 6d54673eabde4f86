package identity

import (
	"log/slog"
	"net/http"
	"strings"

	"healthdir/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the claims it carries.
// Token validation internals (signature, expiry) live in internal/jwttoken.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims is the validated claim set the gateway consumes. It deliberately
// knows nothing about the token format.
type Claims struct {
	UserID    string
	UserName  string
	SessionID string
	Roles     []string
}

// ExtractPrincipal returns middleware that attaches the caller principal to
// the request context. It never rejects: a missing, malformed, or invalid
// bearer token yields the Anonymous principal. Enforcement is the
// authentication gate's job, keyed by gateway policy: a broken token on an
// anonymous-allowed gateway must not block traffic.
func ExtractPrincipal(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, Anonymous)))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.DebugContext(ctx, "bearer token rejected, treating caller as anonymous",
					"error", err,
					"correlation_id", requestcontext.CorrelationID(ctx),
				)
				next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, Anonymous)))
				return
			}

			principal := Principal{
				UserID:        claims.UserID,
				UserName:      claims.UserName,
				SessionID:     claims.SessionID,
				Authenticated: true,
			}
			for _, role := range claims.Roles {
				principal.Roles = append(principal.Roles, Role(role))
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}
