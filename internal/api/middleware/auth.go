package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/neiii/stargate-better-auth/internal/api/presenter"
)

const adminRole = "admin"
const bearerPrefix = "Bearer "

type sessionKey struct{}

// Session is what the session token resolves to: the authenticated user, the
// GitHub access token stored against their linked account (empty when no
// account is linked) and the host framework's session ID.
type Session struct {
	UserID      string
	AccessToken string
	SessionID   string
}

// SessionCtx retrieves the resolved session from the context. Only valid
// below SessionAuth.
func SessionCtx(ctx context.Context) Session {
	sess, _ := ctx.Value(sessionKey{}).(Session)
	return sess
}

func parseToken(r *http.Request, signingKey []byte) (jwt.MapClaims, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, bearerPrefix) {
		return nil, fmt.Errorf("missing session token")
	}
	tokenStr := strings.TrimSpace(auth[len(bearerPrefix):])
	if tokenStr == "" {
		return nil, fmt.Errorf("missing session token")
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}
	return claims, nil
}

// SessionAuth validates the host framework's session JWT and resolves it into
// a Session. The "sub" claim is required; "github_token" and "sid" are
// optional, an absent github_token means the user has no linked GitHub
// account and is rejected further down with a stable code.
func SessionAuth(signingKey []byte) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseToken(r, signingKey)
			if err != nil {
				presenter.Error(w, r, err.Error(), http.StatusUnauthorized)
				return
			}

			userID, _ := claims["sub"].(string)
			if userID == "" {
				presenter.Error(w, r, "session token has no subject", http.StatusUnauthorized)
				return
			}

			sess := Session{UserID: userID}
			sess.AccessToken, _ = claims["github_token"].(string)
			sess.SessionID, _ = claims["sid"].(string)

			ctx := context.WithValue(r.Context(), sessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAuth is a middleware that checks for admin privileges in the JWT token.
// TODO(future): this is currently a simple middleware for admin role checking, used for a PoC.
// TODO(future): This should be replaced with a more flexible RBAC system in the future.
func AdminAuth(signingKey []byte) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseToken(r, signingKey)
			if err != nil {
				presenter.Error(w, r, err.Error(), http.StatusUnauthorized)
				return
			}

			roles, ok := claims["roles"].([]any)
			if !ok {
				presenter.Error(w, r, "invalid claims", http.StatusUnauthorized)
				return
			}

			hasPrivilege := false
			for _, roleAny := range roles {
				roleStr, ok := roleAny.(string)
				if !ok {
					continue
				}
				if roleStr == adminRole {
					hasPrivilege = true
					break
				}
			}
			if !hasPrivilege {
				presenter.Error(w, r, "insufficient privileges", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
