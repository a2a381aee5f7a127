package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

type contextKey string

const (
	ContextKeyStaffID   = contextKey("staffID")
	ContextKeyStaffRole = contextKey("staffRole")

	AccessTokenCookieName = "access_token"
)

// StaffAuthMiddleware – for staff-protected endpoints. If the token is
// missing or invalid, returns 401.
//   - The JWT is read from Authorization: Bearer ..., falling back to the
//     AccessTokenCookieName cookie for the browser dashboard.
func StaffAuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return requireRole(secret, models.StaffRoleStaff, models.StaffRoleAdmin)
}

func requireRole(secret []byte, allowed ...models.StaffRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extractAccessToken(r)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, err.Error(), nil,
				)
				return
			}

			claims, vErr := ValidateToken(tokenStr, secret)
			if vErr != nil {
				if errors.Is(vErr, jwt.ErrTokenExpired) {
					utils.RespondErrorWithCode(
						w, http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Token expired", nil, vErr,
					)
					return
				}
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid token", nil, vErr,
				)
				return
			}

			role := models.StaffRole(claims.Role)
			permitted := false
			for _, a := range allowed {
				if role == a {
					permitted = true
					break
				}
			}
			if !permitted {
				utils.RespondErrorWithCode(
					w, http.StatusForbidden, utils.ErrCodeForbidden, "Insufficient permissions", nil,
				)
				return
			}

			staffID, _ := claims.StaffID()
			ctx := context.WithValue(r.Context(), ContextKeyStaffID, staffID)
			ctx = context.WithValue(ctx, ContextKeyStaffRole, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StaffIDFromContext returns the id stored by the auth middleware.
func StaffIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextKeyStaffID).(int64)
	return id, ok
}

// helper: Bearer header first, then the cookie
func extractAccessToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		if tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); tok != "" {
			return tok, nil
		}
	}

	c, err := r.Cookie(AccessTokenCookieName)
	if err != nil || c.Value == "" {
		return "", errors.New("missing Authorization header or access_token cookie")
	}
	return c.Value, nil
}
