package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// CustomerSessionAudience separates kiosk session tokens from staff access
// tokens signed with the same secret.
const CustomerSessionAudience = "customer-session"

const ContextKeyCustomerID = contextKey("customerID")

// IssueCustomerSession signs a short-lived token bound to one customer. It
// is handed out only after a successful OTP verification.
func IssueCustomerSession(secret []byte, customerID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Subject:   strconv.FormatInt(customerID, 10),
		Audience:  jwt.ClaimStrings{CustomerSessionAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateCustomerSession returns the customer id carried by a session
// token. Staff tokens fail the audience check.
func ValidateCustomerSession(tokenString string, secret []byte) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(CustomerSessionAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("invalid token claims")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid subject claim")
	}
	return id, nil
}

// CustomerSessionMiddleware requires a Bearer customer session token and
// stores its customer id in the request context. The staff cookie is not
// consulted.
func CustomerSessionMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if !strings.HasPrefix(h, "Bearer ") || tokenStr == "" {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Phone verification required", nil,
				)
				return
			}

			customerID, err := ValidateCustomerSession(tokenStr, secret)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					utils.RespondErrorWithCode(
						w, http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Session expired", nil, err,
					)
					return
				}
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid session", nil, err,
				)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyCustomerID, customerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CustomerIDFromContext returns the id stored by CustomerSessionMiddleware.
func CustomerIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextKeyCustomerID).(int64)
	return id, ok
}
