package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
)

// TokenIssuer identifies the service that issues staff access tokens.
const TokenIssuer = "WaiverDesk"

// StaffClaims is the claim set carried by a staff access token.
type StaffClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// StaffID parses the subject claim.
func (c *StaffClaims) StaffID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid subject claim")
	}
	return id, nil
}

// ValidateToken checks the token's HS256 signature, expiry, issuer and role.
// Any deviation returns a descriptive error; an expired token wraps
// jwt.ErrTokenExpired.
func ValidateToken(tokenString string, secret []byte) (*StaffClaims, error) {
	claims := &StaffClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	switch models.StaffRole(claims.Role) {
	case models.StaffRoleStaff, models.StaffRoleAdmin:
	default:
		return nil, errors.New("invalid role claim")
	}
	if _, err := claims.StaffID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueToken signs a staff access token. The production issuer is the
// external auth service; this is used by seeding tools and tests.
func IssueToken(secret []byte, staffID int64, role models.StaffRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := StaffClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   strconv.FormatInt(staffID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
