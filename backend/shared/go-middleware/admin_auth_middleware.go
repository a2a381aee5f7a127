package middleware

import (
	"net/http"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
)

// AdminAuthMiddleware validates a staff JWT and ensures it carries the
// "admin" role. Staff tokens get 403.
func AdminAuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return requireRole(secret, models.StaffRoleAdmin)
}
