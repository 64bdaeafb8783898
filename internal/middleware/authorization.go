package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// Permission names used by the inventory endpoints. They mirror the
// feature areas of the UI: operating the barcode scanner and
// performing bulk inventory edits.
const (
	PermissionBarcodeSystem = "barcode_system"
	PermissionBulkInventory = "bulk_inventory"
)

// RequirePermission ensures the authenticated user holds the named
// permission. Admins implicitly hold every permission.
func RequirePermission(permission string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				respondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if role == "admin" {
				next.ServeHTTP(w, r)
				return
			}

			permissions, _ := GetUserPermissions(r.Context())
			for _, granted := range permissions {
				if granted == permission {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("User lacks required permission",
				zap.String("role", role),
				zap.String("permission", permission),
			)
			respondWithError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// RequireAdmin ensures the user has the admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok || role != "admin" {
				logger.Warn("Non-admin user attempted to access admin endpoint",
					zap.String("role", role),
				)
				respondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
