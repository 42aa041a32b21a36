package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gracestack/church-comms-platform/internal/tenancy"
)

// BindTenant pins every request to a fixed tenant. Used by single-congregation
// deployments where all inbound traffic belongs to one organization.
func BindTenant(tenantID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tenantID != uuid.Nil {
				r = r.WithContext(tenancy.WithTenantID(r.Context(), tenantID))
			}
			next.ServeHTTP(w, r)
		})
	}
}
