package directory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Person is a member record in the congregation directory. The directory is
// owned by the membership service; this subsystem only reads it.
type Person struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// DisplayName returns "First Last" with whatever parts are present.
func (p *Person) DisplayName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}
