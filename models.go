package passwordless

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the default subject record authenticated by the bundled strategies.
// Deployments with their own schema provide a Resource pointing at their own
// model instead.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	TenantID      string     `bun:"tenant_id" json:"tenant_id,omitempty"`
	SignedInAt    *time.Time `bun:"signed_in_at,nullzero" json:"signed_in_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// SubjectIdentity returns the identity used in token subjects for this user.
func (u *User) SubjectIdentity() *SubjectIdentity {
	return NewSubjectIdentity().Set("id", u.ID.String())
}
