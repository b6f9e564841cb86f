package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TeamMember is the local identity record of a principal. Email is stored
// normalized. AuthUserID stays nil for records seeded by an administrator
// until the member signs in for the first time.
type TeamMember struct {
	bun.BaseModel `bun:"table:team_members,alias:tm"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	AuthUserID    *string    `bun:"auth_user_id,nullzero" json:"auth_user_id,omitempty"`
	Role          Role       `bun:"role,notnull" json:"role,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	Phone         string     `bun:"phone" json:"phone,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsLinked reports if the record is linked to an auth principal
func (m *TeamMember) IsLinked() bool {
	return m != nil && m.AuthUserID != nil && *m.AuthUserID != ""
}

// LinkedTo reports if the record is linked to the given principal id
func (m *TeamMember) LinkedTo(principalID string) bool {
	return m.IsLinked() && *m.AuthUserID == principalID
}

// NewTeamMemberFromPrincipal builds the record inserted on first sign in
func NewTeamMemberFromPrincipal(p Principal, role Role) *TeamMember {
	if role == RoleNone {
		role = RoleStaff
	}
	principalID := p.ID
	return &TeamMember{
		Email:      p.NormalizedEmail(),
		AuthUserID: &principalID,
		Role:       role,
		Name:       p.DisplayName(),
	}
}
