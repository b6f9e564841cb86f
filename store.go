package auth

import "context"

// TeamMemberStore is the record store gateway for identity records.
//
// Lookups return an error satisfying IsNotFound when no row matches. The
// store is not assumed to enforce uniqueness on email or auth user id.
type TeamMemberStore interface {
	// FindByEmailOrAuthUser returns at most one record where email equals
	// the given email OR auth_user_id equals the given principal id.
	FindByEmailOrAuthUser(ctx context.Context, email, principalID string) (*TeamMember, error)
	// FindByEmail returns at most one record matching the email.
	FindByEmail(ctx context.Context, email string) (*TeamMember, error)
	Create(ctx context.Context, record *TeamMember) (*TeamMember, error)
	// LinkAuthUser backfills auth_user_id on the record with the given id.
	LinkAuthUser(ctx context.Context, record *TeamMember, principalID string) (*TeamMember, error)
}
