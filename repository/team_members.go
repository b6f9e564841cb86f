package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repo "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	auth "github.com/sandunudayakantha/saloon-auth"
	"github.com/uptrace/bun"
)

// TeamMembers is the bun backed identity record table
type TeamMembers struct {
	repo.Repository[*auth.TeamMember]
	db *bun.DB
}

var _ auth.TeamMemberStore = (*TeamMembers)(nil)

// NewTeamMembers creates the team_members repository
func NewTeamMembers(db *bun.DB) *TeamMembers {
	base := repo.NewRepository[*auth.TeamMember](db, repo.ModelHandlers[*auth.TeamMember]{
		NewRecord: func() *auth.TeamMember { return &auth.TeamMember{} },
		GetID: func(m *auth.TeamMember) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *auth.TeamMember, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &TeamMembers{
		Repository: base,
		db:         db,
	}
}

// FindByEmailOrAuthUser returns one record matching email or auth user id.
// A record already linked to the principal is preferred.
func (t *TeamMembers) FindByEmailOrAuthUser(ctx context.Context, email, principalID string) (*auth.TeamMember, error) {
	return t.FindByEmailOrAuthUserTx(ctx, t.db, email, principalID)
}

func (t *TeamMembers) FindByEmailOrAuthUserTx(ctx context.Context, tx bun.IDB, email, principalID string) (*auth.TeamMember, error) {
	email = auth.NormalizeEmail(email)

	record := &auth.TeamMember{}
	err := tx.NewSelect().
		Model(record).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.email = ?", email).
				WhereOr("?TableAlias.auth_user_id = ?", principalID)
		}).
		OrderExpr("CASE WHEN ?TableAlias.auth_user_id = ? THEN 0 ELSE 1 END", principalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, map[string]any{
			"email":        email,
			"auth_user_id": principalID,
		})
	}

	return record, nil
}

// FindByEmail returns one record matching the normalized email
func (t *TeamMembers) FindByEmail(ctx context.Context, email string) (*auth.TeamMember, error) {
	return t.FindByEmailTx(ctx, t.db, email)
}

func (t *TeamMembers) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.TeamMember, error) {
	email = auth.NormalizeEmail(email)

	record := &auth.TeamMember{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, map[string]any{"email": email})
	}

	return record, nil
}

// Create inserts a record, normalizing its email and filling defaults
func (t *TeamMembers) Create(ctx context.Context, record *auth.TeamMember) (*auth.TeamMember, error) {
	return t.CreateTx(ctx, t.db, record)
}

func (t *TeamMembers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.TeamMember) (*auth.TeamMember, error) {
	prepareTeamMemberDefaults(record)
	return t.Repository.CreateTx(ctx, tx, record)
}

// LinkAuthUser backfills auth_user_id on an existing record
func (t *TeamMembers) LinkAuthUser(ctx context.Context, record *auth.TeamMember, principalID string) (*auth.TeamMember, error) {
	return t.LinkAuthUserTx(ctx, t.db, record, principalID)
}

func (t *TeamMembers) LinkAuthUserTx(ctx context.Context, tx bun.IDB, record *auth.TeamMember, principalID string) (*auth.TeamMember, error) {
	if record == nil || record.ID == uuid.Nil {
		return nil, repo.NewRecordNotFound().
			WithMetadata(map[string]any{"auth_user_id": principalID})
	}

	now := time.Now()
	linked := *record
	linked.AuthUserID = &principalID
	linked.UpdatedAt = &now

	res, err := tx.NewUpdate().
		Model(&linked).
		Column("auth_user_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repo.NewRecordNotFound().
			WithMetadata(map[string]any{"id": record.ID.String()})
	}

	return &linked, nil
}

func prepareTeamMemberDefaults(record *auth.TeamMember) {
	if record == nil {
		return
	}

	record.Email = auth.NormalizeEmail(record.Email)

	if record.Role == auth.RoleNone {
		record.Role = auth.RoleStaff
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func notFoundOr(err error, metadata map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) || repo.IsRecordNotFound(err) {
		return repo.NewRecordNotFound().WithMetadata(metadata)
	}
	return err
}
