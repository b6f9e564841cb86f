package repository

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the sql migrations for the team_members and
// shops tables
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
