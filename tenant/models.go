package tenant

import (
	"time"

	"github.com/uptrace/bun"
)

// Shop is a tenant the signed in principal may operate on. Shops are
// owned by the record store, the registry only reads and selects them.
type Shop struct {
	bun.BaseModel `bun:"table:shops,alias:sh"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Address       string    `bun:"address" json:"address,omitempty"`
	Phone         string    `bun:"phone" json:"phone,omitempty"`
	OpeningTime   string    `bun:"opening_time" json:"opening_time,omitempty"`
	ClosingTime   string    `bun:"closing_time" json:"closing_time,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
