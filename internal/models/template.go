package models

import (
	"time"

	"github.com/google/uuid"
)

// NamingTemplate holds a filename pattern such as
// "{type}_{number}_{partner}_{date}.pdf". At most one active template
// per company is the default.
type NamingTemplate struct {
	ID          uuid.UUID  `db:"id"`
	CompanyID   uuid.UUID  `db:"company_id"`
	Name        string     `db:"name"`
	Pattern     string     `db:"pattern"`
	Description string     `db:"description"`
	IsDefault   bool       `db:"is_default"`
	Active      bool       `db:"active"`
	UsageCount  int        `db:"usage_count"`
	LastUsedAt  *time.Time `db:"last_used_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
