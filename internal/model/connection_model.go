package model

import (
	"strings"
	"time"
)

// Connection is one authenticated Jira Cloud site. The tenant is identified by
// its stable cloud ID, never by the site URL, since the URL can be renamed
// while the cloud ID cannot. Token columns are stored sealed and are never
// serialized outward.
type Connection struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	UserScope      string    `gorm:"column:user_scope;uniqueIndex:idx_connections_scope_tenant" json:"-"`
	TenantID       string    `gorm:"column:tenant_id;uniqueIndex:idx_connections_scope_tenant" json:"tenant_id"`
	SiteName       string    `gorm:"column:site_name" json:"site_name"`
	SiteURL        string    `gorm:"column:site_url" json:"site_url"`
	AvatarURL      string    `gorm:"column:avatar_url" json:"avatar_url"`
	AccessToken    string    `gorm:"column:access_token" json:"-"`
	RefreshToken   string    `gorm:"column:refresh_token" json:"-"`
	TokenExpiresAt time.Time `gorm:"column:token_expires_at" json:"token_expires_at"`
	GrantedScopes  string    `gorm:"column:granted_scopes" json:"granted_scopes"`
	IsActive       bool      `gorm:"column:is_active" json:"is_active"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Connection) TableName() string {
	return "connections"
}

// Scopes returns the granted scopes as a slice.
func (c *Connection) Scopes() []string {
	if c.GrantedScopes == "" {
		return []string{}
	}
	return strings.Split(c.GrantedScopes, " ")
}
