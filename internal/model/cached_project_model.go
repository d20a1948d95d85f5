package model

import "time"

// CachedProject is a snapshot of a Jira project visible to a connection.
// The cache is replaced wholesale on discovery, never patched.
type CachedProject struct {
	ID           string    `gorm:"column:id;primaryKey" json:"-"`
	ConnectionID string    `gorm:"column:connection_id;uniqueIndex:idx_projects_connection_project" json:"-"`
	ProjectID    string    `gorm:"column:project_id;uniqueIndex:idx_projects_connection_project" json:"project_id"`
	ProjectKey   string    `gorm:"column:project_key" json:"project_key"`
	ProjectName  string    `gorm:"column:project_name" json:"project_name"`
	ProjectType  string    `gorm:"column:project_type" json:"project_type"`
	CachedAt     time.Time `gorm:"column:cached_at" json:"cached_at"`
}

func (CachedProject) TableName() string {
	return "cached_projects"
}
