package model

import "time"

// AppCredential holds the single OAuth client credential pair used to talk to
// the authorization server. The secret is stored sealed.
type AppCredential struct {
	ID           string    `gorm:"column:id;primaryKey" json:"-"`
	ClientID     string    `gorm:"column:client_id" json:"client_id"`
	ClientSecret string    `gorm:"column:client_secret" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (AppCredential) TableName() string {
	return "app_credentials"
}
