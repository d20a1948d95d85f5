package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"jirabridge/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Single row id for the app-level OAuth client credential pair.
const appCredentialID = "default"

type CredentialServiceConfig struct {
	UserScope string
}

// CredentialService owns durable storage of the OAuth client credential pair
// and of per-tenant connection records. Confidential columns are sealed by the
// crypto service before hitting the database.
type CredentialService struct {
	Config   CredentialServiceConfig
	database *gorm.DB
	crypto   *CryptoService
}

type ConnectionUpsert struct {
	TenantID       string
	SiteName       string
	SiteURL        string
	AvatarURL      string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
	GrantedScopes  []string
}

func NewCredentialService(config CredentialServiceConfig, database *gorm.DB, crypto *CryptoService) *CredentialService {
	return &CredentialService{
		Config:   config,
		database: database,
		crypto:   crypto,
	}
}

func (cs *CredentialService) SetAppCredential(clientID string, clientSecret string) error {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" {
		return fmt.Errorf("%w: client id and client secret are required", ErrValidation)
	}

	sealed, err := cs.crypto.Seal(clientSecret)
	if err != nil {
		return err
	}

	now := time.Now()
	credential := model.AppCredential{
		ID:           appCredentialID,
		ClientID:     clientID,
		ClientSecret: sealed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var existing model.AppCredential
	err = cs.database.First(&existing, "id = ?", appCredentialID).Error

	switch {
	case err == nil:
		credential.CreatedAt = existing.CreatedAt
		return cs.database.Save(&credential).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return cs.database.Create(&credential).Error
	default:
		return err
	}
}

func (cs *CredentialService) GetAppCredential() (string, string, error) {
	var credential model.AppCredential
	err := cs.database.First(&credential, "id = ?", appCredentialID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", ErrNotConfigured
	}
	if err != nil {
		return "", "", err
	}

	secret, err := cs.crypto.Open(credential.ClientSecret)
	if err != nil {
		return "", "", err
	}

	return credential.ClientID, secret, nil
}

func (cs *CredentialService) ClearAppCredential() error {
	return cs.database.Delete(&model.AppCredential{}, "id = ?", appCredentialID).Error
}

func (cs *CredentialService) AppCredentialConfigured() (bool, error) {
	var count int64
	err := cs.database.Model(&model.AppCredential{}).Where("id = ?", appCredentialID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpsertConnection creates or updates the record for (user scope, tenant).
// Reconnecting an already connected tenant rewrites the existing row instead
// of duplicating it.
func (cs *CredentialService) UpsertConnection(upsert ConnectionUpsert) (*model.Connection, error) {
	sealedAccess, err := cs.crypto.Seal(upsert.AccessToken)
	if err != nil {
		return nil, err
	}

	sealedRefresh := ""
	if upsert.RefreshToken != "" {
		sealedRefresh, err = cs.crypto.Seal(upsert.RefreshToken)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()

	var connection model.Connection
	err = cs.database.First(&connection, "user_scope = ? AND tenant_id = ?", cs.Config.UserScope, upsert.TenantID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		connection = model.Connection{
			ID:        uuid.NewString(),
			UserScope: cs.Config.UserScope,
			TenantID:  upsert.TenantID,
			CreatedAt: now,
		}
	} else if err != nil {
		return nil, err
	}

	connection.SiteName = upsert.SiteName
	connection.SiteURL = upsert.SiteURL
	connection.AvatarURL = upsert.AvatarURL
	connection.AccessToken = sealedAccess
	if sealedRefresh != "" {
		connection.RefreshToken = sealedRefresh
	}
	connection.TokenExpiresAt = upsert.TokenExpiresAt
	connection.GrantedScopes = strings.Join(upsert.GrantedScopes, " ")
	connection.IsActive = true
	connection.UpdatedAt = now

	err = cs.database.Save(&connection).Error
	if err != nil {
		return nil, err
	}

	return &connection, nil
}

func (cs *CredentialService) GetConnection(tenantID string) (*model.Connection, error) {
	var connection model.Connection
	err := cs.database.First(&connection, "user_scope = ? AND tenant_id = ?", cs.Config.UserScope, tenantID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &connection, nil
}

func (cs *CredentialService) ListConnections() ([]model.Connection, error) {
	connections := []model.Connection{}
	err := cs.database.Where("user_scope = ?", cs.Config.UserScope).Order("site_name").Find(&connections).Error
	if err != nil {
		return nil, err
	}
	return connections, nil
}

// ConnectionTokens opens the sealed token columns for an outgoing call.
func (cs *CredentialService) ConnectionTokens(connection *model.Connection) (string, string, error) {
	access, err := cs.crypto.Open(connection.AccessToken)
	if err != nil {
		return "", "", err
	}

	refresh := ""
	if connection.RefreshToken != "" {
		refresh, err = cs.crypto.Open(connection.RefreshToken)
		if err != nil {
			return "", "", err
		}
	}

	return access, refresh, nil
}

// UpdateConnectionTokens rewrites the token columns after a refresh. An empty
// refresh token keeps the stored one, since providers do not always rotate it.
func (cs *CredentialService) UpdateConnectionTokens(tenantID string, accessToken string, refreshToken string, expiresAt time.Time) (*model.Connection, error) {
	connection, err := cs.GetConnection(tenantID)
	if err != nil {
		return nil, err
	}

	connection.AccessToken, err = cs.crypto.Seal(accessToken)
	if err != nil {
		return nil, err
	}

	if refreshToken != "" {
		connection.RefreshToken, err = cs.crypto.Seal(refreshToken)
		if err != nil {
			return nil, err
		}
	}

	connection.TokenExpiresAt = expiresAt
	connection.IsActive = true
	connection.UpdatedAt = time.Now()

	err = cs.database.Save(connection).Error
	if err != nil {
		return nil, err
	}

	return connection, nil
}

func (cs *CredentialService) DeactivateConnection(tenantID string) error {
	result := cs.database.Model(&model.Connection{}).
		Where("user_scope = ? AND tenant_id = ?", cs.Config.UserScope, tenantID).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now()})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteConnection removes the record and its cached projects in one
// transaction.
func (cs *CredentialService) DeleteConnection(tenantID string) error {
	connection, err := cs.GetConnection(tenantID)
	if err != nil {
		return err
	}

	return cs.database.Transaction(func(tx *gorm.DB) error {
		err := tx.Delete(&model.CachedProject{}, "connection_id = ?", connection.ID).Error
		if err != nil {
			return err
		}
		return tx.Delete(&model.Connection{}, "id = ?", connection.ID).Error
	})
}

// ReplaceCachedProjects swaps the full cached set for a connection
// atomically so no stale rows survive a discovery run.
func (cs *CredentialService) ReplaceCachedProjects(connectionID string, projects []model.CachedProject) error {
	return cs.database.Transaction(func(tx *gorm.DB) error {
		err := tx.Delete(&model.CachedProject{}, "connection_id = ?", connectionID).Error
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			return nil
		}
		return tx.Create(&projects).Error
	})
}

func (cs *CredentialService) CachedProjects(connectionID string) ([]model.CachedProject, error) {
	projects := []model.CachedProject{}
	err := cs.database.Where("connection_id = ?", connectionID).Order("project_key").Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}
