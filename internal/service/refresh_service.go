package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jirabridge/internal/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

type RefreshServiceConfig struct {
	Margin time.Duration
}

// RefreshService keeps access tokens valid. Refreshes are single-flight per
// tenant so concurrent callers observe exactly one upstream exchange and a
// rotated refresh token can never race against a stale one.
type RefreshService struct {
	Config      RefreshServiceConfig
	credentials *CredentialService
	atlassian   *AtlassianService
	group       singleflight.Group
}

func NewRefreshService(config RefreshServiceConfig, credentials *CredentialService, atlassian *AtlassianService) *RefreshService {
	if config.Margin == 0 {
		config.Margin = 2 * time.Minute
	}

	return &RefreshService{
		Config:      config,
		credentials: credentials,
		atlassian:   atlassian,
	}
}

// EnsureFresh returns a connection whose access token is valid for at least
// the configured margin. Fresh tokens cause no network call, so this is safe
// to run before every authenticated operation.
func (rs *RefreshService) EnsureFresh(ctx context.Context, connection *model.Connection) (*model.Connection, error) {
	if !connection.IsActive {
		return nil, fmt.Errorf("%w: connection is inactive", ErrReauthorizationRequired)
	}

	if rs.fresh(connection) {
		return connection, nil
	}

	result, err, _ := rs.group.Do(connection.TenantID, func() (any, error) {
		return rs.refresh(ctx, connection.TenantID)
	})
	if err != nil {
		return nil, err
	}

	return result.(*model.Connection), nil
}

func (rs *RefreshService) refresh(ctx context.Context, tenantID string) (*model.Connection, error) {
	// Reload, a concurrent caller may have refreshed while we waited.
	connection, err := rs.credentials.GetConnection(tenantID)
	if err != nil {
		return nil, err
	}
	if rs.fresh(connection) {
		return connection, nil
	}

	clientID, clientSecret, err := rs.credentials.GetAppCredential()
	if err != nil {
		return nil, err
	}

	_, refreshToken, err := rs.credentials.ConnectionTokens(connection)
	if err != nil {
		return nil, err
	}
	if refreshToken == "" {
		err := rs.credentials.DeactivateConnection(tenantID)
		if err != nil {
			log.Error().Err(err).Str("tenantId", tenantID).Msg("Failed to deactivate connection")
		}
		return nil, fmt.Errorf("%w: no refresh token stored", ErrReauthorizationRequired)
	}

	oauthConfig := rs.atlassian.OAuthConfig(clientID, clientSecret, "")

	token, err := rs.atlassian.Refresh(ctx, oauthConfig, refreshToken)
	if err != nil {
		if errors.Is(err, ErrReauthorizationRequired) {
			log.Warn().Str("tenantId", tenantID).Msg("Refresh token rejected, deactivating connection")
			deactivateErr := rs.credentials.DeactivateConnection(tenantID)
			if deactivateErr != nil {
				log.Error().Err(deactivateErr).Str("tenantId", tenantID).Msg("Failed to deactivate connection")
			}
		}
		return nil, err
	}

	updated, err := rs.credentials.UpdateConnectionTokens(tenantID, token.AccessToken, token.RefreshToken, token.Expiry)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("tenantId", tenantID).Time("expiresAt", updated.TokenExpiresAt).Msg("Access token refreshed")

	return updated, nil
}

// Sweep proactively refreshes soon-to-expire credentials. Purely an
// optimization, EnsureFresh is still called lazily before every use.
func (rs *RefreshService) Sweep(ctx context.Context) {
	connections, err := rs.credentials.ListConnections()
	if err != nil {
		log.Error().Err(err).Msg("Refresh sweep failed to list connections")
		return
	}

	for i := range connections {
		connection := &connections[i]
		if !connection.IsActive || rs.fresh(connection) {
			continue
		}
		_, err := rs.EnsureFresh(ctx, connection)
		if err != nil {
			log.Warn().Err(err).Str("tenantId", connection.TenantID).Msg("Refresh sweep failed for connection")
		}
	}
}

func (rs *RefreshService) fresh(connection *model.Connection) bool {
	return connection.TokenExpiresAt.After(time.Now().Add(rs.Config.Margin))
}
