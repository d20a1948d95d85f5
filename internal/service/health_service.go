package service

import (
	"context"

	"github.com/rs/zerolog/log"
)

// ConnectionStatus is the tagged result of a connectivity probe. Either the
// connection works and carries identity details, or it is down with a reason.
type ConnectionStatus struct {
	Connected          bool           `json:"connected"`
	SiteName           string         `json:"site_name"`
	User               *AtlassianUser `json:"user,omitempty"`
	AccessibleProjects int            `json:"accessible_projects"`
	GrantedScopes      []string       `json:"granted_scopes"`
	Reason             string         `json:"reason,omitempty"`
}

// HealthService probes live connectivity for connected sites and handles
// disconnects. Probes degrade to connected=false instead of failing, their
// whole purpose is to report broken connections without crashing the caller.
type HealthService struct {
	credentials *CredentialService
	atlassian   *AtlassianService
	refresher   *RefreshService
}

func NewHealthService(credentials *CredentialService, atlassian *AtlassianService, refresher *RefreshService) *HealthService {
	return &HealthService{
		credentials: credentials,
		atlassian:   atlassian,
		refresher:   refresher,
	}
}

// TestConnection probes one tenant. Only an unknown or inactive tenant is an
// error; upstream failures are reported inside the status.
func (hs *HealthService) TestConnection(ctx context.Context, tenantID string) (*ConnectionStatus, error) {
	connection, err := hs.credentials.GetConnection(tenantID)
	if err != nil {
		return nil, err
	}
	if !connection.IsActive {
		return nil, ErrNotFound
	}

	status := &ConnectionStatus{
		SiteName:      connection.SiteName,
		GrantedScopes: connection.Scopes(),
	}

	fresh, err := hs.refresher.EnsureFresh(ctx, connection)
	if err != nil {
		status.Reason = err.Error()
		return status, nil
	}

	accessToken, _, err := hs.credentials.ConnectionTokens(fresh)
	if err != nil {
		return nil, err
	}

	user, err := hs.atlassian.Myself(ctx, accessToken, tenantID)
	if err != nil {
		status.Reason = err.Error()
		return status, nil
	}

	status.Connected = true
	status.User = user

	projects, err := hs.atlassian.Projects(ctx, accessToken, tenantID)
	if err != nil {
		log.Warn().Err(err).Str("tenantId", tenantID).Msg("Failed to count accessible projects")
	} else {
		status.AccessibleProjects = len(projects)
	}

	return status, nil
}

// Revoke disconnects a tenant. The remote revocation is best effort, local
// state removal is the source of truth for whether the integration is in use.
func (hs *HealthService) Revoke(ctx context.Context, tenantID string) error {
	connection, err := hs.credentials.GetConnection(tenantID)
	if err != nil {
		return err
	}

	accessToken, _, err := hs.credentials.ConnectionTokens(connection)
	if err != nil {
		log.Warn().Err(err).Str("tenantId", tenantID).Msg("Could not open stored tokens, skipping remote revocation")
	} else {
		clientID, clientSecret, credErr := hs.credentials.GetAppCredential()
		if credErr != nil {
			log.Warn().Err(credErr).Str("tenantId", tenantID).Msg("No app credentials, skipping remote revocation")
		} else {
			revokeErr := hs.atlassian.Revoke(ctx, clientID, clientSecret, accessToken)
			if revokeErr != nil {
				log.Warn().Err(revokeErr).Str("tenantId", tenantID).Msg("Remote token revocation failed")
			}
		}
	}

	err = hs.credentials.DeleteConnection(tenantID)
	if err != nil {
		return err
	}

	log.Info().Str("tenantId", tenantID).Msg("Connection revoked")
	return nil
}
