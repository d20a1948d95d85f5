package service

import (
	"context"
	"fmt"
	"time"

	"jirabridge/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DiscoveryService enumerates the tenants and projects a granted token can
// see and maintains the per-connection project cache.
type DiscoveryService struct {
	credentials *CredentialService
	atlassian   *AtlassianService
	refresher   *RefreshService
}

func NewDiscoveryService(credentials *CredentialService, atlassian *AtlassianService, refresher *RefreshService) *DiscoveryService {
	return &DiscoveryService{
		credentials: credentials,
		atlassian:   atlassian,
		refresher:   refresher,
	}
}

// AccessibleTenants lists the sites reachable with the most recently updated
// active connection's token.
func (ds *DiscoveryService) AccessibleTenants(ctx context.Context) ([]AccessibleResource, error) {
	connections, err := ds.credentials.ListConnections()
	if err != nil {
		return nil, err
	}

	var newest *model.Connection
	for i := range connections {
		connection := &connections[i]
		if !connection.IsActive {
			continue
		}
		if newest == nil || connection.UpdatedAt.After(newest.UpdatedAt) {
			newest = connection
		}
	}

	if newest == nil {
		return nil, fmt.Errorf("%w: no active connection", ErrNotFound)
	}

	fresh, err := ds.refresher.EnsureFresh(ctx, newest)
	if err != nil {
		return nil, err
	}

	accessToken, _, err := ds.credentials.ConnectionTokens(fresh)
	if err != nil {
		return nil, err
	}

	return ds.atlassian.AccessibleResources(ctx, accessToken)
}

// RefreshProjects re-runs project discovery for a tenant and replaces the
// cached set atomically. A provider error leaves the previous cache untouched
// and does not invalidate the credential.
func (ds *DiscoveryService) RefreshProjects(ctx context.Context, tenantID string) ([]model.CachedProject, error) {
	connection, err := ds.credentials.GetConnection(tenantID)
	if err != nil {
		return nil, err
	}

	fresh, err := ds.refresher.EnsureFresh(ctx, connection)
	if err != nil {
		return nil, err
	}

	accessToken, _, err := ds.credentials.ConnectionTokens(fresh)
	if err != nil {
		return nil, err
	}

	projects, err := ds.atlassian.Projects(ctx, accessToken, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cached := make([]model.CachedProject, 0, len(projects))

	for _, project := range projects {
		cached = append(cached, model.CachedProject{
			ID:           uuid.NewString(),
			ConnectionID: fresh.ID,
			ProjectID:    project.ID,
			ProjectKey:   project.Key,
			ProjectName:  project.Name,
			ProjectType:  project.ProjectTypeKey,
			CachedAt:     now,
		})
	}

	err = ds.credentials.ReplaceCachedProjects(fresh.ID, cached)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("tenantId", tenantID).Int("projects", len(cached)).Msg("Project cache refreshed")

	return cached, nil
}

// CachedProjects returns the current snapshot without touching the provider.
func (ds *DiscoveryService) CachedProjects(tenantID string) ([]model.CachedProject, error) {
	connection, err := ds.credentials.GetConnection(tenantID)
	if err != nil {
		return nil, err
	}
	return ds.credentials.CachedProjects(connection.ID)
}
