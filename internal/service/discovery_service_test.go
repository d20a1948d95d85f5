package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"jirabridge/internal/service"

	"gotest.tools/v3/assert"
)

type discoveryFixture struct {
	credentials *service.CredentialService
	discovery   *service.DiscoveryService

	projectsHandler  http.HandlerFunc
	resourcesHandler http.HandlerFunc
}

func newDiscoveryFixture(t *testing.T) *discoveryFixture {
	t.Helper()

	fixture := &discoveryFixture{}

	mux := http.NewServeMux()
	mux.HandleFunc("/ex/jira/cloud-1/rest/api/3/project", func(w http.ResponseWriter, r *http.Request) {
		fixture.projectsHandler(w, r)
	})
	mux.HandleFunc("/oauth/token/accessible-resources", func(w http.ResponseWriter, r *http.Request) {
		fixture.resourcesHandler(w, r)
	})

	fixture.credentials = newCredentialService(t)
	assert.NilError(t, fixture.credentials.SetAppCredential("client-id", "client-secret"))

	atlassian := newAtlassianService(t, mux)
	refresher := service.NewRefreshService(service.RefreshServiceConfig{
		Margin: 2 * time.Minute,
	}, fixture.credentials, atlassian)

	fixture.discovery = service.NewDiscoveryService(fixture.credentials, atlassian, refresher)

	return fixture
}

func (f *discoveryFixture) connect(t *testing.T) {
	t.Helper()

	_, err := f.credentials.UpsertConnection(service.ConnectionUpsert{
		TenantID:       "cloud-1",
		SiteName:       "Acme",
		AccessToken:    "access",
		RefreshToken:   "refresh",
		TokenExpiresAt: time.Now().Add(time.Hour),
	})
	assert.NilError(t, err)
}

func TestRefreshProjectsCachesSnapshot(t *testing.T) {
	fixture := newDiscoveryFixture(t)
	fixture.connect(t)

	fixture.projectsHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []service.AtlassianProject{
			{ID: "10001", Key: "ENG", Name: "Engineering", ProjectTypeKey: "software"},
			{ID: "10002", Key: "OPS", Name: "Operations", ProjectTypeKey: "software"},
		})
	}

	projects, err := fixture.discovery.RefreshProjects(context.Background(), "cloud-1")
	assert.NilError(t, err)
	assert.Equal(t, 2, len(projects))

	cached, err := fixture.discovery.CachedProjects("cloud-1")
	assert.NilError(t, err)
	assert.Equal(t, 2, len(cached))
	assert.Equal(t, "ENG", cached[0].ProjectKey)
}

func TestRefreshProjectsFailureKeepsPreviousCache(t *testing.T) {
	fixture := newDiscoveryFixture(t)
	fixture.connect(t)

	fixture.projectsHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []service.AtlassianProject{
			{ID: "10001", Key: "ENG", Name: "Engineering"},
		})
	}

	_, err := fixture.discovery.RefreshProjects(context.Background(), "cloud-1")
	assert.NilError(t, err)

	// Provider starts failing, previous snapshot stays intact
	fixture.projectsHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
	}

	_, err = fixture.discovery.RefreshProjects(context.Background(), "cloud-1")
	assert.Assert(t, err != nil)

	cached, err := fixture.discovery.CachedProjects("cloud-1")
	assert.NilError(t, err)
	assert.Equal(t, 1, len(cached))

	// The credential itself is untouched
	connection, err := fixture.credentials.GetConnection("cloud-1")
	assert.NilError(t, err)
	assert.Equal(t, true, connection.IsActive)
}

func TestRefreshProjectsUnknownTenant(t *testing.T) {
	fixture := newDiscoveryFixture(t)

	_, err := fixture.discovery.RefreshProjects(context.Background(), "missing")
	assert.Assert(t, errors.Is(err, service.ErrNotFound))
}

func TestAccessibleTenants(t *testing.T) {
	fixture := newDiscoveryFixture(t)

	_, err := fixture.discovery.AccessibleTenants(context.Background())
	assert.Assert(t, errors.Is(err, service.ErrNotFound))

	fixture.connect(t)
	fixture.resourcesHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []service.AccessibleResource{
			{ID: "cloud-1", Name: "Acme", URL: "https://acme.atlassian.net"},
		})
	}

	resources, err := fixture.discovery.AccessibleTenants(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, 1, len(resources))
	assert.Equal(t, "cloud-1", resources[0].ID)
}
