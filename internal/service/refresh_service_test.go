package service_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jirabridge/internal/model"
	"jirabridge/internal/service"

	"gotest.tools/v3/assert"
)

type refreshFixture struct {
	credentials *service.CredentialService
	refresher   *service.RefreshService
	tokenCalls  atomic.Int64
}

func newRefreshFixture(t *testing.T, tokenHandler http.HandlerFunc) *refreshFixture {
	t.Helper()

	fixture := &refreshFixture{}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		fixture.tokenCalls.Add(1)
		tokenHandler(w, r)
	})

	fixture.credentials = newCredentialService(t)
	assert.NilError(t, fixture.credentials.SetAppCredential("client-id", "client-secret"))

	fixture.refresher = service.NewRefreshService(service.RefreshServiceConfig{
		Margin: 2 * time.Minute,
	}, fixture.credentials, newAtlassianService(t, mux))

	return fixture
}

func (f *refreshFixture) connect(t *testing.T, expiresAt time.Time) *model.Connection {
	t.Helper()

	connection, err := f.credentials.UpsertConnection(service.ConnectionUpsert{
		TenantID:       "cloud-1",
		SiteName:       "Acme",
		AccessToken:    "old-access",
		RefreshToken:   "old-refresh",
		TokenExpiresAt: expiresAt,
	})
	assert.NilError(t, err)

	return connection
}

func TestEnsureFreshIsNoopForFreshToken(t *testing.T) {
	fixture := newRefreshFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenResponse("new-access", "new-refresh", 3600, ""))
	})

	connection := fixture.connect(t, time.Now().Add(time.Hour))

	fresh, err := fixture.refresher.EnsureFresh(context.Background(), connection)
	assert.NilError(t, err)
	assert.Equal(t, connection.ID, fresh.ID)

	// No network call happened
	assert.Equal(t, int64(0), fixture.tokenCalls.Load())

	access, _, err := fixture.credentials.ConnectionTokens(fresh)
	assert.NilError(t, err)
	assert.Equal(t, "old-access", access)
}

func TestEnsureFreshRefreshesNearExpiry(t *testing.T) {
	fixture := newRefreshFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenResponse("new-access", "rotated-refresh", 3600, ""))
	})

	connection := fixture.connect(t, time.Now().Add(time.Second))

	fresh, err := fixture.refresher.EnsureFresh(context.Background(), connection)
	assert.NilError(t, err)
	assert.Equal(t, int64(1), fixture.tokenCalls.Load())
	assert.Assert(t, fresh.TokenExpiresAt.After(time.Now().Add(30*time.Minute)))

	access, refresh, err := fixture.credentials.ConnectionTokens(fresh)
	assert.NilError(t, err)
	assert.Equal(t, "new-access", access)
	assert.Equal(t, "rotated-refresh", refresh)
}

func TestEnsureFreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	fixture := newRefreshFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenResponse("new-access", "", 3600, ""))
	})

	connection := fixture.connect(t, time.Now().Add(time.Second))

	fresh, err := fixture.refresher.EnsureFresh(context.Background(), connection)
	assert.NilError(t, err)

	_, refresh, err := fixture.credentials.ConnectionTokens(fresh)
	assert.NilError(t, err)
	assert.Equal(t, "old-refresh", refresh)
}

func TestEnsureFreshIsSingleFlight(t *testing.T) {
	fixture := newRefreshFixture(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		writeJSON(w, http.StatusOK, tokenResponse("new-access", "rotated-refresh", 3600, ""))
	})

	connection := fixture.connect(t, time.Now().Add(-time.Minute))

	var wg sync.WaitGroup
	results := make([]*model.Connection, 8)
	failures := make([]error, 8)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], failures[i] = fixture.refresher.EnsureFresh(context.Background(), connection)
		}(i)
	}
	wg.Wait()

	// All callers observe exactly one upstream exchange and consistent state
	assert.Equal(t, int64(1), fixture.tokenCalls.Load())

	for i := 0; i < 8; i++ {
		assert.NilError(t, failures[i])
		access, _, err := fixture.credentials.ConnectionTokens(results[i])
		assert.NilError(t, err)
		assert.Equal(t, "new-access", access)
	}
}

func TestEnsureFreshDeadRefreshTokenRequiresReauthorization(t *testing.T) {
	fixture := newRefreshFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "refresh token is invalid",
		})
	})

	connection := fixture.connect(t, time.Now().Add(-time.Minute))

	_, err := fixture.refresher.EnsureFresh(context.Background(), connection)
	assert.Assert(t, errors.Is(err, service.ErrReauthorizationRequired))

	// Credential is deactivated, not deleted
	stored, err := fixture.credentials.GetConnection("cloud-1")
	assert.NilError(t, err)
	assert.Equal(t, false, stored.IsActive)
}

func TestEnsureFreshRejectsInactiveConnection(t *testing.T) {
	fixture := newRefreshFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenResponse("new-access", "", 3600, ""))
	})

	fixture.connect(t, time.Now().Add(-time.Minute))
	assert.NilError(t, fixture.credentials.DeactivateConnection("cloud-1"))

	connection, err := fixture.credentials.GetConnection("cloud-1")
	assert.NilError(t, err)

	_, err = fixture.refresher.EnsureFresh(context.Background(), connection)
	assert.Assert(t, errors.Is(err, service.ErrReauthorizationRequired))
	assert.Equal(t, int64(0), fixture.tokenCalls.Load())
}
