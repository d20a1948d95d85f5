package service_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"jirabridge/internal/service"

	"gotest.tools/v3/assert"
)

func newDatabaseService(t *testing.T) *service.DatabaseService {
	t.Helper()

	databaseService := service.NewDatabaseService(service.DatabaseServiceConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
	})
	assert.NilError(t, databaseService.Init())

	return databaseService
}

func newCryptoService(t *testing.T) *service.CryptoService {
	t.Helper()

	cryptoService := service.NewCryptoService(service.CryptoServiceConfig{
		EncryptionKey: "test-encryption-key",
	})
	assert.NilError(t, cryptoService.Init())

	return cryptoService
}

func newCredentialService(t *testing.T) *service.CredentialService {
	t.Helper()

	return service.NewCredentialService(service.CredentialServiceConfig{
		UserScope: "local",
	}, newDatabaseService(t).GetDatabase(), newCryptoService(t))
}

// newAtlassianService points a provider client at a fake Atlassian server.
func newAtlassianService(t *testing.T, handler http.Handler) *service.AtlassianService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	atlassianService := service.NewAtlassianService(service.AtlassianServiceConfig{
		AuthorizeURL:           server.URL + "/authorize",
		TokenURL:               server.URL + "/oauth/token",
		RevokeURL:              server.URL + "/oauth/revoke",
		AccessibleResourcesURL: server.URL + "/oauth/token/accessible-resources",
		APIBaseURL:             server.URL + "/ex/jira",
		Timeout:                5 * time.Second,
	})
	assert.NilError(t, atlassianService.Init())

	return atlassianService
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func tokenResponse(accessToken string, refreshToken string, expiresIn int, scope string) map[string]any {
	body := map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
		"scope":        scope,
	}
	if refreshToken != "" {
		body["refresh_token"] = refreshToken
	}
	return body
}
