package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"jirabridge/internal/controller"
	"jirabridge/internal/service"

	"github.com/gin-gonic/gin"
	"gotest.tools/v3/assert"
)

func newCredentialsRouter(t *testing.T) *gin.Engine {
	t.Helper()

	databaseService := service.NewDatabaseService(service.DatabaseServiceConfig{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
	})
	assert.NilError(t, databaseService.Init())

	cryptoService := service.NewCryptoService(service.CryptoServiceConfig{
		EncryptionKey: "test-encryption-key",
	})
	assert.NilError(t, cryptoService.Init())

	credentialService := service.NewCredentialService(service.CredentialServiceConfig{
		UserScope: "local",
	}, databaseService.GetDatabase(), cryptoService)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	api := router.Group("/api")
	controller.NewCredentialsController(api, credentialService).SetupRoutes()

	return router
}

func doRequest(t *testing.T, router *gin.Engine, method string, path string, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	var decoded map[string]any
	assert.NilError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))

	return recorder.Code, decoded
}

func TestCredentialsEndpoints(t *testing.T) {
	router := newCredentialsRouter(t)

	// Not configured yet
	code, body := doRequest(t, router, http.MethodGet, "/api/credentials", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["configured"])

	// Store a credential pair
	code, _ = doRequest(t, router, http.MethodPut, "/api/credentials", `{"client_id":"client-id","client_secret":"client-secret"}`)
	assert.Equal(t, http.StatusOK, code)

	code, body = doRequest(t, router, http.MethodGet, "/api/credentials", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["configured"])

	// Clear it again
	code, _ = doRequest(t, router, http.MethodDelete, "/api/credentials", "")
	assert.Equal(t, http.StatusOK, code)

	code, body = doRequest(t, router, http.MethodGet, "/api/credentials", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["configured"])
}

func TestSetCredentialsRejectsIncompleteBody(t *testing.T) {
	router := newCredentialsRouter(t)

	code, _ := doRequest(t, router, http.MethodPut, "/api/credentials", `{"client_id":"client-id"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, router, http.MethodPut, "/api/credentials", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSetCredentialsRejectsBlankValues(t *testing.T) {
	router := newCredentialsRouter(t)

	// Values that bind but fail service validation
	code, _ := doRequest(t, router, http.MethodPut, "/api/credentials", `{"client_id":"  ","client_secret":"  "}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCredentialsNeverEchoedBack(t *testing.T) {
	router := newCredentialsRouter(t)

	code, body := doRequest(t, router, http.MethodPut, "/api/credentials", `{"client_id":"client-id","client_secret":"super-secret"}`)
	assert.Equal(t, http.StatusOK, code)

	for _, value := range body {
		str, ok := value.(string)
		if ok {
			assert.Assert(t, !strings.Contains(str, "super-secret"))
		}
	}

	_, body = doRequest(t, router, http.MethodGet, "/api/credentials", "")
	_, ok := body["client_secret"]
	assert.Equal(t, false, ok)
}
