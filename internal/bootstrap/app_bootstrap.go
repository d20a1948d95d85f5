package bootstrap

import (
	"context"
	"fmt"
	"time"

	"jirabridge/internal/config"
	"jirabridge/internal/controller"
	"jirabridge/internal/middleware"
	"jirabridge/internal/server"
	"jirabridge/internal/service"
	"jirabridge/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Services struct {
	DatabaseService   *service.DatabaseService
	CryptoService     *service.CryptoService
	CredentialService *service.CredentialService
	AtlassianService  *service.AtlassianService
	FlowService       *service.FlowService
	RefreshService    *service.RefreshService
	DiscoveryService  *service.DiscoveryService
	HealthService     *service.HealthService
}

type BootstrapApp struct {
	config   config.Config
	services Services
}

func NewBootstrapApp(config config.Config) *BootstrapApp {
	return &BootstrapApp{
		config: config,
	}
}

func (app *BootstrapApp) Setup() error {
	services, err := app.initServices()
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	app.services = services

	// Optional proactive refresh, tokens are always refreshed lazily anyway
	if app.config.RefreshSweepInterval > 0 {
		go app.refreshSweep(time.Duration(app.config.RefreshSweepInterval) * time.Second)
	}

	// Middlewares
	middlewares := []server.Middleware{
		middleware.NewZerologMiddleware(),
	}

	// Server
	srv, err := server.NewServer(server.ServerConfig{
		Port:           app.config.Port,
		Address:        app.config.Address,
		TrustedProxies: utils.ParseCommaString(app.config.TrustedProxies),
	}, middlewares, func(api *gin.RouterGroup) []server.Controller {
		return []server.Controller{
			controller.NewCredentialsController(api, services.CredentialService),
			controller.NewOAuthController(api, services.FlowService),
			controller.NewConnectionsController(api, services.CredentialService, services.RefreshService, services.DiscoveryService, services.HealthService),
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

func (app *BootstrapApp) initServices() (Services, error) {
	var services Services

	// Database
	databaseService := service.NewDatabaseService(service.DatabaseServiceConfig{
		DatabasePath: app.config.DatabasePath,
	})

	err := databaseService.Init()
	if err != nil {
		return services, fmt.Errorf("failed to initialize database service: %w", err)
	}

	services.DatabaseService = databaseService

	// Crypto
	cryptoService := service.NewCryptoService(service.CryptoServiceConfig{
		EncryptionKey: utils.GetSecret(app.config.EncryptionKey, app.config.EncryptionKeyFile),
	})

	err = cryptoService.Init()
	if err != nil {
		return services, fmt.Errorf("failed to initialize crypto service: %w", err)
	}

	services.CryptoService = cryptoService

	// Credentials
	services.CredentialService = service.NewCredentialService(service.CredentialServiceConfig{
		UserScope: app.config.UserScope,
	}, databaseService.GetDatabase(), cryptoService)

	// Atlassian client
	atlassianService := service.NewAtlassianService(service.AtlassianServiceConfig{
		Timeout: time.Duration(app.config.UpstreamTimeout) * time.Second,
	})

	err = atlassianService.Init()
	if err != nil {
		return services, fmt.Errorf("failed to initialize atlassian service: %w", err)
	}

	services.AtlassianService = atlassianService

	// Flow coordinator
	redirectURI := app.config.RedirectURI
	if redirectURI == "" {
		redirectURI = app.config.AppURL + "/api/oauth/callback"
	}

	services.FlowService = service.NewFlowService(service.FlowServiceConfig{
		RedirectURI: redirectURI,
		StateExpiry: time.Duration(app.config.StateExpiry) * time.Second,
	}, services.CredentialService, atlassianService)

	// Refresher
	services.RefreshService = service.NewRefreshService(service.RefreshServiceConfig{
		Margin: time.Duration(app.config.RefreshMargin) * time.Second,
	}, services.CredentialService, atlassianService)

	// Discovery and health
	services.DiscoveryService = service.NewDiscoveryService(services.CredentialService, atlassianService, services.RefreshService)
	services.HealthService = service.NewHealthService(services.CredentialService, atlassianService, services.RefreshService)

	return services, nil
}

func (app *BootstrapApp) refreshSweep(interval time.Duration) {
	log.Info().Dur("interval", interval).Msg("Starting refresh sweep")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		app.services.RefreshService.Sweep(context.Background())
	}
}
