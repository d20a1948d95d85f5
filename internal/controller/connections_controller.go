package controller

import (
	"net/http"

	"jirabridge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ConnectionRequest struct {
	TenantID string `uri:"tenant_id" binding:"required"`
}

type ConnectionsController struct {
	Router      *gin.RouterGroup
	Credentials *service.CredentialService
	Refresher   *service.RefreshService
	Discovery   *service.DiscoveryService
	Health      *service.HealthService
}

func NewConnectionsController(router *gin.RouterGroup, credentials *service.CredentialService, refresher *service.RefreshService, discovery *service.DiscoveryService, health *service.HealthService) *ConnectionsController {
	return &ConnectionsController{
		Router:      router,
		Credentials: credentials,
		Refresher:   refresher,
		Discovery:   discovery,
		Health:      health,
	}
}

func (controller *ConnectionsController) SetupRoutes() {
	connectionsGroup := controller.Router.Group("/connections")
	connectionsGroup.GET("", controller.listHandler)
	connectionsGroup.POST("/:tenant_id/test", controller.testHandler)
	connectionsGroup.POST("/:tenant_id/refresh", controller.refreshHandler)
	connectionsGroup.DELETE("/:tenant_id", controller.deleteHandler)
	connectionsGroup.GET("/:tenant_id/resources", controller.resourcesHandler)
	connectionsGroup.POST("/:tenant_id/resources/refresh", controller.refreshResourcesHandler)

	controller.Router.GET("/sites/accessible", controller.accessibleSitesHandler)
}

func (controller *ConnectionsController) listHandler(c *gin.Context) {
	connections, err := controller.Credentials.ListConnections()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      http.StatusOK,
		"message":     "OK",
		"connections": connections,
	})
}

func (controller *ConnectionsController) testHandler(c *gin.Context) {
	var req ConnectionRequest

	err := c.BindUri(&req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to bind URI")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  http.StatusBadRequest,
			"message": "Bad Request",
		})
		return
	}

	status, err := controller.Health.TestConnection(c.Request.Context(), req.TenantID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (controller *ConnectionsController) refreshHandler(c *gin.Context) {
	var req ConnectionRequest

	err := c.BindUri(&req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to bind URI")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  http.StatusBadRequest,
			"message": "Bad Request",
		})
		return
	}

	connection, err := controller.Credentials.GetConnection(req.TenantID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	fresh, err := controller.Refresher.EnsureFresh(c.Request.Context(), connection)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     http.StatusOK,
		"message":    "OK",
		"connection": fresh,
	})
}

func (controller *ConnectionsController) deleteHandler(c *gin.Context) {
	var req ConnectionRequest

	err := c.BindUri(&req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to bind URI")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  http.StatusBadRequest,
			"message": "Bad Request",
		})
		return
	}

	err = controller.Health.Revoke(c.Request.Context(), req.TenantID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"message": "OK",
	})
}

func (controller *ConnectionsController) resourcesHandler(c *gin.Context) {
	var req ConnectionRequest

	err := c.BindUri(&req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to bind URI")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  http.StatusBadRequest,
			"message": "Bad Request",
		})
		return
	}

	projects, err := controller.Discovery.CachedProjects(req.TenantID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   http.StatusOK,
		"message":  "OK",
		"projects": projects,
	})
}

func (controller *ConnectionsController) refreshResourcesHandler(c *gin.Context) {
	var req ConnectionRequest

	err := c.BindUri(&req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to bind URI")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  http.StatusBadRequest,
			"message": "Bad Request",
		})
		return
	}

	projects, err := controller.Discovery.RefreshProjects(c.Request.Context(), req.TenantID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   http.StatusOK,
		"message":  "OK",
		"projects": projects,
	})
}

func (controller *ConnectionsController) accessibleSitesHandler(c *gin.Context) {
	resources, err := controller.Discovery.AccessibleTenants(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"message": "OK",
		"sites":   resources,
	})
}
