package controller

import (
	"net/http"

	"jirabridge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type SetCredentialsRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

type CredentialsController struct {
	Router      *gin.RouterGroup
	Credentials *service.CredentialService
}

func NewCredentialsController(router *gin.RouterGroup, credentials *service.CredentialService) *CredentialsController {
	return &CredentialsController{
		Router:      router,
		Credentials: credentials,
	}
}

func (controller *CredentialsController) SetupRoutes() {
	controller.Router.GET("/credentials", controller.statusHandler)
	controller.Router.PUT("/credentials", controller.setHandler)
	controller.Router.DELETE("/credentials", controller.clearHandler)
}

func (controller *CredentialsController) statusHandler(c *gin.Context) {
	configured, err := controller.Credentials.AppCredentialConfigured()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     http.StatusOK,
		"message":    "OK",
		"configured": configured,
	})
}

func (controller *CredentialsController) setHandler(c *gin.Context) {
	var req SetCredentialsRequest

	err := c.BindJSON(&req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  http.StatusBadRequest,
			"message": "Bad Request",
		})
		return
	}

	err = controller.Credentials.SetAppCredential(req.ClientID, req.ClientSecret)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	log.Info().Msg("OAuth client credentials stored")

	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"message": "OK",
	})
}

func (controller *CredentialsController) clearHandler(c *gin.Context) {
	err := controller.Credentials.ClearAppCredential()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	log.Info().Msg("OAuth client credentials cleared")

	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"message": "OK",
	})
}
