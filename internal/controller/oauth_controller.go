package controller

import (
	"net/http"

	"jirabridge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type OAuthStartRequest struct {
	RedirectURI string `json:"redirect_uri"`
}

type OAuthCallbackQuery struct {
	Code  string `form:"code" binding:"required"`
	State string `form:"state" binding:"required"`
}

type OAuthController struct {
	Router *gin.RouterGroup
	Flow   *service.FlowService
}

func NewOAuthController(router *gin.RouterGroup, flow *service.FlowService) *OAuthController {
	return &OAuthController{
		Router: router,
		Flow:   flow,
	}
}

func (controller *OAuthController) SetupRoutes() {
	oauthGroup := controller.Router.Group("/oauth")
	oauthGroup.POST("/start", controller.startHandler)
	oauthGroup.GET("/callback", controller.callbackHandler)
}

func (controller *OAuthController) startHandler(c *gin.Context) {
	var req OAuthStartRequest

	if c.Request.ContentLength > 0 {
		err := c.BindJSON(&req)
		if err != nil {
			log.Error().Err(err).Msg("Failed to bind JSON")
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  http.StatusBadRequest,
				"message": "Bad Request",
			})
			return
		}
	}

	result, err := controller.Flow.Start(req.RedirectURI)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            http.StatusOK,
		"message":           "OK",
		"authorization_url": result.AuthorizationURL,
		"state":             result.State,
	})
}

func (controller *OAuthController) callbackHandler(c *gin.Context) {
	var query OAuthCallbackQuery

	err := c.BindQuery(&query)
	if err != nil {
		log.Error().Err(err).Msg("Failed to bind query")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  http.StatusBadRequest,
			"message": "Bad Request",
		})
		return
	}

	connections, err := controller.Flow.HandleCallback(c.Request.Context(), query.State, query.Code)
	if err != nil {
		log.Error().Err(err).Msg("Authorization callback failed")
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      http.StatusOK,
		"message":     "OK",
		"connections": connections,
	})
}
