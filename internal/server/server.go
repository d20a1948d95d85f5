package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ServerConfig struct {
	Port           int
	Address        string
	TrustedProxies []string
}

type Middleware interface {
	Middleware() gin.HandlerFunc
	Init() error
	Name() string
}

type Controller interface {
	SetupRoutes()
}

type Server struct {
	Config ServerConfig
	Router *gin.Engine
}

func NewServer(config ServerConfig, middlewares []Middleware, setup func(api *gin.RouterGroup) []Controller) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if len(config.TrustedProxies) > 0 {
		err := router.SetTrustedProxies(config.TrustedProxies)
		if err != nil {
			return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
		}
	}

	for _, middleware := range middlewares {
		log.Debug().Str("middleware", middleware.Name()).Msg("Initializing middleware")
		err := middleware.Init()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize middleware %s: %w", middleware.Name(), err)
		}
		router.Use(middleware.Middleware())
	}

	api := router.Group("/api")

	for _, controller := range setup(api) {
		controller.SetupRoutes()
	}

	// App routes
	api.GET("/healthcheck", healthcheckHandler)
	api.HEAD("/healthcheck", healthcheckHandler)

	return &Server{
		Config: config,
		Router: router,
	}, nil
}

func healthcheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"message": "OK",
	})
}

func (s *Server) Start() error {
	log.Info().Str("address", s.Config.Address).Int("port", s.Config.Port).Msg("Starting server")
	return s.Router.Run(fmt.Sprintf("%s:%d", s.Config.Address, s.Config.Port))
}
