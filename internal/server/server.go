package server

import (
	"net/http"
	"time"

	"doodle-chain/internal/chain"
	"doodle-chain/internal/config"
	"doodle-chain/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server exposes a Store over HTTP. It adds no game logic: writes are
// unconditional overwrites of single records.
type Server struct {
	store   store.Store
	chains  *chain.Manager
	cfg     config.Config
	limiter *rateLimiter
}

func New(st store.Store, cfg config.Config) *Server {
	registerValidators()
	return &Server{
		store:   st,
		chains:  chain.NewManager(st, nil),
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
	}
}

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Accept"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/chains/:root", s.handleChainView)

	api := r.Group("/api", s.limiter.middleware())
	api.POST("/doodles", s.handleCreateDoodle)
	api.GET("/doodles", s.handleQueryDoodles)
	api.GET("/doodles/:id", s.handleFetchDoodle)
	api.GET("/doodles/:id/image", s.handleDoodleImage)
	api.PUT("/doodles/:id", s.handleUpdateDoodle)
	api.DELETE("/doodles/:id", s.handleDeleteDoodle)

	api.POST("/games", s.handleCreateGame)
	api.GET("/games", s.handleFindGames)
	api.GET("/games/:id", s.handleFetchGame)
	api.PUT("/games/:id", s.handleUpdateGame)
	api.DELETE("/games/:id", s.handleDeleteGame)
	return r
}
