package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emilythestrangee/blog/backend/internal/auth"
	"github.com/emilythestrangee/blog/backend/internal/config"
	"github.com/emilythestrangee/blog/backend/internal/database"
	"github.com/emilythestrangee/blog/backend/internal/handlers"
	"github.com/emilythestrangee/blog/backend/internal/middleware"
	"github.com/emilythestrangee/blog/backend/internal/web"
)

type Server struct {
	cfg     *config.Config
	db      database.Service
	handler *handlers.Handler
	tokens  *auth.Tokens
	logger  *slog.Logger
}

func New(cfg *config.Config, db database.Service, handler *handlers.Handler, tokens *auth.Tokens, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, db: db, handler: handler, tokens: tokens, logger: logger}
}

// HTTPServer wraps the router in a configured *http.Server.
func (s *Server) HTTPServer() (*http.Server, error) {
	router, err := s.RegisterRoutes()
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, nil
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() (*gin.Engine, error) {
	r := gin.New()
	r.Use(middleware.RequestLogger(s.logger), gin.Recovery())

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes()

	r.Use(cors.New(corsConfig(s.cfg.Origins())))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if s.cfg.MediaBackend == "local" {
		r.Static(strings.TrimSuffix(s.cfg.MediaURL, "/"), s.cfg.MediaRoot)
	}

	pages := s.handler.Page
	site := r.Group("")
	site.Use(middleware.OptionalAuth(s.tokens))
	{
		site.GET("/", pages.PostList)
		site.GET("/posts/:id", pages.PostDetail)
		site.GET("/login", pages.LoginForm)
		site.POST("/login", pages.Login)
		site.POST("/logout", pages.Logout)
	}

	uploadLimit := middleware.LimitBody(s.cfg.MaxUploadBytes() + middleware.FormOverhead)

	authoring := r.Group("/create")
	authoring.Use(middleware.LoginRequired(s.tokens))
	{
		authoring.GET("", pages.CreatePostForm)
		authoring.POST("", uploadLimit, pages.CreatePost)
	}

	api := r.Group("/api")
	{
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		api.GET("/posts", s.handler.Post.GetPosts)
		api.GET("/posts/search", s.handler.Post.SearchPosts)
		api.GET("/posts/:id", s.handler.Post.GetPost)

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(s.tokens))
		{
			protected.GET("/me", s.handler.Auth.GetMe)
			protected.POST("/posts", uploadLimit, s.handler.Post.CreatePost)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.HTML(http.StatusNotFound, "not_found.html", gin.H{
			"title":   "Not found",
			"view":    "not_found",
			"message": "The page you requested does not exist.",
		})
	})

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func (s *Server) health(c *gin.Context) {
	stats := s.db.Health()
	if stats["status"] != "up" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": stats})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": stats})
}
