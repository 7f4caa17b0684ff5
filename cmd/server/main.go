// Package main is the entry point for the cratehub server.
package main

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cratehub/cratehub/internal/config"
	"github.com/cratehub/cratehub/internal/handler"
	"github.com/cratehub/cratehub/internal/logging"
	"github.com/cratehub/cratehub/internal/registry"
	"github.com/cratehub/cratehub/internal/watcher"
)

//go:embed web/*
var webFS embed.FS

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log, err := logging.New(cfg)
	if err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}

	log.Infof("cratehub - crate source browser")
	if cfg.GetConfigFilePath() != "" {
		log.Infof("Config file: %s", cfg.GetConfigFilePath())
	}
	log.Infof("Registry root: %s", cfg.RegistryRoot)

	// Build the release index
	reg := registry.New(cfg.RegistryRoot, log)
	if err := reg.Reload(); err != nil {
		log.Fatalf("Failed to scan registry: %v", err)
	}
	crates, releases := reg.Counts()
	log.Infof("Indexed %d crate(s), %d release(s)", crates, releases)

	// Create handlers
	sourceHandler := handler.NewSourceHandler(reg, log)
	crateHandler := handler.NewCrateHandler(reg)
	wsHandler := handler.NewWSHandler()

	// Setup registry watcher if enabled
	if cfg.Watch {
		w, err := watcher.New(cfg.RegistryRoot, log)
		if err != nil {
			log.Warnf("Failed to create registry watcher: %v", err)
		} else {
			w.OnChange(func(e watcher.Event) {
				if err := reg.Reload(); err != nil {
					log.Warnf("Index reload failed: %v", err)
					return
				}
				wsHandler.OnRegistryChange(e)
			})
			if err := w.Start(); err != nil {
				log.Warnf("Failed to start registry watcher: %v", err)
			}
			defer func() { _ = w.Stop() }()
			log.Infof("Registry watcher enabled")
		}
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// Source browser
	r.GET("/crate/:name/:version/source/*path", sourceHandler.GetSource)

	// API routes
	api := r.Group("/api")
	{
		api.GET("/crates", crateHandler.GetCrates)
		api.GET("/crates/:name", crateHandler.GetVersions)
		api.GET("/health", crateHandler.GetHealth)
		api.GET("/ws", wsHandler.HandleWS)
	}

	// Serve embedded static files
	webContent, err := fs.Sub(webFS, "web")
	if err != nil {
		log.Fatalf("Failed to load web assets: %v", err)
	}
	r.NoRoute(gin.WrapH(http.FileServer(http.FS(webContent))))

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Infof("Server starting at: http://localhost%s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
