package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/proofhtf/proofhtf-api/internal/chainenv"
	"github.com/proofhtf/proofhtf-api/internal/config"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/proofhtf/proofhtf-api/internal/server"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	// Initialize logger first
	logger.InitLogger(cfg.Stage)
	defer logger.Sync()

	env, err := chainenv.New(cfg)
	if err != nil {
		logger.Fatal("Unable to initialize chain environment", zap.Error(err))
	}
	defer env.Close()

	r := gin.Default()
	server.InitializeHandlers(env)
	server.InitializeRoutes(r)

	logger.Info("Server starting",
		zap.String("port", cfg.Port),
		zap.String("stage", cfg.Stage),
		zap.Uint64("chain_id", cfg.ChainID))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Error starting server", zap.Error(err))
	}
}
