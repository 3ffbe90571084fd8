package main

import (
	"log"
	"os"
	"time"

	"works-matching-backend/internal/config"
	"works-matching-backend/internal/logger"
	"works-matching-backend/internal/models"
	"works-matching-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg := config.Load()

	appLog, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	db := cfg.InitDB()

	if err := db.AutoMigrate(
		&models.Work{},
		&models.Batch{},
		&models.UsageRecord{},
		&models.Match{},
	); err != nil {
		appLog.Error("auto-migration failed", "error", err)
		os.Exit(1)
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := routes.RegisterRoutes(r, db, cfg, appLog); err != nil {
		appLog.Error("failed to register routes", "error", err)
		os.Exit(1)
	}

	appLog.Info("server listening", "addr", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		appLog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
