package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"works-matching-backend/internal/config"
	"works-matching-backend/internal/handlers"
	"works-matching-backend/internal/logger"
	"works-matching-backend/internal/repository"
	"works-matching-backend/internal/services/fileproc"
	"works-matching-backend/internal/services/matching"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, log *logger.Logger) error {
	batchRepo := repository.NewBatchRepository(db)
	recordRepo := repository.NewUsageRecordRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	workRepo := repository.NewWorkRepository(db)

	engine := matching.NewEngine(cfg, workRepo, log)
	if err := engine.LoadCatalog(); err != nil {
		return err
	}
	processor := fileproc.NewProcessor(batchRepo, recordRepo, matchRepo, engine, log)

	uploadHandler := handlers.NewUploadHandler(processor, cfg.MaxFileSizeMB, log)
	batchHandler := handlers.NewBatchHandler(batchRepo, log)
	matchHandler := handlers.NewMatchHandler(matchRepo, recordRepo, log)
	exportHandler := handlers.NewExportHandler(matchRepo, recordRepo, log)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api.POST("/upload", uploadHandler.Upload)
	api.POST("/upload/validate", uploadHandler.Validate)

	batches := api.Group("/batches")
	batches.GET("", batchHandler.List)
	batches.GET("/:batchId", batchHandler.Get)
	batches.DELETE("/:batchId", batchHandler.Delete)

	matches := api.Group("/matches")
	matches.GET("/batch/:batchId", matchHandler.ListByBatch)
	matches.GET("/unmatched/:batchId", matchHandler.ListUnmatched)
	matches.POST("/:matchId/review", matchHandler.Review)
	matches.GET("/export/:batchId/unmatched", exportHandler.Unmatched)
	matches.GET("/export/:batchId/flagged", exportHandler.Flagged)

	return nil
}
