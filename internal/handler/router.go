package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filegpt/filegpt/internal/middleware"
)

type RouterDeps struct {
	Files  *FileHandler
	Ingest *IngestHandler
	Query  *QueryHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	uploadLimit := middleware.RateLimit(2 * time.Second)

	api.POST("/files/upload", uploadLimit, deps.Files.Upload)
	api.GET("/files", deps.Files.List)
	api.POST("/files/update", deps.Files.Update)
	api.POST("/files/process", uploadLimit, deps.Ingest.Process)
	api.GET("/files/blob/:key", deps.Files.Blob)

	api.POST("/query", deps.Query.Query)
}
